// Copyright 2023 The Strata Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

package docdb

import (
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/bloom"
)

// DocKeyAwareFilterPolicy is a bloom filter policy that hashes only the
// hashed part of each key: the hash prefix and hashed components. Every
// SubDocKey of a hash-partitioned document then maps to the same filter
// key, so point lookups on a document prune SSTs regardless of which
// subkeys they touch. Keys without a hash prefix have an empty hashed
// part and all share one filter key; the filter never prunes for them
// but stays correct.
type DocKeyAwareFilterPolicy struct {
	underlying pebble.FilterPolicy
}

var _ pebble.FilterPolicy = (*DocKeyAwareFilterPolicy)(nil)

// NewDocKeyAwareFilterPolicy returns a policy backed by a standard
// bloom filter with the given bits per key.
func NewDocKeyAwareFilterPolicy(bitsPerKey int) *DocKeyAwareFilterPolicy {
	return &DocKeyAwareFilterPolicy{underlying: bloom.FilterPolicy(bitsPerKey)}
}

// Name identifies the filter format. Changing the key transform
// requires a new name, or existing filters would give false negatives.
func (p *DocKeyAwareFilterPolicy) Name() string {
	return "docdb.DocKeyHashedComponentsFilter"
}

// MayContain queries the filter using the fixed part of key.
func (p *DocKeyAwareFilterPolicy) MayContain(ftype pebble.FilterType, filter, key []byte) bool {
	return p.underlying.MayContain(ftype, filter, filterKey(key))
}

// NewWriter returns a filter builder that applies the key transform on
// every added key.
func (p *DocKeyAwareFilterPolicy) NewWriter(ftype pebble.FilterType) pebble.FilterWriter {
	return &docKeyAwareFilterWriter{underlying: p.underlying.NewWriter(ftype)}
}

// filterKey extracts the part of an encoded key covered by the filter.
// Keys that do not parse as a DocKey prefix are used as-is; a stray key
// degrades filter selectivity but stays correct.
func filterKey(key []byte) []byte {
	n, err := DocKeyEncodedSize(key, HashedPartOnly)
	if err != nil {
		return key
	}
	return key[:n]
}

type docKeyAwareFilterWriter struct {
	underlying pebble.FilterWriter
}

func (w *docKeyAwareFilterWriter) AddKey(key []byte) {
	w.underlying.AddKey(filterKey(key))
}

func (w *docKeyAwareFilterWriter) Finish(buf []byte) []byte {
	return w.underlying.Finish(buf)
}
