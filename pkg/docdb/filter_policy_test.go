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
	"fmt"
	"testing"

	"github.com/cockroachdb/pebble"
	"github.com/stretchr/testify/require"

	"github.com/stratadb/strata/pkg/util/hlc"
)

func hashedDocKey(user string) DocKey {
	hashed := []PrimitiveValue{StringValue(user)}
	return MakeDocKey(DocKeyHash(hashed...), hashed, nil)
}

func TestFilterKeyExtraction(t *testing.T) {
	dk := hashedDocKey("user-1")
	prefix := dk.Encode().AsSlice()
	hashedLen, err := DocKeyEncodedSize(prefix, HashedPartOnly)
	require.NoError(t, err)

	// Every SubDocKey of the document maps to the same filter key: the
	// hashed part of its DocKey.
	for _, sk := range []SubDocKey{
		MakeSubDocKey(dk),
		MakeSubDocKey(dk, StringValue("col"), Int64Value(3)),
		MakeSubDocKeyAt(dk, hlc.New(1000, 0), StringValue("col")),
	} {
		require.Equal(t, prefix[:hashedLen], filterKey(sk.Encode(true).AsSlice()))
	}

	// Unparseable keys pass through untouched.
	garbage := []byte{0xff, 0x01, 0x02}
	require.Equal(t, garbage, filterKey(garbage))

	// Keys with no hash prefix have no hashed part; they all map to the
	// empty filter key and are never pruned.
	rk := MakeRangeDocKey(StringValue("r")).Encode().AsSlice()
	require.Empty(t, filterKey(rk))
}

func TestDocKeyAwareFilterPolicy(t *testing.T) {
	policy := NewDocKeyAwareFilterPolicy(10)
	require.Equal(t, "docdb.DocKeyHashedComponentsFilter", policy.Name())

	// Build a filter over subdocument keys of a handful of documents.
	w := policy.NewWriter(pebble.TableFilter)
	for i := 0; i < 10; i++ {
		dk := hashedDocKey(fmt.Sprintf("user-%d", i))
		w.AddKey(MakeSubDocKey(dk, StringValue("a")).Encode(true).AsSlice())
		w.AddKey(MakeSubDocKey(dk, StringValue("b"), Int64Value(int64(i))).Encode(true).AsSlice())
	}
	filter := w.Finish(nil)
	require.NotEmpty(t, filter)

	// A never-added subkey of an added document must hit: it shares the
	// document's filter key.
	dk := hashedDocKey("user-3")
	probe := MakeSubDocKey(dk, StringValue("never-written"), NullValue()).Encode(true).AsSlice()
	require.True(t, policy.MayContain(pebble.TableFilter, filter, probe))

	// Documents that were never added mostly miss. Bloom filters allow
	// false positives, so require a comfortable majority rather than
	// all.
	misses := 0
	for i := 0; i < 100; i++ {
		other := hashedDocKey(fmt.Sprintf("absent-%d", i))
		probe := MakeSubDocKey(other, StringValue("a")).Encode(true).AsSlice()
		if !policy.MayContain(pebble.TableFilter, filter, probe) {
			misses++
		}
	}
	require.Greater(t, misses, 50)
}
