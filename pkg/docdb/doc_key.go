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
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"

	"github.com/stratadb/strata/pkg/util/encoding"
)

// DocKey identifies a document: an optional 16-bit partition hash, the
// hashed components the hash was computed over, and the range
// components. A key without a hash prefix holds range components only.
//
// Encoded layout, with the hash prefix present:
//
//	'H' <2-byte hash> <hashed components> '!' <range components> '!'
//
// and without it:
//
//	<range components> '!'
type DocKey struct {
	hashPresent bool
	hash        uint16
	hashedGroup []PrimitiveValue
	rangeGroup  []PrimitiveValue
}

// MakeDocKey returns a DocKey with a hash prefix. The caller supplies
// the hash; DocKeyHash computes the canonical one.
func MakeDocKey(hash uint16, hashedGroup, rangeGroup []PrimitiveValue) DocKey {
	return DocKey{
		hashPresent: true,
		hash:        hash,
		hashedGroup: hashedGroup,
		rangeGroup:  rangeGroup,
	}
}

// MakeRangeDocKey returns a DocKey with no hash prefix.
func MakeRangeDocKey(rangeGroup ...PrimitiveValue) DocKey {
	return DocKey{rangeGroup: rangeGroup}
}

// DocKeyHash computes the canonical 16-bit partition hash over the key
// encodings of the hashed components.
func DocKeyHash(components ...PrimitiveValue) uint16 {
	var kb KeyBytes
	for _, v := range components {
		v.AppendToKey(&kb)
	}
	h := xxhash.Sum64(kb.AsSlice())
	return uint16(h ^ (h >> 16) ^ (h >> 32) ^ (h >> 48))
}

// HashPresent reports whether the key carries a hash prefix.
func (d DocKey) HashPresent() bool { return d.hashPresent }

// Hash returns the partition hash; meaningless unless HashPresent.
func (d DocKey) Hash() uint16 { return d.hash }

// HashedGroup returns the hashed components.
func (d DocKey) HashedGroup() []PrimitiveValue { return d.hashedGroup }

// RangeGroup returns the range components.
func (d DocKey) RangeGroup() []PrimitiveValue { return d.rangeGroup }

// ClearRangeComponents drops the range components, leaving the hash
// prefix and hashed group in place. Useful for turning a full key into
// the prefix shared by every row of its hash bucket.
func (d *DocKey) ClearRangeComponents() {
	d.rangeGroup = d.rangeGroup[:0]
}

// AddRangeComponent appends one range component.
func (d *DocKey) AddRangeComponent(v PrimitiveValue) {
	d.rangeGroup = append(d.rangeGroup, v)
}

// Encode returns the encoded form of the key.
func (d DocKey) Encode() KeyBytes {
	return d.AppendTo(nil)
}

// AppendTo appends the encoded form of the key to kb.
func (d DocKey) AppendTo(kb KeyBytes) KeyBytes {
	if d.hashPresent {
		kb.AppendValueType(TypeUInt16Hash)
		kb.AppendUInt16(d.hash)
		for _, v := range d.hashedGroup {
			v.AppendToKey(&kb)
		}
		kb.AppendValueType(TypeGroupEnd)
	}
	for _, v := range d.rangeGroup {
		v.AppendToKey(&kb)
	}
	kb.AppendValueType(TypeGroupEnd)
	return kb
}

// DocKeyPart selects how much of an encoded DocKey an operation
// consumes.
type DocKeyPart int

const (
	// WholeDocKey consumes the hashed and range groups.
	WholeDocKey DocKeyPart = iota
	// HashedPartOnly stops after the hashed group's terminator. A key
	// with no hash prefix has no hashed part, so nothing is consumed.
	HashedPartOnly
)

// docKeySink receives the pieces of a DocKey as doDecode walks the
// encoded bytes. raw is the encoded form of the component including its
// tag byte, aliasing the input.
type docKeySink interface {
	setHash(hash uint16)
	hashedGroupComponent(raw []byte, v PrimitiveValue)
	rangeGroupComponent(raw []byte, v PrimitiveValue)
}

// doDecode is the single decoding loop behind every DocKey read path.
// It returns the bytes remaining after the consumed part.
func doDecode(b []byte, part DocKeyPart, sink docKeySink) ([]byte, error) {
	switch part {
	case WholeDocKey, HashedPartOnly:
	default:
		panic(fmt.Sprintf("unknown DocKeyPart %d", int(part)))
	}
	if len(b) == 0 {
		return nil, NewCorruptionf("empty key cannot be decoded as a DocKey")
	}

	if ValueType(b[0]) == TypeUInt16Hash {
		rest, hash, err := encoding.DecodeUint16Ascending(b[1:])
		if err != nil {
			return nil, MarkCorruption(err)
		}
		sink.setHash(hash)
		b = rest
		if b, err = decodeGroup(b, sink.hashedGroupComponent); err != nil {
			return nil, errors.Wrap(err, "decoding the hashed components of a DocKey")
		}
		if part == HashedPartOnly {
			return b, nil
		}
	} else if part == HashedPartOnly {
		// No hash prefix, no hashed part: nothing to consume.
		return b, nil
	}

	b, err := decodeGroup(b, sink.rangeGroupComponent)
	if err != nil {
		return nil, errors.Wrap(err, "decoding the range components of a DocKey")
	}
	return b, nil
}

// decodeGroup consumes primitive values up to and including a GroupEnd.
func decodeGroup(b []byte, emit func(raw []byte, v PrimitiveValue)) ([]byte, error) {
	for {
		if len(b) == 0 {
			return nil, NewCorruptionf("missing a group terminator")
		}
		if ValueType(b[0]) == TypeGroupEnd {
			return b[1:], nil
		}
		var v PrimitiveValue
		rest, err := v.DecodeFromKey(b)
		if err != nil {
			return nil, err
		}
		emit(b[:len(b)-len(rest)], v)
		b = rest
	}
}

// docKeyValueSink populates a DocKey.
type docKeyValueSink struct {
	key *DocKey
}

func (s docKeyValueSink) setHash(hash uint16) {
	s.key.hashPresent = true
	s.key.hash = hash
}

func (s docKeyValueSink) hashedGroupComponent(_ []byte, v PrimitiveValue) {
	s.key.hashedGroup = append(s.key.hashedGroup, v)
}

func (s docKeyValueSink) rangeGroupComponent(_ []byte, v PrimitiveValue) {
	s.key.rangeGroup = append(s.key.rangeGroup, v)
}

// discardSink decodes for side effects only; used to measure sizes.
type discardSink struct{}

func (discardSink) setHash(uint16)                              {}
func (discardSink) hashedGroupComponent([]byte, PrimitiveValue) {}
func (discardSink) rangeGroupComponent([]byte, PrimitiveValue)  {}

// rawRangeSink collects the encoded form of each range component.
type rawRangeSink struct {
	raw *[][]byte
}

func (rawRangeSink) setHash(uint16)                              {}
func (rawRangeSink) hashedGroupComponent([]byte, PrimitiveValue) {}

func (s rawRangeSink) rangeGroupComponent(raw []byte, _ PrimitiveValue) {
	*s.raw = append(*s.raw, raw)
}

// DecodeFrom resets d and decodes the requested part of an encoded
// DocKey from the front of b, returning the number of bytes consumed.
func (d *DocKey) DecodeFrom(b []byte, part DocKeyPart) (int, error) {
	*d = DocKey{}
	rest, err := doDecode(b, part, docKeyValueSink{key: d})
	if err != nil {
		return 0, err
	}
	return len(b) - len(rest), nil
}

// FullyDecodeFrom decodes b as a whole DocKey and rejects trailing
// bytes with an InvalidArgument-class error.
func (d *DocKey) FullyDecodeFrom(b []byte) error {
	n, err := d.DecodeFrom(b, WholeDocKey)
	if err != nil {
		return err
	}
	if n != len(b) {
		return NewInvalidArgumentf(
			"expected all %d bytes of the input to be decoded as a DocKey, %d bytes left over",
			len(b), len(b)-n)
	}
	return nil
}

// DocKeyEncodedSize returns the length of the requested part of the
// encoded DocKey at the front of b.
func DocKeyEncodedSize(b []byte, part DocKeyPart) (int, error) {
	rest, err := doDecode(b, part, discardSink{})
	if err != nil {
		return 0, err
	}
	return len(b) - len(rest), nil
}

// PartiallyDecodeDocKey returns the encoded form of each range
// component of the DocKey at the front of b, without materializing the
// values. The slices alias b.
func PartiallyDecodeDocKey(b []byte) ([][]byte, error) {
	var raw [][]byte
	if _, err := doDecode(b, WholeDocKey, rawRangeSink{raw: &raw}); err != nil {
		return nil, err
	}
	return raw, nil
}

// CompareTo returns -1, 0, or 1. Both keys must agree on the presence
// of the hash prefix; comparing across partitioning schemes is a
// programming error.
func (d DocKey) CompareTo(other DocKey) int {
	if d.hashPresent != other.hashPresent {
		panic("comparing a hash-partitioned DocKey with a range-partitioned one")
	}
	if d.hashPresent {
		if c := compareUint16(d.hash, other.hash); c != 0 {
			return c
		}
		if c := comparePrimitiveValues(d.hashedGroup, other.hashedGroup); c != 0 {
			return c
		}
	}
	return comparePrimitiveValues(d.rangeGroup, other.rangeGroup)
}

// Equal reports whether the two keys are identical.
func (d DocKey) Equal(other DocKey) bool {
	return d.hashPresent == other.hashPresent &&
		(!d.hashPresent || d.hash == other.hash) &&
		primitiveValuesEqual(d.hashedGroup, other.hashedGroup) &&
		primitiveValuesEqual(d.rangeGroup, other.rangeGroup)
}

// AdvanceOutOfDocKeyPrefix returns the smallest key greater than every
// key whose document belongs to d: the encoding with the final group
// terminator replaced by a byte above all valid tags.
func (d DocKey) AdvanceOutOfDocKeyPrefix() KeyBytes {
	kb := d.Encode()
	kb.RemoveValueTypeSuffix(TypeGroupEnd)
	kb.AppendValueType(TypeMaxByte)
	return kb
}

func (d DocKey) String() string {
	var sb strings.Builder
	sb.WriteString("DocKey(")
	if d.hashPresent {
		fmt.Fprintf(&sb, "0x%04x, ", d.hash)
		writeValueList(&sb, d.hashedGroup)
		sb.WriteString(", ")
	}
	writeValueList(&sb, d.rangeGroup)
	sb.WriteString(")")
	return sb.String()
}

func writeValueList(sb *strings.Builder, values []PrimitiveValue) {
	sb.WriteString("[")
	for i, v := range values {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(v.String())
	}
	sb.WriteString("]")
}

func compareUint16(a, b uint16) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
