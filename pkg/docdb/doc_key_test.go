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
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

// Pins the encoded layout of a hash-partitioned key:
// 'H', 2-byte hash, hashed group, '!', range group, '!'.
func TestDocKeyEncodeLayout(t *testing.T) {
	dk := MakeDocKey(0x1234,
		[]PrimitiveValue{StringValue("aa")},
		[]PrimitiveValue{StringValue("bb")})
	require.Equal(t,
		mustHex(t, "481234"+"246161"+"0001"+"21"+"246262"+"0001"+"21"),
		dk.Encode().AsSlice())
	require.Equal(t, `DocKey(0x1234, ["aa"], ["bb"])`, dk.String())

	rk := MakeRangeDocKey(StringValue("a"), Int32Value(42))
	require.Equal(t,
		mustHex(t, "2461"+"0001"+"49"+"8000002a"+"21"),
		rk.Encode().AsSlice())
	require.Equal(t, `DocKey(["a", 42])`, rk.String())

	// An empty range-partitioned key is a bare group terminator.
	require.Equal(t, []byte{0x21}, MakeRangeDocKey().Encode().AsSlice())
}

func TestDocKeyRangeComponentEditing(t *testing.T) {
	dk := MakeDocKey(0x1234,
		[]PrimitiveValue{StringValue("aa")},
		[]PrimitiveValue{StringValue("bb")})

	dk.ClearRangeComponents()
	require.Empty(t, dk.RangeGroup())
	// The hashed part is untouched and the key now encodes as the hash
	// bucket prefix.
	require.Equal(t,
		mustHex(t, "481234"+"246161"+"0001"+"21"+"21"),
		dk.Encode().AsSlice())

	dk.AddRangeComponent(Int32Value(7))
	dk.AddRangeComponent(StringValue("z"))
	require.Equal(t,
		[]PrimitiveValue{Int32Value(7), StringValue("z")}, dk.RangeGroup())
}

func TestDocKeyRoundTrip(t *testing.T) {
	keys := []DocKey{
		MakeRangeDocKey(),
		MakeRangeDocKey(StringValue("only-range")),
		MakeDocKey(0, nil, nil),
		MakeDocKey(0xbeef,
			[]PrimitiveValue{Int64Value(-5), StringValue("k")},
			[]PrimitiveValue{DoubleValue(1.25), NullValue()}),
	}
	for _, dk := range keys {
		var decoded DocKey
		require.NoError(t, decoded.FullyDecodeFrom(dk.Encode().AsSlice()), "%s", dk)
		require.True(t, dk.Equal(decoded), "%s decoded to %s", dk, decoded)
		require.Zero(t, dk.CompareTo(decoded))
	}
}

func TestDocKeyFullyDecodeRejectsLeftover(t *testing.T) {
	b := MakeRangeDocKey(StringValue("x")).Encode()
	b = append(b, 0x49)

	var dk DocKey
	err := dk.FullyDecodeFrom(b.AsSlice())
	require.True(t, IsInvalidArgument(err), "got %v", err)

	// DecodeFrom tolerates the suffix and reports the consumed length.
	n, err := dk.DecodeFrom(b.AsSlice(), WholeDocKey)
	require.NoError(t, err)
	require.Equal(t, len(b)-1, n)
}

func TestDocKeyDecodeCorruption(t *testing.T) {
	full := MakeDocKey(0x1234,
		[]PrimitiveValue{StringValue("aa")},
		[]PrimitiveValue{Int32Value(7)}).Encode().AsSlice()
	var dk DocKey
	for i := 0; i < len(full); i++ {
		err := dk.FullyDecodeFrom(full[:i])
		require.Error(t, err, "truncation to %d bytes", i)
		require.True(t, IsCorruption(err), "truncation to %d bytes: %v", i, err)
	}
}

func TestDocKeyOrdering(t *testing.T) {
	// Semantically sorted; encodings must sort identically.
	keys := []DocKey{
		MakeDocKey(0x0001, []PrimitiveValue{StringValue("z")}, nil),
		MakeDocKey(0x1234, []PrimitiveValue{StringValue("a")}, nil),
		MakeDocKey(0x1234, []PrimitiveValue{StringValue("a")}, []PrimitiveValue{Int32Value(1)}),
		MakeDocKey(0x1234, []PrimitiveValue{StringValue("a")}, []PrimitiveValue{Int32Value(2)}),
		MakeDocKey(0x1234, []PrimitiveValue{StringValue("b")}, nil),
		MakeDocKey(0xffff, nil, nil),
	}
	for i := 1; i < len(keys); i++ {
		require.Equal(t, -1, keys[i-1].CompareTo(keys[i]), "%s vs %s", keys[i-1], keys[i])
		require.Equal(t, 1, keys[i].CompareTo(keys[i-1]))
		require.Negative(t, bytes.Compare(
			keys[i-1].Encode().AsSlice(), keys[i].Encode().AsSlice()),
			"%s vs %s", keys[i-1], keys[i])
	}
}

func TestDocKeyCompareMismatchedSchemesPanics(t *testing.T) {
	hashed := MakeDocKey(1, nil, nil)
	ranged := MakeRangeDocKey()
	require.Panics(t, func() { hashed.CompareTo(ranged) })
}

func TestDocKeyEncodedSize(t *testing.T) {
	dk := MakeDocKey(0x1234,
		[]PrimitiveValue{StringValue("aa")},
		[]PrimitiveValue{StringValue("bb")})
	encoded := dk.Encode().AsSlice()

	n, err := DocKeyEncodedSize(encoded, WholeDocKey)
	require.NoError(t, err)
	require.Equal(t, len(encoded), n)

	// The hashed part is everything through the first group terminator:
	// tag + hash + "aa" + '!'.
	n, err = DocKeyEncodedSize(encoded, HashedPartOnly)
	require.NoError(t, err)
	require.Equal(t, 1+2+5+1, n)

	// Sizes are computed the same way when the key continues with
	// subkeys, which is how the bloom filter extracts its prefix.
	sk := MakeSubDocKey(dk, StringValue("subkey"))
	n2, err := DocKeyEncodedSize(sk.Encode(false).AsSlice(), WholeDocKey)
	require.NoError(t, err)
	require.Equal(t, len(encoded), n2)

	// A key with no hash prefix has no hashed part: nothing is consumed.
	rk := MakeRangeDocKey(StringValue("r")).Encode().AsSlice()
	n, err = DocKeyEncodedSize(rk, HashedPartOnly)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestPartiallyDecodeDocKey(t *testing.T) {
	dk := MakeDocKey(0x1234,
		[]PrimitiveValue{StringValue("h")},
		[]PrimitiveValue{StringValue("r1"), Int32Value(9)})
	encoded := dk.Encode().AsSlice()

	raw, err := PartiallyDecodeDocKey(encoded)
	require.NoError(t, err)
	require.Len(t, raw, 2)
	require.Equal(t, encodeValue(t, StringValue("r1")), raw[0])
	require.Equal(t, encodeValue(t, Int32Value(9)), raw[1])
}

func TestAdvanceOutOfDocKeyPrefix(t *testing.T) {
	dk := MakeDocKey(0x1234,
		[]PrimitiveValue{StringValue("aa")},
		[]PrimitiveValue{StringValue("bb")})
	succ := dk.AdvanceOutOfDocKeyPrefix().AsSlice()

	// Greater than the key itself and any SubDocKey under the document.
	require.Positive(t, bytes.Compare(succ, dk.Encode().AsSlice()))
	sub := MakeSubDocKey(dk, StringValue("deep"), Int64Value(1)).Encode(false).AsSlice()
	require.Positive(t, bytes.Compare(succ, sub))

	// Smaller than the next document's key.
	next := MakeDocKey(0x1234,
		[]PrimitiveValue{StringValue("aa")},
		[]PrimitiveValue{StringValue("bc")}).Encode().AsSlice()
	require.Negative(t, bytes.Compare(succ, next))
}

func TestDocKeyHash(t *testing.T) {
	h1 := DocKeyHash(StringValue("user-1"), Int64Value(7))
	h2 := DocKeyHash(StringValue("user-1"), Int64Value(7))
	require.Equal(t, h1, h2)

	// Not a collision-freeness proof, just a sanity check that the
	// components actually feed the hash: distinct inputs must spread
	// across the 16-bit space.
	seen := map[uint16]bool{}
	for i := int64(0); i < 200; i++ {
		seen[DocKeyHash(StringValue("user"), Int64Value(i))] = true
	}
	require.Greater(t, len(seen), 150)
}
