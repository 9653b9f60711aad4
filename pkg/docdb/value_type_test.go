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
	"testing"

	"github.com/stretchr/testify/require"
)

// The tag bytes are part of the persistent key format. This test pins
// every allocation; a failure here means on-disk keys written by
// earlier versions have become unreadable.
func TestValueTypeTagTable(t *testing.T) {
	tags := map[ValueType]byte{
		TypeGroupEnd:    0x21,
		TypeHybridTime:  0x23,
		TypeString:      0x24,
		TypeInetaddress: 0x2d,
		TypeDecimal:     0x2e,
		TypeVarInt:      0x2f,
		TypeArray:       0x41,
		TypeFloat:       0x43,
		TypeDouble:      0x44,
		TypeFalse:       0x46,
		TypeUInt16Hash:  0x48,
		TypeInt32:       0x49,
		TypeInt64:       0x4a,
		TypeNull:        0x4e,
		TypeObject:      0x4f,
		TypeTimestamp:   0x53,
		TypeTrue:        0x54,
		TypeUUID:        0x55,
		TypeTimeUUID:    0x56,
		TypeMaxByte:     0xff,
	}
	for tag, b := range tags {
		require.Equal(t, b, byte(tag), "tag %s", tag)
	}
}

func TestValueTypeInvariants(t *testing.T) {
	// primitiveTypes is in strict tag order and agrees with IsPrimitive.
	for i := 1; i < len(primitiveTypes); i++ {
		require.Less(t, byte(primitiveTypes[i-1]), byte(primitiveTypes[i]))
	}
	for _, pt := range primitiveTypes {
		require.True(t, pt.IsPrimitive(), "%s", pt)
	}
	for _, st := range []ValueType{TypeGroupEnd, TypeHybridTime, TypeUInt16Hash, TypeMaxByte, TypeInvalid} {
		require.False(t, st.IsPrimitive(), "%s", st)
	}

	for _, pt := range primitiveTypes {
		// GroupEnd terminates groups, so it must sort before any component
		// that could follow in a longer key.
		require.Less(t, byte(TypeGroupEnd), byte(pt))
		// The hybrid-time marker sorts before every subkey tag, placing a
		// location's versions ahead of its nested contents.
		require.Less(t, byte(TypeHybridTime), byte(pt))
		// MaxByte sorts after everything for successor-key semantics.
		require.Greater(t, byte(TypeMaxByte), byte(pt))
	}
}

func TestValueTypeString(t *testing.T) {
	require.Equal(t, "String", TypeString.String())
	require.Equal(t, "MaxByte", TypeMaxByte.String())
	require.Equal(t, "ValueType(0x07)", ValueType(0x07).String())
}
