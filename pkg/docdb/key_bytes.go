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
	"fmt"

	"github.com/stratadb/strata/pkg/util/encoding"
)

// KeyBytes is an append-only buffer holding an encoded key or key
// fragment.
type KeyBytes []byte

// AppendValueType appends a single tag byte.
func (kb *KeyBytes) AppendValueType(t ValueType) {
	*kb = append(*kb, byte(t))
}

// AppendUInt16 appends a big-endian 2-byte value.
func (kb *KeyBytes) AppendUInt16(v uint16) {
	*kb = encoding.EncodeUint16Ascending(*kb, v)
}

// RemoveValueTypeSuffix removes the trailing tag byte, which must be t.
// Calling this with a mismatched suffix is a programming error.
func (kb *KeyBytes) RemoveValueTypeSuffix(t ValueType) {
	b := *kb
	if len(b) == 0 || b[len(b)-1] != byte(t) {
		panic(fmt.Sprintf("key does not end with %s: %q", t, []byte(b)))
	}
	*kb = b[:len(b)-1]
}

// AsSlice returns the underlying bytes.
func (kb KeyBytes) AsSlice() []byte {
	return []byte(kb)
}

// Compare performs a byte-wise three-way comparison.
func (kb KeyBytes) Compare(other KeyBytes) int {
	return bytes.Compare(kb, other)
}

func (kb KeyBytes) String() string {
	return fmt.Sprintf("%q", []byte(kb))
}
