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

// Package hlc implements the hybrid-time timestamp used to version
// document values: a physical component in microseconds combined with a
// logical counter that disambiguates events within the same microsecond.
package hlc

import (
	"fmt"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/stratadb/strata/pkg/util/encoding"
)

// logicalBits is the width of the logical counter packed into the low
// bits of a HybridTime.
const logicalBits = 12

const logicalMask = (1 << logicalBits) - 1

// HybridTime is a hybrid logical+physical timestamp packed into 64 bits:
// physical microseconds since the Unix epoch in the high 52 bits, a
// logical counter in the low 12. The zero value is invalid and denotes
// an absent timestamp.
type HybridTime uint64

// Invalid is the absent/invalid hybrid time.
const Invalid HybridTime = 0

// New builds a HybridTime from physical microseconds and a logical
// counter value.
func New(physicalMicros int64, logical uint16) HybridTime {
	return HybridTime(uint64(physicalMicros)<<logicalBits | uint64(logical)&logicalMask)
}

// FromTime builds a HybridTime from a wall-clock time with a zero
// logical component.
func FromTime(t time.Time) HybridTime {
	return New(t.UnixMicro(), 0)
}

// Physical returns the physical component in microseconds since the
// Unix epoch.
func (ht HybridTime) Physical() int64 {
	return int64(ht >> logicalBits)
}

// Logical returns the logical counter component.
func (ht HybridTime) Logical() uint16 {
	return uint16(ht & logicalMask)
}

// Valid reports whether ht denotes a present timestamp.
func (ht HybridTime) Valid() bool {
	return ht != Invalid
}

// Compare returns -1, 0, or 1 depending on whether ht is older than,
// equal to, or newer than other.
func (ht HybridTime) Compare(other HybridTime) int {
	switch {
	case ht < other:
		return -1
	case ht > other:
		return 1
	default:
		return 0
	}
}

func (ht HybridTime) String() string {
	if !ht.Valid() {
		return "<invalid>"
	}
	return fmt.Sprintf("HT{ physical: %d logical: %d }", ht.Physical(), ht.Logical())
}

// AppendEncoded appends the key encoding of ht to b. The encoding is the
// bitwise complement written big-endian, so that byte-wise comparison
// orders newer timestamps first. Callers are responsible for writing the
// hybrid-time type tag before the payload.
func (ht HybridTime) AppendEncoded(b []byte) []byte {
	return encoding.EncodeUint64Descending(b, uint64(ht))
}

// DecodeHybridTime consumes an encoded hybrid time from the front of b,
// returning the remainder of the buffer.
func DecodeHybridTime(b []byte) ([]byte, HybridTime, error) {
	rem, v, err := encoding.DecodeUint64Descending(b)
	if err != nil {
		return nil, Invalid, errors.Wrap(err, "decoding hybrid time")
	}
	return rem, HybridTime(v), nil
}
