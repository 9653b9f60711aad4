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

package encoding

import "math"

// Floating point values are encoded by transforming their IEEE 754 bit
// pattern: non-negative values get the sign bit set, negative values are
// complemented entirely. The transformed bits, written big-endian, sort
// in the same order as the values they encode (with -NaN first and NaN
// last among the bit patterns).

// EncodeFloat64Ascending encodes the float64 value so that byte-wise
// comparison of two encodings agrees with the comparison of the values.
// The bytes are appended to the supplied buffer and the final buffer is
// returned.
func EncodeFloat64Ascending(b []byte, f float64) []byte {
	u := math.Float64bits(f)
	if u&(1<<63) != 0 {
		u = ^u
	} else {
		u |= 1 << 63
	}
	return EncodeUint64Ascending(b, u)
}

// DecodeFloat64Ascending decodes a float64 value which was encoded using
// EncodeFloat64Ascending.
func DecodeFloat64Ascending(b []byte) ([]byte, float64, error) {
	leftover, u, err := DecodeUint64Ascending(b)
	if err != nil {
		return leftover, 0, err
	}
	if u&(1<<63) != 0 {
		u &^= 1 << 63
	} else {
		u = ^u
	}
	return leftover, math.Float64frombits(u), nil
}

// EncodeFloat32Ascending is the float32 version of
// EncodeFloat64Ascending.
func EncodeFloat32Ascending(b []byte, f float32) []byte {
	u := math.Float32bits(f)
	if u&(1<<31) != 0 {
		u = ^u
	} else {
		u |= 1 << 31
	}
	return EncodeUint32Ascending(b, u)
}

// DecodeFloat32Ascending decodes a float32 value which was encoded using
// EncodeFloat32Ascending.
func DecodeFloat32Ascending(b []byte) ([]byte, float32, error) {
	leftover, u, err := DecodeUint32Ascending(b)
	if err != nil {
		return leftover, 0, err
	}
	if u&(1<<31) != 0 {
		u &^= 1 << 31
	} else {
		u = ^u
	}
	return leftover, math.Float32frombits(u), nil
}
