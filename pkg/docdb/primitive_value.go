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
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/inf.v0"

	"github.com/stratadb/strata/pkg/util/encoding"
)

// PrimitiveValue is a single typed key component. Encodings are
// order-preserving within a type; across types, the semantic order is
// the tag-byte order, so byte-wise comparison of any two encodings
// agrees with CompareTo.
//
// Values are immutable once constructed. The zero value has
// TypeInvalid and must not be encoded.
type PrimitiveValue struct {
	valueType ValueType

	int32Val   int32
	int64Val   int64 // Int64, VarInt, and Timestamp (microseconds)
	doubleVal  float64
	floatVal   float32
	stringVal  string
	inetVal    netip.Addr
	decimalVal *inf.Dec
	uuidVal    uuid.UUID
}

// NullValue returns the null value.
func NullValue() PrimitiveValue {
	return PrimitiveValue{valueType: TypeNull}
}

// BoolValue returns a boolean value. Booleans are carried entirely in
// the tag byte.
func BoolValue(b bool) PrimitiveValue {
	if b {
		return PrimitiveValue{valueType: TypeTrue}
	}
	return PrimitiveValue{valueType: TypeFalse}
}

// Int32Value returns a 32-bit integer value. Narrower integer columns
// (int8, int16) widen to Int32 in the key encoding.
func Int32Value(v int32) PrimitiveValue {
	return PrimitiveValue{valueType: TypeInt32, int32Val: v}
}

// Int64Value returns a 64-bit integer value.
func Int64Value(v int64) PrimitiveValue {
	return PrimitiveValue{valueType: TypeInt64, int64Val: v}
}

// DoubleValue returns a float64 value.
func DoubleValue(v float64) PrimitiveValue {
	return PrimitiveValue{valueType: TypeDouble, doubleVal: v}
}

// FloatValue returns a float32 value.
func FloatValue(v float32) PrimitiveValue {
	return PrimitiveValue{valueType: TypeFloat, floatVal: v}
}

// StringValue returns a string value. Arbitrary binary content is
// permitted, including embedded NUL bytes.
func StringValue(s string) PrimitiveValue {
	return PrimitiveValue{valueType: TypeString, stringVal: s}
}

// BinaryValue returns a binary value; binary shares the string
// encoding.
func BinaryValue(b []byte) PrimitiveValue {
	return PrimitiveValue{valueType: TypeString, stringVal: string(b)}
}

// TimestampValue returns a timestamp value with microsecond precision.
func TimestampValue(microsSinceEpoch int64) PrimitiveValue {
	return PrimitiveValue{valueType: TypeTimestamp, int64Val: microsSinceEpoch}
}

// InetValue returns an IP address value.
func InetValue(addr netip.Addr) PrimitiveValue {
	return PrimitiveValue{valueType: TypeInetaddress, inetVal: addr}
}

// DecimalValue returns an arbitrary-precision decimal value.
func DecimalValue(d *inf.Dec) PrimitiveValue {
	return PrimitiveValue{valueType: TypeDecimal, decimalVal: d}
}

// VarIntValue returns a variable-length integer value.
func VarIntValue(v int64) PrimitiveValue {
	return PrimitiveValue{valueType: TypeVarInt, int64Val: v}
}

// UUIDValue returns a UUID value, ordered by its raw byte
// representation.
func UUIDValue(u uuid.UUID) PrimitiveValue {
	return PrimitiveValue{valueType: TypeUUID, uuidVal: u}
}

// TimeUUIDValue returns a version-1 (time-based) UUID value.
func TimeUUIDValue(u uuid.UUID) PrimitiveValue {
	return PrimitiveValue{valueType: TypeTimeUUID, uuidVal: u}
}

// ObjectValue returns the marker that introduces a nested map.
func ObjectValue() PrimitiveValue {
	return PrimitiveValue{valueType: TypeObject}
}

// ArrayValue returns the marker that introduces a nested sequence.
func ArrayValue() PrimitiveValue {
	return PrimitiveValue{valueType: TypeArray}
}

// ValueType returns the value's type tag.
func (v PrimitiveValue) ValueType() ValueType {
	return v.valueType
}

// AppendToKey appends the type-tagged key encoding of v to kb.
func (v PrimitiveValue) AppendToKey(kb *KeyBytes) {
	kb.AppendValueType(v.valueType)
	switch v.valueType {
	case TypeNull, TypeFalse, TypeTrue, TypeObject, TypeArray:
		// Tag only.
	case TypeInt32:
		*kb = encoding.EncodeInt32Ascending(*kb, v.int32Val)
	case TypeInt64, TypeTimestamp:
		*kb = encoding.EncodeInt64Ascending(*kb, v.int64Val)
	case TypeVarInt:
		*kb = encoding.EncodeVarintAscending(*kb, v.int64Val)
	case TypeDouble:
		*kb = encoding.EncodeFloat64Ascending(*kb, v.doubleVal)
	case TypeFloat:
		*kb = encoding.EncodeFloat32Ascending(*kb, v.floatVal)
	case TypeString:
		*kb = encoding.EncodeEscapedAscending(*kb, []byte(v.stringVal))
	case TypeInetaddress:
		*kb = encoding.EncodeEscapedAscending(*kb, v.inetVal.AsSlice())
	case TypeDecimal:
		*kb = encoding.EncodeDecimalAscending(*kb, v.decimalVal)
	case TypeUUID, TypeTimeUUID:
		*kb = append(*kb, v.uuidVal[:]...)
	default:
		panic("encoding a value of type " + v.valueType.String())
	}
}

// DecodeFromKey consumes one encoded primitive value from the front of
// b, populating v and returning the remainder. Failures are
// Corruption-class.
func (v *PrimitiveValue) DecodeFromKey(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, NewCorruptionf("cannot decode a primitive value from empty input")
	}
	t := ValueType(b[0])
	b = b[1:]
	*v = PrimitiveValue{valueType: t}

	var err error
	switch t {
	case TypeNull, TypeFalse, TypeTrue, TypeObject, TypeArray:
		return b, nil
	case TypeInt32:
		b, v.int32Val, err = encoding.DecodeInt32Ascending(b)
	case TypeInt64, TypeTimestamp:
		b, v.int64Val, err = encoding.DecodeInt64Ascending(b)
	case TypeVarInt:
		b, v.int64Val, err = encoding.DecodeVarintAscending(b)
	case TypeDouble:
		b, v.doubleVal, err = encoding.DecodeFloat64Ascending(b)
	case TypeFloat:
		b, v.floatVal, err = encoding.DecodeFloat32Ascending(b)
	case TypeString:
		var raw []byte
		b, raw, err = encoding.DecodeEscapedAscending(b, nil)
		v.stringVal = string(raw)
	case TypeInetaddress:
		var raw []byte
		b, raw, err = encoding.DecodeEscapedAscending(b, nil)
		if err == nil {
			addr, ok := netip.AddrFromSlice(raw)
			if !ok {
				v.valueType = TypeInvalid
				return nil, NewCorruptionf("invalid inet address payload of %d bytes", len(raw))
			}
			v.inetVal = addr
		}
	case TypeDecimal:
		b, v.decimalVal, err = encoding.DecodeDecimalAscending(b)
	case TypeUUID, TypeTimeUUID:
		if len(b) < 16 {
			v.valueType = TypeInvalid
			return nil, NewCorruptionf("insufficient bytes to decode a uuid: %d", len(b))
		}
		copy(v.uuidVal[:], b[:16])
		b = b[16:]
	default:
		v.valueType = TypeInvalid
		return nil, NewCorruptionf("invalid value type tag %s at start of a primitive value", t)
	}
	if err != nil {
		v.valueType = TypeInvalid
		return nil, MarkCorruption(err)
	}
	return b, nil
}

// CompareTo returns -1, 0, or 1. Values of different types order by
// their tag bytes, matching the byte order of their encodings.
func (v PrimitiveValue) CompareTo(other PrimitiveValue) int {
	if v.valueType != other.valueType {
		return compareByte(byte(v.valueType), byte(other.valueType))
	}
	switch v.valueType {
	case TypeNull, TypeFalse, TypeTrue, TypeObject, TypeArray:
		return 0
	case TypeInt32:
		return compareInt64(int64(v.int32Val), int64(other.int32Val))
	case TypeInt64, TypeTimestamp, TypeVarInt:
		return compareInt64(v.int64Val, other.int64Val)
	case TypeDouble:
		return compareFloat64(v.doubleVal, other.doubleVal)
	case TypeFloat:
		return compareFloat64(float64(v.floatVal), float64(other.floatVal))
	case TypeString:
		return strings.Compare(v.stringVal, other.stringVal)
	case TypeInetaddress:
		return bytes.Compare(v.inetVal.AsSlice(), other.inetVal.AsSlice())
	case TypeDecimal:
		return v.decimalVal.Cmp(other.decimalVal)
	case TypeUUID, TypeTimeUUID:
		return bytes.Compare(v.uuidVal[:], other.uuidVal[:])
	default:
		panic("comparing values of type " + v.valueType.String())
	}
}

// Equal reports structural equality.
func (v PrimitiveValue) Equal(other PrimitiveValue) bool {
	return v.valueType == other.valueType && v.CompareTo(other) == 0
}

func (v PrimitiveValue) String() string {
	switch v.valueType {
	case TypeNull:
		return "null"
	case TypeFalse:
		return "false"
	case TypeTrue:
		return "true"
	case TypeObject:
		return "{}"
	case TypeArray:
		return "[]"
	case TypeInt32:
		return strconv.FormatInt(int64(v.int32Val), 10)
	case TypeInt64, TypeVarInt:
		return strconv.FormatInt(v.int64Val, 10)
	case TypeDouble:
		return strconv.FormatFloat(v.doubleVal, 'g', -1, 64)
	case TypeFloat:
		return strconv.FormatFloat(float64(v.floatVal), 'g', -1, 32)
	case TypeString:
		return strconv.Quote(v.stringVal)
	case TypeTimestamp:
		return time.UnixMicro(v.int64Val).UTC().Format(time.RFC3339Nano)
	case TypeInetaddress:
		return v.inetVal.String()
	case TypeDecimal:
		return v.decimalVal.String()
	case TypeUUID, TypeTimeUUID:
		return v.uuidVal.String()
	default:
		return "<invalid " + v.valueType.String() + ">"
	}
}

func compareByte(a, b byte) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareFloat64(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// comparePrimitiveValues compares two value sequences element-wise;
// the first mismatch decides, and a sequence that is a strict prefix of
// the other sorts first.
func comparePrimitiveValues(a, b []PrimitiveValue) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if c := a[i].CompareTo(b[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

func primitiveValuesEqual(a, b []PrimitiveValue) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
