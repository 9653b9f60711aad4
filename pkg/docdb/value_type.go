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

// Package docdb implements the document key model: a self-describing,
// order-preserving binary encoding for composite keys made of a 16-bit
// hash prefix, a group of hashed components, a group of range
// components, and (for SubDocKeys) a path of subkeys with an optional
// hybrid-time suffix.
package docdb

import "fmt"

// ValueType is the leading tag byte of an encoded value or structural
// marker. This is the single authoritative tag allocation table; the
// bytes are part of the persistent key format and must never change.
//
// Structural markers share the byte space with primitive value tags.
// TypeGroupEnd and TypeMaxByte must never collide with any primitive
// value's leading tag, and TypeMaxByte must byte-compare greater than
// every other tag for successor-key semantics to hold. These invariants
// are enforced by TestValueTypeTagTable.
type ValueType byte

const (
	// TypeGroupEnd terminates the hashed and range component groups of an
	// encoded DocKey.
	TypeGroupEnd ValueType = '!' // 0x21
	// TypeHybridTime precedes the hybrid-time suffix of a SubDocKey.
	TypeHybridTime ValueType = '#' // 0x23

	TypeString      ValueType = '$' // 0x24
	TypeInetaddress ValueType = '-' // 0x2d
	TypeDecimal     ValueType = '.' // 0x2e
	TypeVarInt      ValueType = '/' // 0x2f
	TypeArray       ValueType = 'A' // 0x41
	TypeFloat       ValueType = 'C' // 0x43
	TypeDouble      ValueType = 'D' // 0x44
	TypeFalse       ValueType = 'F' // 0x46

	// TypeUInt16Hash precedes the 2-byte partition hash of a DocKey.
	TypeUInt16Hash ValueType = 'H' // 0x48

	TypeInt32     ValueType = 'I' // 0x49
	TypeInt64     ValueType = 'J' // 0x4a
	TypeNull      ValueType = 'N' // 0x4e
	TypeObject    ValueType = 'O' // 0x4f
	TypeTimestamp ValueType = 'S' // 0x53
	TypeTrue      ValueType = 'T' // 0x54
	TypeUUID      ValueType = 'U' // 0x55
	TypeTimeUUID  ValueType = 'V' // 0x56

	// TypeMaxByte compares greater than any other tag and is appended by
	// the successor-key operations. It never appears inside a valid key.
	TypeMaxByte ValueType = 0xff

	// TypeInvalid is not a valid tag.
	TypeInvalid ValueType = 0
)

// primitiveTypes lists every tag that may begin an encoded
// PrimitiveValue, in tag-byte order.
var primitiveTypes = []ValueType{
	TypeString,
	TypeInetaddress,
	TypeDecimal,
	TypeVarInt,
	TypeArray,
	TypeFloat,
	TypeDouble,
	TypeFalse,
	TypeInt32,
	TypeInt64,
	TypeNull,
	TypeObject,
	TypeTimestamp,
	TypeTrue,
	TypeUUID,
	TypeTimeUUID,
}

// IsPrimitive reports whether t is a valid leading tag for an encoded
// PrimitiveValue, as opposed to a structural marker.
func (t ValueType) IsPrimitive() bool {
	switch t {
	case TypeString, TypeInetaddress, TypeDecimal, TypeVarInt, TypeArray,
		TypeFloat, TypeDouble, TypeFalse, TypeInt32, TypeInt64, TypeNull,
		TypeObject, TypeTimestamp, TypeTrue, TypeUUID, TypeTimeUUID:
		return true
	}
	return false
}

func (t ValueType) String() string {
	switch t {
	case TypeGroupEnd:
		return "GroupEnd"
	case TypeHybridTime:
		return "HybridTime"
	case TypeString:
		return "String"
	case TypeInetaddress:
		return "Inetaddress"
	case TypeDecimal:
		return "Decimal"
	case TypeVarInt:
		return "VarInt"
	case TypeArray:
		return "Array"
	case TypeFloat:
		return "Float"
	case TypeDouble:
		return "Double"
	case TypeFalse:
		return "False"
	case TypeUInt16Hash:
		return "UInt16Hash"
	case TypeInt32:
		return "Int32"
	case TypeInt64:
		return "Int64"
	case TypeNull:
		return "Null"
	case TypeObject:
		return "Object"
	case TypeTimestamp:
		return "Timestamp"
	case TypeTrue:
		return "True"
	case TypeUUID:
		return "UUID"
	case TypeTimeUUID:
		return "TimeUUID"
	case TypeMaxByte:
		return "MaxByte"
	default:
		return fmt.Sprintf("ValueType(0x%02x)", byte(t))
	}
}
