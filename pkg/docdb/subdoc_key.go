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

	"github.com/stratadb/strata/pkg/util/hlc"
)

// SubDocKey addresses a location inside a document: the document's
// DocKey, a path of subkeys, and an optional hybrid time pinning a
// version of that location.
//
// Encoded layout:
//
//	<encoded DocKey> <subkeys> ['#' <descending hybrid time>]
//
// The hybrid time is encoded so that byte order ranks newer versions of
// the same location first.
type SubDocKey struct {
	docKey     DocKey
	subkeys    []PrimitiveValue
	hybridTime hlc.HybridTime
}

// MakeSubDocKey returns a SubDocKey with no hybrid time.
func MakeSubDocKey(docKey DocKey, subkeys ...PrimitiveValue) SubDocKey {
	return SubDocKey{docKey: docKey, subkeys: subkeys}
}

// MakeSubDocKeyAt returns a SubDocKey pinned to ht.
func MakeSubDocKeyAt(docKey DocKey, ht hlc.HybridTime, subkeys ...PrimitiveValue) SubDocKey {
	return SubDocKey{docKey: docKey, subkeys: subkeys, hybridTime: ht}
}

// DocKey returns the document part of the key.
func (sk SubDocKey) DocKey() DocKey { return sk.docKey }

// Subkeys returns the subkey path.
func (sk SubDocKey) Subkeys() []PrimitiveValue { return sk.subkeys }

// HybridTime returns the version timestamp; hlc.Invalid when absent.
func (sk SubDocKey) HybridTime() hlc.HybridTime { return sk.hybridTime }

// HasHybridTime reports whether the key carries a version timestamp.
func (sk SubDocKey) HasHybridTime() bool { return sk.hybridTime.Valid() }

// Encode returns the encoded form of the key. When includeHybridTime
// is false the hybrid-time suffix is left off even if present, which
// yields the common prefix of every version of this location.
func (sk SubDocKey) Encode(includeHybridTime bool) KeyBytes {
	kb := sk.docKey.Encode()
	for _, v := range sk.subkeys {
		v.AppendToKey(&kb)
	}
	if includeHybridTime && sk.hybridTime.Valid() {
		kb.AppendValueType(TypeHybridTime)
		kb = sk.hybridTime.AppendEncoded(kb)
	}
	return kb
}

// FullyDecodeFrom resets sk and decodes all of b. A hybrid-time suffix
// is consumed if present; requireHybridTime makes its absence a
// Corruption-class error. Trailing bytes after the suffix are
// Corruption-class as well.
func (sk *SubDocKey) FullyDecodeFrom(b []byte, requireHybridTime bool) error {
	*sk = SubDocKey{}
	n, err := sk.docKey.DecodeFrom(b, WholeDocKey)
	if err != nil {
		return err
	}
	rest := b[n:]
	for len(rest) > 0 {
		if ValueType(rest[0]) == TypeHybridTime {
			var ht hlc.HybridTime
			rest, ht, err = hlc.DecodeHybridTime(rest[1:])
			if err != nil {
				return MarkCorruption(err)
			}
			if len(rest) != 0 {
				return NewCorruptionf(
					"%d extra bytes after the hybrid-time suffix of a SubDocKey", len(rest))
			}
			sk.hybridTime = ht
			return nil
		}
		var v PrimitiveValue
		rest, err = v.DecodeFromKey(rest)
		if err != nil {
			return err
		}
		sk.subkeys = append(sk.subkeys, v)
	}
	if requireHybridTime {
		return NewCorruptionf("a SubDocKey with a hybrid time was expected, none found")
	}
	return nil
}

// PartiallyDecodeSubDocKey splits an encoded SubDocKey into the raw
// encoded DocKey and the raw bytes of each subkey, without building
// PrimitiveValues. A hybrid-time suffix, if present, is left out. The
// returned slices alias b.
func PartiallyDecodeSubDocKey(b []byte) (docKeyPart []byte, subkeys [][]byte, err error) {
	n, err := DocKeyEncodedSize(b, WholeDocKey)
	if err != nil {
		return nil, nil, err
	}
	docKeyPart = b[:n]
	rest := b[n:]
	for len(rest) > 0 && ValueType(rest[0]) != TypeHybridTime {
		var v PrimitiveValue
		after, err := v.DecodeFromKey(rest)
		if err != nil {
			return nil, nil, err
		}
		subkeys = append(subkeys, rest[:len(rest)-len(after)])
		rest = after
	}
	return docKeyPart, subkeys, nil
}

// StartsWith reports whether prefix addresses an enclosing location:
// the same document and a subkey path that is a prefix of sk's. A
// prefix carrying a hybrid time pins an exact version, so it matches
// only the identical key: same hybrid time and no extra subkeys.
func (sk SubDocKey) StartsWith(prefix SubDocKey) bool {
	if !sk.docKey.Equal(prefix.docKey) {
		return false
	}
	if len(prefix.subkeys) > len(sk.subkeys) {
		return false
	}
	if prefix.HasHybridTime() &&
		(sk.hybridTime != prefix.hybridTime || len(sk.subkeys) != len(prefix.subkeys)) {
		return false
	}
	return primitiveValuesEqual(sk.subkeys[:len(prefix.subkeys)], prefix.subkeys)
}

// CompareTo returns -1, 0, or 1, matching the byte order of the
// encoded keys: document and subkeys ascending, hybrid time descending
// so that newer versions of a location sort first. An absent hybrid
// time sorts after every present one.
func (sk SubDocKey) CompareTo(other SubDocKey) int {
	if c := sk.CompareToIgnoreHybridTime(other); c != 0 {
		return c
	}
	return other.hybridTime.Compare(sk.hybridTime)
}

// CompareToIgnoreHybridTime compares the document and subkey parts
// only.
func (sk SubDocKey) CompareToIgnoreHybridTime(other SubDocKey) int {
	if c := sk.docKey.CompareTo(other.docKey); c != 0 {
		return c
	}
	return comparePrimitiveValues(sk.subkeys, other.subkeys)
}

// Equal reports whether the two keys are identical, hybrid time
// included.
func (sk SubDocKey) Equal(other SubDocKey) bool {
	return sk.docKey.Equal(other.docKey) &&
		primitiveValuesEqual(sk.subkeys, other.subkeys) &&
		sk.hybridTime == other.hybridTime
}

// NumSharedPrefixComponents counts the key components the two keys
// share: 0 when the documents differ, otherwise 1 for the DocKey plus
// the length of the common subkey prefix.
func (sk SubDocKey) NumSharedPrefixComponents(other SubDocKey) int {
	if !sk.docKey.Equal(other.docKey) {
		return 0
	}
	shared := 1
	n := len(sk.subkeys)
	if len(other.subkeys) < n {
		n = len(other.subkeys)
	}
	for i := 0; i < n; i++ {
		if !sk.subkeys[i].Equal(other.subkeys[i]) {
			break
		}
		shared++
	}
	return shared
}

// AdvanceOutOfSubDoc returns the smallest key greater than every
// version and descendant of this location.
func (sk SubDocKey) AdvanceOutOfSubDoc() KeyBytes {
	kb := sk.Encode(false)
	kb.AppendValueType(TypeMaxByte)
	return kb
}

func (sk SubDocKey) String() string {
	var sb strings.Builder
	sb.WriteString("SubDocKey(")
	sb.WriteString(sk.docKey.String())
	sb.WriteString(", [")
	for i, v := range sk.subkeys {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(v.String())
	}
	if sk.hybridTime.Valid() {
		fmt.Fprintf(&sb, "; %s", sk.hybridTime)
	}
	sb.WriteString("])")
	return sb.String()
}
