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

	"github.com/cockroachdb/redact"
)

// BestEffortKeyToString renders an encoded key for logs and error
// messages. It tries progressively weaker interpretations: a full
// SubDocKey, then a DocKey prefix with the remainder shown raw, then
// raw bytes. It never fails.
func BestEffortKeyToString(b []byte) string {
	var sk SubDocKey
	if err := sk.FullyDecodeFrom(b, false); err == nil {
		return sk.String()
	}
	var dk DocKey
	if n, err := dk.DecodeFrom(b, WholeDocKey); err == nil {
		return fmt.Sprintf("%s + %q", dk, b[n:])
	}
	return fmt.Sprintf("%q", b)
}

// Key components are user data. The redact-aware formatters keep the
// key structure in plain text and mark only the component values, so
// redacted logs still show key shapes.

var _ redact.SafeFormatter = DocKey{}

// SafeFormat implements redact.SafeFormatter.
func (d DocKey) SafeFormat(w redact.SafePrinter, _ rune) {
	w.SafeString("DocKey(")
	if d.hashPresent {
		w.Printf("0x%04x, ", redact.Safe(d.hash))
		safeFormatValueList(w, d.hashedGroup)
		w.SafeString(", ")
	}
	safeFormatValueList(w, d.rangeGroup)
	w.SafeString(")")
}

var _ redact.SafeFormatter = SubDocKey{}

// SafeFormat implements redact.SafeFormatter.
func (sk SubDocKey) SafeFormat(w redact.SafePrinter, verb rune) {
	w.SafeString("SubDocKey(")
	sk.docKey.SafeFormat(w, verb)
	w.SafeString(", [")
	for i, v := range sk.subkeys {
		if i > 0 {
			w.SafeString(", ")
		}
		w.Printf("%s", v.String())
	}
	if sk.hybridTime.Valid() {
		w.Printf("; %s", redact.Safe(sk.hybridTime.String()))
	}
	w.SafeString("])")
}

func safeFormatValueList(w redact.SafePrinter, values []PrimitiveValue) {
	w.SafeString("[")
	for i, v := range values {
		if i > 0 {
			w.SafeString(", ")
		}
		w.Printf("%s", v.String())
	}
	w.SafeString("]")
}
