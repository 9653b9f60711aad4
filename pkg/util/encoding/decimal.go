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

import (
	"math/big"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/inf.v0"
)

// Decimals are written as ±0.D * 10^e where D is a digit string with no
// leading or trailing zero. The first byte splits decimals into seven
// ordered classes; within a class the exponent is a uvarint (ascending or
// descending, whichever preserves order for the class) followed by the
// digit string packed two digits per byte, biased so a digit byte is
// never zero, and a terminator. Negative classes complement the digit
// bytes and terminator.
const (
	decimalNegValPosExp  byte = 0x01
	decimalNegValZeroExp byte = 0x02
	decimalNegValNegExp  byte = 0x03
	decimalZero          byte = 0x04
	decimalPosValNegExp  byte = 0x05
	decimalPosValZeroExp byte = 0x06
	decimalPosValPosExp  byte = 0x07

	decimalTerminator byte = 0x00
)

// EncodeDecimalAscending encodes the inf.Dec value so that byte-wise
// comparison of two encodings agrees with Dec.Cmp of the values. The
// bytes are appended to the supplied buffer and the final buffer is
// returned.
func EncodeDecimalAscending(b []byte, d *inf.Dec) []byte {
	bi := d.UnscaledBig()
	sign := bi.Sign()
	if sign == 0 {
		return append(b, decimalZero)
	}
	neg := sign < 0

	digits := new(big.Int).Abs(bi).String()
	e := int64(len(digits)) - int64(d.Scale())
	digits = strings.TrimRight(digits, "0")

	switch {
	case neg && e > 0:
		b = append(b, decimalNegValPosExp)
		b = EncodeUvarintDescending(b, uint64(e))
	case neg && e == 0:
		b = append(b, decimalNegValZeroExp)
	case neg && e < 0:
		b = append(b, decimalNegValNegExp)
		b = EncodeUvarintAscending(b, uint64(-e))
	case !neg && e < 0:
		b = append(b, decimalPosValNegExp)
		b = EncodeUvarintDescending(b, uint64(-e))
	case !neg && e == 0:
		b = append(b, decimalPosValZeroExp)
	default:
		b = append(b, decimalPosValPosExp)
		b = EncodeUvarintAscending(b, uint64(e))
	}

	for i := 0; i < len(digits); i += 2 {
		v := 10 * (digits[i] - '0')
		if i+1 < len(digits) {
			v += digits[i+1] - '0'
		}
		v++ // bias away from the terminator
		if neg {
			v = ^v
		}
		b = append(b, v)
	}
	if neg {
		return append(b, ^decimalTerminator)
	}
	return append(b, decimalTerminator)
}

// DecodeDecimalAscending decodes a decimal value which was encoded using
// EncodeDecimalAscending. The remainder of the input buffer and the
// decoded decimal are returned.
func DecodeDecimalAscending(b []byte) ([]byte, *inf.Dec, error) {
	if len(b) == 0 {
		return nil, nil, errors.Errorf("insufficient bytes to decode decimal value")
	}
	class := b[0]
	b = b[1:]
	if class == decimalZero {
		return b, inf.NewDec(0, 0), nil
	}
	if class < decimalNegValPosExp || class > decimalPosValPosExp {
		return nil, nil, errors.Errorf("unknown decimal class byte %#x", class)
	}
	neg := class < decimalZero

	var e int64
	var err error
	var exp uint64
	switch class {
	case decimalNegValPosExp:
		b, exp, err = DecodeUvarintDescending(b)
		e = int64(exp)
	case decimalNegValNegExp:
		b, exp, err = DecodeUvarintAscending(b)
		e = -int64(exp)
	case decimalPosValNegExp:
		b, exp, err = DecodeUvarintDescending(b)
		e = -int64(exp)
	case decimalPosValPosExp:
		b, exp, err = DecodeUvarintAscending(b)
		e = int64(exp)
	}
	if err != nil {
		return nil, nil, err
	}

	term := decimalTerminator
	if neg {
		term = ^decimalTerminator
	}
	var digits []byte
	for {
		if len(b) == 0 {
			return nil, nil, errors.Errorf("did not find decimal terminator %#x", term)
		}
		v := b[0]
		b = b[1:]
		if v == term {
			break
		}
		if neg {
			v = ^v
		}
		v--
		if v > 99 {
			return nil, nil, errors.Errorf("invalid decimal digit byte %#x", v)
		}
		digits = append(digits, '0'+v/10, '0'+v%10)
	}
	if len(digits) == 0 {
		return nil, nil, errors.Errorf("empty decimal digit string")
	}
	// The digit string never ends in zero, so a trailing zero here is the
	// padding added for an odd digit count.
	if digits[len(digits)-1] == '0' {
		digits = digits[:len(digits)-1]
	}

	bi, ok := new(big.Int).SetString(string(digits), 10)
	if !ok {
		return nil, nil, errors.Errorf("invalid decimal digit string %q", digits)
	}
	if neg {
		bi.Neg(bi)
	}
	scale := int64(len(digits)) - e
	return b, new(inf.Dec).SetUnscaledBig(bi).SetScale(inf.Scale(scale)), nil
}
