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

import "github.com/cockroachdb/errors"

// The key codec is a pure encode/decode layer: it never retries, its
// only recourse is to fail loudly. Failures fall into two classes,
// carried as reference markers so callers can classify with errors.Is.
var (
	// ErrCorruption marks malformed or truncated encoded bytes.
	ErrCorruption = errors.New("corruption")
	// ErrInvalidArgument marks inconsistent caller requests, such as a
	// fully-decoded key with leftover bytes.
	ErrInvalidArgument = errors.New("invalid argument")
)

// NewCorruptionf returns a Corruption-class error.
func NewCorruptionf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrCorruption)
}

// MarkCorruption marks err as Corruption-class, preserving its message
// and cause chain.
func MarkCorruption(err error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(err, ErrCorruption)
}

// NewInvalidArgumentf returns an InvalidArgument-class error.
func NewInvalidArgumentf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrInvalidArgument)
}

// IsCorruption reports whether err is Corruption-class.
func IsCorruption(err error) bool {
	return errors.Is(err, ErrCorruption)
}

// IsInvalidArgument reports whether err is InvalidArgument-class.
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}
