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

package client

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// The scanner's retry loop dispatches on error class. Transport-level
// failures carry one of the reference markers below; structured errors
// reported by a tablet server are TabletServerError values dispatched
// on their code.
var (
	// ErrTimedOut marks deadline exhaustion, either a deadline that
	// passed outright or a backoff that would overshoot it.
	ErrTimedOut = errors.New("timed out")
	// ErrIllegalState marks protocol misuse by the caller, such as a
	// keep-alive on a scan that was never opened.
	ErrIllegalState = errors.New("illegal state")
	// ErrNetwork marks transport-level failures.
	ErrNetwork = errors.New("network error")
	// ErrServerTooBusy is the transport-level overload signal: the server
	// rejected the call before any tablet-level processing.
	ErrServerTooBusy = errors.New("server too busy")
)

// NewTimedOutf returns a TimedOut-class error.
func NewTimedOutf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrTimedOut)
}

// IsTimedOut reports whether err is TimedOut-class.
func IsTimedOut(err error) bool {
	return errors.Is(err, ErrTimedOut)
}

// NewIllegalStatef returns an IllegalState-class error.
func NewIllegalStatef(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrIllegalState)
}

// IsIllegalState reports whether err is IllegalState-class.
func IsIllegalState(err error) bool {
	return errors.Is(err, ErrIllegalState)
}

// NewNetworkErrorf returns a NetworkError-class error.
func NewNetworkErrorf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrNetwork)
}

// IsNetworkError reports whether err is NetworkError-class.
func IsNetworkError(err error) bool {
	return errors.Is(err, ErrNetwork)
}

// TabletServerErrorCode enumerates the structured error codes a tablet
// server reports. The scanner's retry decision dispatches on these.
type TabletServerErrorCode int32

const (
	// UnknownServerError is any code the client does not understand;
	// treated as fatal.
	UnknownServerError TabletServerErrorCode = iota
	// ScannerExpired: the server discarded the scanner state, usually
	// after an idle timeout. Retriable at the same server with a fresh
	// scan.
	ScannerExpired
	// LeaderNotReadyToServe: the replica was just elected leader and has
	// not caught up yet.
	LeaderNotReadyToServe
	// TabletNotRunning: the replica hosts the tablet but cannot serve it
	// right now.
	TabletNotRunning
	// TabletNotFound: the replica does not host the tablet; cached
	// metadata is stale.
	TabletNotFound
	// NotTheLeader: a leader-only operation reached a follower.
	NotTheLeader
)

func (c TabletServerErrorCode) String() string {
	switch c {
	case ScannerExpired:
		return "SCANNER_EXPIRED"
	case LeaderNotReadyToServe:
		return "LEADER_NOT_READY_TO_SERVE"
	case TabletNotRunning:
		return "TABLET_NOT_RUNNING"
	case TabletNotFound:
		return "TABLET_NOT_FOUND"
	case NotTheLeader:
		return "NOT_THE_LEADER"
	default:
		return fmt.Sprintf("UNKNOWN_ERROR(%d)", int32(c))
	}
}

// TabletServerError is a structured error reported by a tablet server
// in a response body, as opposed to a transport failure.
type TabletServerError struct {
	Code    TabletServerErrorCode
	Message string
}

var _ error = (*TabletServerError)(nil)

// NewTabletServerError returns a server error with the given code.
func NewTabletServerError(code TabletServerErrorCode, format string, args ...interface{}) *TabletServerError {
	return &TabletServerError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (e *TabletServerError) Error() string {
	return fmt.Sprintf("tablet server error %s: %s", e.Code, e.Message)
}

// ServerErrorCode extracts the tablet server error code from err's
// chain, if any.
func ServerErrorCode(err error) (TabletServerErrorCode, bool) {
	var tse *TabletServerError
	if errors.As(err, &tse) {
		return tse.Code, true
	}
	return UnknownServerError, false
}
