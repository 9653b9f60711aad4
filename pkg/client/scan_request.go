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
	"github.com/google/uuid"

	"github.com/stratadb/strata/pkg/util/hlc"
)

// OrderMode selects the row ordering contract of a scan.
type OrderMode int

const (
	// Unordered scans return rows in server-defined order and cannot be
	// resumed after a partial batch.
	Unordered OrderMode = iota
	// Ordered scans return rows in primary-key order and resume from the
	// last returned key after a failure.
	Ordered
)

func (m OrderMode) String() string {
	if m == Ordered {
		return "ORDERED"
	}
	return "UNORDERED"
}

// NewScanRequest is the payload opening a scan on one tablet. It is
// carried by the first ScanRequest of the tablet and absent from
// continuations.
type NewScanRequest struct {
	TabletID         string
	ProjectedColumns []string
	// EncodedPredicates are serialized column predicates, opaque here.
	EncodedPredicates [][]byte

	// StartPrimaryKey and StopPrimaryKey are the encoded primary-key
	// bounds of the scan: inclusive lower, exclusive upper. Empty means
	// unbounded.
	StartPrimaryKey []byte
	StopPrimaryKey  []byte
	// LastPrimaryKey is the exclusive resume bound of an ordered scan:
	// the encoded key of the last row a previous attempt returned.
	LastPrimaryKey []byte

	OrderMode   OrderMode
	CacheBlocks bool
	// LeaderOnly requires the serving replica to be the leader.
	LeaderOnly bool

	// SnapshotTime pins the read point; zero lets the server choose and
	// report one.
	SnapshotTime hlc.HybridTime
	// TransactionID is uuid.Nil outside a distributed transaction.
	TransactionID uuid.UUID
}

// ScanRequest is one scan RPC. Exactly one of the three shapes is
// meaningful: a fresh open (NewScanRequest set), a continuation
// (ScannerID set), or a close (CloseScanner set, BatchSizeBytes zero).
type ScanRequest struct {
	TabletID string
	// ScannerID is the server-assigned continuation token.
	ScannerID string
	// CallSeqID orders the RPCs of one scan on one tablet, starting at 0
	// for the open.
	CallSeqID uint32
	// BatchSizeBytes limits the response size. Zero on close: release
	// resources, return no data.
	BatchSizeBytes int

	NewScanRequest *NewScanRequest
	CloseScanner   bool
}

// ScanResponse is the server's reply to one scan RPC.
type ScanResponse struct {
	// ScannerID is set when server-side state outlives this RPC; empty
	// when the scan was fully consumed in one round trip.
	ScannerID string
	// HasMoreResults reports whether another continuation on this tablet
	// will return data.
	HasMoreResults bool

	// Rows holds the returned row data, one encoded row per entry.
	Rows [][]byte
	// IndirectData carries out-of-band variable-length cell data the
	// rows reference.
	IndirectData []byte

	// LastPrimaryKey is the encoded key of the last row, reported for
	// ordered scans so the client can resume.
	LastPrimaryKey []byte
	// SnapshotTime is the read point the server chose or confirmed.
	SnapshotTime hlc.HybridTime

	// Error is the structured tablet-level error, nil on success.
	Error *TabletServerError
}

// KeepAliveRequest asks the server to extend a scanner's idle timeout.
type KeepAliveRequest struct {
	ScannerID string
}

// KeepAliveResponse acknowledges a keep-alive.
type KeepAliveResponse struct {
	Error *TabletServerError
}
