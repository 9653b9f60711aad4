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

// Package client implements the client side of a table scan: opening a
// scan against the right tablet replica, fetching batches, retrying
// transient failures with differentiated backoff, and carrying the
// continuation state (scanner id, last key, snapshot time) across RPCs
// and tablet boundaries.
package client

import (
	"bytes"
	"context"
	"math/rand"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/stratadb/strata/pkg/util/hlc"
	"github.com/stratadb/strata/pkg/util/randutil"
)

// ScannerOptions configures one scan.
type ScannerOptions struct {
	TableName        string
	ProjectedColumns []string
	// EncodedPredicates are serialized column predicates passed through
	// to the server.
	EncodedPredicates [][]byte

	// StartPrimaryKey (inclusive) and StopPrimaryKey (exclusive) are
	// encoded primary-key bounds. Empty means unbounded.
	StartPrimaryKey []byte
	StopPrimaryKey  []byte
	// StartPartitionKey routes the first tablet lookup; empty starts at
	// the beginning of the keyspace. StopPartitionKey, when set, stops
	// the scan from advancing into tablets at or past it.
	StartPartitionKey []byte
	StopPartitionKey  []byte

	Selection ReplicaSelection
	// FaultTolerant requests an ordered scan that resumes from the last
	// returned key after a transient failure.
	FaultTolerant bool
	CacheBlocks   bool
	// BatchSizeBytes limits each response. Defaults to 1 MiB.
	BatchSizeBytes int
	// ScanRequestTimeout bounds a single scan RPC when more than one
	// candidate replica remains. Defaults to 30s.
	ScanRequestTimeout time.Duration

	// SnapshotTime pins the read point; zero lets the server choose.
	SnapshotTime hlc.HybridTime
	// TransactionID is uuid.Nil outside a distributed transaction.
	TransactionID uuid.UUID

	Logger  Logger
	Metrics *ScannerMetrics
	// Rand drives backoff jitter.
	Rand *rand.Rand
}

// EnsureDefaults fills unset options with defaults, returning the
// receiver (or a fresh value if nil) for convenience.
func (o *ScannerOptions) EnsureDefaults() *ScannerOptions {
	if o == nil {
		o = &ScannerOptions{}
	}
	if o.BatchSizeBytes <= 0 {
		o.BatchSizeBytes = 1 << 20
	}
	if o.ScanRequestTimeout <= 0 {
		o.ScanRequestTimeout = 30 * time.Second
	}
	if o.Logger == nil {
		o.Logger = DefaultLogger
	}
	if o.Rand == nil {
		o.Rand, _ = randutil.NewPseudoRand()
	}
	return o
}

// Scanner is one scan cursor. It is owned by a single caller and must
// not be used from multiple goroutines at once; the metadata cache it
// consults is the only shared resource it touches.
type Scanner struct {
	opts  ScannerOptions
	cache MetaCache

	open         bool
	scanAttempts int
	callSeqID    uint32
	scannerID    string
	hasMoreRows  bool

	lastPrimaryKey []byte
	snapshotTime   hlc.HybridTime

	tablet *RemoteTablet
	server *RemoteTabletServer
	proxy  TabletServerProxy

	// blacklist is scan-local: replicas excluded after TABLET_NOT_RUNNING,
	// cleared once every candidate is excluded.
	blacklist Blacklist

	batch *ScanResponse

	// Injection points for tests; real time and real sleeping otherwise.
	nowFn   func() time.Time
	sleepFn func(time.Duration)
}

// NewScanner returns a closed scanner. Call Open to start the scan.
func NewScanner(cache MetaCache, opts *ScannerOptions) *Scanner {
	opts = opts.EnsureDefaults()
	return &Scanner{
		opts:    *opts,
		cache:   cache,
		nowFn:   time.Now,
		sleepFn: time.Sleep,
	}
}

// Open starts the scan on the first tablet and fetches the first batch.
func (s *Scanner) Open(ctx context.Context, deadline time.Time) error {
	if s.open {
		return NewIllegalStatef("scan is already open")
	}
	return s.openTablet(ctx, s.opts.StartPartitionKey, deadline)
}

// Rows returns the rows of the current batch.
func (s *Scanner) Rows() [][]byte {
	if s.batch == nil {
		return nil
	}
	return s.batch.Rows
}

// SnapshotTime returns the read point of the scan: the one requested,
// or the one the server chose on open.
func (s *Scanner) SnapshotTime() hlc.HybridTime {
	return s.snapshotTime
}

// HasMoreRows reports whether NextBatch can produce another batch.
func (s *Scanner) HasMoreRows() bool {
	return s.open && (s.hasMoreRows || s.MoreTablets())
}

// NextBatch advances to the next batch: a continuation on the current
// tablet if the server has more, otherwise an open of the next tablet.
// It returns false when the scan is exhausted.
func (s *Scanner) NextBatch(ctx context.Context, deadline time.Time) (bool, error) {
	if !s.open {
		return false, NewIllegalStatef("NextBatch on a scan that is not open")
	}
	if s.hasMoreRows {
		return true, s.continueScan(ctx, deadline)
	}
	if s.MoreTablets() {
		return true, s.openTablet(ctx, s.tablet.Partition.KeyEnd, deadline)
	}
	s.batch = nil
	return false, nil
}

// MoreTablets reports whether the scan continues into a tablet after
// the current one.
func (s *Scanner) MoreTablets() bool {
	if s.tablet == nil || s.tablet.Partition.IsEndPartition() {
		return false
	}
	if len(s.opts.StopPartitionKey) > 0 &&
		bytes.Compare(s.opts.StopPartitionKey, s.tablet.Partition.KeyEnd) <= 0 {
		return false
	}
	if len(s.opts.StopPrimaryKey) == 0 {
		return true
	}
	return bytes.Compare(s.opts.StopPrimaryKey, s.tablet.Partition.KeyEnd) > 0
}

// KeepAlive extends the server-side scanner's idle timeout. Calling it
// on a scan that was never opened is a caller bug; a scan with no
// outstanding server-side scanner has nothing to extend and succeeds
// trivially.
func (s *Scanner) KeepAlive(ctx context.Context) error {
	if !s.open {
		return NewIllegalStatef("keep-alive on a scan that was never opened")
	}
	if s.scannerID == "" {
		return nil
	}
	resp, err := s.proxy.ScannerKeepAlive(ctx, &KeepAliveRequest{ScannerID: s.scannerID})
	if err != nil {
		return err
	}
	if resp.Error != nil {
		return resp.Error
	}
	return nil
}

// Close releases the server-side scanner, best effort, and returns the
// scanner to the closed state. Safe to call on a closed scanner.
func (s *Scanner) Close(ctx context.Context) {
	if !s.open {
		return
	}
	s.open = false
	s.batch = nil
	if s.scannerID == "" || s.proxy == nil {
		return
	}
	// Batch size zero: release resources, return no data.
	s.callSeqID++
	req := &ScanRequest{
		TabletID:       s.tablet.ID,
		ScannerID:      s.scannerID,
		CallSeqID:      s.callSeqID,
		BatchSizeBytes: 0,
		CloseScanner:   true,
	}
	if _, err := s.proxy.Scan(ctx, req); err != nil {
		s.opts.Logger.Errorf("failed to close scanner %s on %s: %v", s.scannerID, s.server, err)
	}
	s.scannerID = ""
}

// openTablet runs the open retry loop against the tablet owning
// partitionKey, with a fresh call sequence.
func (s *Scanner) openTablet(ctx context.Context, partitionKey []byte, deadline time.Time) error {
	s.callSeqID = 0
	s.scannerID = ""
	s.server = nil
	s.proxy = nil

	orderMode := Unordered
	if s.opts.FaultTolerant {
		orderMode = Ordered
	}
	snapshot := s.opts.SnapshotTime
	if s.snapshotTime.Valid() {
		snapshot = s.snapshotTime
	}
	newReq := &NewScanRequest{
		ProjectedColumns:  s.opts.ProjectedColumns,
		EncodedPredicates: s.opts.EncodedPredicates,
		StartPrimaryKey:   s.opts.StartPrimaryKey,
		StopPrimaryKey:    s.opts.StopPrimaryKey,
		OrderMode:         orderMode,
		CacheBlocks:       s.opts.CacheBlocks,
		LeaderOnly:        s.opts.Selection == LeaderOnly,
		SnapshotTime:      snapshot,
		TransactionID:     s.opts.TransactionID,
	}
	if s.opts.FaultTolerant && len(s.lastPrimaryKey) > 0 {
		newReq.LastPrimaryKey = s.lastPrimaryKey
	}

	var lastErr error
	for {
		now := s.nowFn()
		if !now.Before(deadline) {
			return s.timedOut(lastErr, "opening a scan at partition key %x", partitionKey)
		}

		tablet, err := s.cache.LookupTabletByKey(ctx, s.opts.TableName, partitionKey)
		if err != nil {
			return err
		}
		ts, candidates, err := s.cache.SelectTabletServer(tablet, s.opts.Selection, &s.blacklist)
		if err != nil {
			return err
		}
		// Candidates still on the blacklist will not be tried, so the last
		// usable replica gets the full remaining deadline.
		usable := candidates - s.blacklist.Len()
		rpcDeadline, usedFullDeadline := s.rpcDeadline(now, deadline, usable <= 1)

		newReq.TabletID = tablet.ID
		req := &ScanRequest{
			TabletID:       tablet.ID,
			CallSeqID:      0,
			BatchSizeBytes: s.opts.BatchSizeBytes,
			NewScanRequest: newReq,
		}
		proxy := s.cache.Proxy(ts)
		rpcCtx, cancel := context.WithDeadline(ctx, rpcDeadline)
		resp, rpcErr := proxy.Scan(rpcCtx, req)
		cancel()

		var serverErr *TabletServerError
		if rpcErr == nil && resp != nil {
			serverErr = resp.Error
		}
		if rpcErr == nil && serverErr == nil {
			s.tablet, s.server, s.proxy = tablet, ts, proxy
			s.absorbResponse(resp)
			s.open = true
			s.scanAttempts = 0
			s.opts.Metrics.opened()
			return nil
		}

		s.scanAttempts++
		retriable, err := s.canBeRetried(&lastErr, rpcErr, serverErr, retryEnv{
			newScan:          true,
			tablet:           tablet,
			server:           ts,
			candidates:       candidates,
			deadline:         deadline,
			usedFullDeadline: usedFullDeadline,
		})
		if !retriable {
			return err
		}
	}
}

// continueScan fetches the next batch from the current tablet's
// scanner. A retriable failure on an ordered scan falls back to
// reopening the tablet from the last returned key.
func (s *Scanner) continueScan(ctx context.Context, deadline time.Time) error {
	var lastErr error
	s.callSeqID++
	for {
		now := s.nowFn()
		if !now.Before(deadline) {
			return s.timedOut(lastErr, "continuing the scan on %s", s.tablet)
		}

		req := &ScanRequest{
			TabletID:       s.tablet.ID,
			ScannerID:      s.scannerID,
			CallSeqID:      s.callSeqID,
			BatchSizeBytes: s.opts.BatchSizeBytes,
		}
		rpcDeadline, usedFullDeadline := s.rpcDeadline(now, deadline, false)
		rpcCtx, cancel := context.WithDeadline(ctx, rpcDeadline)
		resp, rpcErr := s.proxy.Scan(rpcCtx, req)
		cancel()

		var serverErr *TabletServerError
		if rpcErr == nil && resp != nil {
			serverErr = resp.Error
		}
		if rpcErr == nil && serverErr == nil {
			s.scanAttempts = 0
			s.absorbResponse(resp)
			return nil
		}

		s.scanAttempts++
		retriable, err := s.canBeRetried(&lastErr, rpcErr, serverErr, retryEnv{
			newScan:          false,
			tablet:           s.tablet,
			server:           s.server,
			candidates:       1,
			deadline:         deadline,
			usedFullDeadline: usedFullDeadline,
		})
		if !retriable {
			return err
		}
		if serverErr == nil && errors.Is(rpcErr, ErrServerTooBusy) {
			// Overload is retried as the same continuation, same sequence
			// id: the request is idempotent until the server processes it.
			continue
		}
		// Any other retriable failure loses the server-side scanner. An
		// ordered scan resumes with a fresh scan bounded below by the
		// last key this scan returned.
		return s.openTablet(ctx, s.tablet.Partition.KeyStart, deadline)
	}
}

// rpcDeadline splits the remaining overall deadline: a replica that is
// not the last candidate gets at most the per-RPC timeout, so later
// candidates still get a turn; the last candidate gets everything left.
// The second return value reports whether the RPC got the full
// remaining deadline.
func (s *Scanner) rpcDeadline(now, deadline time.Time, lastCandidate bool) (time.Time, bool) {
	if !lastCandidate {
		if d := now.Add(s.opts.ScanRequestTimeout); d.Before(deadline) {
			return d, false
		}
	}
	return deadline, true
}

func (s *Scanner) absorbResponse(resp *ScanResponse) {
	s.batch = resp
	s.scannerID = resp.ScannerID
	s.hasMoreRows = resp.HasMoreResults
	if s.opts.FaultTolerant && len(resp.LastPrimaryKey) > 0 {
		s.lastPrimaryKey = append(s.lastPrimaryKey[:0], resp.LastPrimaryKey...)
	}
	if resp.SnapshotTime.Valid() {
		s.snapshotTime = resp.SnapshotTime
	}
}

// retryEnv carries the per-attempt facts the retry decision needs.
type retryEnv struct {
	newScan          bool
	tablet           *RemoteTablet
	server           *RemoteTabletServer
	candidates       int
	deadline         time.Time
	usedFullDeadline bool
}

// canBeRetried decides whether a failed scan RPC may be retried, taking
// whatever backoff or metadata side effects the failure calls for. At
// least one of rpcErr and serverErr is non-nil. lastErr accumulates the
// root cause for a later timeout: the first error is kept unless the
// stored one is itself a timeout.
func (s *Scanner) canBeRetried(lastErr *error, rpcErr error, serverErr *TabletServerError, env retryEnv) (bool, error) {
	// Overloaded server: the call never reached tablet-level processing.
	// Back off exponentially and retry the same replica.
	if serverErr == nil && errors.Is(rpcErr, ErrServerTooBusy) {
		delay := busyServerDelay(s.scanAttempts, s.opts.Rand)
		if s.nowFn().Add(delay).After(env.deadline) {
			return false, s.timedOut(*lastErr,
				"a backoff of %s after %d attempts would exceed the deadline", delay, s.scanAttempts)
		}
		updateLastError(lastErr, rpcErr)
		s.opts.Metrics.retried(retryReasonServerTooBusy)
		s.opts.Logger.Infof("server %s too busy, backing off %s (attempt %d)",
			env.server, delay, s.scanAttempts)
		s.sleepFn(delay)
		return true, nil
	}

	if rpcErr != nil {
		if IsTimedOut(rpcErr) && env.usedFullDeadline {
			// The replica had the entire remaining deadline and still timed
			// out; the replica is not at fault and there is no time left.
			s.opts.Metrics.timedOut()
			err := rpcErr
			if *lastErr != nil {
				err = errors.WithSecondaryError(err, *lastErr)
			}
			return false, err
		}
		// The replica is marked failed even when the scan cannot be
		// retried, so later scans avoid it.
		s.cache.MarkTabletServerFailed(env.server, rpcErr)
		updateLastError(lastErr, rpcErr)
		if !env.newScan && !s.opts.FaultTolerant {
			return false, rpcErr
		}
		s.opts.Metrics.retried(retryReasonNetwork)
		s.opts.Logger.Infof("scan RPC to %s failed, marking replica failed: %v", env.server, rpcErr)
		return true, nil
	}

	// A continuation of an unordered scan cannot be replayed without
	// risking duplicated or missing rows.
	if !env.newScan && !s.opts.FaultTolerant {
		return false, serverErr
	}

	switch serverErr.Code {
	case ScannerExpired:
		// The server dropped our scanner state; a fresh scan at the same
		// server picks up where the last key left off.
		updateLastError(lastErr, serverErr)
		s.opts.Metrics.retried(retryReasonScannerExpired)
		return true, nil

	case LeaderNotReadyToServe:
		updateLastError(lastErr, serverErr)
		s.opts.Metrics.retried(retryReasonLeaderNotReady)
		s.sleepFn(leaderNotReadyDelay)
		return true, nil

	case TabletNotRunning:
		updateLastError(lastErr, serverErr)
		s.blacklist.Add(env.server)
		s.opts.Metrics.retried(retryReasonNotRunning)
		if s.blacklist.Len() >= env.candidates {
			// Every candidate is excluded. Wait for the tablet to settle
			// somewhere, then start over with a clean slate.
			delay := blacklistClearedDelay(s.opts.Rand)
			s.opts.Logger.Infof("all %d replicas of %s blacklisted, sleeping %s and clearing",
				env.candidates, env.tablet, delay)
			s.sleepFn(delay)
			s.blacklist.Clear()
		}
		return true, nil

	case TabletNotFound, NotTheLeader:
		updateLastError(lastErr, serverErr)
		s.cache.MarkTabletStale(env.tablet)
		s.opts.Metrics.retried(retryReasonStaleMetadata)
		s.sleepFn(staleMetadataDelay(s.opts.Rand))
		return true, nil

	default:
		return false, serverErr
	}
}

func (s *Scanner) timedOut(lastErr error, format string, args ...interface{}) error {
	s.opts.Metrics.timedOut()
	err := errors.Newf(format, args...)
	if lastErr != nil {
		err = errors.WithSecondaryError(err, lastErr)
	}
	return errors.Mark(err, ErrTimedOut)
}

func updateLastError(acc *error, err error) {
	if *acc == nil || IsTimedOut(*acc) {
		*acc = err
	}
}
