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
	"bytes"
	"context"
	"fmt"
)

// Partition is the half-open partition-key range [KeyStart, KeyEnd)
// owned by a tablet. An empty KeyStart means the beginning of the
// keyspace; an empty KeyEnd means it extends to the end.
type Partition struct {
	KeyStart []byte
	KeyEnd   []byte
}

// IsEndPartition reports whether the partition extends to the end of
// the keyspace.
func (p Partition) IsEndPartition() bool {
	return len(p.KeyEnd) == 0
}

// Contains reports whether the partition key falls in this partition.
func (p Partition) Contains(partitionKey []byte) bool {
	return bytes.Compare(p.KeyStart, partitionKey) <= 0 &&
		(p.IsEndPartition() || bytes.Compare(partitionKey, p.KeyEnd) < 0)
}

// RemoteTablet is a client-side view of one tablet: its id and the
// partition-key range it owns. Replica placement lives in the metadata
// cache, not here.
type RemoteTablet struct {
	ID        string
	Partition Partition
}

func (t *RemoteTablet) String() string {
	return fmt.Sprintf("tablet %s [%x, %x)", t.ID, t.Partition.KeyStart, t.Partition.KeyEnd)
}

// RemoteTabletServer identifies one tablet server process.
type RemoteTabletServer struct {
	UUID string
	Addr string
}

func (ts *RemoteTabletServer) String() string {
	return fmt.Sprintf("%s (%s)", ts.UUID, ts.Addr)
}

// ReplicaSelection picks which replica of a tablet serves a scan.
type ReplicaSelection int

const (
	// ClosestReplica reads from the nearest live replica, leader or not.
	ClosestReplica ReplicaSelection = iota
	// LeaderOnly reads from the leader replica only.
	LeaderOnly
)

func (s ReplicaSelection) String() string {
	switch s {
	case ClosestReplica:
		return "CLOSEST_REPLICA"
	case LeaderOnly:
		return "LEADER_ONLY"
	default:
		return fmt.Sprintf("ReplicaSelection(%d)", int(s))
	}
}

// Blacklist is a scan-local set of replicas temporarily excluded from
// candidate selection. It is owned by a single scan and never shared.
type Blacklist struct {
	ids map[string]struct{}
}

// Add excludes a server.
func (b *Blacklist) Add(ts *RemoteTabletServer) {
	if b.ids == nil {
		b.ids = make(map[string]struct{})
	}
	b.ids[ts.UUID] = struct{}{}
}

// Contains reports whether a server is excluded.
func (b *Blacklist) Contains(ts *RemoteTabletServer) bool {
	_, ok := b.ids[ts.UUID]
	return ok
}

// Len returns the number of excluded servers.
func (b *Blacklist) Len() int {
	return len(b.ids)
}

// Clear removes all exclusions.
func (b *Blacklist) Clear() {
	b.ids = nil
}

// MetaCache is the shared tablet-metadata service the scanner consults.
// Implementations synchronize internally; the scanner calls it from a
// single goroutine per scan but many scans share one cache.
type MetaCache interface {
	// LookupTabletByKey resolves the tablet owning partitionKey.
	LookupTabletByKey(ctx context.Context, tableName string, partitionKey []byte) (*RemoteTablet, error)

	// SelectTabletServer picks a replica of the tablet per the selection
	// policy, skipping blacklisted replicas. It returns the chosen server
	// and the total number of live candidates before blacklist filtering,
	// which the caller uses for deadline splitting and blacklist
	// exhaustion detection.
	SelectTabletServer(tablet *RemoteTablet, selection ReplicaSelection, blacklist *Blacklist) (*RemoteTabletServer, int, error)

	// Proxy returns the RPC endpoint for a server.
	Proxy(ts *RemoteTabletServer) TabletServerProxy

	// MarkTabletServerFailed records a replica health failure so future
	// selections avoid the server.
	MarkTabletServerFailed(ts *RemoteTabletServer, cause error)

	// MarkTabletStale invalidates the cached location of a tablet,
	// forcing the next lookup to refresh.
	MarkTabletStale(tablet *RemoteTablet)
}

// TabletServerProxy is the RPC surface of one tablet server that the
// scanner uses. The transport is external; calls respect the context
// deadline.
type TabletServerProxy interface {
	Scan(ctx context.Context, req *ScanRequest) (*ScanResponse, error)
	ScannerKeepAlive(ctx context.Context, req *KeepAliveRequest) (*KeepAliveResponse, error)
}
