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
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stratadb/strata/pkg/util/randutil"
)

func TestBusyServerDelay(t *testing.T) {
	rng := randutil.NewTestRand()

	for i := 0; i < 100; i++ {
		d := busyServerDelay(1, rng)
		require.GreaterOrEqual(t, d, 10*time.Millisecond)
		require.Less(t, d, 20*time.Millisecond)
	}

	// Doubles per attempt: attempt 4 is the base shifted by 3.
	for i := 0; i < 100; i++ {
		d := busyServerDelay(4, rng)
		require.GreaterOrEqual(t, d, 80*time.Millisecond)
		require.Less(t, d, 160*time.Millisecond)
	}

	// Far along, the randomized ceiling takes over.
	for i := 0; i < 100; i++ {
		d := busyServerDelay(50, rng)
		require.GreaterOrEqual(t, d, 2500*time.Millisecond)
		require.Less(t, d, 5000*time.Millisecond)
	}

	// Degenerate attempt numbers behave like the first attempt.
	d := busyServerDelay(0, rng)
	require.GreaterOrEqual(t, d, 10*time.Millisecond)
	require.Less(t, d, 20*time.Millisecond)
}

func TestBlacklistClearedDelay(t *testing.T) {
	rng := randutil.NewTestRand()
	for i := 0; i < 100; i++ {
		d := blacklistClearedDelay(rng)
		require.GreaterOrEqual(t, d, 1000*time.Millisecond)
		require.Less(t, d, 6000*time.Millisecond)
	}
}

func TestStaleMetadataDelay(t *testing.T) {
	rng := randutil.NewTestRand()
	for i := 0; i < 100; i++ {
		d := staleMetadataDelay(rng)
		require.GreaterOrEqual(t, d, 500*time.Millisecond)
		require.Less(t, d, 1500*time.Millisecond)
	}
}
