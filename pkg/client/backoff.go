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
	"math/rand"
	"time"
)

// Backoff delays are pure functions of the attempt number and an
// injected randomness source; the retry loop owns the clock and the
// sleeping, so tests can assert delay bounds without waiting.

// maxBusyBackoffShift caps the exponential growth of the busy-server
// backoff at 2^8.
const maxBusyBackoffShift = 8

// leaderNotReadyDelay is the fixed pause before retrying a freshly
// elected leader that has not caught up yet.
const leaderNotReadyDelay = 200 * time.Millisecond

// busyServerDelay computes the backoff after an overloaded-server
// rejection: a base uniform in [10ms, 20ms) doubled per attempt, capped
// by a ceiling uniform in [2500ms, 5000ms). attempt counts consecutive
// failures starting at 1.
func busyServerDelay(attempt int, rng *rand.Rand) time.Duration {
	shift := attempt - 1
	if shift > maxBusyBackoffShift {
		shift = maxBusyBackoffShift
	}
	if shift < 0 {
		shift = 0
	}
	delay := time.Duration(10+rng.Intn(10)) * time.Millisecond << shift
	ceiling := time.Duration(2500+rng.Intn(2500)) * time.Millisecond
	if delay > ceiling {
		return ceiling
	}
	return delay
}

// blacklistClearedDelay computes the pause taken when every candidate
// replica has been blacklisted, before clearing the blacklist and
// starting over: uniform in [1000ms, 6000ms).
func blacklistClearedDelay(rng *rand.Rand) time.Duration {
	return time.Duration(1000+rng.Intn(5000)) * time.Millisecond
}

// staleMetadataDelay computes the pause after marking a tablet's cached
// location stale, giving the cluster time to converge before the
// re-lookup: uniform in [500ms, 1500ms).
func staleMetadataDelay(rng *rand.Rand) time.Duration {
	return time.Duration(500+rng.Intn(1000)) * time.Millisecond
}
