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

// Package randutil provides seeded pseudo-random sources for jittered
// backoff and for tests that need reproducible randomness.
package randutil

import (
	"math/rand"
	"time"
)

// NewPseudoRand returns an instance of math/rand.Rand seeded from the
// current time and its seed, so that tests can log the seed and replay
// a failure.
func NewPseudoRand() (*rand.Rand, int64) {
	seed := time.Now().UnixNano()
	return rand.New(rand.NewSource(seed)), seed
}

// NewTestRand returns a Rand with a fixed seed for deterministic tests.
func NewTestRand() *rand.Rand {
	return rand.New(rand.NewSource(42))
}
