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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ScannerMetrics counts scan activity across every scan sharing the
// instance. All fields are safe for concurrent use.
type ScannerMetrics struct {
	TabletScansOpened prometheus.Counter
	ScanRetries       *prometheus.CounterVec
	ScanTimeouts      prometheus.Counter
}

// Retry reason labels.
const (
	retryReasonServerTooBusy  = "server_too_busy"
	retryReasonNetwork        = "network"
	retryReasonScannerExpired = "scanner_expired"
	retryReasonLeaderNotReady = "leader_not_ready"
	retryReasonNotRunning     = "tablet_not_running"
	retryReasonStaleMetadata  = "stale_metadata"
)

// NewScannerMetrics registers and returns the scan metrics.
func NewScannerMetrics(reg prometheus.Registerer) *ScannerMetrics {
	factory := promauto.With(reg)
	return &ScannerMetrics{
		TabletScansOpened: factory.NewCounter(prometheus.CounterOpts{
			Name: "client_tablet_scans_opened_total",
			Help: "Tablet scans opened, including reopens after retriable failures.",
		}),
		ScanRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "client_scan_retries_total",
			Help: "Scan RPC retries by reason.",
		}, []string{"reason"}),
		ScanTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "client_scan_timeouts_total",
			Help: "Scans that failed by exhausting their deadline.",
		}),
	}
}

func (m *ScannerMetrics) retried(reason string) {
	if m != nil {
		m.ScanRetries.WithLabelValues(reason).Inc()
	}
}

func (m *ScannerMetrics) opened() {
	if m != nil {
		m.TabletScansOpened.Inc()
	}
}

func (m *ScannerMetrics) timedOut() {
	if m != nil {
		m.ScanTimeouts.Inc()
	}
}
