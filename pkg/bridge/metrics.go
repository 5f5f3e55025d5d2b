// Copyright 2018 The Kura Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package bridge

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	requests *prometheus.CounterVec
	errors   *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	inflight prometheus.Gauge
}

// newMetrics registers the bridge's metrics with reg. A nil reg leaves them
// unregistered.
func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		requests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracefs_bridge_requests_total",
				Help: "Kernel requests received, by operation",
			},
			[]string{"op"},
		),
		errors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracefs_bridge_errors_total",
				Help: "Requests answered with an error, by operation and errno",
			},
			[]string{"op", "errno"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tracefs_bridge_request_duration_seconds",
				Help:    "Time from receiving a request to answering it",
				Buckets: []float64{.00001, .0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"op"},
		),
		inflight: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "tracefs_bridge_inflight_requests",
				Help: "Requests received and not yet answered",
			},
		),
	}
}
