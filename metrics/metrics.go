// Copyright 2021 dustinxie
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics exposes Prometheus collectors for an ingestion
// service built on the sketch/ingest packages.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collectors holds every metric the ingestion service reports.
type Collectors struct {
	RecordsAbsorbed prometheus.Counter
	AddErrors       prometheus.Counter
	EstimateLatency prometheus.Histogram
	ActiveShards    prometheus.Gauge
}

// New builds a fresh, unregistered set of collectors under namespace.
func New(namespace string) *Collectors {
	return &Collectors{
		RecordsAbsorbed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_absorbed_total",
			Help:      "Total number of records absorbed into the sketch across all shards.",
		}),
		AddErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "add_errors_total",
			Help:      "Total number of records a shard worker failed to absorb.",
		}),
		EstimateLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "estimate_latency_seconds",
			Help:      "Latency of sketch.Estimate calls.",
			Buckets:   prometheus.DefBuckets,
		}),
		ActiveShards: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_shards",
			Help:      "Number of shards that have absorbed at least one record.",
		}),
	}
}

// MustRegister registers every collector with reg, panicking on a
// duplicate-registration error (mirrors goarista's ocprometheus fail-fast
// startup style for configuration it controls itself).
func (c *Collectors) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(c.RecordsAbsorbed, c.AddErrors, c.EstimateLatency, c.ActiveShards)
}
