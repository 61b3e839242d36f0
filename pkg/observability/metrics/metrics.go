// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package metrics holds the Prometheus collectors for the search pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "smartsearch"

// Pipeline stage labels.
const (
	StageSearch   = "search"
	StageExtract  = "extract"
	StageGenerate = "generate"
	StageTotal    = "total"
)

// Metrics groups the pipeline collectors. A nil *Metrics records nothing.
type Metrics struct {
	requests      *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	errors        *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total smart search requests by outcome",
			},
			[]string{"search_engine", "llm_provider", "outcome"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Pipeline stage duration in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"stage"},
		),
		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Pipeline failures by error kind",
			},
			[]string{"kind"},
		),
	}

	if reg != nil {
		reg.MustRegister(m.requests, m.stageDuration, m.errors)
	}
	return m
}

// ObserveStage records how long a stage took.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordRequest counts one finished request. outcome is "answered",
// "no_results", or an error kind.
func (m *Metrics) RecordRequest(engine, provider, outcome string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(engine, provider, outcome).Inc()
}

// RecordError counts one failure of the given kind.
func (m *Metrics) RecordError(kind string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(kind).Inc()
}
