// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package codeql

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// metricsCodeQL holds Prometheus metrics for CodeQL invocations.
type metricsCodeQL struct {
	once sync.Once

	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var metrics metricsCodeQL

func (m *metricsCodeQL) init() {
	m.once.Do(func() {
		m.runs = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mbscanner_codeql_runs_total",
			Help: "CodeQL invocations by subcommand and outcome",
		}, []string{"subcommand", "outcome"})
		m.duration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mbscanner_codeql_run_seconds",
			Help:    "Duration of CodeQL invocations",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 14),
		}, []string{"subcommand"})
		prometheus.MustRegister(m.runs, m.duration)
	})
}

func (m *metricsCodeQL) observe(subcommand string, err error, d time.Duration) {
	m.init()
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.runs.WithLabelValues(subcommand, outcome).Inc()
	m.duration.WithLabelValues(subcommand).Observe(d.Seconds())
}
