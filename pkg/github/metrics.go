// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package github

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// metricsGitHub holds Prometheus metrics for GitHub API calls.
type metricsGitHub struct {
	once sync.Once

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var metrics metricsGitHub

func (m *metricsGitHub) init() {
	m.once.Do(func() {
		m.requests = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mbscanner_github_requests_total",
			Help: "GitHub API requests by endpoint and outcome",
		}, []string{"endpoint", "outcome"})
		m.duration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mbscanner_github_request_seconds",
			Help:    "GitHub API request latency",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"endpoint"})
		prometheus.MustRegister(m.requests, m.duration)
	})
}

func (m *metricsGitHub) observe(endpoint string, err error, d time.Duration) {
	m.init()
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.requests.WithLabelValues(endpoint, outcome).Inc()
	m.duration.WithLabelValues(endpoint).Observe(d.Seconds())
}
