// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package repo

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// metricsClone holds Prometheus metrics for git clones.
type metricsClone struct {
	once sync.Once

	clones   *prometheus.CounterVec
	duration prometheus.Histogram
}

var metrics metricsClone

func (m *metricsClone) init() {
	m.once.Do(func() {
		m.clones = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mbscanner_repo_clones_total",
			Help: "git clone invocations by outcome",
		}, []string{"outcome"})
		m.duration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mbscanner_repo_clone_seconds",
			Help:    "Duration of git clone invocations",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		})
		prometheus.MustRegister(m.clones, m.duration)
	})
}

func (m *metricsClone) observe(err error, d time.Duration) {
	m.init()
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.clones.WithLabelValues(outcome).Inc()
	m.duration.Observe(d.Seconds())
}
