// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package sarif

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// metricsExtract holds Prometheus metrics for code extraction.
type metricsExtract struct {
	once sync.Once

	jobs *prometheus.CounterVec
	// findings extracted across successful jobs
	findings prometheus.Counter
}

var metrics metricsExtract

func (m *metricsExtract) init() {
	m.once.Do(func() {
		m.jobs = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mbscanner_extract_jobs_total",
			Help: "Extraction jobs by final status",
		}, []string{"status"})
		m.findings = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mbscanner_extract_findings_total",
			Help: "Findings written to extraction artifacts",
		})
		prometheus.MustRegister(m.jobs, m.findings)
	})
}

func (m *metricsExtract) record(res JobResult) {
	if res == nil {
		return
	}
	m.init()
	m.jobs.WithLabelValues(res.Status()).Inc()
	if s, ok := res.(Success); ok {
		m.findings.Add(float64(s.Count))
	}
}
