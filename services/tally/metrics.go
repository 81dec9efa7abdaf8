// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tally_service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// Namespace for all metrics
const metricsNamespace = "infotally"

// Metrics holds the Prometheus counters for tally operations.
//
// # Thread Safety
//
// All operations are thread-safe.
type Metrics struct {
	// ObservationsTotal counts values offered to each variable and pair.
	// Labels: target, outcome (accepted, rejected)
	ObservationsTotal *prometheus.CounterVec

	// RecordsTotal counts records received by Observe.
	RecordsTotal prometheus.Counter

	// SnapshotsTotal counts snapshot operations.
	// Labels: op (save, restore), status (success, error)
	SnapshotsTotal *prometheus.CounterVec

	// FilesTotal counts data files ingested.
	// Labels: format (csv, jsonl), status (success, error)
	FilesTotal *prometheus.CounterVec
}

// NewMetrics creates the counters and registers them with reg.
//
// # Limitations
//
//   - Panics if the counters are already registered with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ObservationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "observations_total",
				Help:      "Values offered to each variable and pair by outcome",
			},
			[]string{"target", "outcome"},
		),
		RecordsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "records_total",
				Help:      "Records received for tallying",
			},
		),
		SnapshotsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "snapshots_total",
				Help:      "Snapshot operations by kind and status",
			},
			[]string{"op", "status"},
		),
		FilesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "ingest",
				Name:      "files_total",
				Help:      "Data files ingested by format and status",
			},
			[]string{"format", "status"},
		),
	}
}

// RecordObservations adds one observe call's outcome for target.
func (m *Metrics) RecordObservations(target string, accepted, rejected int64) {
	if accepted > 0 {
		m.ObservationsTotal.WithLabelValues(target, "accepted").Add(float64(accepted))
	}
	if rejected > 0 {
		m.ObservationsTotal.WithLabelValues(target, "rejected").Add(float64(rejected))
	}
}

// RecordSnapshot counts a snapshot save or restore.
func (m *Metrics) RecordSnapshot(op string, success bool) {
	m.SnapshotsTotal.WithLabelValues(op, status(success)).Inc()
}

// RecordFile counts an ingested file.
func (m *Metrics) RecordFile(format string, success bool) {
	m.FilesTotal.WithLabelValues(format, status(success)).Inc()
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// =============================================================================
// Tally Collector
// =============================================================================

// Collector exports the live state of every tally as gauges.
//
// Values are computed at scrape time in the service's default basis.
// Entropy and mutual information are omitted for tallies with no samples.
type Collector struct {
	svc     *Service
	samples *prometheus.Desc
	entropy *prometheus.Desc
	mutual  *prometheus.Desc
}

// NewCollector creates a Collector for svc. Register it with a registry.
func NewCollector(svc *Service) *Collector {
	return &Collector{
		svc: svc,
		samples: prometheus.NewDesc(
			prometheus.BuildFQName(metricsNamespace, "", "samples"),
			"Samples held by each variable and pair",
			[]string{"name", "kind"}, nil,
		),
		entropy: prometheus.NewDesc(
			prometheus.BuildFQName(metricsNamespace, "", "entropy"),
			"Entropy of each variable",
			[]string{"name", "basis"}, nil,
		),
		mutual: prometheus.NewDesc(
			prometheus.BuildFQName(metricsNamespace, "", "mutual_information"),
			"Mutual information of each pair",
			[]string{"name", "basis"}, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.samples
	ch <- c.entropy
	ch <- c.mutual
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.svc.mu.RLock()
	defer c.svc.mu.RUnlock()

	basis := c.svc.basis
	for _, name := range c.svc.varNames {
		v := c.svc.variables[name]
		v.mu.Lock()
		samples := v.tally.Samples()
		h, err := v.tally.Entropy(basis)
		v.mu.Unlock()

		ch <- prometheus.MustNewConstMetric(c.samples, prometheus.GaugeValue, float64(samples), name, "variable")
		if err == nil {
			ch <- prometheus.MustNewConstMetric(c.entropy, prometheus.GaugeValue, h, name, basis.String())
		}
	}
	for _, name := range c.svc.pairNames {
		p := c.svc.pairs[name]
		p.mu.Lock()
		samples := p.tally.Samples()
		mi, err := p.tally.MutualInformationXY(basis)
		p.mu.Unlock()

		ch <- prometheus.MustNewConstMetric(c.samples, prometheus.GaugeValue, float64(samples), name, "pair")
		if err == nil {
			ch <- prometheus.MustNewConstMetric(c.mutual, prometheus.GaugeValue, mi, name, basis.String())
		}
	}
}
