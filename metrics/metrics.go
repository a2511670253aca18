// Copyright 2021 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package metrics exports mcdb registry and builder activity to
// Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bpowers/mcdb"
)

const namespace = "mcdb"

// Acquire results, used as the "result" label of AcquiresTotal.
const (
	ResultShared = "shared"
	ResultMapped = "mapped"
	ResultError  = "error"
)

// Collector implements mcdb.Metrics.
type Collector struct {
	AcquiresTotal      *prometheus.CounterVec
	Mappings           *prometheus.GaugeVec
	MappedBytes        *prometheus.GaugeVec
	MapDuration        *prometheus.HistogramVec
	StaleDetachesTotal *prometheus.CounterVec
	BuildsTotal        prometheus.Counter
	BuildRecords       prometheus.Gauge
	BuildBytes         prometheus.Gauge
	BuildDuration      prometheus.Histogram

	registry *prometheus.Registry
}

var _ mcdb.Metrics = (*Collector)(nil)

// New registers mcdb's collectors with reg.  A nil reg gets a fresh
// registry, available from Registry.
func New(reg *prometheus.Registry) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	c := &Collector{registry: reg}
	f := promauto.With(reg)

	c.AcquiresTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "acquires_total",
			Help:      "Total number of database acquisitions",
		},
		[]string{"db", "result"}, // shared, mapped, error
	)

	c.Mappings = f.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mappings",
			Help:      "Number of live mappings",
		},
		[]string{"db"},
	)

	c.MappedBytes = f.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mapped_bytes",
			Help:      "Bytes currently mapped",
		},
		[]string{"db"},
	)

	c.MapDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "map_duration_seconds",
			Help:      "Time to open, map and validate a database file",
			Buckets:   []float64{.00001, .0001, .001, .01, .1, 1},
		},
		[]string{"db"},
	)

	c.StaleDetachesTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_detaches_total",
			Help:      "Mappings detached because their file was replaced",
		},
		[]string{"db"},
	)

	c.BuildsTotal = f.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "builds_total",
			Help:      "Total number of finished database builds",
		},
	)

	c.BuildRecords = f.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_records",
			Help:      "Records in the most recently finished build",
		},
	)

	c.BuildBytes = f.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_bytes",
			Help:      "Size of the most recently finished build",
		},
	)

	c.BuildDuration = f.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Time from Start to Finish of a build",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		},
	)

	return c
}

// Registry returns the Prometheus registry the collectors live in.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) ObserveAcquire(id string, shared bool) {
	result := ResultMapped
	if shared {
		result = ResultShared
	}
	c.AcquiresTotal.WithLabelValues(id, result).Inc()
}

func (c *Collector) ObserveAcquireError(id string) {
	c.AcquiresTotal.WithLabelValues(id, ResultError).Inc()
}

func (c *Collector) ObserveMap(id string, bytes int, d time.Duration) {
	c.Mappings.WithLabelValues(id).Inc()
	c.MappedBytes.WithLabelValues(id).Add(float64(bytes))
	c.MapDuration.WithLabelValues(id).Observe(d.Seconds())
}

func (c *Collector) ObserveUnmap(id string, bytes int) {
	c.Mappings.WithLabelValues(id).Dec()
	c.MappedBytes.WithLabelValues(id).Sub(float64(bytes))
}

func (c *Collector) ObserveStale(id string) {
	c.StaleDetachesTotal.WithLabelValues(id).Inc()
}

func (c *Collector) ObserveBuild(records, bytes uint64, d time.Duration) {
	c.BuildsTotal.Inc()
	c.BuildRecords.Set(float64(records))
	c.BuildBytes.Set(float64(bytes))
	c.BuildDuration.Observe(d.Seconds())
}
