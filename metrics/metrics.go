// Package metrics reports cache activity to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/darkomike/bloggie-sub001/types"
)

// cacheMetrics implements types.Metrics using Prometheus.
type cacheMetrics struct {
	lookups        *prometheus.CounterVec
	writes         *prometheus.CounterVec
	invalidations  *prometheus.CounterVec
	expirations    *prometheus.CounterVec
	evictions      *prometheus.CounterVec
	refreshes      *prometheus.CounterVec
	decodeFailures *prometheus.CounterVec
	degraded       prometheus.Gauge
}

// New creates a Prometheus implementation of types.Metrics and registers its
// collectors with reg.
func New(reg prometheus.Registerer) types.Metrics {
	m := &cacheMetrics{
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bloggie_cache_lookups_total",
			Help: "Total number of cache reads by result",
		}, []string{"namespace", "result"}),

		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bloggie_cache_writes_total",
			Help: "Total number of cache writes",
		}, []string{"namespace"}),

		invalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bloggie_cache_invalidations_total",
			Help: "Total number of cache invalidations",
		}, []string{"namespace"}),

		expirations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bloggie_cache_expirations_total",
			Help: "Total number of entries found expired on read",
		}, []string{"namespace"}),

		evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bloggie_cache_evictions_total",
			Help: "Total number of entries dropped from memory to make room",
		}, []string{"namespace"}),

		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bloggie_cache_refreshes_total",
			Help: "Total number of background refreshes started by reads",
		}, []string{"namespace"}),

		decodeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bloggie_cache_decode_failures_total",
			Help: "Total number of persisted records that could not be decoded",
		}, []string{"namespace"}),

		degraded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bloggie_cache_storage_degraded",
			Help: "1 when the persistent store failed and the cache runs in memory",
		}),
	}

	reg.MustRegister(
		m.lookups,
		m.writes,
		m.invalidations,
		m.expirations,
		m.evictions,
		m.refreshes,
		m.decodeFailures,
		m.degraded,
	)

	return m
}

func (m *cacheMetrics) Hit(namespace string) {
	m.lookups.WithLabelValues(namespace, "hit").Inc()
}

func (m *cacheMetrics) Miss(namespace string) {
	m.lookups.WithLabelValues(namespace, "miss").Inc()
}

func (m *cacheMetrics) Set(namespace string) {
	m.writes.WithLabelValues(namespace).Inc()
}

func (m *cacheMetrics) Invalidate(namespace string) {
	m.invalidations.WithLabelValues(namespace).Inc()
}

func (m *cacheMetrics) Expire(namespace string) {
	m.expirations.WithLabelValues(namespace).Inc()
}

func (m *cacheMetrics) Eviction(namespace string) {
	m.evictions.WithLabelValues(namespace).Inc()
}

func (m *cacheMetrics) Refresh(namespace string) {
	m.refreshes.WithLabelValues(namespace).Inc()
}

func (m *cacheMetrics) DecodeFailure(namespace string) {
	m.decodeFailures.WithLabelValues(namespace).Inc()
}

func (m *cacheMetrics) StorageFallback() {
	m.degraded.Set(1)
}
