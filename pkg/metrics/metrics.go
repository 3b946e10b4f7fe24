// Package metrics defines the Prometheus collectors shared by the relay, the
// asset cache worker and the turn orchestrator.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "voxrelay"

// Metrics contains all Prometheus metrics for voxrelay.
// Each instance owns its registry so components and tests never share
// global collector state.
type Metrics struct {
	registry *prometheus.Registry

	// Relay metrics
	RelayRequests    *prometheus.CounterVec
	RelayDuration    prometheus.Histogram
	UpstreamDuration prometheus.Histogram
	EventsDropped    prometheus.Counter

	// Asset cache metrics
	CacheLookups     *prometheus.CounterVec
	CacheInstalls    *prometheus.CounterVec
	CacheInstallSize prometheus.Gauge

	// Turn metrics
	TurnStageDuration *prometheus.HistogramVec
	TurnsOverTarget   prometheus.Counter
	TurnsAborted      *prometheus.CounterVec
}

// New creates and registers all metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		RelayRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_requests_total",
			Help:      "Total number of relay requests by response status",
		}, []string{"status"}),
		RelayDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "relay_request_duration_seconds",
			Help:      "End to end relay handler duration",
			Buckets:   prometheus.DefBuckets,
		}),
		UpstreamDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "relay_upstream_duration_seconds",
			Help:      "Duration of the upstream generate call",
			Buckets:   prometheus.DefBuckets,
		}),
		EventsDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_events_dropped_total",
			Help:      "Exchange events dropped because the publish queue was full",
		}),

		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_fetches_total",
			Help:      "Intercepted fetches by outcome (hit, miss, bypass, passthrough)",
		}, []string{"outcome"}),
		CacheInstalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_installs_total",
			Help:      "Asset cache install attempts by result",
		}, []string{"result"}),
		CacheInstallSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_installed_bytes",
			Help:      "Total body bytes stored by the last successful install",
		}),

		TurnStageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_stage_duration_seconds",
			Help:      "Per-stage turn latency (stt, api, tts, total)",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		}, []string{"stage"}),
		TurnsOverTarget: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_over_target_total",
			Help:      "Turns whose total time exceeded the target latency",
		}),
		TurnsAborted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_aborted_total",
			Help:      "Turns that ended without speaking a reply, by reason",
		}, []string{"reason"}),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRelay records one finished relay request.
// Safe to call on a nil receiver.
func (m *Metrics) ObserveRelay(status int, seconds float64) {
	if m == nil {
		return
	}
	m.RelayRequests.WithLabelValues(strconv.Itoa(status)).Inc()
	m.RelayDuration.Observe(seconds)
}

// ObserveUpstream records the duration of one upstream call.
func (m *Metrics) ObserveUpstream(seconds float64) {
	if m == nil {
		return
	}
	m.UpstreamDuration.Observe(seconds)
}

// EventDropped counts an exchange event lost to a full queue.
func (m *Metrics) EventDropped() {
	if m == nil {
		return
	}
	m.EventsDropped.Inc()
}

// CacheFetch counts one intercepted fetch.
func (m *Metrics) CacheFetch(outcome string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(outcome).Inc()
}

// CacheInstall records an install attempt; bytes is only used on success.
func (m *Metrics) CacheInstall(ok bool, bytes int) {
	if m == nil {
		return
	}
	if !ok {
		m.CacheInstalls.WithLabelValues("failure").Inc()
		return
	}
	m.CacheInstalls.WithLabelValues("success").Inc()
	m.CacheInstallSize.Set(float64(bytes))
}

// TurnStage records one turn stage duration.
func (m *Metrics) TurnStage(stage string, seconds float64) {
	if m == nil {
		return
	}
	m.TurnStageDuration.WithLabelValues(stage).Observe(seconds)
}

// TurnOverTarget counts a turn slower than the target latency.
func (m *Metrics) TurnOverTarget() {
	if m == nil {
		return
	}
	m.TurnsOverTarget.Inc()
}

// TurnAborted counts a turn that ended without synthesis.
func (m *Metrics) TurnAborted(reason string) {
	if m == nil {
		return
	}
	m.TurnsAborted.WithLabelValues(reason).Inc()
}
