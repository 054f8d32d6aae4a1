// Package observability holds the Prometheus metrics of the feed service.
//
// Metrics are registered once at startup against a caller-supplied registerer
// and exposed on /metrics. Every recording method is safe on a nil *Metrics so
// components can run without instrumentation in tests.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "community_feed"

// Metrics groups every collector the service records into.
type Metrics struct {
	// HTTPRequestsTotal counts requests by route template, method and status code.
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDuration measures handler latency by route template and method.
	HTTPRequestDuration *prometheus.HistogramVec

	// LikeOperationsTotal counts like/unlike calls.
	// Labels: target (post, comment), action (like, unlike),
	// result (ok, already_liked, not_liked, not_found, lock_timeout, error)
	LikeOperationsTotal *prometheus.CounterVec

	// LeaderboardRequestsTotal counts leaderboard reads by cache outcome (hit, miss).
	LeaderboardRequestsTotal *prometheus.CounterVec

	// LeaderboardQueryDuration measures the karma aggregation on cache misses.
	LeaderboardQueryDuration prometheus.Histogram

	// OutboxEventsTotal counts relayed like events by status (sent, retry, failed).
	OutboxEventsTotal *prometheus.CounterVec

	// CountersRepairedTotal counts like_count values fixed by the reconciler, by target.
	CountersRepairedTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP handler latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		LikeOperationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "like_operations_total",
			Help:      "Like and unlike operations by target, action and result.",
		}, []string{"target", "action", "result"}),
		LeaderboardRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "leaderboard_requests_total",
			Help:      "Leaderboard reads by cache outcome.",
		}, []string{"cache"}),
		LeaderboardQueryDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "leaderboard_query_duration_seconds",
			Help:      "Karma aggregation latency on cache miss.",
			Buckets:   prometheus.DefBuckets,
		}),
		OutboxEventsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "outbox_events_total",
			Help:      "Relayed like events by status.",
		}, []string{"status"}),
		CountersRepairedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "like_counters_repaired_total",
			Help:      "Denormalized like counters repaired by the reconciler.",
		}, []string{"target"}),
	}
}

func (m *Metrics) ObserveHTTP(route, method, code string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(route, method, code).Inc()
	m.HTTPRequestDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

func (m *Metrics) RecordLike(target, action, result string) {
	if m == nil {
		return
	}
	m.LikeOperationsTotal.WithLabelValues(target, action, result).Inc()
}

func (m *Metrics) RecordLeaderboard(cache string) {
	if m == nil {
		return
	}
	m.LeaderboardRequestsTotal.WithLabelValues(cache).Inc()
}

func (m *Metrics) ObserveLeaderboardQuery(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.LeaderboardQueryDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) RecordOutbox(status string) {
	if m == nil {
		return
	}
	m.OutboxEventsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordRepair(target string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.CountersRepairedTotal.WithLabelValues(target).Add(float64(n))
}
