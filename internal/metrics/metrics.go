// Package metrics holds the Prometheus collectors exported on /metrics. Every
// method is safe on a nil receiver so components can run without metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "artiscatalog"

// Metrics is the set of service collectors.
type Metrics struct {
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	queries       *prometheus.CounterVec
	queryResults  prometheus.Histogram
	liveSessions  prometheus.Gauge
	liveIntents   *prometheus.CounterVec
	logins        *prometheus.CounterVec
	toolCalls     *prometheus.CounterVec
	prefsFailures prometheus.Counter
}

// New registers the collectors on reg. A nil registerer yields a Metrics that
// records nothing.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{}
	}
	m := &Metrics{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern and status code.",
		}, []string{"route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_queries_total",
			Help:      "Filter pipeline runs, split by whether a search query was active.",
		}, []string{"search"}),
		queryResults: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "catalog_query_results",
			Help:      "Number of products returned per pipeline run.",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
		}),
		liveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_sessions",
			Help:      "Currently connected live browsing sessions.",
		}),
		liveIntents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_intents_total",
			Help:      "Intents received over live sessions.",
		}, []string{"intent"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_logins_total",
			Help:      "Login attempts by result.",
		}, []string{"result"}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mcp_tool_calls_total",
			Help:      "MCP tool invocations.",
		}, []string{"tool"}),
		prefsFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "preferences_write_failures_total",
			Help:      "Preference writes that failed and were dropped.",
		}),
	}
	reg.MustRegister(
		m.httpRequests, m.httpDuration,
		m.queries, m.queryResults,
		m.liveSessions, m.liveIntents,
		m.logins, m.toolCalls, m.prefsFailures,
	)
	return m
}

// ObserveHTTP records one finished request.
func (m *Metrics) ObserveHTTP(route string, code int, d time.Duration) {
	if m == nil || m.httpRequests == nil {
		return
	}
	route = normalizeLabel(route)
	m.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

// ObserveQuery records one pipeline run and its result size.
func (m *Metrics) ObserveQuery(searched bool, results int) {
	if m == nil || m.queries == nil {
		return
	}
	m.queries.WithLabelValues(strconv.FormatBool(searched)).Inc()
	m.queryResults.Observe(float64(results))
}

// SessionOpened increments the live session gauge.
func (m *Metrics) SessionOpened() {
	if m == nil || m.liveSessions == nil {
		return
	}
	m.liveSessions.Inc()
}

// SessionClosed decrements the live session gauge.
func (m *Metrics) SessionClosed() {
	if m == nil || m.liveSessions == nil {
		return
	}
	m.liveSessions.Dec()
}

// IncIntent counts one live-session intent.
func (m *Metrics) IncIntent(intent string) {
	if m == nil || m.liveIntents == nil {
		return
	}
	m.liveIntents.WithLabelValues(normalizeLabel(intent)).Inc()
}

// IncLogin counts one login attempt. result is "success", "failure" or
// "throttled".
func (m *Metrics) IncLogin(result string) {
	if m == nil || m.logins == nil {
		return
	}
	m.logins.WithLabelValues(normalizeLabel(result)).Inc()
}

// IncToolCall counts one MCP tool invocation.
func (m *Metrics) IncToolCall(tool string) {
	if m == nil || m.toolCalls == nil {
		return
	}
	m.toolCalls.WithLabelValues(normalizeLabel(tool)).Inc()
}

// IncPreferenceFailure counts a dropped preference write.
func (m *Metrics) IncPreferenceFailure() {
	if m == nil || m.prefsFailures == nil {
		return
	}
	m.prefsFailures.Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
