// Package metrics declares the Prometheus collectors shared by the adapters.
// They register with the default registry, which /metrics serves.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "waccamaw"

var (
	// APIRequests counts remote API calls by operation and outcome.
	APIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "api",
		Name:      "requests_total",
		Help:      "Remote member-services and meetings-service calls.",
	}, []string{"op", "outcome"})

	// APIDuration times remote API calls by operation.
	APIDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "api",
		Name:      "request_duration_seconds",
		Help:      "Remote API call latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op"})

	// HTTPDuration times inbound requests by route pattern and status.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Inbound request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	// QueryDuration times SQLite operations.
	QueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "db",
		Name:      "query_duration_seconds",
		Help:      "Session store query latency.",
		Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5},
	}, []string{"op"})

	// FaceFocusDecodes counts image decodes performed by the focus memo.
	FaceFocusDecodes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "facefocus",
		Name:      "decodes_total",
		Help:      "Images decoded for face focus, by outcome.",
	}, []string{"outcome"})

	// RemindersSent counts renewal reminder emails by outcome.
	RemindersSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "email",
		Name:      "reminders_total",
		Help:      "Renewal reminder emails, by outcome.",
	}, []string{"outcome"})
)
