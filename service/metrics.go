package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Transitions        *prometheus.CounterVec
	Notifications      *prometheus.CounterVec
	BlobDeleteFailures prometheus.Counter
	HTTPRequests       *prometheus.CounterVec
	HTTPDuration       *prometheus.HistogramVec
}

// NewMetrics registers the collectors on reg. Tests pass a fresh
// prometheus.NewRegistry() so they do not collide.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "danaliph_moderation_transitions_total",
			Help: "Book and author moderation transitions applied.",
		}, []string{"transition"}),
		Notifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "danaliph_notifications_total",
			Help: "Notification delivery attempts by event and outcome.",
		}, []string{"event", "outcome"}),
		BlobDeleteFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "danaliph_blob_delete_failures_total",
			Help: "Blob deletions that failed after the owning record was removed.",
		}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "danaliph_http_requests_total",
			Help: "HTTP requests by route pattern, method and status.",
		}, []string{"route", "method", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "danaliph_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
}
