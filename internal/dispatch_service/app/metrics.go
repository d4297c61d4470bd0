package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	dispatchProcessedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dispatch",
			Name:      "events_processed_total",
			Help:      "Total dispatch events processed.",
		},
		[]string{"kind", "outcome"}, // outcome: "pushed", "skipped_throttled", "skipped_no_token", "error", ...
	)

	pushAttemptCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dispatch",
			Name:      "push_attempts_total",
			Help:      "Total push provider send attempts.",
		},
		[]string{"provider", "outcome"},
	)

	pushRequestDurationHist = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dispatch",
			Name:      "push_request_duration_seconds",
			Help:      "Duration of push provider requests.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	natsEventsReceivedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dispatch",
			Name:      "nats_events_received_total",
			Help:      "Total dispatch events received over NATS.",
		},
		[]string{"subject"},
	)
)
