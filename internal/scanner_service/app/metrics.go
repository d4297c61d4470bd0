package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	itemsProcessedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scanner",
			Name:      "items_processed_total",
			Help:      "Total due items processed by the scanner.",
		},
		[]string{"item_type", "status"}, // item_type="reminder"|"scheduled_message", status="success"|...
	)

	scanDurationHist = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "scanner",
			Name:      "scan_duration_seconds",
			Help:      "Duration of one due-item scan.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"item_type"},
	)
)
