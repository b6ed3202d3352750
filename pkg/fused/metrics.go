package fused

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sourceFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lounge",
			Name:      "source_fetch_total",
			Help:      "Per-source backend calls by operation and outcome.",
		},
		[]string{"source", "operation", "result"},
	)

	sourceFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lounge",
			Name:      "source_fetch_duration_seconds",
			Help:      "Per-source backend call latency.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"source", "operation"},
	)
)
