package heuristics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	flagsDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trustgate_heuristics_flags_total",
		Help: "Behavioral flags produced by each detector.",
	}, []string{"type"})

	detectorFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trustgate_heuristics_detector_failures_total",
		Help: "Detector runs that failed and produced no flags.",
	}, []string{"type"})

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "trustgate_heuristics_run_duration_seconds",
		Help:    "Duration of a full heuristics run.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	})
)
