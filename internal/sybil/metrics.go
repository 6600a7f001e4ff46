package sybil

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reviewsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trustgate_sybil_reviews_total",
		Help: "Sybil cluster review decisions by resulting status.",
	}, []string{"status"})

	memberBanFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trustgate_sybil_member_ban_failures_total",
		Help: "Cluster members whose ban could not be applied.",
	})
)
