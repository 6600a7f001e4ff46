package moderation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reviewsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trustgate_moderation_reviews_total",
		Help: "Moderation queue reviews by decision.",
	}, []string{"decision"})

	promotionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trustgate_moderation_promotions_total",
		Help: "Accounts promoted to trusted by an approval.",
	})
)
