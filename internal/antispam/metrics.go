package antispam

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	decisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trustgate_antispam_decisions_total",
		Help: "Anti-spam gate decisions by outcome.",
	}, []string{"outcome"})

	holdReasonsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trustgate_antispam_hold_reasons_total",
		Help: "Hold reasons produced by the anti-spam gate.",
	}, []string{"reason"})

	settingsLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trustgate_antispam_settings_lookups_total",
		Help: "Anti-spam settings lookups by the tier that answered them.",
	}, []string{"source"})
)
