package trustgraph

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var recomputesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "trustgate_trustgraph_recomputes_total",
	Help: "Trust score recompute triggers by outcome.",
}, []string{"outcome"})
