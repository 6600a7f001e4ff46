package ratewindow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var failOpenTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "trustgate_ratewindow_fail_open_total",
	Help: "Number of rate window checks that failed open because of a cache error.",
})
