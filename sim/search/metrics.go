package search

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// unitsTotal counts evaluated search units by delivery mode
	unitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agreement_search_units_total",
		Help: "Total policy-search units evaluated by delivery mode",
	}, []string{"delivery"})

	// experimentsTotal counts policy experiments run across all units
	experimentsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agreement_search_experiments_total",
		Help: "Total policy experiments run by the search engine",
	})

	// unitDuration tracks wall time per unit
	unitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "agreement_search_unit_duration_seconds",
		Help:    "Search unit duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16), // 0.1ms to ~3s
	})

	// unitSuccessRate tracks the distribution of per-unit success rates
	unitSuccessRate = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "agreement_search_unit_success_rate",
		Help:    "Fraction of repetitions reaching the objective target per unit",
		Buckets: prometheus.LinearBuckets(0, 0.1, 11),
	})
)
