package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	IndicatorsLoaded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "iocwatch_indicators_loaded",
			Help: "Distinct indicators in the most recently fetched set",
		},
	)

	FetchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iocwatch_fetch_failures_total",
			Help: "Indicator feed fetch failures",
		},
		[]string{"source"},
	)

	RecordsRead = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "iocwatch_records_read_total",
			Help: "Log records parsed",
		},
	)

	ParseErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "iocwatch_parse_errors_total",
			Help: "Log lines dropped because they could not be parsed",
		},
	)

	Matches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "iocwatch_matches_total",
			Help: "Log records matching a known indicator",
		},
	)

	CorrelationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "iocwatch_correlation_duration_seconds",
			Help:    "Time spent correlating one batch of records",
			Buckets: []float64{.0001, .001, .005, .01, .05, .1, .5, 1},
		},
	)
)
