package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_searches_total",
			Help: "Total number of status searches by outcome",
		},
		[]string{"outcome"},
	)

	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "tracker_search_duration_seconds",
			Help: "Duration of status searches in seconds",
		},
		[]string{"outcome"},
	)

	SearchesInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tracker_searches_in_flight",
			Help: "Number of searches currently waiting on the dataset",
		},
	)

	DatasetFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_dataset_fetch_total",
			Help: "Dataset retrievals by source and result",
		},
		[]string{"source", "result"},
	)

	DatasetFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "tracker_dataset_fetch_duration_seconds",
			Help: "Duration of dataset fetches from the origin in seconds",
		},
	)

	DatasetRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tracker_dataset_records",
			Help: "Number of records parsed from the most recent dataset fetch",
		},
	)

	UnknownStatusTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tracker_unknown_status_total",
			Help: "Matched records whose status is not one of the known stages",
		},
	)
)
