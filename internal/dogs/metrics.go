package dogs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Mutation result labels.
const (
	resultOK        = "ok"
	resultDuplicate = "duplicate"
	resultInvalid   = "invalid"
	resultError     = "error"
)

var (
	dogsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "doglist_dogs_total",
			Help: "Number of dogs in the collection",
		},
	)

	favoritesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "doglist_favorites_total",
			Help: "Number of favorite dogs in the collection",
		},
	)

	mutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "doglist_mutations_total",
			Help: "Total number of collection mutations by operation and result",
		},
		[]string{"op", "result"},
	)
)
