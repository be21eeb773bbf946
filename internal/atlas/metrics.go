package atlas

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atlas_shape_fetch_attempts_total",
		Help: "Upstream fetch attempts per resolution strategy.",
	}, []string{"strategy"})

	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "atlas_shape_cache_hits_total",
		Help: "Shape resolutions served from the in-process cache.",
	})

	implausibleDiscards = promauto.NewCounter(prometheus.CounterOpts{
		Name: "atlas_shape_implausible_discards_total",
		Help: "Geometries discarded because their extent exceeded the plausibility threshold.",
	})

	shapesNotFound = promauto.NewCounter(prometheus.CounterOpts{
		Name: "atlas_shape_not_found_total",
		Help: "District resolutions that exhausted every strategy.",
	})

	resolvesSuperseded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "atlas_resolves_superseded_total",
		Help: "Batch resolutions abandoned because a newer request started.",
	})
)
