package sync

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	syncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_sync_runs_total",
			Help: "Catalog sync runs by outcome",
		},
		[]string{"outcome"},
	)

	syncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "catalog_sync_duration_seconds",
			Help:    "Wall time of one catalog sync run",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)

	productsChangedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_products_changed_total",
			Help: "Products changed by sync runs, by change kind",
		},
		[]string{"kind"},
	)

	edgesWrittenTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "compatibility_edges_written_total",
			Help: "Compatibility edges written by materialization",
		},
	)

	backfillProductsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_backfill_products_total",
			Help: "Products processed by the edge back-fill loop",
		},
	)
)
