package reconcile

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ephemera_reconcile_events_processed_total",
		Help: "Deletion events fully reconciled and acknowledged",
	})

	eventsMalformedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ephemera_reconcile_events_malformed_total",
		Help: "Queue messages dropped because they could not be decoded",
	})

	eventsRedeliveredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ephemera_reconcile_events_redelivered_total",
		Help: "Deletion events left unacknowledged for redelivery",
	})

	blobsDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ephemera_reconcile_blobs_deleted_total",
		Help: "Blobs removed from the blob store by reconciliation",
	})

	blobRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ephemera_reconcile_blob_retries_total",
		Help: "Blob removal attempts after the first",
	})

	orphansRecordedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ephemera_reconcile_orphans_recorded_total",
		Help: "Blobs appended to the orphan ledger after exhausting retries",
	})

	orphansResolvedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ephemera_reconcile_orphans_resolved_total",
		Help: "Orphan ledger entries resolved by an operator retry",
	})

	eventDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ephemera_reconcile_event_duration_seconds",
		Help:    "Time to reconcile one deletion event",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
	})

	scanRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ephemera_scan_runs_total",
		Help: "Orphan scans completed",
	})

	scanReleasedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ephemera_scan_blobs_released_total",
		Help: "Unreferenced blobs removed by the orphan scan",
	})

	scanDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ephemera_scan_duration_seconds",
		Help:    "Duration of one orphan scan",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
	})
)
