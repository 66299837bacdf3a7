package changefeed

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	stateGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ephemera_watcher_state",
		Help: "Change feed watcher state: 0 disconnected, 1 subscribing, 2 streaming, 3 reconnecting, 4 gap detected",
	})

	eventsForwardedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ephemera_watcher_events_forwarded_total",
		Help: "Deletion events handed to the reconciliation queue",
	})

	missingPreImagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ephemera_watcher_missing_pre_images_total",
		Help: "Deletion events observed without a pre-image",
	})

	gapsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ephemera_watcher_gaps_total",
		Help: "Times the saved resume point was no longer available",
	})

	reconnectsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ephemera_watcher_reconnects_total",
		Help: "Change stream reconnect attempts",
	})
)
