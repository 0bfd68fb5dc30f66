// Package metrics centralizes the pipeline's Prometheus instrumentation so
// the Store, Hub, and Parser record through one set of collectors instead of
// each registering its own.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveAlerts tracks the Store's current active-set size, broken down
	// by phenomenon and originating source.
	ActiveAlerts = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "alertpipe_active_alerts",
			Help: "Number of active alerts currently held by the store",
		},
		[]string{"phenomenon", "source"},
	)

	// FramesSentTotal counts frames the Hub has successfully enqueued to
	// subscribers, by frame type.
	FramesSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alertpipe_hub_frames_sent_total",
			Help: "Total number of frames sent to subscribers",
		},
		[]string{"frame_type"},
	)

	// SlowConsumerDisconnectsTotal counts subscribers the Hub dropped
	// because their outbound queue was full.
	SlowConsumerDisconnectsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "alertpipe_hub_slow_consumer_disconnects_total",
			Help: "Total number of subscribers disconnected for a full outbound queue",
		},
	)

	// SubscribersConnected is the current count of live Hub subscribers.
	SubscribersConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "alertpipe_hub_subscribers_connected",
			Help: "Number of currently connected broadcast hub subscribers",
		},
	)

	// ParseFailuresTotal counts Parser failures by the typed failure reason
	// (MalformedHeader, MissingUGC, InvalidVTEC, EmptyBody).
	ParseFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alertpipe_parse_failures_total",
			Help: "Total number of product parse failures by reason",
		},
		[]string{"reason"},
	)

	// SourceProductsReceivedTotal counts raw products handed to the parser
	// by the source that produced them (push or pull).
	SourceProductsReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alertpipe_source_products_received_total",
			Help: "Total number of raw products received by source",
		},
		[]string{"source"},
	)
)
