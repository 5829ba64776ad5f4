package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CyclesTotal counts completed refresh cycles by outcome
	// ("success", "failed", "stale").
	CyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coinpulse_refresh_cycles_total",
		Help: "The total number of completed refresh cycles by outcome.",
	}, []string{"outcome"})

	// AssetFetchFailures counts per-asset history fetches that were
	// downgraded to a record with absent indicators.
	AssetFetchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coinpulse_asset_fetch_failures_total",
		Help: "The total number of per-asset history fetch failures.",
	})

	// CycleDuration observes wall time of a full snapshot+enrich cycle.
	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "coinpulse_cycle_duration_seconds",
		Help:    "Duration of refresh cycles.",
		Buckets: prometheus.DefBuckets,
	})

	// ConnectedClients tracks live dashboard WebSocket connections.
	ConnectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "coinpulse_websocket_connected_clients",
		Help: "The current number of connected WebSocket clients.",
	})
)
