// Package metrics holds beacon's prometheus collectors.
//
// Collectors are registered on the default registry and exposed via /metrics
// (see internal/app).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChannelsActive tracks currently registered notification channels.
	ChannelsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "beacon_channels_active",
		Help: "Number of open notification channels.",
	})

	// NotificationsSent counts events pushed to channels.
	NotificationsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "beacon_notifications_sent_total",
		Help: "Total notification events enqueued to channels.",
	})

	// TokenPairsIssued counts successful access+refresh issuances.
	TokenPairsIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "beacon_token_pairs_issued_total",
		Help: "Total access/refresh token pairs issued.",
	})

	// SweepRuns counts executions of the expiry sweeper.
	SweepRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "beacon_sweep_runs_total",
		Help: "Total expired-refresh-record sweep runs.",
	})

	// SweepDeleted counts records removed by the sweeper.
	SweepDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "beacon_sweep_deleted_total",
		Help: "Total refresh records deleted by the sweeper.",
	})
)
