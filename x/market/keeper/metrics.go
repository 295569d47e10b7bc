package keeper

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MarketMetrics holds all Prometheus metrics for the market module
type MarketMetrics struct {
	// Host metrics
	HostsRegistered prometheus.Counter
	ActiveHosts     prometheus.Gauge
	SlashesExecuted prometheus.Counter
	SlashedTotal    prometheus.Counter

	// Session metrics
	SessionsCreated prometheus.Counter
	ActiveSessions  prometheus.Gauge
	SessionsSettled prometheus.Counter

	// Proof metrics
	ProofsVerified prometheus.Counter
	ProofsRejected prometheus.Counter
	ProofReplays   prometheus.Counter

	// Challenge metrics
	ChallengesOpened   prometheus.Counter
	ChallengesResolved prometheus.Counter

	// Earnings metrics
	WithdrawalsProcessed prometheus.Counter
}

var (
	marketMetricsOnce sync.Once
	marketMetrics     *MarketMetrics
)

// NewMarketMetrics creates and registers market metrics (singleton pattern)
func NewMarketMetrics() *MarketMetrics {
	marketMetricsOnce.Do(func() {
		marketMetrics = &MarketMetrics{
			HostsRegistered: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "tensormesh",
					Subsystem: "market",
					Name:      "hosts_registered_total",
					Help:      "Total hosts registered",
				},
			),
			ActiveHosts: promauto.NewGauge(
				prometheus.GaugeOpts{
					Namespace: "tensormesh",
					Subsystem: "market",
					Name:      "hosts_active",
					Help:      "Currently active hosts",
				},
			),
			SlashesExecuted: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "tensormesh",
					Subsystem: "market",
					Name:      "slashes_executed_total",
					Help:      "Slash events executed",
				},
			),
			SlashedTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "tensormesh",
					Subsystem: "market",
					Name:      "stake_slashed_total",
					Help:      "Total stake confiscated by slashing",
				},
			),
			SessionsCreated: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "tensormesh",
					Subsystem: "market",
					Name:      "sessions_created_total",
					Help:      "Total sessions opened",
				},
			),
			ActiveSessions: promauto.NewGauge(
				prometheus.GaugeOpts{
					Namespace: "tensormesh",
					Subsystem: "market",
					Name:      "sessions_active",
					Help:      "Currently active sessions",
				},
			),
			SessionsSettled: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "tensormesh",
					Subsystem: "market",
					Name:      "sessions_settled_total",
					Help:      "Sessions settled (completed, cancelled or expired)",
				},
			),
			ProofsVerified: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "tensormesh",
					Subsystem: "market",
					Name:      "proofs_verified_total",
					Help:      "Work receipts accepted",
				},
			),
			ProofsRejected: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "tensormesh",
					Subsystem: "market",
					Name:      "proofs_rejected_total",
					Help:      "Work receipts failing structural verification",
				},
			),
			ProofReplays: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "tensormesh",
					Subsystem: "market",
					Name:      "proof_replays_total",
					Help:      "Work receipts rejected as replays",
				},
			),
			ChallengesOpened: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "tensormesh",
					Subsystem: "market",
					Name:      "challenges_opened_total",
					Help:      "Bonded challenges opened",
				},
			),
			ChallengesResolved: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "tensormesh",
					Subsystem: "market",
					Name:      "challenges_resolved_total",
					Help:      "Challenges reaching a terminal status",
				},
			),
			WithdrawalsProcessed: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "tensormesh",
					Subsystem: "market",
					Name:      "withdrawals_processed_total",
					Help:      "Earnings withdrawals paid out",
				},
			),
		}
	})
	return marketMetrics
}
