// Package metrics exposes the prometheus instrumentation shared by the
// exchange and trader processes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics aggregates the counters the workers bump on their hot paths.
type Metrics struct {
	RequestsProcessed  prometheus.Counter
	OrdersAccepted     prometheus.Counter
	CancelsRejected    prometheus.Counter
	Trades             prometheus.Counter
	UpdatesPublished   prometheus.Counter
	SnapshotsPublished prometheus.Counter
	SequenceDrops      prometheus.Counter
	RecoveriesEntered  prometheus.Counter
}

// New registers the collectors on reg and returns them. Pass a fresh
// registry per process.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RequestsProcessed: f.NewCounter(prometheus.CounterOpts{
			Name: "hermes_requests_processed_total",
			Help: "Client requests drained by the matching engine.",
		}),
		OrdersAccepted: f.NewCounter(prometheus.CounterOpts{
			Name: "hermes_orders_accepted_total",
			Help: "New orders accepted by the matching engine.",
		}),
		CancelsRejected: f.NewCounter(prometheus.CounterOpts{
			Name: "hermes_cancels_rejected_total",
			Help: "Cancel requests that did not map to a live order.",
		}),
		Trades: f.NewCounter(prometheus.CounterOpts{
			Name: "hermes_trades_total",
			Help: "Trade events emitted by matching.",
		}),
		UpdatesPublished: f.NewCounter(prometheus.CounterOpts{
			Name: "hermes_market_updates_published_total",
			Help: "Incremental market updates multicast by the publisher.",
		}),
		SnapshotsPublished: f.NewCounter(prometheus.CounterOpts{
			Name: "hermes_snapshots_published_total",
			Help: "Full snapshots emitted by the synthesizer.",
		}),
		SequenceDrops: f.NewCounter(prometheus.CounterOpts{
			Name: "hermes_sequence_drops_total",
			Help: "Frames dropped for unexpected sequence numbers.",
		}),
		RecoveriesEntered: f.NewCounter(prometheus.CounterOpts{
			Name: "hermes_md_recoveries_total",
			Help: "Times the market data consumer entered snapshot recovery.",
		}),
	}
}

// NewNop returns metrics backed by an unregistered registry, for tests
// and optional wiring.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
