package relay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "croc_relay"

// Metrics holds the Prometheus instruments the relay reports.
type Metrics struct {
	RoomsActive       prometheus.Gauge
	RoomsCreated      prometheus.Counter
	RoomsExpired      prometheus.Counter
	RoomsRejectedFull prometheus.Counter
	BytesBridged      prometheus.Counter
	BridgesCompleted  prometheus.Counter
	AuthFailures      *prometheus.CounterVec
}

// NewMetrics registers and returns a fresh Metrics instance on reg. Pass
// prometheus.NewRegistry() in tests to avoid colliding with the default
// registerer across test runs.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RoomsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms_active",
			Help:      "Number of rooms currently tracked by the relay",
		}),
		RoomsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rooms_created_total",
			Help:      "Total rooms created",
		}),
		RoomsExpired: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rooms_expired_total",
			Help:      "Total rooms evicted by the TTL sweep without pairing",
		}),
		RoomsRejectedFull: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rooms_rejected_full_total",
			Help:      "Total join attempts rejected because the room already had two participants",
		}),
		BytesBridged: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_bridged_total",
			Help:      "Total bytes copied between paired connections",
		}),
		BridgesCompleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bridges_completed_total",
			Help:      "Total room bridges that ran to completion",
		}),
		AuthFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_failures_total",
			Help:      "Total negotiation failures by reason",
		}, []string{"reason"}),
	}
}
