package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics.
type Metrics struct {
	// Gateway metrics
	GatewayCallsTotal   *prometheus.CounterVec
	GatewayCallDuration *prometheus.HistogramVec

	// State machine metrics
	TransitionsTotal        *prometheus.CounterVec
	TransitionsDroppedTotal *prometheus.CounterVec

	// Reconciliation metrics
	SweepItemsTotal *prometheus.CounterVec

	// Webhook metrics
	WebhookEventsTotal *prometheus.CounterVec
}

// New creates a Metrics instance registered on reg. Pass a fresh
// prometheus.NewRegistry() in tests.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "payflow"
	}
	factory := promauto.With(reg)

	return &Metrics{
		GatewayCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "calls_total",
				Help:      "Total number of gateway calls",
			},
			[]string{"operation", "provider", "status"},
		),
		GatewayCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "call_duration_seconds",
				Help:      "Gateway call duration in seconds",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"operation", "provider"},
		),
		TransitionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "state",
				Name:      "transitions_total",
				Help:      "Total number of applied status transitions",
			},
			[]string{"entity", "from", "to"},
		),
		TransitionsDroppedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "state",
				Name:      "transitions_dropped_total",
				Help:      "Illegal transitions silently dropped on webhook and reconciliation paths",
			},
			[]string{"entity", "from", "to"},
		),
		SweepItemsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "reconcile",
				Name:      "sweep_items_total",
				Help:      "Reconciliation sweep items by outcome",
			},
			[]string{"entity", "outcome"},
		),
		WebhookEventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "webhook",
				Name:      "events_total",
				Help:      "Inbound webhook events by outcome",
			},
			[]string{"outcome"},
		),
	}
}
