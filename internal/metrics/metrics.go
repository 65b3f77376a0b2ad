package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OrdersTotal counts orders by kind and terminal status
	OrdersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guardian_orders_total",
			Help: "Total number of orders by kind and status",
		},
		[]string{"kind", "status"},
	)

	// StepsTotal counts bridge steps by title and outcome
	StepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guardian_bridge_steps_total",
			Help: "Total number of bridge steps executed",
		},
		[]string{"step", "status"},
	)

	// StepDuration tracks per-step processing time
	StepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "guardian_bridge_step_duration_seconds",
			Help:    "Bridge step processing duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"step"},
	)

	// ActiveBridges tracks bridge orders currently in flight
	ActiveBridges = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "guardian_active_bridge_orders",
			Help: "Number of bridge orders currently in flight",
		},
	)

	// ErrorsTotal counts errors by component and type
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guardian_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)

	// NotificationsTotal counts notifications sent by severity
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guardian_notifications_total",
			Help: "Total number of notifications sent",
		},
		[]string{"severity"},
	)
)
