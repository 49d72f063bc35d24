package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// SettlementsTotal counts settlement attempts by outcome
// (settled, invalid_input, invalid_signature, already_processed, not_found, error).
var SettlementsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gigbridge_settlements_total",
		Help: "Total number of payment settlement attempts by outcome",
	},
	[]string{"outcome"},
)

// SettlementLatency records latency distribution for verify-and-settle calls
var SettlementLatency = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "gigbridge_settlement_latency_seconds",
		Help:    "Latency in seconds of the verify-and-settle transaction",
		Buckets: prometheus.DefBuckets,
	},
)

// OrdersCreated counts pending orders created by source (service/job)
var OrdersCreated = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gigbridge_orders_created_total",
		Help: "Total number of pending orders created",
	},
	[]string{"source"},
)

// NotificationsTotal counts notification fan-out writes by delivery result
var NotificationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gigbridge_notifications_total",
		Help: "Total number of notifications written by result",
	},
	[]string{"result"},
)

func init() {
	prometheus.MustRegister(SettlementsTotal, SettlementLatency)
	prometheus.MustRegister(OrdersCreated, NotificationsTotal)
}
