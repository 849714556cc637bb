// File: internal/infra/metrics/payments.go
package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		intentsTotal,
		revenueTotal,
		webhooksTotal,
		fulfillmentsTotal,
	)
}

var (
	intentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_intents_total",
			Help: "Payment intents by kind and terminal status.",
		},
		[]string{"kind", "status"},
	)

	revenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_revenue_total",
			Help: "The total monetary value of settled intents, labeled by currency.",
		},
		[]string{"currency"},
	)

	webhooksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_webhooks_total",
			Help: "Gateway webhook deliveries by gateway and outcome.",
		},
		[]string{"gateway", "outcome"}, // outcome: ok|invalid|error
	)

	fulfillmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fulfillments_total",
			Help: "Fulfillments performed by the finalizer, by intent kind.",
		},
		[]string{"kind"},
	)
)

func IncIntent(kind, status string) {
	intentsTotal.WithLabelValues(norm(kind), norm(status)).Inc()
}

func AddRevenue(currency string, amountCents int64) {
	revenueTotal.WithLabelValues(norm(currency)).Add(float64(amountCents))
}

func IncWebhook(gateway, outcome string) {
	webhooksTotal.WithLabelValues(norm(gateway), norm(outcome)).Inc()
}

func IncFulfillment(kind string) {
	fulfillmentsTotal.WithLabelValues(norm(kind)).Inc()
}
