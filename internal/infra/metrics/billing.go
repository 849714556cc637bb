// File: internal/infra/metrics/billing.go
package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		billingRunsTotal,
		billingChargesTotal,
		subscriptionsPastDue,
		billingRunSeconds,
	)
}

var (
	billingRunsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "billing_runs_total",
			Help: "Completed billing scheduler ticks.",
		},
	)

	billingChargesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_charges_total",
			Help: "Recurring charge attempts by outcome (charged/failed).",
		},
		[]string{"outcome"},
	)

	subscriptionsPastDue = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "subscriptions_past_due",
			Help: "Subscriptions currently past_due after exhausting retries.",
		},
	)

	billingRunSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "billing_run_seconds",
			Help:    "Billing tick duration in seconds.",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		},
	)
)

func ObserveBillingRun(charged, failed int, seconds float64) {
	billingRunsTotal.Inc()
	billingChargesTotal.WithLabelValues("charged").Add(float64(charged))
	billingChargesTotal.WithLabelValues("failed").Add(float64(failed))
	billingRunSeconds.Observe(seconds)
}

func SetPastDue(n int) {
	subscriptionsPastDue.Set(float64(n))
}
