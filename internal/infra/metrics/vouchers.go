// File: internal/infra/metrics/vouchers.go
package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(voucherCodesTotal, ordersExpiredTotal, cacheRequestsTotal)
}

var (
	voucherCodesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voucher_codes_total",
			Help: "Voucher QR code operations by result (issued/redeemed/expired/rejected).",
		},
		[]string{"result"},
	)

	ordersExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_expired_total",
			Help: "Pending orders swept to ignored by the expiry worker.",
		},
	)

	cacheRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_requests_total",
			Help: "Tracks cache hits and misses for various caches.",
		},
		[]string{"cache", "result"},
	)
)

func IncVoucherCode(result string) {
	voucherCodesTotal.WithLabelValues(norm(result)).Inc()
}

func AddExpiredOrders(n int) {
	ordersExpiredTotal.Add(float64(n))
}

func IncCacheRequest(cacheName, result string) {
	cacheRequestsTotal.WithLabelValues(norm(cacheName), norm(result)).Inc()
}
