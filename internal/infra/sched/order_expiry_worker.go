// File: internal/infra/sched/order_expiry_worker.go
package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"membership-marketplace/internal/domain/ports/repository"
	"membership-marketplace/internal/infra/metrics"
)

// OrderExpiryWorker periodically flips pending orders past their expiry to
// ignored so providers never fulfill stale carts.
type OrderExpiryWorker struct {
	interval time.Duration
	orders   repository.OrderRepository
	log      *zerolog.Logger
}

func NewOrderExpiryWorker(interval time.Duration, orders repository.OrderRepository, logger *zerolog.Logger) *OrderExpiryWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	wlog := logger.With().Str("component", "OrderExpiryWorker").Logger()
	return &OrderExpiryWorker{
		interval: interval,
		orders:   orders,
		log:      &wlog,
	}
}

func (w *OrderExpiryWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("starting order expiry worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopping order expiry worker")
			return ctx.Err()
		case <-ticker.C:
			n, err := w.orders.ExpirePending(ctx, nil, time.Now())
			if err != nil {
				w.log.Error().Err(err).Msg("order expiry sweep error")
				continue
			}
			if n > 0 {
				metrics.AddExpiredOrders(n)
				w.log.Info().Int("count", n).Msg("expired pending orders")
			}
		}
	}
}
