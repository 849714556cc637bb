// File: internal/infra/sched/billing_worker.go
package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"membership-marketplace/internal/domain"
	"membership-marketplace/internal/infra/metrics"
	red "membership-marketplace/internal/infra/redis"
	"membership-marketplace/internal/infra/worker"
	"membership-marketplace/internal/usecase"
)

const billingLockKey = "lock:billing-run"

// BillingWorker periodically charges due subscriptions. A redis lock keeps
// replicas from running the sweep at the same time; correctness does not
// depend on the lock, the per-subscription processing claim does that.
type BillingWorker struct {
	interval time.Duration
	billing  usecase.BillingUseCase
	locker   red.Locker
	log      *zerolog.Logger
}

func NewBillingWorker(interval time.Duration, billing usecase.BillingUseCase, locker red.Locker, logger *zerolog.Logger) *BillingWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	wlog := logger.With().Str("component", "BillingWorker").Logger()
	return &BillingWorker{
		interval: interval,
		billing:  billing,
		locker:   locker,
		log:      &wlog,
	}
}

// Run ticks until the context dies. Each sweep goes through the pool so a
// slow gateway never blocks the ticker goroutine.
func (w *BillingWorker) Run(ctx context.Context, pool *worker.Pool) error {
	w.log.Info().Dur("interval", w.interval).Msg("starting billing worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopping billing worker")
			return ctx.Err()
		case <-ticker.C:
			if err := pool.Submit(func(ctx context.Context) error {
				w.tick(ctx)
				return nil
			}); err != nil {
				w.log.Warn().Err(err).Msg("billing tick dropped")
			}
		}
	}
}

func (w *BillingWorker) tick(ctx context.Context) {
	if w.locker != nil {
		token, err := w.locker.TryLock(ctx, billingLockKey, w.interval)
		if err != nil {
			if !errors.Is(err, domain.ErrLockNotAcquired) {
				w.log.Error().Err(err).Msg("billing lock error")
			}
			return
		}
		defer func() {
			_ = w.locker.Unlock(context.WithoutCancel(ctx), billingLockKey, token)
		}()
	}

	start := time.Now()
	charged, failed, err := w.billing.RunBilling(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("billing run error")
		return
	}
	metrics.ObserveBillingRun(charged, failed, time.Since(start).Seconds())
	if charged > 0 || failed > 0 {
		w.log.Info().Int("charged", charged).Int("failed", failed).Msg("billing run finished")
	}
}
