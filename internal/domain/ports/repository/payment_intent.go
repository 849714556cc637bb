package repository

import (
	"context"
	"time"

	"membership-marketplace/internal/domain/model"
)

// PaymentIntentRepository owns the intent state machine. ClaimPaid is the
// sole idempotency primitive of the subsystem: every fulfillment path must
// route through it before producing orders, vouchers, or memberships.
type PaymentIntentRepository interface {
	Save(ctx context.Context, tx Tx, p *model.PaymentIntent) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.PaymentIntent, error)
	FindByExternalRef(ctx context.Context, tx Tx, gateway, externalRef string) (*model.PaymentIntent, error)

	// SetExternalRef records the gateway charge id once the charge exists.
	SetExternalRef(ctx context.Context, tx Tx, id, externalRef string) error

	// ClaimPaid performs the single atomic conditional update
	// "status=paid, paid_at=now WHERE id=$1 AND status='pending'" and
	// reports whether this caller won the race. Losing callers must treat
	// the intent as already finalized.
	ClaimPaid(ctx context.Context, tx Tx, id string, paidAt time.Time) (bool, error)

	// MarkFailedIfPending and MarkCancelledIfPending use the same
	// conditional shape; a terminal intent is never transitioned.
	MarkFailedIfPending(ctx context.Context, tx Tx, id string) (bool, error)
	MarkCancelledIfPending(ctx context.Context, tx Tx, id string) (bool, error)
}
