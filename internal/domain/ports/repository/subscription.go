package repository

import (
	"context"
	"time"

	"membership-marketplace/internal/domain/model"
)

type SubscriptionRepository interface {
	Save(ctx context.Context, tx Tx, s *model.Subscription) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Subscription, error)
	FindActiveByUser(ctx context.Context, tx Tx, userID string) (*model.Subscription, error)
	// ListDue returns active subscriptions with nextBillingAt <= now.
	ListDue(ctx context.Context, tx Tx, now time.Time, limit int) ([]*model.Subscription, error)

	// BeginProcessing is the per-subscription charge claim: it flips
	// processing=false->true conditionally and reports whether this run won.
	// Overlapping scheduler runs lose the claim instead of double-charging.
	BeginProcessing(ctx context.Context, tx Tx, id string) (bool, error)
	EndProcessing(ctx context.Context, tx Tx, id string) error
}

type SubscriptionInvoiceRepository interface {
	// Save inserts an invoice. Paid invoices are unique on
	// (subscription_id, billing_cycle) — a partial unique index — so the
	// insert itself is the idempotency check; a conflicting paid insert
	// returns domain.ErrConflict. Failed attempts may repeat per cycle.
	Save(ctx context.Context, tx Tx, inv *model.SubscriptionInvoice) error
	// FindPaidByCycle returns the paid invoice for a cycle, or
	// domain.ErrNotFound when the cycle has not been settled.
	FindPaidByCycle(ctx context.Context, tx Tx, subscriptionID string, cycle int) (*model.SubscriptionInvoice, error)
	ListBySubscription(ctx context.Context, tx Tx, subscriptionID string) ([]*model.SubscriptionInvoice, error)
}
