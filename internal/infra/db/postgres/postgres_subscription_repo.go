// File: internal/infra/db/postgres/postgres_subscription_repo.go
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"membership-marketplace/internal/domain"
	"membership-marketplace/internal/domain/model"
	"membership-marketplace/internal/domain/ports/repository"
)

var (
	_ repository.SubscriptionRepository        = (*subscriptionRepo)(nil)
	_ repository.SubscriptionInvoiceRepository = (*invoiceRepo)(nil)
)

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

const subscriptionColumns = `id, user_id, plan_id, amount_cents, currency, card_token, card_last4, pending_plan_id, pending_amount_cents, current_cycle, next_billing_at, retry_count, processing, status, created_at, updated_at`

func (r *subscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	// processing is deliberately absent from the update list: the claim flag
	// belongs to BeginProcessing/EndProcessing alone.
	const q = `
INSERT INTO subscriptions (
  id, user_id, plan_id, amount_cents, currency, card_token, card_last4, pending_plan_id, pending_amount_cents, current_cycle, next_billing_at, retry_count, processing, status, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,false,$13,$14,$15)
ON CONFLICT (id) DO UPDATE SET
  plan_id=$3, amount_cents=$4, card_token=$6, card_last4=$7, pending_plan_id=$8, pending_amount_cents=$9,
  current_cycle=$10, next_billing_at=$11, retry_count=$12, status=$13, updated_at=$15;`
	_, err := execSQL(ctx, r.pool, tx, q,
		s.ID, s.UserID, s.PlanID, s.AmountCents, s.Currency, s.CardToken, s.CardLast4,
		s.PendingPlanID, s.PendingAmountCents, s.CurrentCycle, s.NextBillingAt, s.RetryCount,
		s.Status, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *subscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	q := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q+";", id)
	if err != nil {
		return nil, err
	}
	return scanSubscription(row)
}

func (r *subscriptionRepo) FindActiveByUser(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error) {
	const q = `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id=$1 AND status='active' ORDER BY created_at DESC LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, err
	}
	return scanSubscription(row)
}

func (r *subscriptionRepo) ListDue(ctx context.Context, tx repository.Tx, now time.Time, limit int) ([]*model.Subscription, error) {
	const q = `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE status='active' AND next_billing_at<=$1 ORDER BY next_billing_at ASC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, now, limit)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()
	var out []*model.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrOperationFailed
	}
	return out, nil
}

// BeginProcessing flips the per-subscription charge claim false->true in one
// conditional update. Losing the claim is not an error.
func (r *subscriptionRepo) BeginProcessing(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	const q = `UPDATE subscriptions SET processing=true, updated_at=NOW() WHERE id=$1 AND processing=false;`
	tag, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return tag.RowsAffected() == 1, nil
}

func (r *subscriptionRepo) EndProcessing(ctx context.Context, tx repository.Tx, id string) error {
	const q = `UPDATE subscriptions SET processing=false, updated_at=NOW() WHERE id=$1;`
	if _, err := execSQL(ctx, r.pool, tx, q, id); err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}

func scanSubscription(row pgx.Row) (*model.Subscription, error) {
	s := &model.Subscription{}
	err := row.Scan(&s.ID, &s.UserID, &s.PlanID, &s.AmountCents, &s.Currency, &s.CardToken, &s.CardLast4,
		&s.PendingPlanID, &s.PendingAmountCents, &s.CurrentCycle, &s.NextBillingAt, &s.RetryCount,
		&s.Processing, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrOperationFailed
	}
	return s, nil
}

// ---- subscription invoices ----

type invoiceRepo struct {
	pool *pgxpool.Pool
}

func NewInvoiceRepo(pool *pgxpool.Pool) *invoiceRepo {
	return &invoiceRepo{pool: pool}
}

// Save inserts a billing attempt. Paid invoices carry a partial unique index
// on (subscription_id, billing_cycle); a duplicate paid insert surfaces as
// domain.ErrConflict. Failed attempts may repeat per cycle.
func (r *invoiceRepo) Save(ctx context.Context, tx repository.Tx, inv *model.SubscriptionInvoice) error {
	const q = `
INSERT INTO subscription_invoices (id, subscription_id, billing_cycle, amount_cents, intent_id, external_ref, status, billed_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8);`
	_, err := execSQL(ctx, r.pool, tx, q, inv.ID, inv.SubscriptionID, inv.BillingCycle, inv.AmountCents, inv.IntentID, inv.ExternalRef, inv.Status, inv.BilledAt)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *invoiceRepo) FindPaidByCycle(ctx context.Context, tx repository.Tx, subscriptionID string, cycle int) (*model.SubscriptionInvoice, error) {
	const q = `SELECT id, subscription_id, billing_cycle, amount_cents, intent_id, external_ref, status, billed_at FROM subscription_invoices WHERE subscription_id=$1 AND billing_cycle=$2 AND status='paid' LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, subscriptionID, cycle)
	if err != nil {
		return nil, err
	}
	return scanInvoice(row)
}

func (r *invoiceRepo) ListBySubscription(ctx context.Context, tx repository.Tx, subscriptionID string) ([]*model.SubscriptionInvoice, error) {
	const q = `SELECT id, subscription_id, billing_cycle, amount_cents, intent_id, external_ref, status, billed_at FROM subscription_invoices WHERE subscription_id=$1 ORDER BY billed_at DESC;`
	rows, err := queryRows(ctx, r.pool, tx, q, subscriptionID)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()
	var out []*model.SubscriptionInvoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrOperationFailed
	}
	return out, nil
}

func scanInvoice(row pgx.Row) (*model.SubscriptionInvoice, error) {
	inv := &model.SubscriptionInvoice{}
	err := row.Scan(&inv.ID, &inv.SubscriptionID, &inv.BillingCycle, &inv.AmountCents, &inv.IntentID, &inv.ExternalRef, &inv.Status, &inv.BilledAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrOperationFailed
	}
	return inv, nil
}
