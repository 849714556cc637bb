// File: internal/infra/db/postgres/postgres_intent_repo.go
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"membership-marketplace/internal/domain"
	"membership-marketplace/internal/domain/model"
	"membership-marketplace/internal/domain/ports/repository"
)

// Ensure intentRepo implements repository.PaymentIntentRepository
var _ repository.PaymentIntentRepository = (*intentRepo)(nil)

type intentRepo struct {
	pool *pgxpool.Pool
}

func NewIntentRepo(pool *pgxpool.Pool) *intentRepo {
	return &intentRepo{pool: pool}
}

const intentColumns = `id, user_id, session_id, provider_id, kind, gateway, amount_cents, currency, external_ref, voucher_payload, membership_payment_id, subscription_id, new_plan_id, new_amount_cents, status, paid_at, created_at, updated_at`

func (r *intentRepo) Save(ctx context.Context, tx repository.Tx, p *model.PaymentIntent) error {
	const q = `
INSERT INTO payment_intents (
  id, user_id, session_id, provider_id, kind, gateway, amount_cents, currency, external_ref, voucher_payload, membership_payment_id, subscription_id, new_plan_id, new_amount_cents, status, paid_at, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
ON CONFLICT (id) DO UPDATE SET
  external_ref=$9, voucher_payload=$10, status=$15, paid_at=$16, updated_at=$18;`

	var payload []byte
	if p.VoucherPayload != nil {
		b, err := json.Marshal(p.VoucherPayload)
		if err != nil {
			return err
		}
		payload = b
	}
	_, err := execSQL(ctx, r.pool, tx, q,
		p.ID, p.UserID, p.SessionID, p.ProviderID, p.Kind, p.Gateway, p.AmountCents, p.Currency,
		p.ExternalRef, payload, p.MembershipPaymentID, p.SubscriptionID, p.NewPlanID, p.NewAmountCents,
		p.Status, p.PaidAt, p.CreatedAt, p.UpdatedAt)
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

func (r *intentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PaymentIntent, error) {
	q := `SELECT ` + intentColumns + ` FROM payment_intents WHERE id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q+";", id)
	if err != nil {
		return nil, err
	}
	return scanIntent(row)
}

func (r *intentRepo) FindByExternalRef(ctx context.Context, tx repository.Tx, gateway, externalRef string) (*model.PaymentIntent, error) {
	q := `SELECT ` + intentColumns + ` FROM payment_intents WHERE gateway=$1 AND external_ref=$2 LIMIT 1`
	row, err := pickRow(ctx, r.pool, tx, q+";", gateway, externalRef)
	if err != nil {
		return nil, err
	}
	return scanIntent(row)
}

func (r *intentRepo) SetExternalRef(ctx context.Context, tx repository.Tx, id, externalRef string) error {
	const q = `UPDATE payment_intents SET external_ref=$2, updated_at=NOW() WHERE id=$1;`
	_, err := execSQL(ctx, r.pool, tx, q, id, externalRef)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

// ClaimPaid is the idempotency primitive: one conditional UPDATE whose row
// count says whether this caller performed the pending->paid transition.
func (r *intentRepo) ClaimPaid(ctx context.Context, tx repository.Tx, id string, paidAt time.Time) (bool, error) {
	const q = `UPDATE payment_intents SET status='paid', paid_at=$2, updated_at=NOW() WHERE id=$1 AND status='pending';`
	tag, err := execSQL(ctx, r.pool, tx, q, id, paidAt)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return tag.RowsAffected() == 1, nil
}

func (r *intentRepo) MarkFailedIfPending(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	return r.transitionIfPending(ctx, tx, id, model.IntentStatusFailed)
}

func (r *intentRepo) MarkCancelledIfPending(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	return r.transitionIfPending(ctx, tx, id, model.IntentStatusCancelled)
}

func (r *intentRepo) transitionIfPending(ctx context.Context, tx repository.Tx, id string, to model.IntentStatus) (bool, error) {
	const q = `UPDATE payment_intents SET status=$2, updated_at=NOW() WHERE id=$1 AND status='pending';`
	tag, err := execSQL(ctx, r.pool, tx, q, id, to)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return tag.RowsAffected() == 1, nil
}

func scanIntent(row pgx.Row) (*model.PaymentIntent, error) {
	p := &model.PaymentIntent{}
	var payload []byte
	err := row.Scan(&p.ID, &p.UserID, &p.SessionID, &p.ProviderID, &p.Kind, &p.Gateway, &p.AmountCents,
		&p.Currency, &p.ExternalRef, &payload, &p.MembershipPaymentID, &p.SubscriptionID,
		&p.NewPlanID, &p.NewAmountCents, &p.Status, &p.PaidAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrOperationFailed
	}
	if len(payload) > 0 {
		vp := &model.VoucherPayload{}
		if err := json.Unmarshal(payload, vp); err != nil {
			return nil, domain.ErrOperationFailed
		}
		p.VoucherPayload = vp
	}
	return p, nil
}
