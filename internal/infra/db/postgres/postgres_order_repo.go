// File: internal/infra/db/postgres/postgres_order_repo.go
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

var (
	_ repository.OrderRepository    = (*orderRepo)(nil)
	_ repository.CartRepository     = (*cartRepo)(nil)
	_ repository.ProviderRepository = (*providerRepo)(nil)
)

// ---- orders ----

type orderRepo struct {
	pool *pgxpool.Pool
}

func NewOrderRepo(pool *pgxpool.Pool) *orderRepo {
	return &orderRepo{pool: pool}
}

const orderColumns = `id, user_id, session_id, provider_id, items, total_cents, status, payment_gateway, payment_intent_id, paid_at, cancel_reason, expires_at, created_at, updated_at`

// Save inserts an order. The unique index on payment_intent_id turns a
// duplicate fulfillment into domain.ErrConflict instead of a second order.
func (r *orderRepo) Save(ctx context.Context, tx repository.Tx, o *model.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO orders (
  id, user_id, session_id, provider_id, items, total_cents, status, payment_gateway, payment_intent_id, paid_at, cancel_reason, expires_at, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
ON CONFLICT (id) DO UPDATE SET status=$7, cancel_reason=$11, updated_at=$14;`
	_, err = execSQL(ctx, r.pool, tx, q,
		o.ID, o.UserID, o.SessionID, o.ProviderID, items, o.TotalCents, o.Status,
		o.Payment.Gateway, o.Payment.IntentID, o.Payment.PaidAt, o.CancelReason,
		o.ExpiresAt, o.CreatedAt, o.UpdatedAt)
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

func (r *orderRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Order, error) {
	const q = `SELECT ` + orderColumns + ` FROM orders WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanOrder(row)
}

func (r *orderRepo) FindByIntent(ctx context.Context, tx repository.Tx, intentID string) (*model.Order, error) {
	const q = `SELECT ` + orderColumns + ` FROM orders WHERE payment_intent_id=$1 LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, intentID)
	if err != nil {
		return nil, err
	}
	return scanOrder(row)
}

// ExpirePending sweeps pending orders past their expiry into 'ignored'.
func (r *orderRepo) ExpirePending(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	const q = `UPDATE orders SET status='ignored', cancel_reason='expired', updated_at=NOW() WHERE status='pending' AND expires_at<$1;`
	tag, err := execSQL(ctx, r.pool, tx, q, now)
	if err != nil {
		return 0, domain.ErrOperationFailed
	}
	return int(tag.RowsAffected()), nil
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	o := &model.Order{}
	var items []byte
	err := row.Scan(&o.ID, &o.UserID, &o.SessionID, &o.ProviderID, &items, &o.TotalCents, &o.Status,
		&o.Payment.Gateway, &o.Payment.IntentID, &o.Payment.PaidAt, &o.CancelReason,
		&o.ExpiresAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrOperationFailed
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &o.Items); err != nil {
			return nil, domain.ErrOperationFailed
		}
	}
	return o, nil
}

// ---- carts ----

type cartRepo struct {
	pool *pgxpool.Pool
}

func NewCartRepo(pool *pgxpool.Pool) *cartRepo {
	return &cartRepo{pool: pool}
}

func (r *cartRepo) FindByActor(ctx context.Context, tx repository.Tx, actor model.Actor) (*model.Cart, error) {
	const q = `SELECT id, user_id, session_id, provider_id, items, updated_at FROM carts WHERE (user_id=$1 AND $1<>'') OR (session_id=$2 AND $2<>'') LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, actor.UserID, actor.SessionID)
	if err != nil {
		return nil, err
	}
	c := &model.Cart{}
	var items []byte
	if err := row.Scan(&c.ID, &c.UserID, &c.SessionID, &c.ProviderID, &items, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrOperationFailed
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &c.Items); err != nil {
			return nil, domain.ErrOperationFailed
		}
	}
	return c, nil
}

func (r *cartRepo) Save(ctx context.Context, tx repository.Tx, c *model.Cart) error {
	items, err := json.Marshal(c.Items)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO carts (id, user_id, session_id, provider_id, items, updated_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (id) DO UPDATE SET provider_id=$4, items=$5, updated_at=$6;`
	_, err = execSQL(ctx, r.pool, tx, q, c.ID, c.UserID, c.SessionID, c.ProviderID, items, c.UpdatedAt)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *cartRepo) Clear(ctx context.Context, tx repository.Tx, actor model.Actor) error {
	const q = `DELETE FROM carts WHERE (user_id=$1 AND $1<>'') OR (session_id=$2 AND $2<>'');`
	if _, err := execSQL(ctx, r.pool, tx, q, actor.UserID, actor.SessionID); err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}

// ---- providers ----

type providerRepo struct {
	pool *pgxpool.Pool
}

func NewProviderRepo(pool *pgxpool.Pool) *providerRepo {
	return &providerRepo{pool: pool}
}

func (r *providerRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Provider, error) {
	const q = `SELECT id, name, logo_url, voucher_discount_percent, active FROM providers WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	p := &model.Provider{}
	if err := row.Scan(&p.ID, &p.Name, &p.LogoURL, &p.VoucherDiscountPercent, &p.Active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrOperationFailed
	}
	return p, nil
}
