// File: internal/infra/db/postgres/postgres_membership_repo.go
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"membership-marketplace/internal/domain"
	"membership-marketplace/internal/domain/model"
	"membership-marketplace/internal/domain/ports/repository"
)

var (
	_ repository.MembershipPlanRepository    = (*planRepo)(nil)
	_ repository.MembershipPaymentRepository = (*membershipPaymentRepo)(nil)
	_ repository.UserMembershipRepository    = (*userMembershipRepo)(nil)
)

// ---- membership plans ----

type planRepo struct {
	pool *pgxpool.Pool
}

func NewPlanRepo(pool *pgxpool.Pool) *planRepo {
	return &planRepo{pool: pool}
}

func (r *planRepo) Save(ctx context.Context, tx repository.Tx, p *model.MembershipPlan) error {
	const q = `
INSERT INTO membership_plans (id, name, price_cents, image_url, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (id) DO UPDATE SET name=$2, price_cents=$3, image_url=$4, updated_at=$6;`
	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.Name, p.PriceCents, p.ImageURL, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *planRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.MembershipPlan, error) {
	const q = `SELECT id, name, price_cents, image_url, created_at, updated_at FROM membership_plans WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	p := &model.MembershipPlan{}
	if err := row.Scan(&p.ID, &p.Name, &p.PriceCents, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrOperationFailed
	}
	return p, nil
}

func (r *planRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.MembershipPlan, error) {
	const q = `SELECT id, name, price_cents, image_url, created_at, updated_at FROM membership_plans ORDER BY price_cents ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()
	var out []*model.MembershipPlan
	for rows.Next() {
		p := &model.MembershipPlan{}
		if err := rows.Scan(&p.ID, &p.Name, &p.PriceCents, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, domain.ErrOperationFailed
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrOperationFailed
	}
	return out, nil
}

func (r *planRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	const q = `DELETE FROM membership_plans WHERE id=$1;`
	if _, err := execSQL(ctx, r.pool, tx, q, id); err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}

// ---- membership payments ----

type membershipPaymentRepo struct {
	pool *pgxpool.Pool
}

func NewMembershipPaymentRepo(pool *pgxpool.Pool) *membershipPaymentRepo {
	return &membershipPaymentRepo{pool: pool}
}

func (r *membershipPaymentRepo) Save(ctx context.Context, tx repository.Tx, mp *model.MembershipPayment) error {
	const q = `
INSERT INTO membership_payments (id, user_id, plan_id, cycle, days, amount_cents, status, intent_id, paid_at, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET status=$7, intent_id=$8, paid_at=$9;`
	_, err := execSQL(ctx, r.pool, tx, q, mp.ID, mp.UserID, mp.PlanID, mp.Cycle, mp.Days, mp.AmountCents, mp.Status, mp.IntentID, mp.PaidAt, mp.CreatedAt)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *membershipPaymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.MembershipPayment, error) {
	q := `SELECT id, user_id, plan_id, cycle, days, amount_cents, status, intent_id, paid_at, created_at FROM membership_payments WHERE id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q+";", id)
	if err != nil {
		return nil, err
	}
	mp := &model.MembershipPayment{}
	if err := row.Scan(&mp.ID, &mp.UserID, &mp.PlanID, &mp.Cycle, &mp.Days, &mp.AmountCents, &mp.Status, &mp.IntentID, &mp.PaidAt, &mp.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrOperationFailed
	}
	return mp, nil
}

func (r *membershipPaymentRepo) MarkPaidIfPending(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	const q = `UPDATE membership_payments SET status='paid', paid_at=NOW() WHERE id=$1 AND status='pending';`
	tag, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return tag.RowsAffected() == 1, nil
}

// ---- user memberships ----

type userMembershipRepo struct {
	pool *pgxpool.Pool
}

func NewUserMembershipRepo(pool *pgxpool.Pool) *userMembershipRepo {
	return &userMembershipRepo{pool: pool}
}

// Save upserts on user_id: one membership row per user, always.
func (r *userMembershipRepo) Save(ctx context.Context, tx repository.Tx, m *model.UserMembership) error {
	const q = `
INSERT INTO user_memberships (id, user_id, plan_id, start_date, end_date, card_code, is_active, last_scan_at, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (user_id) DO UPDATE SET
  plan_id=$3, start_date=$4, end_date=$5, card_code=$6, is_active=$7, updated_at=$10;`
	_, err := execSQL(ctx, r.pool, tx, q, m.ID, m.UserID, m.PlanID, m.StartDate, m.EndDate, m.CardCode, m.IsActive, m.LastScanAt, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *userMembershipRepo) FindByUser(ctx context.Context, tx repository.Tx, userID string) (*model.UserMembership, error) {
	q := `SELECT id, user_id, plan_id, start_date, end_date, card_code, is_active, last_scan_at, created_at, updated_at FROM user_memberships WHERE user_id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q+";", userID)
	if err != nil {
		return nil, err
	}
	m := &model.UserMembership{}
	if err := row.Scan(&m.ID, &m.UserID, &m.PlanID, &m.StartDate, &m.EndDate, &m.CardCode, &m.IsActive, &m.LastScanAt, &m.CreatedAt, &m.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrOperationFailed
	}
	return m, nil
}

func (r *userMembershipRepo) TouchScan(ctx context.Context, tx repository.Tx, id string) error {
	const q = `UPDATE user_memberships SET last_scan_at=NOW() WHERE id=$1;`
	tag, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		return domain.ErrOperationFailed
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
