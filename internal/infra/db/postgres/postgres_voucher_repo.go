// File: internal/infra/db/postgres/postgres_voucher_repo.go
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

var _ repository.VoucherRepository = (*voucherRepo)(nil)

type voucherRepo struct {
	pool *pgxpool.Pool
}

func NewVoucherRepo(pool *pgxpool.Pool) *voucherRepo {
	return &voucherRepo{pool: pool}
}

const voucherColumns = `id, provider_id, provider_name, logo_url, owner_user_id, name, currency, face_value_cents, price_cents, discount_percent, status, valid_until, code, code_issued_at, code_expires_at, redeemed_at, created_at, updated_at`

func (r *voucherRepo) Save(ctx context.Context, tx repository.Tx, v *model.Voucher) error {
	const q = `
INSERT INTO vouchers (
  id, provider_id, provider_name, logo_url, owner_user_id, name, currency, face_value_cents, price_cents, discount_percent, status, valid_until, code, code_issued_at, code_expires_at, redeemed_at, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
ON CONFLICT (id) DO UPDATE SET
  status=$11, valid_until=$12, code=$13, code_issued_at=$14, code_expires_at=$15, redeemed_at=$16, updated_at=$18;`
	_, err := execSQL(ctx, r.pool, tx, q,
		v.ID, v.ProviderID, v.ProviderName, v.LogoURL, v.OwnerUserID, v.Name, v.Currency,
		v.FaceValueCents, v.PriceCents, v.DiscountPercent, v.Status, v.ValidUntil,
		v.Code, v.CodeIssuedAt, v.CodeExpiresAt, v.RedeemedAt, v.CreatedAt, v.UpdatedAt)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *voucherRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Voucher, error) {
	const q = `SELECT ` + voucherColumns + ` FROM vouchers WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanVoucher(row)
}

func (r *voucherRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.Voucher, error) {
	const q = `SELECT ` + voucherColumns + ` FROM vouchers WHERE code=$1 LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, code)
	if err != nil {
		return nil, err
	}
	return scanVoucher(row)
}

func (r *voucherRepo) ListByOwner(ctx context.Context, tx repository.Tx, userID string) ([]*model.Voucher, error) {
	const q = `SELECT ` + voucherColumns + ` FROM vouchers WHERE owner_user_id=$1 ORDER BY created_at DESC;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()
	var out []*model.Voucher
	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrOperationFailed
	}
	return out, nil
}

func (r *voucherRepo) SetCode(ctx context.Context, tx repository.Tx, id, code string, issuedAt, expiresAt time.Time) error {
	const q = `UPDATE vouchers SET code=$2, code_issued_at=$3, code_expires_at=$4, updated_at=NOW() WHERE id=$1 AND status='unused';`
	tag, err := execSQL(ctx, r.pool, tx, q, id, code, issuedAt, expiresAt)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// RedeemByCode consumes a live code in one conditional update and returns
// the redeemed voucher via RETURNING. Zero rows means the code was missing,
// consumed, or expired; callers read back to tell which.
func (r *voucherRepo) RedeemByCode(ctx context.Context, tx repository.Tx, code string, now time.Time) (*model.Voucher, error) {
	const q = `
UPDATE vouchers SET status='redeemed', redeemed_at=$2, updated_at=NOW()
WHERE code=$1 AND status='unused' AND code_expires_at>$2
RETURNING ` + voucherColumns + `;`
	row, err := pickRow(ctx, r.pool, tx, q, code, now)
	if err != nil {
		return nil, err
	}
	return scanVoucher(row)
}

func scanVoucher(row pgx.Row) (*model.Voucher, error) {
	v := &model.Voucher{}
	err := row.Scan(&v.ID, &v.ProviderID, &v.ProviderName, &v.LogoURL, &v.OwnerUserID, &v.Name, &v.Currency,
		&v.FaceValueCents, &v.PriceCents, &v.DiscountPercent, &v.Status, &v.ValidUntil,
		&v.Code, &v.CodeIssuedAt, &v.CodeExpiresAt, &v.RedeemedAt, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrOperationFailed
	}
	return v, nil
}
