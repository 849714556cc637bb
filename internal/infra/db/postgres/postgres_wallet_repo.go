// File: internal/infra/db/postgres/postgres_wallet_repo.go
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

var _ repository.WalletRepository = (*walletRepo)(nil)

type walletRepo struct {
	pool *pgxpool.Pool
}

func NewWalletRepo(pool *pgxpool.Pool) *walletRepo {
	return &walletRepo{pool: pool}
}

func (r *walletRepo) FindByID(ctx context.Context, tx repository.Tx, userID string) (*model.Customer, error) {
	return r.find(ctx, tx, userID, false)
}

// FindForUpdate locks the customer row for the life of the caller's
// transaction; the withdrawal flow depends on it.
func (r *walletRepo) FindForUpdate(ctx context.Context, tx repository.Tx, userID string) (*model.Customer, error) {
	return r.find(ctx, tx, userID, true)
}

func (r *walletRepo) find(ctx context.Context, tx repository.Tx, userID string, forUpdate bool) (*model.Customer, error) {
	q := `SELECT id, name, email, wallet_balance_cents, updated_at FROM customers WHERE id=$1`
	if forUpdate {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q+";", userID)
	if err != nil {
		return nil, err
	}
	c := &model.Customer{}
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.WalletBalanceCents, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrOperationFailed
	}
	return c, nil
}

func (r *walletRepo) UpdateBalance(ctx context.Context, tx repository.Tx, userID string, balanceCents int64) error {
	const q = `UPDATE customers SET wallet_balance_cents=$2, updated_at=NOW() WHERE id=$1;`
	tag, err := execSQL(ctx, r.pool, tx, q, userID, balanceCents)
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

func (r *walletRepo) AppendWithdrawal(ctx context.Context, tx repository.Tx, userID string, req *model.WithdrawalRequest) error {
	const q = `
INSERT INTO withdrawal_requests (id, user_id, amount_cents, method, destination_id, status, requested_at)
VALUES ($1,$2,$3,$4,$5,$6,$7);`
	_, err := execSQL(ctx, r.pool, tx, q, req.ID, userID, req.AmountCents, req.Method, req.DestinationID, req.Status, req.RequestedAt)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}
