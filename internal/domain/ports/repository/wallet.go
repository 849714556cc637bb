package repository

import (
	"context"

	"membership-marketplace/internal/domain/model"
)

// WalletRepository covers the wallet slice of the customer record. Balance
// mutations are read-modify-write under one transaction; FindForUpdate must
// lock the row when given a real tx.
type WalletRepository interface {
	FindByID(ctx context.Context, tx Tx, userID string) (*model.Customer, error)
	FindForUpdate(ctx context.Context, tx Tx, userID string) (*model.Customer, error)
	UpdateBalance(ctx context.Context, tx Tx, userID string, balanceCents int64) error
	AppendWithdrawal(ctx context.Context, tx Tx, userID string, req *model.WithdrawalRequest) error
}
