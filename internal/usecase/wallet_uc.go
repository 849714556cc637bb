// File: internal/usecase/wallet_uc.go
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"membership-marketplace/internal/domain"
	"membership-marketplace/internal/domain/model"
	"membership-marketplace/internal/domain/ports/repository"
)

// Compile-time check
var _ WalletUseCase = (*walletUC)(nil)

// MinWithdrawalCents is the smallest payout a customer may request.
const MinWithdrawalCents int64 = 1000

// WalletUseCase handles customer wallet payouts. The balance check and the
// deduction run inside one transaction with the wallet row locked, so two
// concurrent requests can never overdraw.
type WalletUseCase interface {
	RequestWithdrawal(ctx context.Context, userID string, amountCents int64, method, destinationID string) (*model.WithdrawalRequest, error)
	Balance(ctx context.Context, userID string) (int64, error)
}

type walletUC struct {
	tm      repository.TransactionManager
	wallets repository.WalletRepository
	log     *zerolog.Logger
}

func NewWalletUseCase(tm repository.TransactionManager, wallets repository.WalletRepository, logger *zerolog.Logger) *walletUC {
	l := logger.With().Str("component", "wallet").Logger()
	return &walletUC{tm: tm, wallets: wallets, log: &l}
}

func (u *walletUC) RequestWithdrawal(ctx context.Context, userID string, amountCents int64, method, destinationID string) (*model.WithdrawalRequest, error) {
	if userID == "" || destinationID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if method != "tap" && method != "bank" {
		return nil, domain.ErrInvalidArgument
	}
	if amountCents < MinWithdrawalCents {
		return nil, domain.ErrInvalidArgument
	}

	req := &model.WithdrawalRequest{
		ID:            uuid.NewString(),
		AmountCents:   amountCents,
		Method:        method,
		DestinationID: destinationID,
		Status:        model.WithdrawalPending,
		RequestedAt:   time.Now().UTC(),
	}

	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		c, err := u.wallets.FindForUpdate(ctx, tx, userID)
		if err != nil {
			return err
		}
		if c.WalletBalanceCents < amountCents {
			return domain.ErrInsufficientBalance
		}
		if err := u.wallets.UpdateBalance(ctx, tx, userID, c.WalletBalanceCents-amountCents); err != nil {
			return err
		}
		return u.wallets.AppendWithdrawal(ctx, tx, userID, req)
	})
	if err != nil {
		return nil, err
	}
	u.log.Info().Str("user_id", userID).Int64("amount_cents", amountCents).Str("method", method).Msg("withdrawal requested")
	return req, nil
}

func (u *walletUC) Balance(ctx context.Context, userID string) (int64, error) {
	c, err := u.wallets.FindByID(ctx, nil, userID)
	if err != nil {
		return 0, err
	}
	return c.WalletBalanceCents, nil
}
