package repository

import (
	"context"
	"time"

	"membership-marketplace/internal/domain/model"
)

type VoucherRepository interface {
	Save(ctx context.Context, tx Tx, v *model.Voucher) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Voucher, error)
	FindByCode(ctx context.Context, tx Tx, code string) (*model.Voucher, error)
	ListByOwner(ctx context.Context, tx Tx, userID string) ([]*model.Voucher, error)

	// SetCode installs a fresh one-time redemption code, overwriting any
	// prior unconsumed code.
	SetCode(ctx context.Context, tx Tx, id, code string, issuedAt, expiresAt time.Time) error

	// RedeemByCode is the single atomic conditional update
	// "status=redeemed, redeemed_at=now WHERE code=$1 AND status='unused'
	// AND code_expires_at > now". It returns the redeemed voucher, or
	// domain.ErrNotFound when no row matched; the caller then reads the
	// voucher back to tell apart not-found / already-redeemed / expired.
	RedeemByCode(ctx context.Context, tx Tx, code string, now time.Time) (*model.Voucher, error)
}
