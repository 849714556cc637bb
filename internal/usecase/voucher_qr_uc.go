// File: internal/usecase/voucher_qr_uc.go
package usecase

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"membership-marketplace/internal/domain"
	"membership-marketplace/internal/domain/model"
	"membership-marketplace/internal/domain/ports/repository"
	"membership-marketplace/internal/infra/metrics"
)

// Compile-time check
var _ VoucherQRUseCase = (*voucherQRUC)(nil)

// IssuedCode is a short-lived one-time redemption code for a voucher.
type IssuedCode struct {
	Code      string
	ExpiresAt time.Time
}

// VoucherQRUseCase issues and redeems one-time voucher codes. A code is
// consumed by a single atomic conditional update; an expired code leaves the
// voucher unused so the owner can simply issue a fresh one.
type VoucherQRUseCase interface {
	// Issue generates a fresh code for an unused voucher, overwriting any
	// earlier unconsumed code. Only the owner may issue.
	Issue(ctx context.Context, userID, voucherID string) (*IssuedCode, error)
	// Redeem consumes a code exactly once and returns the redeemed voucher.
	// Errors: domain.ErrCodeNotFound, domain.ErrAlreadyRedeemed,
	// domain.ErrCodeExpired.
	Redeem(ctx context.Context, code string) (*model.Voucher, error)
}

type voucherQRUC struct {
	vouchers repository.VoucherRepository
	codeTTL  time.Duration
	log      *zerolog.Logger
}

func NewVoucherQRUseCase(vouchers repository.VoucherRepository, codeTTL time.Duration, logger *zerolog.Logger) *voucherQRUC {
	if codeTTL <= 0 {
		codeTTL = 90 * time.Second
	}
	l := logger.With().Str("component", "voucher_qr").Logger()
	return &voucherQRUC{vouchers: vouchers, codeTTL: codeTTL, log: &l}
}

func (u *voucherQRUC) Issue(ctx context.Context, userID, voucherID string) (*IssuedCode, error) {
	if userID == "" || voucherID == "" {
		return nil, domain.ErrInvalidArgument
	}
	v, err := u.vouchers.FindByID(ctx, nil, voucherID)
	if err != nil {
		return nil, err
	}
	if v.OwnerUserID != userID {
		return nil, domain.ErrNotFound
	}
	now := time.Now().UTC()
	if !v.Issuable(now) {
		if v.Status == model.VoucherStatusRedeemed {
			return nil, domain.ErrAlreadyRedeemed
		}
		return nil, domain.ErrCodeExpired
	}

	code, err := newRedemptionCode()
	if err != nil {
		return nil, err
	}
	expiresAt := now.Add(u.codeTTL)
	if err := u.vouchers.SetCode(ctx, nil, v.ID, code, now, expiresAt); err != nil {
		return nil, err
	}
	metrics.IncVoucherCode("issued")
	return &IssuedCode{Code: code, ExpiresAt: expiresAt}, nil
}

func (u *voucherQRUC) Redeem(ctx context.Context, code string) (*model.Voucher, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, domain.ErrCodeNotFound
	}

	now := time.Now().UTC()
	v, err := u.vouchers.RedeemByCode(ctx, nil, code, now)
	if err == nil {
		metrics.IncVoucherCode("redeemed")
		u.log.Info().Str("voucher_id", v.ID).Msg("voucher redeemed")
		return v, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	// Zero rows matched: read back to tell the caller why.
	existing, err := u.vouchers.FindByCode(ctx, nil, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrCodeNotFound
		}
		return nil, err
	}
	if existing.Status == model.VoucherStatusRedeemed {
		metrics.IncVoucherCode("already_redeemed")
		return nil, domain.ErrAlreadyRedeemed
	}
	if existing.CodeExpiresAt != nil && now.After(*existing.CodeExpiresAt) {
		// The voucher itself stays unused; only the code died.
		metrics.IncVoucherCode("expired")
		return nil, domain.ErrCodeExpired
	}
	return nil, domain.ErrCodeNotFound
}

// newRedemptionCode returns 4 random bytes as 8 uppercase hex characters.
func newRedemptionCode() (string, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(b[:])), nil
}
