package model

import (
	"time"

	"membership-marketplace/internal/domain"
)

type VoucherStatus string

const (
	VoucherStatusUnused   VoucherStatus = "unused"
	VoucherStatusRedeemed VoucherStatus = "redeemed"
	VoucherStatusExpired  VoucherStatus = "expired"
)

// Voucher is a redeemable value certificate owned by a user. The Code triple
// is a transient one-time redemption code; re-issuing overwrites any prior
// unconsumed code so at most one live code exists per voucher.
type Voucher struct {
	ID           string
	ProviderID   string
	ProviderName string
	LogoURL      string
	OwnerUserID  string
	Name         string
	Currency     string

	FaceValueCents  int64
	PriceCents      int64
	DiscountPercent int

	Status     VoucherStatus
	ValidUntil *time.Time

	Code          *string
	CodeIssuedAt  *time.Time
	CodeExpiresAt *time.Time
	RedeemedAt    *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewVoucher(id, providerID, providerName, ownerUserID string, faceValueCents, priceCents int64, discountPercent int) (*Voucher, error) {
	if id == "" || providerID == "" || ownerUserID == "" || faceValueCents <= 0 || priceCents < 0 {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now().UTC()
	return &Voucher{
		ID:              id,
		ProviderID:      providerID,
		ProviderName:    providerName,
		OwnerUserID:     ownerUserID,
		Currency:        "SAR",
		FaceValueCents:  faceValueCents,
		PriceCents:      priceCents,
		DiscountPercent: discountPercent,
		Status:          VoucherStatusUnused,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// Issuable reports whether a redemption code may be issued now.
func (v *Voucher) Issuable(now time.Time) bool {
	if v.Status != VoucherStatusUnused {
		return false
	}
	if v.ValidUntil != nil && now.After(*v.ValidUntil) {
		return false
	}
	return true
}
