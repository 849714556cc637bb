package model

import "time"

type WithdrawalStatus string

const (
	WithdrawalPending  WithdrawalStatus = "pending"
	WithdrawalApproved WithdrawalStatus = "approved"
	WithdrawalRejected WithdrawalStatus = "rejected"
)

// WithdrawalRequest is a pending payout from a customer wallet. The balance
// is deducted when the request is recorded, inside the same transaction.
type WithdrawalRequest struct {
	ID            string
	AmountCents   int64
	Method        string // "tap" | "bank"
	DestinationID string
	Status        WithdrawalStatus
	RequestedAt   time.Time
}

// Customer carries only the wallet slice of the customer record; profile
// fields live outside this subsystem.
type Customer struct {
	ID                 string
	Name               string
	Email              string
	WalletBalanceCents int64
	UpdatedAt          time.Time
}

// Provider is the snapshot of a marketplace provider that checkout needs:
// identity, branding, and the voucher discount it grants.
type Provider struct {
	ID                     string
	Name                   string
	LogoURL                string
	VoucherDiscountPercent int
	Active                 bool
}
