package model

import (
	"time"

	"membership-marketplace/internal/domain"
)

type IntentKind string

const (
	IntentKindProviderPurchase   IntentKind = "provider_purchase"   // cart checkout or voucher
	IntentKindMembershipPurchase IntentKind = "membership_purchase" // membership buy/renew
	IntentKindSubscriptionCharge IntentKind = "subscription_charge" // recurring billing cycle
	IntentKindUpgradeProration   IntentKind = "upgrade_proration"   // mid-cycle plan upgrade
)

type IntentStatus string

const (
	IntentStatusPending   IntentStatus = "pending"
	IntentStatusPaid      IntentStatus = "paid"
	IntentStatusFailed    IntentStatus = "failed"
	IntentStatusCancelled IntentStatus = "cancelled"
)

// Terminal reports whether no further transition is permitted.
func (s IntentStatus) Terminal() bool { return s != IntentStatusPending }

// Actor identifies who a charge is for: a registered customer or a guest
// session. Exactly one of the two must be set.
type Actor struct {
	UserID    string
	SessionID string
}

func (a Actor) Valid() bool {
	return (a.UserID != "") != (a.SessionID != "")
}

// VoucherPayload is embedded on a provider_purchase intent when the purchase
// is a voucher rather than a cart. The provider fields are snapshotted at
// intent-creation time so finalization never depends on the live record.
type VoucherPayload struct {
	FaceValueCents  int64  `json:"face_value_cents"`
	DiscountPercent int    `json:"discount_percent"`
	ProviderName    string `json:"provider_name"`
	LogoURL         string `json:"logo_url"`
}

// PaymentIntent records one unit of money movement. It is created pending by
// the checkout flow and owned by the finalizer until it reaches a terminal
// status. The pending->paid transition happens at most once, enforced by a
// conditional update in the repository, never by a read-then-write.
type PaymentIntent struct {
	ID         string
	UserID     *string
	SessionID  *string
	ProviderID *string

	Kind        IntentKind
	Gateway     string
	AmountCents int64
	Currency    string

	// ExternalRef is the gateway-assigned charge/order id; nil until the
	// charge has been created on the provider side.
	ExternalRef *string

	VoucherPayload      *VoucherPayload
	MembershipPaymentID *string
	SubscriptionID      *string
	// Upgrade target, present only for upgrade_proration.
	NewPlanID      *string
	NewAmountCents *int64

	Status    IntentStatus
	PaidAt    *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewPaymentIntent validates the actor and amount and returns a pending intent.
func NewPaymentIntent(id string, actor Actor, kind IntentKind, gateway string, amountCents int64, currency string) (*PaymentIntent, error) {
	if id == "" || gateway == "" || !actor.Valid() || amountCents <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	if currency == "" {
		currency = "SAR"
	}
	now := time.Now().UTC()
	p := &PaymentIntent{
		ID:          id,
		Kind:        kind,
		Gateway:     gateway,
		AmountCents: amountCents,
		Currency:    currency,
		Status:      IntentStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if actor.UserID != "" {
		uid := actor.UserID
		p.UserID = &uid
	} else {
		sid := actor.SessionID
		p.SessionID = &sid
	}
	return p, nil
}

// Actor reconstructs the actor from the stored pointers.
func (p *PaymentIntent) Actor() Actor {
	a := Actor{}
	if p.UserID != nil {
		a.UserID = *p.UserID
	}
	if p.SessionID != nil {
		a.SessionID = *p.SessionID
	}
	return a
}
