package model

import (
	"time"

	"membership-marketplace/internal/domain"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusPastDue  SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
)

// Subscription is a recurring-charge agreement billed against a stored card
// token. A deferred downgrade is modelled by the Pending* pair: both nil
// means no pending change; both set means "switch to that plan at the next
// successful cycle boundary". Downgrades never take effect mid-cycle.
type Subscription struct {
	ID          string
	UserID      string
	PlanID      string
	AmountCents int64
	Currency    string

	// CardToken is stored AES-GCM encrypted; decrypt only at charge time.
	CardToken string
	CardLast4 string

	PendingPlanID      *string
	PendingAmountCents *int64

	CurrentCycle  int // monotonic billing cycle counter
	NextBillingAt time.Time
	RetryCount    int

	// Processing is the per-subscription charge claim: a scheduler run must
	// flip it false->true with a conditional update before charging, so
	// overlapping runs cannot double-charge a cycle between the invoice
	// check and the gateway call.
	Processing bool

	Status    SubscriptionStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewSubscription(id, userID, planID string, amountCents int64, currency, cardToken, cardLast4 string, firstBillingAt time.Time) (*Subscription, error) {
	if id == "" || userID == "" || planID == "" || amountCents <= 0 || cardToken == "" {
		return nil, domain.ErrInvalidArgument
	}
	if currency == "" {
		currency = "SAR"
	}
	now := time.Now().UTC()
	return &Subscription{
		ID:            id,
		UserID:        userID,
		PlanID:        planID,
		AmountCents:   amountCents,
		Currency:      currency,
		CardToken:     cardToken,
		CardLast4:     cardLast4,
		CurrentCycle:  1,
		NextBillingAt: firstBillingAt,
		Status:        SubscriptionStatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// HasPendingChange reports whether a deferred downgrade is queued.
func (s *Subscription) HasPendingChange() bool {
	return s.PendingPlanID != nil && s.PendingAmountCents != nil
}

// ApplyPendingChange swaps in the deferred plan and clears the pending pair.
// Called only inside the cycle-advance transition.
func (s *Subscription) ApplyPendingChange() {
	if !s.HasPendingChange() {
		return
	}
	s.PlanID = *s.PendingPlanID
	s.AmountCents = *s.PendingAmountCents
	s.PendingPlanID = nil
	s.PendingAmountCents = nil
}

type InvoiceStatus string

const (
	InvoiceStatusPaid   InvoiceStatus = "paid"
	InvoiceStatusFailed InvoiceStatus = "failed"
)

// SubscriptionInvoice records one billing attempt for one cycle. The unique
// (SubscriptionID, BillingCycle) pair is the idempotency guard that prevents
// double-charging a cycle.
type SubscriptionInvoice struct {
	ID             string
	SubscriptionID string
	BillingCycle   int
	AmountCents    int64
	IntentID       *string
	ExternalRef    string
	Status         InvoiceStatus
	BilledAt       time.Time
}
