package model

import (
	"time"

	"membership-marketplace/internal/domain"
)

type BillingCycle string

const (
	CycleMonthly BillingCycle = "monthly"
	CycleYearly  BillingCycle = "yearly"
)

// Days returns the day-length of one billing cycle.
func (c BillingCycle) Days() int {
	if c == CycleYearly {
		return 365
	}
	return 30
}

// MembershipPlan is a purchasable membership tier.
type MembershipPlan struct {
	ID         string
	Name       string
	PriceCents int64 // price per cycle
	ImageURL   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type MembershipPaymentStatus string

const (
	MembershipPaymentPending MembershipPaymentStatus = "pending"
	MembershipPaymentPaid    MembershipPaymentStatus = "paid"
	MembershipPaymentFailed  MembershipPaymentStatus = "failed"
)

// MembershipPayment is the billing record for one membership purchase or
// renewal cycle. It is created pending alongside the payment intent and
// marked paid exactly once by the finalizer.
type MembershipPayment struct {
	ID          string
	UserID      string
	PlanID      string
	Cycle       BillingCycle
	Days        int // cycle length snapshotted at purchase time
	AmountCents int64
	Status      MembershipPaymentStatus
	IntentID    *string
	PaidAt      *time.Time
	CreatedAt   time.Time
}

func NewMembershipPayment(id, userID, planID string, cycle BillingCycle, amountCents int64) (*MembershipPayment, error) {
	if id == "" || userID == "" || planID == "" || amountCents <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &MembershipPayment{
		ID:          id,
		UserID:      userID,
		PlanID:      planID,
		Cycle:       cycle,
		Days:        cycle.Days(),
		AmountCents: amountCents,
		Status:      MembershipPaymentPending,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// UserMembership is the current membership state for a user. At most one
// document exists per user; extension always operates on EndDate and never
// creates overlapping periods.
type UserMembership struct {
	ID         string
	UserID     string
	PlanID     string
	StartDate  time.Time
	EndDate    time.Time
	CardCode   string
	IsActive   bool
	LastScanAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Valid reports whether the membership covers the given instant.
func (m *UserMembership) Valid(now time.Time) bool {
	return m.IsActive && !now.Before(m.StartDate) && !now.After(m.EndDate)
}
