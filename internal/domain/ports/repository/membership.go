package repository

import (
	"context"

	"membership-marketplace/internal/domain/model"
)

type MembershipPlanRepository interface {
	Save(ctx context.Context, tx Tx, p *model.MembershipPlan) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.MembershipPlan, error)
	ListAll(ctx context.Context, tx Tx) ([]*model.MembershipPlan, error)
	Delete(ctx context.Context, tx Tx, id string) error
}

type MembershipPaymentRepository interface {
	Save(ctx context.Context, tx Tx, mp *model.MembershipPayment) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.MembershipPayment, error)
	// MarkPaidIfPending is the defensive double-guard behind the intent
	// claim: it flips pending->paid conditionally and reports whether this
	// caller performed the transition.
	MarkPaidIfPending(ctx context.Context, tx Tx, id string) (bool, error)
}

type UserMembershipRepository interface {
	// Save upserts on UserID: at most one membership document per user.
	Save(ctx context.Context, tx Tx, m *model.UserMembership) error
	FindByUser(ctx context.Context, tx Tx, userID string) (*model.UserMembership, error)
	TouchScan(ctx context.Context, tx Tx, id string) error
}
