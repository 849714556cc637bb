// File: internal/usecase/finalizer_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"membership-marketplace/internal/domain"
	"membership-marketplace/internal/domain/model"
	"membership-marketplace/internal/domain/ports/adapter"
	"membership-marketplace/internal/domain/ports/repository"
	"membership-marketplace/internal/infra/metrics"
)

// Compile-time check
var _ FinalizerUseCase = (*finalizerUC)(nil)

// FinalizerUseCase converts a settled payment intent into exactly one durable
// business outcome. Every entry point (webhook, mock checkout, reconciler)
// routes through the same atomic claim before producing side effects.
type FinalizerUseCase interface {
	// HandleNotification maps a gateway callback onto the claim-and-finalize
	// path. Failure outcomes move the intent to failed with no fulfillment.
	HandleNotification(ctx context.Context, gatewayName string, n adapter.Notification) error
	// Finalize claims the pending->paid transition and, if this caller won,
	// performs the fulfillment side effect chosen by the intent kind.
	Finalize(ctx context.Context, intentID string) error
}

// CycleAdvancer is the slice of the billing use case the finalizer needs for
// subscription intents. Declared here to keep the dependency one-directional.
type CycleAdvancer interface {
	AdvanceCycle(ctx context.Context, tx repository.Tx, sub *model.Subscription, intent *model.PaymentIntent) error
	ApplyUpgrade(ctx context.Context, tx repository.Tx, sub *model.Subscription, intent *model.PaymentIntent) error
}

type finalizerUC struct {
	tm          repository.TransactionManager
	intents     repository.PaymentIntentRepository
	memPayments repository.MembershipPaymentRepository
	memberships repository.UserMembershipRepository
	vouchers    repository.VoucherRepository
	orders      repository.OrderRepository
	carts       repository.CartRepository
	subs        repository.SubscriptionRepository
	billing     CycleAdvancer
	gateways    map[string]adapter.PaymentGateway
	orderExpiry time.Duration
	log         *zerolog.Logger
}

func NewFinalizerUseCase(
	tm repository.TransactionManager,
	intents repository.PaymentIntentRepository,
	memPayments repository.MembershipPaymentRepository,
	memberships repository.UserMembershipRepository,
	vouchers repository.VoucherRepository,
	orders repository.OrderRepository,
	carts repository.CartRepository,
	subs repository.SubscriptionRepository,
	billing CycleAdvancer,
	gateways map[string]adapter.PaymentGateway,
	orderExpiry time.Duration,
	logger *zerolog.Logger,
) *finalizerUC {
	l := logger.With().Str("component", "finalizer").Logger()
	return &finalizerUC{
		tm:          tm,
		intents:     intents,
		memPayments: memPayments,
		memberships: memberships,
		vouchers:    vouchers,
		orders:      orders,
		carts:       carts,
		subs:        subs,
		billing:     billing,
		gateways:    gateways,
		orderExpiry: orderExpiry,
		log:         &l,
	}
}

func (u *finalizerUC) HandleNotification(ctx context.Context, gatewayName string, n adapter.Notification) error {
	if n.ExternalRef == "" {
		return domain.ErrInvalidArgument
	}
	intent, err := u.intents.FindByExternalRef(ctx, nil, gatewayName, n.ExternalRef)
	if err != nil {
		return err
	}
	if !n.Succeeded {
		moved, err := u.intents.MarkFailedIfPending(ctx, nil, intent.ID)
		if err != nil {
			return err
		}
		if moved {
			metrics.IncIntent(string(intent.Kind), "failed")
			u.log.Info().Str("intent_id", intent.ID).Str("gateway", gatewayName).Msg("intent marked failed by gateway notification")
		}
		return nil
	}
	return u.Finalize(ctx, intent.ID)
}

func (u *finalizerUC) Finalize(ctx context.Context, intentID string) error {
	intent, err := u.intents.FindByID(ctx, nil, intentID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	won, err := u.intents.ClaimPaid(ctx, nil, intent.ID, now)
	if err != nil {
		return err
	}
	if !won {
		// Lost the race or the intent is already terminal; someone else
		// fulfilled it. No further side effects.
		u.log.Debug().Str("intent_id", intent.ID).Msg("claim lost; intent already finalized")
		return nil
	}
	intent.Status = model.IntentStatusPaid
	intent.PaidAt = &now

	switch intent.Kind {
	case model.IntentKindMembershipPurchase:
		err = u.fulfillMembership(ctx, intent, now)
	case model.IntentKindProviderPurchase:
		if intent.VoucherPayload != nil {
			err = u.fulfillVoucher(ctx, intent)
		} else {
			err = u.fulfillOrder(ctx, intent, now)
		}
	case model.IntentKindSubscriptionCharge:
		err = u.fulfillSubscription(ctx, intent)
	case model.IntentKindUpgradeProration:
		err = u.fulfillUpgrade(ctx, intent)
	default:
		err = fmt.Errorf("%w: unknown intent kind %q", domain.ErrInvalidArgument, intent.Kind)
	}
	if err != nil {
		u.log.Error().Err(err).Str("intent_id", intent.ID).Str("kind", string(intent.Kind)).Msg("fulfillment failed after claim")
		return err
	}
	metrics.IncIntent(string(intent.Kind), "paid")
	metrics.AddRevenue(intent.Currency, intent.AmountCents)
	metrics.IncFulfillment(string(intent.Kind))
	u.log.Info().Str("intent_id", intent.ID).Str("kind", string(intent.Kind)).Msg("intent finalized")
	return nil
}

// fulfillMembership marks the linked billing record paid and extends or
// creates the user's membership. Renewing the same plan extends from the
// existing end date; switching plans restarts the window at now, with no
// proration for time left on the old plan.
func (u *finalizerUC) fulfillMembership(ctx context.Context, intent *model.PaymentIntent, now time.Time) error {
	if intent.MembershipPaymentID == nil {
		u.log.Warn().Str("intent_id", intent.ID).Msg("membership intent without payment link")
		return nil
	}
	return u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		moved, err := u.memPayments.MarkPaidIfPending(ctx, tx, *intent.MembershipPaymentID)
		if err != nil {
			return err
		}
		if !moved {
			// Second guard behind the claim: the record was already paid.
			return nil
		}
		mp, err := u.memPayments.FindByID(ctx, tx, *intent.MembershipPaymentID)
		if err != nil {
			return err
		}

		existing, err := u.memberships.FindByUser(ctx, tx, mp.UserID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		if existing == nil {
			m := &model.UserMembership{
				ID:        uuid.NewString(),
				UserID:    mp.UserID,
				PlanID:    mp.PlanID,
				StartDate: now,
				EndDate:   now.AddDate(0, 0, mp.Days),
				IsActive:  true,
				CreatedAt: now,
				UpdatedAt: now,
			}
			return u.memberships.Save(ctx, tx, m)
		}

		if existing.PlanID == mp.PlanID {
			// Renewal: extend from the existing end date.
			existing.EndDate = existing.EndDate.AddDate(0, 0, mp.Days)
		} else {
			// Plan switch takes effect immediately; the old window is
			// forfeited.
			existing.PlanID = mp.PlanID
			existing.StartDate = now
			existing.EndDate = now.AddDate(0, 0, mp.Days)
		}
		existing.IsActive = true
		existing.UpdatedAt = now
		return u.memberships.Save(ctx, tx, existing)
	})
}

func (u *finalizerUC) fulfillVoucher(ctx context.Context, intent *model.PaymentIntent) error {
	if intent.UserID == nil || intent.ProviderID == nil {
		return fmt.Errorf("%w: voucher intent missing user or provider", domain.ErrInvalidArgument)
	}
	p := intent.VoucherPayload
	v, err := model.NewVoucher(uuid.NewString(), *intent.ProviderID, p.ProviderName, *intent.UserID,
		p.FaceValueCents, intent.AmountCents, p.DiscountPercent)
	if err != nil {
		return err
	}
	v.LogoURL = p.LogoURL
	v.Currency = intent.Currency
	v.Name = fmt.Sprintf("%s Voucher %d %s", p.ProviderName, p.FaceValueCents/100, intent.Currency)
	return u.vouchers.Save(ctx, nil, v)
}

// fulfillOrder snapshots the actor's cart into an order and clears the cart.
// An empty cart at this point means money was captured with nothing to ship:
// the charge is refunded through the gateway rather than held.
func (u *finalizerUC) fulfillOrder(ctx context.Context, intent *model.PaymentIntent, now time.Time) error {
	actor := intent.Actor()
	cart, err := u.carts.FindByActor(ctx, nil, actor)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if cart == nil || len(cart.Items) == 0 {
		return u.refundEmptyCart(ctx, intent)
	}

	providerID := cart.ProviderID
	if intent.ProviderID != nil {
		providerID = *intent.ProviderID
	}
	order, err := model.NewOrder(uuid.NewString(), actor, providerID, cart.Snapshot(), intent.AmountCents,
		model.OrderPayment{Gateway: intent.Gateway, IntentID: intent.ID, PaidAt: now}, u.orderExpiry)
	if err != nil {
		return err
	}

	return u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := u.orders.Save(ctx, tx, order); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				// An order for this intent already exists.
				return nil
			}
			return err
		}
		return u.carts.Clear(ctx, tx, actor)
	})
}

func (u *finalizerUC) refundEmptyCart(ctx context.Context, intent *model.PaymentIntent) error {
	u.log.Warn().Str("intent_id", intent.ID).Msg("paid intent with empty cart; refunding")
	gw, ok := u.gateways[intent.Gateway]
	if !ok || intent.ExternalRef == nil {
		return fmt.Errorf("%w: cannot refund intent %s", domain.ErrGatewayUnavailable, intent.ID)
	}
	if err := gw.Refund(ctx, *intent.ExternalRef, intent.AmountCents); err != nil {
		return fmt.Errorf("refund empty-cart intent %s: %w", intent.ID, err)
	}
	return nil
}

func (u *finalizerUC) fulfillSubscription(ctx context.Context, intent *model.PaymentIntent) error {
	if intent.SubscriptionID == nil {
		u.log.Warn().Str("intent_id", intent.ID).Msg("subscription intent without subscription link")
		return nil
	}
	return u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		sub, err := u.subs.FindByID(ctx, tx, *intent.SubscriptionID)
		if err != nil {
			return err
		}
		return u.billing.AdvanceCycle(ctx, tx, sub, intent)
	})
}

func (u *finalizerUC) fulfillUpgrade(ctx context.Context, intent *model.PaymentIntent) error {
	if intent.SubscriptionID == nil {
		u.log.Warn().Str("intent_id", intent.ID).Msg("upgrade intent without subscription link")
		return nil
	}
	return u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		sub, err := u.subs.FindByID(ctx, tx, *intent.SubscriptionID)
		if err != nil {
			return err
		}
		return u.billing.ApplyUpgrade(ctx, tx, sub, intent)
	})
}
