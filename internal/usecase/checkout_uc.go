// File: internal/usecase/checkout_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"membership-marketplace/internal/domain"
	"membership-marketplace/internal/domain/model"
	"membership-marketplace/internal/domain/ports/adapter"
	"membership-marketplace/internal/domain/ports/repository"
)

// Compile-time check
var _ CheckoutUseCase = (*checkoutUC)(nil)

// CheckoutResult is what a purchase endpoint returns to the client. In mock
// mode the intent is already paid and ExternalRef carries the synthetic ref.
type CheckoutResult struct {
	IntentID    string
	ExternalRef string
	AmountCents int64
	Currency    string
	Status      model.IntentStatus
}

// CheckoutUseCase creates pending payment intents and the matching gateway
// charges. It never fulfills anything itself; settlement always flows
// through the finalizer, whether it arrives by webhook or is synthesized in
// mock mode.
type CheckoutUseCase interface {
	CheckoutCart(ctx context.Context, actor model.Actor, providerID, gatewayName string) (*CheckoutResult, error)
	PurchaseVoucher(ctx context.Context, actor model.Actor, providerID string, faceValueCents int64, gatewayName string) (*CheckoutResult, error)
	PurchaseMembership(ctx context.Context, userID, planID string, cycle model.BillingCycle, gatewayName string) (*CheckoutResult, error)
	IntentStatus(ctx context.Context, intentID string) (*model.PaymentIntent, error)
}

type checkoutUC struct {
	intents     repository.PaymentIntentRepository
	carts       repository.CartRepository
	providers   repository.ProviderRepository
	plans       repository.MembershipPlanRepository
	memPayments repository.MembershipPaymentRepository
	gateways    map[string]adapter.PaymentGateway
	finalizer   FinalizerUseCase
	log         *zerolog.Logger
}

func NewCheckoutUseCase(
	intents repository.PaymentIntentRepository,
	carts repository.CartRepository,
	providers repository.ProviderRepository,
	plans repository.MembershipPlanRepository,
	memPayments repository.MembershipPaymentRepository,
	gateways map[string]adapter.PaymentGateway,
	finalizer FinalizerUseCase,
	logger *zerolog.Logger,
) *checkoutUC {
	l := logger.With().Str("component", "checkout").Logger()
	return &checkoutUC{
		intents:     intents,
		carts:       carts,
		providers:   providers,
		plans:       plans,
		memPayments: memPayments,
		gateways:    gateways,
		finalizer:   finalizer,
		log:         &l,
	}
}

func (u *checkoutUC) gateway(name string) (adapter.PaymentGateway, error) {
	gw, ok := u.gateways[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown gateway %q", domain.ErrInvalidArgument, name)
	}
	return gw, nil
}

func (u *checkoutUC) CheckoutCart(ctx context.Context, actor model.Actor, providerID, gatewayName string) (*CheckoutResult, error) {
	if !actor.Valid() {
		return nil, domain.ErrInvalidArgument
	}
	gw, err := u.gateway(gatewayName)
	if err != nil {
		return nil, err
	}

	cart, err := u.carts.FindByActor(ctx, nil, actor)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrEmptyCart
		}
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, domain.ErrEmptyCart
	}
	if providerID == "" {
		providerID = cart.ProviderID
	}

	intent, err := model.NewPaymentIntent(uuid.NewString(), actor,
		model.IntentKindProviderPurchase, gw.Name(), cart.TotalCents(), "")
	if err != nil {
		return nil, err
	}
	intent.ProviderID = &providerID
	if err := u.intents.Save(ctx, nil, intent); err != nil {
		return nil, err
	}
	return u.charge(ctx, gw, intent)
}

func (u *checkoutUC) PurchaseVoucher(ctx context.Context, actor model.Actor, providerID string, faceValueCents int64, gatewayName string) (*CheckoutResult, error) {
	if !actor.Valid() || actor.UserID == "" {
		// Vouchers belong to an account; guests cannot hold one.
		return nil, domain.ErrInvalidArgument
	}
	if faceValueCents <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	gw, err := u.gateway(gatewayName)
	if err != nil {
		return nil, err
	}
	provider, err := u.providers.FindByID(ctx, nil, providerID)
	if err != nil {
		return nil, err
	}
	if !provider.Active {
		return nil, fmt.Errorf("%w: provider %s is inactive", domain.ErrInvalidArgument, providerID)
	}

	price := faceValueCents - faceValueCents*int64(provider.VoucherDiscountPercent)/100
	if price <= 0 {
		return nil, domain.ErrInvalidArgument
	}

	intent, err := model.NewPaymentIntent(uuid.NewString(), actor,
		model.IntentKindProviderPurchase, gw.Name(), price, "")
	if err != nil {
		return nil, err
	}
	intent.ProviderID = &provider.ID
	intent.VoucherPayload = &model.VoucherPayload{
		FaceValueCents:  faceValueCents,
		DiscountPercent: provider.VoucherDiscountPercent,
		ProviderName:    provider.Name,
		LogoURL:         provider.LogoURL,
	}
	if err := u.intents.Save(ctx, nil, intent); err != nil {
		return nil, err
	}
	return u.charge(ctx, gw, intent)
}

func (u *checkoutUC) PurchaseMembership(ctx context.Context, userID, planID string, cycle model.BillingCycle, gatewayName string) (*CheckoutResult, error) {
	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if cycle != model.CycleMonthly && cycle != model.CycleYearly {
		return nil, domain.ErrInvalidArgument
	}
	gw, err := u.gateway(gatewayName)
	if err != nil {
		return nil, err
	}
	plan, err := u.plans.FindByID(ctx, nil, planID)
	if err != nil {
		return nil, err
	}

	amount := plan.PriceCents
	if cycle == model.CycleYearly {
		amount = plan.PriceCents * 12
	}

	mp, err := model.NewMembershipPayment(uuid.NewString(), userID, plan.ID, cycle, amount)
	if err != nil {
		return nil, err
	}

	intent, err := model.NewPaymentIntent(uuid.NewString(), model.Actor{UserID: userID},
		model.IntentKindMembershipPurchase, gw.Name(), amount, "")
	if err != nil {
		return nil, err
	}
	intent.MembershipPaymentID = &mp.ID
	mp.IntentID = &intent.ID

	if err := u.memPayments.Save(ctx, nil, mp); err != nil {
		return nil, err
	}
	if err := u.intents.Save(ctx, nil, intent); err != nil {
		return nil, err
	}
	return u.charge(ctx, gw, intent)
}

func (u *checkoutUC) IntentStatus(ctx context.Context, intentID string) (*model.PaymentIntent, error) {
	if intentID == "" {
		return nil, domain.ErrInvalidArgument
	}
	return u.intents.FindByID(ctx, nil, intentID)
}

// charge creates the provider-side charge and records its external ref. With
// an unconfigured gateway the charge settles instantly: a synthesized success
// notification runs through the same path a real webhook would.
func (u *checkoutUC) charge(ctx context.Context, gw adapter.PaymentGateway, intent *model.PaymentIntent) (*CheckoutResult, error) {
	meta := adapter.ChargeMeta{"intent_id": intent.ID, "kind": string(intent.Kind)}
	ref, err := gw.CreateCharge(ctx, intent.AmountCents, intent.Currency, meta)
	if err != nil {
		_, _ = u.intents.MarkFailedIfPending(ctx, nil, intent.ID)
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	if err := u.intents.SetExternalRef(ctx, nil, intent.ID, ref); err != nil {
		return nil, err
	}

	status := model.IntentStatusPending
	if !gw.Configured() {
		n := adapter.Notification{
			ExternalRef: ref,
			Succeeded:   true,
			AmountCents: intent.AmountCents,
		}
		if err := u.finalizer.HandleNotification(ctx, gw.Name(), n); err != nil {
			u.log.Error().Err(err).Str("intent_id", intent.ID).Msg("mock settlement failed")
			return nil, err
		}
		status = model.IntentStatusPaid
	}

	return &CheckoutResult{
		IntentID:    intent.ID,
		ExternalRef: ref,
		AmountCents: intent.AmountCents,
		Currency:    intent.Currency,
		Status:      status,
	}, nil
}
