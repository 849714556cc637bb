//go:build !integration

// File: internal/usecase/checkout_uc_test.go
package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"membership-marketplace/internal/domain"
	"membership-marketplace/internal/domain/model"
	"membership-marketplace/internal/domain/ports/adapter"
	"membership-marketplace/internal/usecase"
)

type checkoutDeps struct {
	intents     *MockIntentRepo
	carts       *MockCartRepo
	providers   *MockProviderRepo
	plans       *MockPlanRepo
	memPayments *MockMembershipPaymentRepo
	memberships *MockUserMembershipRepo
	vouchers    *MockVoucherRepo
	orders      *MockOrderRepo
	subs        *MockSubscriptionRepo
	gateway     *MockGateway
	uc          usecase.CheckoutUseCase
}

// newCheckoutDeps wires a checkout against a real finalizer so mock-mode
// settlement runs the genuine fulfillment path.
func newCheckoutDeps() *checkoutDeps {
	d := &checkoutDeps{
		intents:     NewMockIntentRepo(),
		carts:       NewMockCartRepo(),
		providers:   NewMockProviderRepo(),
		plans:       NewMockPlanRepo(),
		memPayments: NewMockMembershipPaymentRepo(),
		memberships: NewMockUserMembershipRepo(),
		vouchers:    NewMockVoucherRepo(),
		orders:      NewMockOrderRepo(),
		subs:        NewMockSubscriptionRepo(),
		gateway:     NewMockGateway("mock"),
	}
	gateways := map[string]adapter.PaymentGateway{"mock": d.gateway}
	finalizer := usecase.NewFinalizerUseCase(
		NewMockTxManager(),
		d.intents, d.memPayments, d.memberships, d.vouchers, d.orders, d.carts, d.subs,
		&stubAdvancer{}, gateways, 5*time.Minute, newTestLogger(),
	)
	d.uc = usecase.NewCheckoutUseCase(
		d.intents, d.carts, d.providers, d.plans, d.memPayments,
		gateways, finalizer, newTestLogger(),
	)
	return d
}

func TestCheckout_CartCreatesPendingIntent(t *testing.T) {
	ctx := context.Background()
	d := newCheckoutDeps()
	d.gateway.IsConfigured = true

	uid := "user-1"
	cart := &model.Cart{ID: "c1", UserID: &uid, ProviderID: "prov-1", Items: []model.CartItem{
		{ProductID: "p1", Name: "Shake", PriceCents: 2500, Quantity: 2},
		{ProductID: "p2", Name: "Towel", PriceCents: 1500, Quantity: 1},
	}}
	if err := d.carts.Save(ctx, nil, cart); err != nil {
		t.Fatalf("save cart: %v", err)
	}

	res, err := d.uc.CheckoutCart(ctx, model.Actor{UserID: uid}, "", "mock")
	if err != nil {
		t.Fatalf("CheckoutCart: %v", err)
	}
	if res.AmountCents != 6500 {
		t.Fatalf("want total 6500, got %d", res.AmountCents)
	}
	if res.Status != model.IntentStatusPending {
		t.Fatalf("configured gateway must leave the intent pending, got %s", res.Status)
	}
	if res.ExternalRef == "" {
		t.Fatal("external ref must be recorded at charge creation")
	}

	stored, err := d.intents.FindByExternalRef(ctx, nil, "mock", res.ExternalRef)
	if err != nil {
		t.Fatalf("intent not findable by ref: %v", err)
	}
	if stored.Kind != model.IntentKindProviderPurchase {
		t.Fatalf("want provider_purchase, got %s", stored.Kind)
	}
	// The cart survives until settlement.
	if _, err := d.carts.FindByActor(ctx, nil, model.Actor{UserID: uid}); err != nil {
		t.Fatal("cart must not be cleared before the webhook")
	}
}

func TestCheckout_EmptyCartRejected(t *testing.T) {
	ctx := context.Background()
	d := newCheckoutDeps()

	_, err := d.uc.CheckoutCart(ctx, model.Actor{UserID: "nobody"}, "", "mock")
	if !errors.Is(err, domain.ErrEmptyCart) {
		t.Fatalf("want ErrEmptyCart, got %v", err)
	}
}

func TestCheckout_MockModeSettlesThroughFinalizer(t *testing.T) {
	ctx := context.Background()
	d := newCheckoutDeps()
	// gateway unconfigured: mock mode

	sid := "sess-9"
	cart := &model.Cart{ID: "c2", SessionID: &sid, ProviderID: "prov-1", Items: []model.CartItem{
		{ProductID: "p1", Name: "Shake", PriceCents: 3000, Quantity: 1},
	}}
	if err := d.carts.Save(ctx, nil, cart); err != nil {
		t.Fatalf("save cart: %v", err)
	}

	res, err := d.uc.CheckoutCart(ctx, model.Actor{SessionID: sid}, "", "mock")
	if err != nil {
		t.Fatalf("CheckoutCart: %v", err)
	}
	if res.Status != model.IntentStatusPaid {
		t.Fatalf("mock mode must settle synchronously, got %s", res.Status)
	}

	order, err := d.orders.FindByIntent(ctx, nil, res.IntentID)
	if err != nil {
		t.Fatalf("mock settlement must fulfill the order: %v", err)
	}
	if order.SessionID == nil || *order.SessionID != sid {
		t.Fatal("order must belong to the guest session")
	}
	if _, err := d.carts.FindByActor(ctx, nil, model.Actor{SessionID: sid}); err == nil {
		t.Fatal("cart must be cleared after mock settlement")
	}
}

func TestCheckout_VoucherAppliesProviderDiscount(t *testing.T) {
	ctx := context.Background()
	d := newCheckoutDeps()
	d.providers.Put(&model.Provider{ID: "prov-1", Name: "Gym Co", VoucherDiscountPercent: 15, Active: true})

	res, err := d.uc.PurchaseVoucher(ctx, model.Actor{UserID: "user-2"}, "prov-1", 10000, "mock")
	if err != nil {
		t.Fatalf("PurchaseVoucher: %v", err)
	}
	if res.AmountCents != 8500 {
		t.Fatalf("want discounted price 8500, got %d", res.AmountCents)
	}

	// Mock mode settled: one voucher with the full face value.
	vs, _ := d.vouchers.ListByOwner(ctx, nil, "user-2")
	if len(vs) != 1 {
		t.Fatalf("want 1 voucher, got %d", len(vs))
	}
	v := vs[0]
	if v.FaceValueCents != 10000 || v.PriceCents != 8500 {
		t.Fatalf("voucher value mismatch: face=%d price=%d", v.FaceValueCents, v.PriceCents)
	}
	if v.Status != model.VoucherStatusUnused {
		t.Fatalf("new voucher must be unused, got %s", v.Status)
	}
}

func TestCheckout_VoucherRequiresAccountAndActiveProvider(t *testing.T) {
	ctx := context.Background()
	d := newCheckoutDeps()
	d.providers.Put(&model.Provider{ID: "prov-off", Name: "Closed", Active: false})

	if _, err := d.uc.PurchaseVoucher(ctx, model.Actor{SessionID: "sess-1"}, "prov-off", 10000, "mock"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("guest voucher purchase must fail, got %v", err)
	}
	if _, err := d.uc.PurchaseVoucher(ctx, model.Actor{UserID: "u"}, "prov-off", 10000, "mock"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("inactive provider must fail, got %v", err)
	}
}

func TestCheckout_MembershipYearlyMultipliesPrice(t *testing.T) {
	ctx := context.Background()
	d := newCheckoutDeps()
	d.gateway.IsConfigured = true
	if err := d.plans.Save(ctx, nil, &model.MembershipPlan{ID: "plan-a", Name: "Gold", PriceCents: 5000}); err != nil {
		t.Fatalf("save plan: %v", err)
	}

	res, err := d.uc.PurchaseMembership(ctx, "user-3", "plan-a", model.CycleYearly, "mock")
	if err != nil {
		t.Fatalf("PurchaseMembership: %v", err)
	}
	if res.AmountCents != 60000 {
		t.Fatalf("yearly = 12x monthly, got %d", res.AmountCents)
	}

	intent, _ := d.intents.FindByID(ctx, nil, res.IntentID)
	if intent.MembershipPaymentID == nil {
		t.Fatal("intent must link the membership payment")
	}
	mp, err := d.memPayments.FindByID(ctx, nil, *intent.MembershipPaymentID)
	if err != nil {
		t.Fatalf("membership payment missing: %v", err)
	}
	if mp.Status != model.MembershipPaymentPending {
		t.Fatalf("billing record must start pending, got %s", mp.Status)
	}
	if mp.Days != 365 {
		t.Fatalf("yearly cycle snapshots 365 days, got %d", mp.Days)
	}
}

func TestCheckout_GatewayFailureMarksIntentFailed(t *testing.T) {
	ctx := context.Background()
	d := newCheckoutDeps()
	d.gateway.CreateChargeErr = errors.New("provider down")
	d.providers.Put(&model.Provider{ID: "prov-1", Name: "Gym Co", Active: true})

	_, err := d.uc.PurchaseVoucher(ctx, model.Actor{UserID: "user-4"}, "prov-1", 10000, "mock")
	if !errors.Is(err, domain.ErrGatewayUnavailable) {
		t.Fatalf("want ErrGatewayUnavailable, got %v", err)
	}
}
