// File: internal/usecase/mock_test.go
package usecase_test

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"membership-marketplace/internal/domain"
	"membership-marketplace/internal/domain/model"
	"membership-marketplace/internal/domain/ports/adapter"
	"membership-marketplace/internal/domain/ports/repository"
)

// =============================
// Mock repositories
// =============================

// ---- Mock PaymentIntentRepository ----

type MockIntentRepo struct {
	mu    sync.Mutex
	data  map[string]*model.PaymentIntent
	byRef map[string]string // gateway+"/"+ref -> id

	SaveFunc      func(ctx context.Context, tx repository.Tx, p *model.PaymentIntent) error
	ClaimPaidFunc func(ctx context.Context, tx repository.Tx, id string, paidAt time.Time) (bool, error)
}

var _ repository.PaymentIntentRepository = (*MockIntentRepo)(nil)

func NewMockIntentRepo() *MockIntentRepo {
	return &MockIntentRepo{data: map[string]*model.PaymentIntent{}, byRef: map[string]string{}}
}

func (r *MockIntentRepo) Save(ctx context.Context, tx repository.Tx, p *model.PaymentIntent) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, p)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	cp := *p
	r.data[p.ID] = &cp
	if p.ExternalRef != nil {
		r.byRef[p.Gateway+"/"+*p.ExternalRef] = p.ID
	}
	return nil
}

func (r *MockIntentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PaymentIntent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *MockIntentRepo) FindByExternalRef(ctx context.Context, tx repository.Tx, gateway, ref string) (*model.PaymentIntent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byRef[gateway+"/"+ref]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *r.data[id]
	return &cp, nil
}

func (r *MockIntentRepo) SetExternalRef(ctx context.Context, tx repository.Tx, id, ref string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return domain.ErrNotFound
	}
	cp := ref
	p.ExternalRef = &cp
	r.byRef[p.Gateway+"/"+ref] = id
	return nil
}

func (r *MockIntentRepo) ClaimPaid(ctx context.Context, tx repository.Tx, id string, paidAt time.Time) (bool, error) {
	if r.ClaimPaidFunc != nil {
		return r.ClaimPaidFunc(ctx, tx, id, paidAt)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if p.Status != model.IntentStatusPending {
		return false, nil
	}
	p.Status = model.IntentStatusPaid
	t := paidAt
	p.PaidAt = &t
	return true, nil
}

func (r *MockIntentRepo) MarkFailedIfPending(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	return r.transitionIfPending(id, model.IntentStatusFailed)
}

func (r *MockIntentRepo) MarkCancelledIfPending(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	return r.transitionIfPending(id, model.IntentStatusCancelled)
}

func (r *MockIntentRepo) transitionIfPending(id string, to model.IntentStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if p.Status != model.IntentStatusPending {
		return false, nil
	}
	p.Status = to
	return true, nil
}

// ---- Mock MembershipPaymentRepository ----

type MockMembershipPaymentRepo struct {
	mu   sync.Mutex
	data map[string]*model.MembershipPayment

	MarkPaidIfPendingFunc func(ctx context.Context, tx repository.Tx, id string) (bool, error)
}

var _ repository.MembershipPaymentRepository = (*MockMembershipPaymentRepo)(nil)

func NewMockMembershipPaymentRepo() *MockMembershipPaymentRepo {
	return &MockMembershipPaymentRepo{data: map[string]*model.MembershipPayment{}}
}

func (r *MockMembershipPaymentRepo) Save(ctx context.Context, tx repository.Tx, mp *model.MembershipPayment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *mp
	r.data[mp.ID] = &cp
	return nil
}

func (r *MockMembershipPaymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.MembershipPayment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	mp, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *mp
	return &cp, nil
}

func (r *MockMembershipPaymentRepo) MarkPaidIfPending(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	if r.MarkPaidIfPendingFunc != nil {
		return r.MarkPaidIfPendingFunc(ctx, tx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	mp, ok := r.data[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if mp.Status != model.MembershipPaymentPending {
		return false, nil
	}
	mp.Status = model.MembershipPaymentPaid
	now := time.Now().UTC()
	mp.PaidAt = &now
	return true, nil
}

// ---- Mock MembershipPlanRepository ----

type MockPlanRepo struct {
	mu   sync.Mutex
	data map[string]*model.MembershipPlan
}

var _ repository.MembershipPlanRepository = (*MockPlanRepo)(nil)

func NewMockPlanRepo() *MockPlanRepo {
	return &MockPlanRepo{data: map[string]*model.MembershipPlan{}}
}

func (r *MockPlanRepo) Save(ctx context.Context, tx repository.Tx, p *model.MembershipPlan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.data[p.ID] = &cp
	return nil
}

func (r *MockPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.MembershipPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *MockPlanRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.MembershipPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.MembershipPlan, 0, len(r.data))
	for _, p := range r.data {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (r *MockPlanRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.data, id)
	return nil
}

// ---- Mock UserMembershipRepository ----

type MockUserMembershipRepo struct {
	mu     sync.Mutex
	byUser map[string]*model.UserMembership
}

var _ repository.UserMembershipRepository = (*MockUserMembershipRepo)(nil)

func NewMockUserMembershipRepo() *MockUserMembershipRepo {
	return &MockUserMembershipRepo{byUser: map[string]*model.UserMembership{}}
}

func (r *MockUserMembershipRepo) Save(ctx context.Context, tx repository.Tx, m *model.UserMembership) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *m
	r.byUser[m.UserID] = &cp
	return nil
}

func (r *MockUserMembershipRepo) FindByUser(ctx context.Context, tx repository.Tx, userID string) (*model.UserMembership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byUser[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *MockUserMembershipRepo) TouchScan(ctx context.Context, tx repository.Tx, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.byUser {
		if m.ID == id {
			now := time.Now().UTC()
			m.LastScanAt = &now
			return nil
		}
	}
	return domain.ErrNotFound
}

// ---- Mock VoucherRepository ----

type MockVoucherRepo struct {
	mu   sync.Mutex
	data map[string]*model.Voucher

	SaveFunc func(ctx context.Context, tx repository.Tx, v *model.Voucher) error
}

var _ repository.VoucherRepository = (*MockVoucherRepo)(nil)

func NewMockVoucherRepo() *MockVoucherRepo {
	return &MockVoucherRepo{data: map[string]*model.Voucher{}}
}

func (r *MockVoucherRepo) Save(ctx context.Context, tx repository.Tx, v *model.Voucher) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, v)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *v
	r.data[v.ID] = &cp
	return nil
}

func (r *MockVoucherRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Voucher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (r *MockVoucherRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.Voucher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.data {
		if v.Code != nil && *v.Code == code {
			cp := *v
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockVoucherRepo) ListByOwner(ctx context.Context, tx repository.Tx, userID string) ([]*model.Voucher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Voucher
	for _, v := range r.data {
		if v.OwnerUserID == userID {
			cp := *v
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MockVoucherRepo) SetCode(ctx context.Context, tx repository.Tx, id, code string, issuedAt, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.data[id]
	if !ok {
		return domain.ErrNotFound
	}
	c, ia, ea := code, issuedAt, expiresAt
	v.Code = &c
	v.CodeIssuedAt = &ia
	v.CodeExpiresAt = &ea
	return nil
}

func (r *MockVoucherRepo) RedeemByCode(ctx context.Context, tx repository.Tx, code string, now time.Time) (*model.Voucher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.data {
		if v.Code == nil || *v.Code != code {
			continue
		}
		if v.Status != model.VoucherStatusUnused {
			return nil, domain.ErrNotFound
		}
		if v.CodeExpiresAt == nil || !v.CodeExpiresAt.After(now) {
			return nil, domain.ErrNotFound
		}
		v.Status = model.VoucherStatusRedeemed
		t := now
		v.RedeemedAt = &t
		cp := *v
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

// ---- Mock OrderRepository ----

type MockOrderRepo struct {
	mu       sync.Mutex
	data     map[string]*model.Order
	byIntent map[string]string
}

var _ repository.OrderRepository = (*MockOrderRepo)(nil)

func NewMockOrderRepo() *MockOrderRepo {
	return &MockOrderRepo{data: map[string]*model.Order{}, byIntent: map[string]string{}}
}

func (r *MockOrderRepo) Save(ctx context.Context, tx repository.Tx, o *model.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.byIntent[o.Payment.IntentID]; dup {
		return domain.ErrConflict
	}
	cp := *o
	r.data[o.ID] = &cp
	r.byIntent[o.Payment.IntentID] = o.ID
	return nil
}

func (r *MockOrderRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *MockOrderRepo) FindByIntent(ctx context.Context, tx repository.Tx, intentID string) (*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byIntent[intentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *r.data[id]
	return &cp, nil
}

func (r *MockOrderRepo) ExpirePending(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, o := range r.data {
		if o.Status == model.OrderStatusPending && now.After(o.ExpiresAt) {
			o.Status = model.OrderStatusIgnored
			n++
		}
	}
	return n, nil
}

// ---- Mock CartRepository ----

type MockCartRepo struct {
	mu   sync.Mutex
	data map[string]*model.Cart // keyed by actor
}

var _ repository.CartRepository = (*MockCartRepo)(nil)

func NewMockCartRepo() *MockCartRepo {
	return &MockCartRepo{data: map[string]*model.Cart{}}
}

func actorKey(a model.Actor) string { return a.UserID + "|" + a.SessionID }

func (r *MockCartRepo) FindByActor(ctx context.Context, tx repository.Tx, actor model.Actor) (*model.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.data[actorKey(actor)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	cp.Items = append([]model.CartItem(nil), c.Items...)
	return &cp, nil
}

func (r *MockCartRepo) Save(ctx context.Context, tx repository.Tx, c *model.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := model.Actor{}
	if c.UserID != nil {
		a.UserID = *c.UserID
	}
	if c.SessionID != nil {
		a.SessionID = *c.SessionID
	}
	cp := *c
	cp.Items = append([]model.CartItem(nil), c.Items...)
	r.data[actorKey(a)] = &cp
	return nil
}

func (r *MockCartRepo) Clear(ctx context.Context, tx repository.Tx, actor model.Actor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.data, actorKey(actor))
	return nil
}

// ---- Mock ProviderRepository ----

type MockProviderRepo struct {
	mu   sync.Mutex
	data map[string]*model.Provider
}

var _ repository.ProviderRepository = (*MockProviderRepo)(nil)

func NewMockProviderRepo() *MockProviderRepo {
	return &MockProviderRepo{data: map[string]*model.Provider{}}
}

func (r *MockProviderRepo) Put(p *model.Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.data[p.ID] = &cp
}

func (r *MockProviderRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// ---- Mock SubscriptionRepository ----

type MockSubscriptionRepo struct {
	mu   sync.Mutex
	data map[string]*model.Subscription

	BeginProcessingFunc func(ctx context.Context, tx repository.Tx, id string) (bool, error)
}

var _ repository.SubscriptionRepository = (*MockSubscriptionRepo)(nil)

func NewMockSubscriptionRepo() *MockSubscriptionRepo {
	return &MockSubscriptionRepo{data: map[string]*model.Subscription{}}
}

func (r *MockSubscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	// Preserve the claim flag owned by Begin/EndProcessing.
	if cur, ok := r.data[s.ID]; ok {
		cp.Processing = cur.Processing
	}
	r.data[s.ID] = &cp
	return nil
}

func (r *MockSubscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *MockSubscriptionRepo) FindActiveByUser(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.data {
		if s.UserID == userID && s.Status == model.SubscriptionStatusActive {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockSubscriptionRepo) ListDue(ctx context.Context, tx repository.Tx, now time.Time, limit int) ([]*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Subscription
	for _, s := range r.data {
		if s.Status == model.SubscriptionStatusActive && !s.NextBillingAt.After(now) {
			cp := *s
			out = append(out, &cp)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (r *MockSubscriptionRepo) BeginProcessing(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	if r.BeginProcessingFunc != nil {
		return r.BeginProcessingFunc(ctx, tx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.data[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if s.Processing {
		return false, nil
	}
	s.Processing = true
	return true, nil
}

func (r *MockSubscriptionRepo) EndProcessing(ctx context.Context, tx repository.Tx, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.data[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.Processing = false
	return nil
}

// ---- Mock SubscriptionInvoiceRepository ----

type MockInvoiceRepo struct {
	mu   sync.Mutex
	data []*model.SubscriptionInvoice
}

var _ repository.SubscriptionInvoiceRepository = (*MockInvoiceRepo)(nil)

func NewMockInvoiceRepo() *MockInvoiceRepo {
	return &MockInvoiceRepo{}
}

func (r *MockInvoiceRepo) Save(ctx context.Context, tx repository.Tx, inv *model.SubscriptionInvoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if inv.Status == model.InvoiceStatusPaid {
		for _, e := range r.data {
			if e.Status == model.InvoiceStatusPaid && e.SubscriptionID == inv.SubscriptionID && e.BillingCycle == inv.BillingCycle {
				return domain.ErrConflict
			}
		}
	}
	cp := *inv
	r.data = append(r.data, &cp)
	return nil
}

func (r *MockInvoiceRepo) FindPaidByCycle(ctx context.Context, tx repository.Tx, subscriptionID string, cycle int) (*model.SubscriptionInvoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.data {
		if e.Status == model.InvoiceStatusPaid && e.SubscriptionID == subscriptionID && e.BillingCycle == cycle {
			cp := *e
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockInvoiceRepo) ListBySubscription(ctx context.Context, tx repository.Tx, subscriptionID string) ([]*model.SubscriptionInvoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.SubscriptionInvoice
	for _, e := range r.data {
		if e.SubscriptionID == subscriptionID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---- Mock WalletRepository ----

type MockWalletRepo struct {
	mu          sync.Mutex
	data        map[string]*model.Customer
	withdrawals map[string][]*model.WithdrawalRequest
}

var _ repository.WalletRepository = (*MockWalletRepo)(nil)

func NewMockWalletRepo() *MockWalletRepo {
	return &MockWalletRepo{data: map[string]*model.Customer{}, withdrawals: map[string][]*model.WithdrawalRequest{}}
}

func (r *MockWalletRepo) Put(c *model.Customer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.data[c.ID] = &cp
}

func (r *MockWalletRepo) Withdrawals(userID string) []*model.WithdrawalRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*model.WithdrawalRequest(nil), r.withdrawals[userID]...)
}

func (r *MockWalletRepo) FindByID(ctx context.Context, tx repository.Tx, userID string) (*model.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.data[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *MockWalletRepo) FindForUpdate(ctx context.Context, tx repository.Tx, userID string) (*model.Customer, error) {
	return r.FindByID(ctx, tx, userID)
}

func (r *MockWalletRepo) UpdateBalance(ctx context.Context, tx repository.Tx, userID string, balanceCents int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.data[userID]
	if !ok {
		return domain.ErrNotFound
	}
	c.WalletBalanceCents = balanceCents
	return nil
}

func (r *MockWalletRepo) AppendWithdrawal(ctx context.Context, tx repository.Tx, userID string, req *model.WithdrawalRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *req
	r.withdrawals[userID] = append(r.withdrawals[userID], &cp)
	return nil
}

// =============================
// Infra helpers for tests
// =============================

// ---- Mock TransactionManager ----

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func NewMockTxManager() *MockTxManager {
	return &MockTxManager{}
}

// WithTx runs the function immediately with NoTX by default; assign
// WithTxFunc to verify transactional behaviour.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}

// ---- Mock PaymentGateway ----

type MockGateway struct {
	mu      sync.Mutex
	seq     int
	refunds map[string]int64

	GatewayName     string
	IsConfigured    bool
	CreateChargeErr error
	ChargeTokenFunc func(ctx context.Context, token string, amountCents int64, currency string, meta adapter.ChargeMeta) (string, bool, error)
	RefundErr       error
}

var _ adapter.PaymentGateway = (*MockGateway)(nil)

func NewMockGateway(name string) *MockGateway {
	return &MockGateway{GatewayName: name, refunds: map[string]int64{}}
}

func (g *MockGateway) Name() string {
	if g.GatewayName != "" {
		return g.GatewayName
	}
	return "mock"
}

func (g *MockGateway) Configured() bool { return g.IsConfigured }

func (g *MockGateway) CreateCharge(ctx context.Context, amountCents int64, currency string, meta adapter.ChargeMeta) (string, error) {
	if g.CreateChargeErr != nil {
		return "", g.CreateChargeErr
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return g.Name() + "-ref-" + uuid.NewString()[:8], nil
}

func (g *MockGateway) ChargeToken(ctx context.Context, token string, amountCents int64, currency string, meta adapter.ChargeMeta) (string, bool, error) {
	if g.ChargeTokenFunc != nil {
		return g.ChargeTokenFunc(ctx, token, amountCents, currency, meta)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return g.Name() + "-tok-" + uuid.NewString()[:8], true, nil
}

func (g *MockGateway) Refund(ctx context.Context, externalRef string, amountCents int64) error {
	if g.RefundErr != nil {
		return g.RefundErr
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refunds[externalRef] = amountCents
	return nil
}

func (g *MockGateway) Refunded(externalRef string) (int64, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	a, ok := g.refunds[externalRef]
	return a, ok
}

func (g *MockGateway) ParseNotification(r *http.Request) (adapter.Notification, error) {
	return adapter.Notification{}, domain.ErrInvalidArgument
}

// ---- identity cipher ----

type identityCipher struct{}

func (identityCipher) Decrypt(ciphertext string) (string, error) { return ciphertext, nil }

// newTestLogger creates a silent zerolog.Logger so test output stays clean.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}
