// File: internal/usecase/billing_uc.go
package usecase

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"membership-marketplace/internal/domain"
	"membership-marketplace/internal/domain/model"
	"membership-marketplace/internal/domain/ports/adapter"
	"membership-marketplace/internal/domain/ports/repository"
)

// Compile-time checks
var (
	_ BillingUseCase = (*billingUC)(nil)
	_ CycleAdvancer  = (*billingUC)(nil)
)

// TokenCipher decrypts stored card tokens at charge time. Implemented by the
// AES-GCM encryption service; tests use an identity cipher.
type TokenCipher interface {
	Decrypt(ciphertext string) (string, error)
}

// PlanChangeResult describes the outcome of a plan-change request.
type PlanChangeResult struct {
	Type            string // "upgrade" | "downgrade"
	PaymentRequired bool
	IntentID        string
	AmountDueCents  int64
	EffectiveAt     time.Time
}

// BillingUseCase drives recurring subscription billing: the periodic charge
// cycle, dunning, and synchronous plan changes with proration.
type BillingUseCase interface {
	CycleAdvancer
	// RunBilling charges every due active subscription once. Overlapping
	// runs stay safe through the paid-invoice uniqueness check and the
	// per-subscription processing claim, not through any lock.
	RunBilling(ctx context.Context) (charged, failed int, err error)
	// ChangePlan prorates an upgrade and charges it immediately, or queues
	// a downgrade for the next cycle boundary.
	ChangePlan(ctx context.Context, userID, newPlanID string) (*PlanChangeResult, error)
}

type billingUC struct {
	tm       repository.TransactionManager
	subs     repository.SubscriptionRepository
	invoices repository.SubscriptionInvoiceRepository
	intents  repository.PaymentIntentRepository
	plans    repository.MembershipPlanRepository
	gateway  adapter.PaymentGateway
	cipher   TokenCipher
	maxRetry int
	log      *zerolog.Logger
}

func NewBillingUseCase(
	tm repository.TransactionManager,
	subs repository.SubscriptionRepository,
	invoices repository.SubscriptionInvoiceRepository,
	intents repository.PaymentIntentRepository,
	plans repository.MembershipPlanRepository,
	gateway adapter.PaymentGateway,
	cipher TokenCipher,
	maxRetry int,
	logger *zerolog.Logger,
) *billingUC {
	if maxRetry <= 0 {
		maxRetry = 3
	}
	l := logger.With().Str("component", "billing").Logger()
	return &billingUC{
		tm:       tm,
		subs:     subs,
		invoices: invoices,
		intents:  intents,
		plans:    plans,
		gateway:  gateway,
		cipher:   cipher,
		maxRetry: maxRetry,
		log:      &l,
	}
}

func (u *billingUC) RunBilling(ctx context.Context) (int, int, error) {
	now := time.Now().UTC()
	due, err := u.subs.ListDue(ctx, nil, now, 200)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, 0, nil
		}
		return 0, 0, err
	}

	var charged, failed int
	for _, s := range due {
		ok, err := u.billOne(ctx, s)
		if err != nil {
			u.log.Error().Err(err).Str("subscription_id", s.ID).Msg("billing error")
			continue
		}
		if ok {
			charged++
		} else {
			failed++
		}
	}
	return charged, failed, nil
}

// billOne charges a single due subscription. Returns (true,nil) on a settled
// cycle, (false,nil) on a recorded decline, and skips silently when another
// run already owns or settled the cycle.
func (u *billingUC) billOne(ctx context.Context, s *model.Subscription) (bool, error) {
	// A paid invoice for this cycle means a previous run already settled it.
	if _, err := u.invoices.FindPaidByCycle(ctx, nil, s.ID, s.CurrentCycle); err == nil {
		return true, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return false, err
	}

	won, err := u.subs.BeginProcessing(ctx, nil, s.ID)
	if err != nil {
		return false, err
	}
	if !won {
		// Another scheduler run holds the claim.
		return true, nil
	}
	defer func() {
		if err := u.subs.EndProcessing(context.WithoutCancel(ctx), nil, s.ID); err != nil {
			u.log.Error().Err(err).Str("subscription_id", s.ID).Msg("release processing claim")
		}
	}()

	token, err := u.cipher.Decrypt(s.CardToken)
	if err != nil {
		return false, err
	}

	intent, err := model.NewPaymentIntent(uuid.NewString(), model.Actor{UserID: s.UserID},
		model.IntentKindSubscriptionCharge, u.gateway.Name(), s.AmountCents, s.Currency)
	if err != nil {
		return false, err
	}
	intent.SubscriptionID = &s.ID
	if err := u.intents.Save(ctx, nil, intent); err != nil {
		return false, err
	}

	ref, ok, err := u.gateway.ChargeToken(ctx, token, s.AmountCents, s.Currency, adapter.ChargeMeta{
		"intent_id":       intent.ID,
		"subscription_id": s.ID,
		"billing_cycle":   strconv.Itoa(s.CurrentCycle),
	})
	if err != nil {
		// Transport/provider failure: treated as a declined attempt so
		// dunning advances; the next run retries until the threshold.
		u.recordFailure(ctx, s, intent, "")
		return false, nil
	}
	if ref != "" {
		if err := u.intents.SetExternalRef(ctx, nil, intent.ID, ref); err != nil {
			return false, err
		}
		r := ref
		intent.ExternalRef = &r
	}

	if !ok {
		_, _ = u.intents.MarkFailedIfPending(ctx, nil, intent.ID)
		u.recordFailure(ctx, s, intent, ref)
		return false, nil
	}

	// Same claim discipline as the webhook path: only the winner advances.
	claimed, err := u.intents.ClaimPaid(ctx, nil, intent.ID, time.Now().UTC())
	if err != nil {
		return false, err
	}
	if !claimed {
		return true, nil
	}
	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		fresh, err := u.subs.FindByID(ctx, tx, s.ID)
		if err != nil {
			return err
		}
		return u.AdvanceCycle(ctx, tx, fresh, intent)
	})
	return err == nil, err
}

func (u *billingUC) recordFailure(ctx context.Context, s *model.Subscription, intent *model.PaymentIntent, ref string) {
	inv := &model.SubscriptionInvoice{
		ID:             uuid.NewString(),
		SubscriptionID: s.ID,
		BillingCycle:   s.CurrentCycle,
		AmountCents:    s.AmountCents,
		IntentID:       &intent.ID,
		ExternalRef:    ref,
		Status:         model.InvoiceStatusFailed,
		BilledAt:       time.Now().UTC(),
	}
	if err := u.invoices.Save(ctx, nil, inv); err != nil {
		u.log.Error().Err(err).Str("subscription_id", s.ID).Msg("record failed invoice")
	}

	s.RetryCount++
	if s.RetryCount >= u.maxRetry {
		s.Status = model.SubscriptionStatusPastDue
		u.log.Warn().Str("subscription_id", s.ID).Int("retry_count", s.RetryCount).Msg("subscription moved to past_due")
	}
	s.UpdatedAt = time.Now().UTC()
	if err := u.subs.Save(ctx, nil, s); err != nil {
		u.log.Error().Err(err).Str("subscription_id", s.ID).Msg("save dunning state")
	}
}

// AdvanceCycle settles the current cycle: it writes the paid invoice (the
// unique paid-per-cycle index makes a duplicate a no-op), resets dunning,
// bumps the cycle counter, advances nextBillingAt month-safely, and applies
// any deferred downgrade.
func (u *billingUC) AdvanceCycle(ctx context.Context, tx repository.Tx, sub *model.Subscription, intent *model.PaymentIntent) error {
	inv := &model.SubscriptionInvoice{
		ID:             uuid.NewString(),
		SubscriptionID: sub.ID,
		BillingCycle:   sub.CurrentCycle,
		AmountCents:    intent.AmountCents,
		IntentID:       &intent.ID,
		Status:         model.InvoiceStatusPaid,
		BilledAt:       time.Now().UTC(),
	}
	if intent.ExternalRef != nil {
		inv.ExternalRef = *intent.ExternalRef
	}
	if err := u.invoices.Save(ctx, tx, inv); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// Cycle already settled by a concurrent caller.
			return nil
		}
		return err
	}

	sub.RetryCount = 0
	sub.CurrentCycle++
	sub.NextBillingAt = addMonthSafe(sub.NextBillingAt)
	sub.ApplyPendingChange()
	sub.UpdatedAt = time.Now().UTC()
	return u.subs.Save(ctx, tx, sub)
}

// ApplyUpgrade makes a paid proration charge effective immediately: the plan
// and amount swap now, the billing anchor stays where it was.
func (u *billingUC) ApplyUpgrade(ctx context.Context, tx repository.Tx, sub *model.Subscription, intent *model.PaymentIntent) error {
	if intent.NewPlanID == nil || intent.NewAmountCents == nil {
		return domain.ErrInvalidArgument
	}
	sub.PlanID = *intent.NewPlanID
	sub.AmountCents = *intent.NewAmountCents
	sub.PendingPlanID = nil
	sub.PendingAmountCents = nil
	sub.UpdatedAt = time.Now().UTC()
	return u.subs.Save(ctx, tx, sub)
}

func (u *billingUC) ChangePlan(ctx context.Context, userID, newPlanID string) (*PlanChangeResult, error) {
	sub, err := u.subs.FindActiveByUser(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	newPlan, err := u.plans.FindByID(ctx, nil, newPlanID)
	if err != nil {
		return nil, err
	}
	if newPlan.PriceCents == sub.AmountCents && newPlan.ID == sub.PlanID {
		return nil, domain.ErrConflict
	}

	// Downgrades (and equal-price switches) defer to the next cycle.
	if newPlan.PriceCents <= sub.AmountCents {
		planID := newPlan.ID
		amount := newPlan.PriceCents
		sub.PendingPlanID = &planID
		sub.PendingAmountCents = &amount
		sub.UpdatedAt = time.Now().UTC()
		if err := u.subs.Save(ctx, nil, sub); err != nil {
			return nil, err
		}
		return &PlanChangeResult{
			Type:        "downgrade",
			EffectiveAt: sub.NextBillingAt,
		}, nil
	}

	// Upgrade: charge the prorated difference now.
	now := time.Now().UTC()
	billingStart := sub.NextBillingAt.AddDate(0, -1, 0)
	amountDue := Proration(sub.AmountCents, newPlan.PriceCents, billingStart, sub.NextBillingAt, now)
	planID := newPlan.ID
	price := newPlan.PriceCents

	if amountDue == 0 {
		// Nothing to collect; apply immediately without touching the gateway.
		swap := &model.PaymentIntent{NewPlanID: &planID, NewAmountCents: &price}
		err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			fresh, err := u.subs.FindByID(ctx, tx, sub.ID)
			if err != nil {
				return err
			}
			return u.ApplyUpgrade(ctx, tx, fresh, swap)
		})
		if err != nil {
			return nil, err
		}
		return &PlanChangeResult{Type: "upgrade", EffectiveAt: now}, nil
	}

	intent, err := model.NewPaymentIntent(uuid.NewString(), model.Actor{UserID: userID},
		model.IntentKindUpgradeProration, u.gateway.Name(), amountDue, sub.Currency)
	if err != nil {
		return nil, err
	}
	intent.SubscriptionID = &sub.ID
	intent.NewPlanID = &planID
	intent.NewAmountCents = &price
	if err := u.intents.Save(ctx, nil, intent); err != nil {
		return nil, err
	}

	token, err := u.cipher.Decrypt(sub.CardToken)
	if err != nil {
		return nil, err
	}
	ref, ok, err := u.gateway.ChargeToken(ctx, token, amountDue, sub.Currency, adapter.ChargeMeta{
		"intent_id":       intent.ID,
		"subscription_id": sub.ID,
	})
	if err != nil {
		return nil, domain.ErrGatewayUnavailable
	}
	if ref != "" {
		if err := u.intents.SetExternalRef(ctx, nil, intent.ID, ref); err != nil {
			return nil, err
		}
	}
	if !ok {
		_, _ = u.intents.MarkFailedIfPending(ctx, nil, intent.ID)
		return nil, domain.ErrGatewayUnavailable
	}

	claimed, err := u.intents.ClaimPaid(ctx, nil, intent.ID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if claimed {
		err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			fresh, err := u.subs.FindByID(ctx, tx, sub.ID)
			if err != nil {
				return err
			}
			return u.ApplyUpgrade(ctx, tx, fresh, intent)
		})
		if err != nil {
			return nil, err
		}
	}
	return &PlanChangeResult{
		Type:            "upgrade",
		PaymentRequired: true,
		IntentID:        intent.ID,
		AmountDueCents:  amountDue,
		EffectiveAt:     now,
	}, nil
}

// Proration computes the immediate charge for an upgrade: the new price
// minus the unused value of the current cycle, floored at zero.
func Proration(currentCents, newCents int64, billingStart, billingEnd, now time.Time) int64 {
	total := billingEnd.Sub(billingStart)
	remaining := billingEnd.Sub(now)
	if remaining <= 0 || total <= 0 {
		return newCents
	}
	if remaining > total {
		remaining = total
	}
	unused := int64(float64(currentCents) * (remaining.Seconds() / total.Seconds()))
	if due := newCents - unused; due > 0 {
		return due
	}
	return 0
}

// addMonthSafe adds one calendar month, clamping a day-of-month overflow to
// the last day of the target month (Jan 31 -> Feb 28/29, never Mar 3).
func addMonthSafe(t time.Time) time.Time {
	y, m, d := t.Date()
	lastDay := time.Date(y, m+2, 0, 0, 0, 0, 0, t.Location()).Day()
	if d > lastDay {
		d = lastDay
	}
	return time.Date(y, m+1, d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

