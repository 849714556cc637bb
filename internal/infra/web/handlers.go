// File: internal/infra/web/handlers.go
package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"membership-marketplace/internal/domain"
	"membership-marketplace/internal/domain/model"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError maps domain sentinels onto HTTP statuses. Unknown errors become
// opaque 500s; the detail stays in the log.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var status int
	switch {
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrEmptyCart):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrCodeNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrAlreadyRedeemed),
		errors.Is(err, domain.ErrInsufficientBalance):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrCodeExpired):
		status = http.StatusGone
	case errors.Is(err, domain.ErrGatewayUnavailable):
		status = http.StatusBadGateway
	default:
		s.log.Error().Err(err).Msg("internal error")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
		return
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func decode(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return domain.ErrInvalidArgument
	}
	return nil
}

type actorRequest struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

func (a actorRequest) actor() model.Actor {
	return model.Actor{UserID: a.UserID, SessionID: a.SessionID}
}

type checkoutResponse struct {
	IntentID    string `json:"intent_id"`
	ExternalRef string `json:"external_ref,omitempty"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
	Status      string `json:"status"`
}

func (s *Server) handleCheckoutCart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		actorRequest
		ProviderID string `json:"provider_id"`
		Gateway    string `json:"gateway"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	res, err := s.checkoutUC.CheckoutCart(r.Context(), req.actor(), req.ProviderID, req.Gateway)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, checkoutResponse{
		IntentID:    res.IntentID,
		ExternalRef: res.ExternalRef,
		AmountCents: res.AmountCents,
		Currency:    res.Currency,
		Status:      string(res.Status),
	})
}

func (s *Server) handleCheckoutVoucher(w http.ResponseWriter, r *http.Request) {
	var req struct {
		actorRequest
		ProviderID     string `json:"provider_id"`
		FaceValueCents int64  `json:"face_value_cents"`
		Gateway        string `json:"gateway"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	res, err := s.checkoutUC.PurchaseVoucher(r.Context(), req.actor(), req.ProviderID, req.FaceValueCents, req.Gateway)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, checkoutResponse{
		IntentID:    res.IntentID,
		ExternalRef: res.ExternalRef,
		AmountCents: res.AmountCents,
		Currency:    res.Currency,
		Status:      string(res.Status),
	})
}

func (s *Server) handleCheckoutMembership(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID  string `json:"user_id"`
		PlanID  string `json:"plan_id"`
		Cycle   string `json:"cycle"`
		Gateway string `json:"gateway"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	cycle := model.BillingCycle(req.Cycle)
	if cycle != model.CycleMonthly && cycle != model.CycleYearly {
		s.writeError(w, domain.ErrInvalidArgument)
		return
	}
	res, err := s.checkoutUC.PurchaseMembership(r.Context(), req.UserID, req.PlanID, cycle, req.Gateway)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, checkoutResponse{
		IntentID:    res.IntentID,
		ExternalRef: res.ExternalRef,
		AmountCents: res.AmountCents,
		Currency:    res.Currency,
		Status:      string(res.Status),
	})
}

func (s *Server) handleIntentStatus(w http.ResponseWriter, r *http.Request) {
	intent, err := s.checkoutUC.IntentStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp := struct {
		ID          string     `json:"id"`
		Kind        string     `json:"kind"`
		Status      string     `json:"status"`
		AmountCents int64      `json:"amount_cents"`
		Currency    string     `json:"currency"`
		PaidAt      *time.Time `json:"paid_at,omitempty"`
	}{intent.ID, string(intent.Kind), string(intent.Status), intent.AmountCents, intent.Currency, intent.PaidAt}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleChangePlan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
		PlanID string `json:"plan_id"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	res, err := s.billingUC.ChangePlan(r.Context(), req.UserID, req.PlanID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp := struct {
		Type            string    `json:"type"`
		PaymentRequired bool      `json:"payment_required"`
		IntentID        string    `json:"intent_id,omitempty"`
		AmountDueCents  int64     `json:"amount_due_cents"`
		EffectiveAt     time.Time `json:"effective_at"`
	}{res.Type, res.PaymentRequired, res.IntentID, res.AmountDueCents, res.EffectiveAt}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleIssueCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	issued, err := s.voucherQRUC.Issue(r.Context(), req.UserID, chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp := struct {
		Code      string    `json:"code"`
		ExpiresAt time.Time `json:"expires_at"`
	}{issued.Code, issued.ExpiresAt}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRedeemCode(w http.ResponseWriter, r *http.Request) {
	v, err := s.voucherQRUC.Redeem(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp := struct {
		VoucherID      string `json:"voucher_id"`
		ProviderName   string `json:"provider_name"`
		FaceValueCents int64  `json:"face_value_cents"`
		Currency       string `json:"currency"`
	}{v.ID, v.ProviderName, v.FaceValueCents, v.Currency}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMembershipCard(w http.ResponseWriter, r *http.Request) {
	card, err := s.membershipUC.Card(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp := struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
		PlanID    string    `json:"plan_id"`
		EndDate   time.Time `json:"end_date"`
	}{card.Token, card.ExpiresAt, card.PlanID, card.EndDate}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMembershipScan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	res, err := s.membershipUC.Scan(r.Context(), req.Token)
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp := struct {
		UserID  string    `json:"user_id"`
		PlanID  string    `json:"plan_id"`
		EndDate time.Time `json:"end_date"`
	}{res.UserID, res.PlanID, res.EndDate}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.membershipUC.Plans(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	type planItem struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		PriceCents int64  `json:"price_cents"`
		ImageURL   string `json:"image_url,omitempty"`
	}
	items := make([]planItem, 0, len(plans))
	for _, p := range plans {
		items = append(items, planItem{p.ID, p.Name, p.PriceCents, p.ImageURL})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID        string `json:"user_id"`
		AmountCents   int64  `json:"amount_cents"`
		Method        string `json:"method"`
		DestinationID string `json:"destination_id"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	wr, err := s.walletUC.RequestWithdrawal(r.Context(), req.UserID, req.AmountCents, req.Method, req.DestinationID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp := struct {
		ID          string    `json:"id"`
		AmountCents int64     `json:"amount_cents"`
		Status      string    `json:"status"`
		RequestedAt time.Time `json:"requested_at"`
	}{wr.ID, wr.AmountCents, string(wr.Status), wr.RequestedAt}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := s.walletUC.Balance(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"balance_cents": balance})
}
