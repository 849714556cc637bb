// File: internal/infra/payment/paymob_gateway.go
package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"membership-marketplace/internal/domain"
	"membership-marketplace/internal/domain/ports/adapter"
)

// PaymobGateway implements the payment port against Paymob's acceptance API
// using direct HTTP calls. The charge flow is auth token -> order -> payment
// key; settlement arrives on the transaction-processed callback.
type PaymobGateway struct {
	apiKey        string
	integrationID string
	hmacSecret    string
	baseURL       string
	client        *http.Client
}

func NewPaymobGateway(apiKey, integrationID, hmacSecret, baseURL string) *PaymobGateway {
	if baseURL == "" {
		baseURL = "https://accept.paymob.com/api"
	}
	return &PaymobGateway{
		apiKey:        apiKey,
		integrationID: integrationID,
		hmacSecret:    hmacSecret,
		baseURL:       baseURL,
		client:        &http.Client{},
	}
}

var _ adapter.PaymentGateway = (*PaymobGateway)(nil)

func (g *PaymobGateway) Name() string { return "paymob" }

func (g *PaymobGateway) Configured() bool {
	return g.apiKey != "" && g.integrationID != ""
}

type paymobAuthResponse struct {
	Token string `json:"token"`
}

type paymobOrderResponse struct {
	ID int64 `json:"id"`
}

type paymobPaymentKeyResponse struct {
	Token string `json:"token"`
}

type paymobPayResponse struct {
	ID      int64 `json:"id"`
	Success bool  `json:"success"`
	Order   struct {
		ID int64 `json:"id"`
	} `json:"order"`
}

// CreateCharge registers an order with Paymob and returns the order id as
// the external reference. The caller redirects the customer to the hosted
// iframe with the payment key; the webhook settles the intent.
func (g *PaymobGateway) CreateCharge(ctx context.Context, amountCents int64, currency string, meta adapter.ChargeMeta) (string, error) {
	token, err := g.authToken(ctx)
	if err != nil {
		return "", err
	}
	orderID, err := g.createOrder(ctx, token, amountCents, currency, meta)
	if err != nil {
		return "", err
	}
	if _, err := g.paymentKey(ctx, token, orderID, amountCents, currency); err != nil {
		return "", err
	}
	return strconv.FormatInt(orderID, 10), nil
}

// ChargeToken performs a merchant-initiated charge against a saved card
// token. Paymob reports the outcome synchronously on the pay call.
func (g *PaymobGateway) ChargeToken(ctx context.Context, cardToken string, amountCents int64, currency string, meta adapter.ChargeMeta) (string, bool, error) {
	token, err := g.authToken(ctx)
	if err != nil {
		return "", false, err
	}
	orderID, err := g.createOrder(ctx, token, amountCents, currency, meta)
	if err != nil {
		return "", false, err
	}
	payKey, err := g.paymentKey(ctx, token, orderID, amountCents, currency)
	if err != nil {
		return "", false, err
	}

	payload := map[string]interface{}{
		"source": map[string]string{
			"identifier": cardToken,
			"subtype":    "TOKEN",
		},
		"payment_token": payKey,
	}
	var resp paymobPayResponse
	if err := g.post(ctx, "/acceptance/payments/pay", payload, &resp); err != nil {
		return "", false, err
	}
	return strconv.FormatInt(resp.Order.ID, 10), resp.Success, nil
}

func (g *PaymobGateway) Refund(ctx context.Context, externalRef string, amountCents int64) error {
	token, err := g.authToken(ctx)
	if err != nil {
		return err
	}
	payload := map[string]interface{}{
		"auth_token":     token,
		"transaction_id": externalRef,
		"amount_cents":   amountCents,
	}
	var resp struct {
		ID int64 `json:"id"`
	}
	if err := g.post(ctx, "/acceptance/void_refund/refund", payload, &resp); err != nil {
		return fmt.Errorf("paymob refund: %w", err)
	}
	return nil
}

// paymobCallback is the transaction-processed webhook body. The hmac query
// parameter is SHA512 over the documented field concatenation.
type paymobCallback struct {
	Obj struct {
		ID                   int64  `json:"id"`
		AmountCents          int64  `json:"amount_cents"`
		CreatedAt            string `json:"created_at"`
		Currency             string `json:"currency"`
		ErrorOccured         bool   `json:"error_occured"`
		HasParentTransaction bool   `json:"has_parent_transaction"`
		IntegrationID        int64  `json:"integration_id"`
		Is3DSecure           bool   `json:"is_3d_secure"`
		IsAuth               bool   `json:"is_auth"`
		IsCapture            bool   `json:"is_capture"`
		IsRefunded           bool   `json:"is_refunded"`
		IsStandalonePayment  bool   `json:"is_standalone_payment"`
		IsVoided             bool   `json:"is_voided"`
		Order                struct {
			ID int64 `json:"id"`
		} `json:"order"`
		Owner      int64 `json:"owner"`
		Pending    bool  `json:"pending"`
		SourceData struct {
			Pan     string `json:"pan"`
			SubType string `json:"sub_type"`
			Type    string `json:"type"`
		} `json:"source_data"`
		Success bool `json:"success"`
	} `json:"obj"`
}

func (g *PaymobGateway) ParseNotification(r *http.Request) (adapter.Notification, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return adapter.Notification{}, fmt.Errorf("%w: read callback body", domain.ErrInvalidArgument)
	}
	var cb paymobCallback
	if err := json.Unmarshal(body, &cb); err != nil {
		return adapter.Notification{}, fmt.Errorf("%w: malformed callback", domain.ErrInvalidArgument)
	}

	if g.hmacSecret != "" {
		got := r.URL.Query().Get("hmac")
		if !hmac.Equal([]byte(got), []byte(g.callbackHMAC(&cb))) {
			return adapter.Notification{}, fmt.Errorf("%w: hmac mismatch", domain.ErrInvalidArgument)
		}
	}

	return adapter.Notification{
		ExternalRef:    strconv.FormatInt(cb.Obj.Order.ID, 10),
		IdempotencyKey: strconv.FormatInt(cb.Obj.ID, 10),
		Succeeded:      cb.Obj.Success && !cb.Obj.Pending && !cb.Obj.ErrorOccured,
		AmountCents:    cb.Obj.AmountCents,
	}, nil
}

// callbackHMAC concatenates the callback fields in Paymob's documented order
// and signs with SHA512.
func (g *PaymobGateway) callbackHMAC(cb *paymobCallback) string {
	o := cb.Obj
	concat := strconv.FormatInt(o.AmountCents, 10) +
		o.CreatedAt +
		o.Currency +
		strconv.FormatBool(o.ErrorOccured) +
		strconv.FormatBool(o.HasParentTransaction) +
		strconv.FormatInt(o.ID, 10) +
		strconv.FormatInt(o.IntegrationID, 10) +
		strconv.FormatBool(o.Is3DSecure) +
		strconv.FormatBool(o.IsAuth) +
		strconv.FormatBool(o.IsCapture) +
		strconv.FormatBool(o.IsRefunded) +
		strconv.FormatBool(o.IsStandalonePayment) +
		strconv.FormatBool(o.IsVoided) +
		strconv.FormatInt(o.Order.ID, 10) +
		strconv.FormatInt(o.Owner, 10) +
		strconv.FormatBool(o.Pending) +
		o.SourceData.Pan +
		o.SourceData.SubType +
		o.SourceData.Type +
		strconv.FormatBool(o.Success)

	mac := hmac.New(sha512.New, []byte(g.hmacSecret))
	mac.Write([]byte(concat))
	return hex.EncodeToString(mac.Sum(nil))
}

func (g *PaymobGateway) authToken(ctx context.Context) (string, error) {
	var resp paymobAuthResponse
	if err := g.post(ctx, "/auth/tokens", map[string]string{"api_key": g.apiKey}, &resp); err != nil {
		return "", fmt.Errorf("paymob auth: %w", err)
	}
	return resp.Token, nil
}

func (g *PaymobGateway) createOrder(ctx context.Context, authToken string, amountCents int64, currency string, meta adapter.ChargeMeta) (int64, error) {
	payload := map[string]interface{}{
		"auth_token":      authToken,
		"amount_cents":    strconv.FormatInt(amountCents, 10),
		"currency":        currency,
		"delivery_needed": false,
		"items":           []interface{}{},
	}
	if ref, ok := meta["intent_id"]; ok {
		payload["merchant_order_id"] = ref
	}
	var resp paymobOrderResponse
	if err := g.post(ctx, "/ecommerce/orders", payload, &resp); err != nil {
		return 0, fmt.Errorf("paymob order: %w", err)
	}
	return resp.ID, nil
}

func (g *PaymobGateway) paymentKey(ctx context.Context, authToken string, orderID, amountCents int64, currency string) (string, error) {
	payload := map[string]interface{}{
		"auth_token":     authToken,
		"amount_cents":   strconv.FormatInt(amountCents, 10),
		"currency":       currency,
		"order_id":       orderID,
		"integration_id": g.integrationID,
		"expiration":     3600,
		"billing_data": map[string]string{
			"first_name": "NA", "last_name": "NA", "email": "NA",
			"phone_number": "NA", "street": "NA", "building": "NA",
			"floor": "NA", "apartment": "NA", "city": "NA",
			"country": "NA", "state": "NA",
		},
	}
	var resp paymobPaymentKeyResponse
	if err := g.post(ctx, "/acceptance/payment_keys", payload, &resp); err != nil {
		return "", fmt.Errorf("paymob payment key: %w", err)
	}
	return resp.Token, nil
}

func (g *PaymobGateway) post(ctx context.Context, path string, payload interface{}, out interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request data: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, "POST", g.baseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("paymob status %d: %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w, body: %s", err, string(body))
	}
	return nil
}
