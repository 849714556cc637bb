// File: internal/infra/payment/tap_gateway.go
package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"membership-marketplace/internal/domain"
	"membership-marketplace/internal/domain/ports/adapter"
)

// TapGateway implements the payment port against Tap's charges API. Amounts
// are carried in major currency units on the wire, cents internally.
type TapGateway struct {
	secretKey string
	baseURL   string
	client    *http.Client
}

func NewTapGateway(secretKey, baseURL string) *TapGateway {
	if baseURL == "" {
		baseURL = "https://api.tap.company/v2"
	}
	return &TapGateway{
		secretKey: secretKey,
		baseURL:   baseURL,
		client:    &http.Client{},
	}
}

var _ adapter.PaymentGateway = (*TapGateway)(nil)

func (g *TapGateway) Name() string { return "tap" }

func (g *TapGateway) Configured() bool { return g.secretKey != "" }

type tapChargeResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (g *TapGateway) CreateCharge(ctx context.Context, amountCents int64, currency string, meta adapter.ChargeMeta) (string, error) {
	payload := map[string]interface{}{
		"amount":   float64(amountCents) / 100,
		"currency": currency,
		"source":   map[string]string{"id": "src_all"},
		"metadata": meta,
	}
	var resp tapChargeResponse
	if err := g.post(ctx, "/charges", payload, &resp); err != nil {
		return "", fmt.Errorf("tap charge: %w", err)
	}
	return resp.ID, nil
}

func (g *TapGateway) ChargeToken(ctx context.Context, cardToken string, amountCents int64, currency string, meta adapter.ChargeMeta) (string, bool, error) {
	payload := map[string]interface{}{
		"amount":   float64(amountCents) / 100,
		"currency": currency,
		"source":   map[string]string{"id": cardToken},
		"metadata": meta,
	}
	var resp tapChargeResponse
	if err := g.post(ctx, "/charges", payload, &resp); err != nil {
		return "", false, fmt.Errorf("tap token charge: %w", err)
	}
	return resp.ID, resp.Status == "CAPTURED", nil
}

func (g *TapGateway) Refund(ctx context.Context, externalRef string, amountCents int64) error {
	payload := map[string]interface{}{
		"charge_id": externalRef,
		"amount":    float64(amountCents) / 100,
		"reason":    "requested_by_customer",
	}
	var resp struct {
		ID string `json:"id"`
	}
	if err := g.post(ctx, "/refunds", payload, &resp); err != nil {
		return fmt.Errorf("tap refund: %w", err)
	}
	return nil
}

// tapWebhook is the charge event body. Tap signs webhooks with a hashstring
// header over a fixed field template.
type tapWebhook struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Amount string `json:"amount"`
	Currency string `json:"currency"`
	Created string `json:"created"`
	Reference struct {
		Gateway string `json:"gateway"`
		Payment string `json:"payment"`
	} `json:"reference"`
}

func (g *TapGateway) ParseNotification(r *http.Request) (adapter.Notification, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return adapter.Notification{}, fmt.Errorf("%w: read webhook body", domain.ErrInvalidArgument)
	}
	var wh tapWebhook
	if err := json.Unmarshal(body, &wh); err != nil {
		return adapter.Notification{}, fmt.Errorf("%w: malformed webhook", domain.ErrInvalidArgument)
	}

	if g.secretKey != "" {
		got := r.Header.Get("hashstring")
		if !hmac.Equal([]byte(got), []byte(g.webhookHash(&wh))) {
			return adapter.Notification{}, fmt.Errorf("%w: hashstring mismatch", domain.ErrInvalidArgument)
		}
	}

	var cents int64
	var major float64
	if _, err := fmt.Sscanf(wh.Amount, "%f", &major); err == nil {
		cents = int64(major*100 + 0.5)
	}

	return adapter.Notification{
		ExternalRef:    wh.ID,
		IdempotencyKey: wh.ID + ":" + wh.Status,
		Succeeded:      wh.Status == "CAPTURED",
		AmountCents:    cents,
	}, nil
}

func (g *TapGateway) webhookHash(wh *tapWebhook) string {
	toBeHashed := fmt.Sprintf("x_id%sx_amount%sx_currency%sx_gateway_reference%sx_payment_reference%sx_status%sx_created%s",
		wh.ID, wh.Amount, wh.Currency, wh.Reference.Gateway, wh.Reference.Payment, wh.Status, wh.Created)
	mac := hmac.New(sha256.New, []byte(g.secretKey))
	mac.Write([]byte(toBeHashed))
	return hex.EncodeToString(mac.Sum(nil))
}

func (g *TapGateway) post(ctx context.Context, path string, payload interface{}, out interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request data: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, "POST", g.baseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.secretKey)

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
		return fmt.Errorf("tap status %d: %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w, body: %s", err, string(body))
	}
	return nil
}
