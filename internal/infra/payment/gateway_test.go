//go:build !integration

package payment

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"membership-marketplace/internal/domain"
)

func paymobBody(t *testing.T, orderID, txID int64, success bool) []byte {
	t.Helper()
	body := map[string]interface{}{
		"obj": map[string]interface{}{
			"id":           txID,
			"amount_cents": 6500,
			"created_at":   "2026-08-01T10:00:00",
			"currency":     "KWD",
			"order":        map[string]interface{}{"id": orderID},
			"success":      success,
			"pending":      false,
			"source_data":  map[string]interface{}{"pan": "1234", "sub_type": "TOKEN", "type": "card"},
		},
	}
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func TestPaymobParseNotification(t *testing.T) {
	g := NewPaymobGateway("key", "123", "topsecret", "")

	t.Run("valid hmac accepted", func(t *testing.T) {
		body := paymobBody(t, 42, 9001, true)

		// Compute the expected signature from the same payload.
		var cb paymobCallback
		if err := json.Unmarshal(body, &cb); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		sig := g.callbackHMAC(&cb)

		req := httptest.NewRequest("POST", "/webhooks/paymob?hmac="+sig, bytes.NewReader(body))
		n, err := g.ParseNotification(req)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if n.ExternalRef != "42" || !n.Succeeded || n.AmountCents != 6500 {
			t.Fatalf("notification mismatch: %+v", n)
		}
		if n.IdempotencyKey != "9001" {
			t.Fatalf("want transaction id as idempotency key, got %q", n.IdempotencyKey)
		}
	})

	t.Run("bad hmac rejected", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/webhooks/paymob?hmac=deadbeef", bytes.NewReader(paymobBody(t, 42, 9001, true)))
		if _, err := g.ParseNotification(req); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("want ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("declined transaction maps to failure", func(t *testing.T) {
		body := paymobBody(t, 42, 9002, false)
		var cb paymobCallback
		_ = json.Unmarshal(body, &cb)
		req := httptest.NewRequest("POST", "/webhooks/paymob?hmac="+g.callbackHMAC(&cb), bytes.NewReader(body))
		n, err := g.ParseNotification(req)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if n.Succeeded {
			t.Fatal("want failure notification")
		}
	})

	t.Run("garbage body rejected", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/webhooks/paymob", bytes.NewReader([]byte("not json")))
		if _, err := g.ParseNotification(req); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("want ErrInvalidArgument, got %v", err)
		}
	})
}

func TestTapParseNotification(t *testing.T) {
	g := NewTapGateway("sk_test_x", "")

	body := []byte(`{"id":"chg_1","status":"CAPTURED","amount":"65.00","currency":"KWD","created":"1700000000","reference":{"gateway":"gw1","payment":"pay1"}}`)
	var wh tapWebhook
	if err := json.Unmarshal(body, &wh); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	t.Run("valid hashstring accepted", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/webhooks/tap", bytes.NewReader(body))
		req.Header.Set("hashstring", g.webhookHash(&wh))
		n, err := g.ParseNotification(req)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if n.ExternalRef != "chg_1" || !n.Succeeded || n.AmountCents != 6500 {
			t.Fatalf("notification mismatch: %+v", n)
		}
	})

	t.Run("missing hashstring rejected", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/webhooks/tap", bytes.NewReader(body))
		if _, err := g.ParseNotification(req); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("want ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("non-captured status maps to failure", func(t *testing.T) {
		declined := []byte(`{"id":"chg_2","status":"DECLINED","amount":"65.00","currency":"KWD","created":"1700000000","reference":{"gateway":"gw1","payment":"pay1"}}`)
		var dwh tapWebhook
		_ = json.Unmarshal(declined, &dwh)
		req := httptest.NewRequest("POST", "/webhooks/tap", bytes.NewReader(declined))
		req.Header.Set("hashstring", g.webhookHash(&dwh))
		n, err := g.ParseNotification(req)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if n.Succeeded {
			t.Fatal("want failure notification")
		}
	})
}

func TestRegistryFallsBackToMock(t *testing.T) {
	// covered indirectly through config in main; here we only check the
	// Configured contract the registry relies on.
	if NewPaymobGateway("", "", "", "").Configured() {
		t.Fatal("paymob without credentials must not report configured")
	}
	if NewTapGateway("", "").Configured() {
		t.Fatal("tap without credentials must not report configured")
	}
	if NewMockGateway("mock").Configured() {
		t.Fatal("mock gateway must never report configured")
	}
}
