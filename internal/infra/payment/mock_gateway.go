// File: internal/infra/payment/mock_gateway.go
package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"membership-marketplace/internal/domain"
	"membership-marketplace/internal/domain/ports/adapter"
)

// MockGateway stands in when a provider has no credentials. Configured() is
// false, which makes checkout settle charges immediately through the normal
// notification path. Useful for dev environments and tests.
type MockGateway struct {
	name string
}

func NewMockGateway(name string) *MockGateway {
	if name == "" {
		name = "mock"
	}
	return &MockGateway{name: name}
}

var _ adapter.PaymentGateway = (*MockGateway)(nil)

func (g *MockGateway) Name() string     { return g.name }
func (g *MockGateway) Configured() bool { return false }

func (g *MockGateway) CreateCharge(_ context.Context, _ int64, _ string, _ adapter.ChargeMeta) (string, error) {
	return "mock_" + uuid.NewString(), nil
}

func (g *MockGateway) ChargeToken(_ context.Context, _ string, _ int64, _ string, _ adapter.ChargeMeta) (string, bool, error) {
	return "mock_" + uuid.NewString(), true, nil
}

func (g *MockGateway) Refund(_ context.Context, _ string, _ int64) error { return nil }

// ParseNotification accepts a plain JSON body so local tools can poke the
// webhook endpoint without signing anything.
func (g *MockGateway) ParseNotification(r *http.Request) (adapter.Notification, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return adapter.Notification{}, fmt.Errorf("%w: read body", domain.ErrInvalidArgument)
	}
	var n struct {
		ExternalRef string `json:"external_ref"`
		Succeeded   bool   `json:"succeeded"`
		AmountCents int64  `json:"amount_cents"`
	}
	if err := json.Unmarshal(body, &n); err != nil || n.ExternalRef == "" {
		return adapter.Notification{}, fmt.Errorf("%w: malformed notification", domain.ErrInvalidArgument)
	}
	return adapter.Notification{
		ExternalRef:    n.ExternalRef,
		IdempotencyKey: n.ExternalRef,
		Succeeded:      n.Succeeded,
		AmountCents:    n.AmountCents,
	}, nil
}
