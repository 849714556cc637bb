package adapter

import (
	"context"
	"net/http"
)

// Notification is the provider-agnostic shape of a gateway callback. Each
// concrete gateway maps its wire format into this before the finalizer sees
// it; the core never inspects raw payloads.
type Notification struct {
	ExternalRef    string
	IdempotencyKey string
	Succeeded      bool
	AmountCents    int64
}

// ChargeMeta is free-form metadata forwarded to the provider (intent id,
// customer hints). Providers that cannot carry metadata may ignore it.
type ChargeMeta map[string]string

// PaymentGateway is the hex port for payment providers.
type PaymentGateway interface {
	Name() string

	// Configured reports whether real credentials are present. When false,
	// checkout switches to mock mode: the charge is synthesized as paid and
	// fed through the same notification path a webhook would take.
	Configured() bool

	// CreateCharge registers a hosted charge and returns the provider's
	// external reference. Settlement arrives later via notification.
	CreateCharge(ctx context.Context, amountCents int64, currency string, meta ChargeMeta) (externalRef string, err error)

	// ChargeToken performs a merchant-initiated charge against a stored
	// card token. The outcome is known synchronously; ok=false is a decline
	// (not an error), err covers transport/provider failures.
	ChargeToken(ctx context.Context, cardToken string, amountCents int64, currency string, meta ChargeMeta) (externalRef string, ok bool, err error)

	// Refund returns captured money for a settled charge.
	Refund(ctx context.Context, externalRef string, amountCents int64) error

	// ParseNotification validates and maps a webhook request into the
	// uniform Notification shape.
	ParseNotification(r *http.Request) (Notification, error)
}
