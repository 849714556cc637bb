// File: internal/infra/payment/registry.go
package payment

import (
	"github.com/rs/zerolog"

	"membership-marketplace/internal/config"
	"membership-marketplace/internal/domain/ports/adapter"
)

// NewRegistry builds the gateway set from config. A provider without
// credentials is replaced by a mock registered under the same name, so every
// configured route keeps working in dev environments.
func NewRegistry(cfg *config.PaymentConfig, logger *zerolog.Logger) map[string]adapter.PaymentGateway {
	log := logger.With().Str("component", "PaymentRegistry").Logger()
	gateways := make(map[string]adapter.PaymentGateway)

	paymob := NewPaymobGateway(cfg.Paymob.APIKey, cfg.Paymob.IntegrationID, cfg.Paymob.HMACSecret, cfg.Paymob.BaseURL)
	if paymob.Configured() {
		gateways["paymob"] = paymob
	} else {
		log.Warn().Msg("paymob credentials missing, using mock gateway")
		gateways["paymob"] = NewMockGateway("paymob")
	}

	tap := NewTapGateway(cfg.Tap.SecretKey, cfg.Tap.BaseURL)
	if tap.Configured() {
		gateways["tap"] = tap
	} else {
		log.Warn().Msg("tap credentials missing, using mock gateway")
		gateways["tap"] = NewMockGateway("tap")
	}

	gateways["mock"] = NewMockGateway("mock")
	return gateways
}
