// File: internal/infra/web/webhooks.go
package web

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"membership-marketplace/internal/domain"
	"membership-marketplace/internal/infra/metrics"
)

// handleWebhook acknowledges every well-formed delivery with 200, including
// replays and payloads for unknown references. Returning an error status
// makes gateways retry forever; the claim makes replays harmless.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "gateway")
	gw, ok := s.gateways[name]
	if !ok {
		metrics.IncWebhook(name, "invalid")
		http.Error(w, "unknown gateway", http.StatusNotFound)
		return
	}

	n, err := gw.ParseNotification(r)
	if err != nil {
		metrics.IncWebhook(name, "invalid")
		s.log.Warn().Err(err).Str("gateway", name).Msg("webhook rejected")
		http.Error(w, "invalid notification", http.StatusBadRequest)
		return
	}

	if err := s.finalizerUC.HandleNotification(r.Context(), name, n); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Reference we never issued; ack so the gateway stops retrying.
			metrics.IncWebhook(name, "ok")
			s.log.Warn().Str("gateway", name).Str("external_ref", n.ExternalRef).Msg("webhook for unknown reference")
			w.WriteHeader(http.StatusOK)
			return
		}
		metrics.IncWebhook(name, "error")
		s.log.Error().Err(err).Str("gateway", name).Str("external_ref", n.ExternalRef).Msg("webhook processing failed")
		// 500 so the gateway redelivers; fulfillment is idempotent.
		http.Error(w, "processing failed", http.StatusInternalServerError)
		return
	}

	metrics.IncWebhook(name, "ok")
	w.WriteHeader(http.StatusOK)
}
