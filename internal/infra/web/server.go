// File: internal/infra/web/server.go
package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"membership-marketplace/internal/domain/ports/adapter"
	"membership-marketplace/internal/usecase"
)

// Server exposes the customer-facing API plus gateway webhooks.
type Server struct {
	checkoutUC   usecase.CheckoutUseCase
	finalizerUC  usecase.FinalizerUseCase
	billingUC    usecase.BillingUseCase
	voucherQRUC  usecase.VoucherQRUseCase
	membershipUC usecase.MembershipUseCase
	walletUC     usecase.WalletUseCase
	gateways     map[string]adapter.PaymentGateway
	terminalKey  string

	server *http.Server
	log    *zerolog.Logger
}

func NewServer(
	checkoutUC usecase.CheckoutUseCase,
	finalizerUC usecase.FinalizerUseCase,
	billingUC usecase.BillingUseCase,
	voucherQRUC usecase.VoucherQRUseCase,
	membershipUC usecase.MembershipUseCase,
	walletUC usecase.WalletUseCase,
	gateways map[string]adapter.PaymentGateway,
	terminalKey string,
	logger *zerolog.Logger,
) *Server {
	srvLog := logger.With().Str("component", "web").Logger()
	return &Server{
		checkoutUC:   checkoutUC,
		finalizerUC:  finalizerUC,
		billingUC:    billingUC,
		voucherQRUC:  voucherQRUC,
		membershipUC: membershipUC,
		walletUC:     walletUC,
		gateways:     gateways,
		terminalKey:  terminalKey,
		log:          &srvLog,
	}
}

// Router builds the chi mux. Exposed separately so tests can drive it with
// httptest without binding a port.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/plans", s.handleListPlans)

		r.Post("/checkout/cart", s.handleCheckoutCart)
		r.Post("/checkout/voucher", s.handleCheckoutVoucher)
		r.Post("/checkout/membership", s.handleCheckoutMembership)
		r.Get("/payments/{id}", s.handleIntentStatus)

		r.Post("/subscriptions/change-plan", s.handleChangePlan)

		r.Post("/vouchers/{id}/qr", s.handleIssueCode)
		r.Get("/memberships/{userID}/card", s.handleMembershipCard)

		// Provider terminal routes
		r.Group(func(r chi.Router) {
			r.Use(s.terminalAuth)
			r.Post("/qr/redeem/{code}", s.handleRedeemCode)
			r.Post("/memberships/scan", s.handleMembershipScan)
		})

		r.Post("/wallet/withdraw", s.handleWithdraw)
		r.Get("/wallet/{userID}/balance", s.handleBalance)
	})

	r.Post("/webhooks/{gateway}", s.handleWebhook)

	return r
}

func (s *Server) Start(port int) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Info().Int("port", port).Msg("http server listening")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}
