// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"membership-marketplace/internal/config"
	pg "membership-marketplace/internal/infra/db/postgres"
	"membership-marketplace/internal/infra/logging"
	"membership-marketplace/internal/infra/metrics"
	"membership-marketplace/internal/infra/payment"
	red "membership-marketplace/internal/infra/redis"
	"membership-marketplace/internal/infra/sched"
	"membership-marketplace/internal/infra/security"
	"membership-marketplace/internal/infra/web"
	"membership-marketplace/internal/infra/worker"
	"membership-marketplace/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, mock gateways)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}
	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)

	// ---- Encryption ----
	encKey := cfg.Security.EncryptionKey
	if len(encKey) != 32 {
		logger.Warn().Msg("security.encryption_key not set or not 32 bytes; falling back to dev key (INSECURE)")
		encKey = "0123456789abcdef0123456789abcdef"
	}
	encSvc, err := security.NewEncryptionService(encKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("encryption")
	}

	// ---- Repositories ----
	tm := pg.NewTxManager(pool)
	intentRepo := pg.NewIntentRepo(pool)
	planRepo := pg.NewPlanRepoCacheDecorator(pg.NewPlanRepo(pool), redisClient)
	memPaymentRepo := pg.NewMembershipPaymentRepo(pool)
	membershipRepo := pg.NewUserMembershipRepo(pool)
	subRepo := pg.NewSubscriptionRepo(pool)
	invoiceRepo := pg.NewInvoiceRepo(pool)
	voucherRepo := pg.NewVoucherRepo(pool)
	orderRepo := pg.NewOrderRepo(pool)
	cartRepo := pg.NewCartRepo(pool)
	providerRepo := pg.NewProviderRepo(pool)
	walletRepo := pg.NewWalletRepo(pool)

	// ---- Payment gateways ----
	gateways := payment.NewRegistry(&cfg.Payment, logger)
	defaultGateway, ok := gateways[cfg.Payment.Gateway]
	if !ok {
		logger.Fatal().Str("gateway", cfg.Payment.Gateway).Msg("payment.gateway names an unknown provider")
	}

	// ---- Use cases ----
	billingUC := usecase.NewBillingUseCase(tm, subRepo, invoiceRepo, intentRepo, planRepo,
		defaultGateway, encSvc, cfg.Billing.MaxRetries, logger)
	finalizerUC := usecase.NewFinalizerUseCase(tm, intentRepo, memPaymentRepo, membershipRepo,
		voucherRepo, orderRepo, cartRepo, subRepo, billingUC, gateways, cfg.Billing.OrderExpiry, logger)
	checkoutUC := usecase.NewCheckoutUseCase(intentRepo, cartRepo, providerRepo, planRepo,
		memPaymentRepo, gateways, finalizerUC, logger)
	voucherQRUC := usecase.NewVoucherQRUseCase(voucherRepo, cfg.Billing.VoucherCodeTTL, logger)
	membershipUC := usecase.NewMembershipUseCase(membershipRepo, planRepo, []byte(cfg.Security.JWTSecret), logger)
	walletUC := usecase.NewWalletUseCase(tm, walletRepo, logger)

	// ---- Background workers ----
	taskPool := worker.NewPool(4, logger)
	taskPool.Start(ctx)
	defer taskPool.Stop()
	billingWorker := sched.NewBillingWorker(cfg.Billing.Interval, billingUC, locker, logger)
	go func() { _ = billingWorker.Run(ctx, taskPool) }()
	expiryWorker := sched.NewOrderExpiryWorker(cfg.Billing.ExpirySweep, orderRepo, logger)
	go func() { _ = expiryWorker.Run(ctx) }()

	// ---- HTTP server ----
	server := web.NewServer(checkoutUC, finalizerUC, billingUC, voucherQRUC, membershipUC, walletUC, gateways,
		cfg.Security.TerminalAPIKey, logger)
	go func() {
		if err := server.Start(cfg.Server.Port); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}
