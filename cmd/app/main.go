// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pclink-backend/internal/config"
	"pclink-backend/internal/infra/auth"
	pg "pclink-backend/internal/infra/db/postgres"
	"pclink-backend/internal/infra/logging"
	"pclink-backend/internal/infra/metrics"
	red "pclink-backend/internal/infra/redis"
	"pclink-backend/internal/infra/sched"
	"pclink-backend/internal/infra/verify"
	"pclink-backend/internal/infra/web"
	"pclink-backend/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("[DEV MODE] Enabled")
	}

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()
	tm := pg.NewTxManager(pool)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)

	// ---- Repositories ----
	secretRepo := pg.NewPostgresPairingSecretRepo(pool)
	deviceRepo := pg.NewPostgresDeviceRepo(pool)
	accountRepo := pg.NewPostgresUserAccountRepo(pool)
	ledgerRepo := pg.NewPostgresPurchaseLedgerRepo(pool)
	couponRepo := pg.NewPostgresCouponRepo(pool)
	redemptionRepo := pg.NewPostgresCouponRedemptionRepo(pool)

	// ---- Adapters ----
	tokenIssuer := auth.NewJWTIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	playVerifier := verify.NewPlayDirectVerifier(cfg.Billing.PlayAccessToken)
	receiptVerifier := verify.NewAppStoreVerifier(cfg.Billing.AppleSharedSecret)

	// ---- Use cases ----
	pairingUC := usecase.NewPairingUseCase(secretRepo, deviceRepo, accountRepo, tokenIssuer, tm, cfg.Pairing.Pepper, logger)
	purchaseUC := usecase.NewPurchaseUseCase(ledgerRepo, accountRepo, playVerifier, receiptVerifier, cfg.Billing, tm, logger)
	entitlementUC := usecase.NewEntitlementUseCase(accountRepo, couponRepo, redemptionRepo, cfg.Billing, cfg.Debug.AllowedEmails, tm, logger)

	// ---- Background workers ----
	expiryWorker := sched.NewExpiryWorker(cfg.Pairing.SweepInterval, pairingUC, logger)
	go func() {
		if err := expiryWorker.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("expiry worker stopped")
		}
	}()

	// ---- HTTP server ----
	metrics.MustRegister()
	authMgr := web.NewAuthManager(cfg.Auth.JWTSecret)
	srv := web.NewServer(pairingUC, purchaseUC, entitlementUC, authMgr, rateLimiter, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
	cancel()
}
