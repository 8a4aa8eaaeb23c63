package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"pclink-backend/internal/infra/redis"
	"pclink-backend/internal/usecase"
)

const (
	claimRateLimit  = 10
	claimRateWindow = time.Minute
)

type Server struct {
	pairingUC     usecase.PairingUseCase
	purchaseUC    usecase.PurchaseUseCase
	entitlementUC usecase.EntitlementUseCase
	auth          *AuthManager
	limiter       *redis.RateLimiter
	log           *zerolog.Logger
}

func NewServer(
	pairingUC usecase.PairingUseCase,
	purchaseUC usecase.PurchaseUseCase,
	entitlementUC usecase.EntitlementUseCase,
	auth *AuthManager,
	limiter *redis.RateLimiter,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		pairingUC:     pairingUC,
		purchaseUC:    purchaseUC,
		entitlementUC: entitlementUC,
		auth:          auth,
		limiter:       limiter,
		log:           logger,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// The pairing secret itself is the credential here; the caller has no
		// account token yet.
		r.Post("/pairing/claim", s.handleClaim)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Post("/pairing/issue", s.handleIssue)
			r.Get("/devices", s.handleListDevices)
			r.Post("/devices/revoke", s.handleRevokeDevice)
			r.Post("/purchases/verify", s.handleVerifyPurchase)
			r.Post("/subscriptions/buy", s.handleBuySubscription)
			r.Post("/coupons/redeem", s.handleRedeemCoupon)
			r.Post("/coupons/apply-fixed", s.handleApplyFixedCoupon)
			r.Post("/coupons/reset-nonce", s.handleResetNonce)
			r.Get("/account", s.handleGetAccount)
		})
	})
	return r
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := s.auth.ParseFromRequest(r)
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), id)))
	})
}
