package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"pclink-backend/internal/domain"
	"pclink-backend/internal/domain/model"
	"pclink-backend/internal/infra/metrics"
	"pclink-backend/internal/infra/redis"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain error kinds onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrPermissionDenied):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrExpired):
		status = http.StatusGone
	case errors.Is(err, domain.ErrResourceExhausted):
		status = http.StatusTooManyRequests
	case errors.Is(err, domain.ErrInsufficientCredits):
		status = http.StatusPaymentRequired
	case errors.Is(err, domain.ErrFailedPrecondition):
		status = http.StatusPreconditionFailed
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

type entitlementDTO struct {
	ProSeconds     int64     `json:"pro_seconds"`
	PremiumSeconds int64     `json:"premium_seconds"`
	AccruedAt      time.Time `json:"accrued_at"`
}

func toEntitlementDTO(s model.EntitlementSnapshot) entitlementDTO {
	return entitlementDTO{ProSeconds: s.ProSeconds, PremiumSeconds: s.PremiumSeconds, AccruedAt: s.AccruedAt}
}

// ----- Pairing -----

func (s *Server) handleIssue(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TTLMinutes int `json:"ttl_minutes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	id := identityFrom(r.Context())

	secret, expiresAt, err := s.pairingUC.IssueSecret(r.Context(), id.UserID, req.TTLMinutes)
	if err != nil {
		writeError(w, err)
		return
	}
	metrics.IncPairingIssued()
	writeJSON(w, http.StatusOK, map[string]any{
		"secret":     secret,
		"expires_at": expiresAt,
	})
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Secret   string `json:"secret"`
		DeviceID string `json:"device_id"`
		Platform string `json:"platform"`
		Nickname string `json:"nickname"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if s.limiter != nil && req.DeviceID != "" {
		ok, err := s.limiter.Allow(r.Context(), redis.ClaimAttemptKey(req.DeviceID), claimRateLimit, claimRateWindow)
		if err != nil {
			s.log.Warn().Err(err).Msg("claim rate limiter unavailable")
		} else if !ok {
			metrics.IncPairingClaim("locked_out")
			writeError(w, domain.ErrResourceExhausted)
			return
		}
	}

	token, err := s.pairingUC.ClaimAndPair(r.Context(), req.Secret, req.DeviceID, req.Platform, req.Nickname)
	if err != nil {
		metrics.IncPairingClaim(claimResult(err))
		writeError(w, err)
		return
	}
	metrics.IncPairingClaim("ok")
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func claimResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrPermissionDenied):
		return "denied"
	case errors.Is(err, domain.ErrExpired):
		return "expired"
	case errors.Is(err, domain.ErrResourceExhausted):
		return "locked_out"
	case errors.Is(err, domain.ErrFailedPrecondition):
		return "mint_failed"
	case errors.Is(err, domain.ErrInvalidArgument):
		return "invalid"
	default:
		return "error"
	}
}

func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	devices, err := s.pairingUC.ListDevices(r.Context(), id.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	type deviceDTO struct {
		DeviceID   string    `json:"device_id"`
		Nickname   string    `json:"nickname"`
		Platform   string    `json:"platform"`
		CreatedAt  time.Time `json:"created_at"`
		LastSeenAt time.Time `json:"last_seen_at"`
		Status     string    `json:"status"`
	}
	out := make([]deviceDTO, 0, len(devices))
	for _, d := range devices {
		out = append(out, deviceDTO{
			DeviceID:   d.ID,
			Nickname:   d.Nickname,
			Platform:   d.Platform,
			CreatedAt:  d.CreatedAt,
			LastSeenAt: d.LastSeenAt,
			Status:     string(d.Status),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": out})
}

func (s *Server) handleRevokeDevice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DeviceID string `json:"device_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	id := identityFrom(r.Context())

	if err := s.pairingUC.RevokeDevice(r.Context(), id.UserID, req.DeviceID); err != nil {
		metrics.IncDeviceRevocation("error")
		writeError(w, err)
		return
	}
	metrics.IncDeviceRevocation("ok")
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// ----- Purchases -----

func (s *Server) handleVerifyPurchase(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Platform   string `json:"platform"`
		ProductID  string `json:"product_id"`
		Payload    string `json:"verification_payload"`
		PurchaseID string `json:"purchase_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	id := identityFrom(r.Context())
	if id.Anonymous {
		writeError(w, domain.ErrPermissionDenied)
		return
	}

	res, err := s.purchaseUC.VerifyAndCredit(r.Context(), id.UserID, model.Platform(req.Platform), req.ProductID, req.Payload, req.PurchaseID)
	if err != nil {
		metrics.IncPurchase(req.Platform, "rejected")
		writeError(w, err)
		return
	}
	if res.AlreadyProcessed {
		metrics.IncPurchase(req.Platform, "duplicate")
	} else {
		metrics.IncPurchase(req.Platform, "granted")
		metrics.AddCreditsGranted(req.Platform, res.Granted)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"credit_balance":    res.CreditBalance,
		"granted":           res.Granted,
		"already_processed": res.AlreadyProcessed,
		"transaction_id":    res.TransactionID,
	})
}

// ----- Entitlements -----

func (s *Server) handleBuySubscription(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tier string `json:"tier"`
		Days int    `json:"days"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	id := identityFrom(r.Context())

	view, err := s.entitlementUC.BuySubscription(r.Context(), id.UserID, model.Tier(req.Tier), req.Days)
	if err != nil {
		metrics.IncSubscriptionPurchase(req.Tier, "error")
		writeError(w, err)
		return
	}
	metrics.IncSubscriptionPurchase(req.Tier, "ok")
	writeJSON(w, http.StatusOK, map[string]any{
		"credit_balance": view.CreditBalance,
		"entitlement":    toEntitlementDTO(view.Entitlement),
	})
}

func (s *Server) handleRedeemCoupon(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	id := identityFrom(r.Context())

	res, err := s.entitlementUC.RedeemCoupon(r.Context(), id.UserID, req.Code)
	if err != nil {
		metrics.IncCouponRedemption(couponOutcome(err))
		writeError(w, err)
		return
	}
	if res.AlreadyRedeemed {
		metrics.IncCouponRedemption("replayed")
	} else {
		metrics.IncCouponRedemption("redeemed")
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"already_redeemed": res.AlreadyRedeemed,
		"deltas": map[string]int64{
			"credits":         res.Deltas.Credits,
			"pro_seconds":     res.Deltas.ProSeconds,
			"premium_seconds": res.Deltas.PremiumSeconds,
		},
		"credit_balance": res.CreditBalance,
		"entitlement":    toEntitlementDTO(res.Entitlement),
	})
}

func couponOutcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrResourceExhausted):
		return "exhausted"
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrExpired),
		errors.Is(err, domain.ErrFailedPrecondition):
		return "rejected"
	default:
		return "error"
	}
}

func (s *Server) handleApplyFixedCoupon(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	id := identityFrom(r.Context())

	view, err := s.entitlementUC.ApplyFixedCoupon(r.Context(), id.UserID, id.Email, req.Code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"credit_balance": view.CreditBalance,
		"entitlement":    toEntitlementDTO(view.Entitlement),
		"code":           req.Code,
	})
}

func (s *Server) handleResetNonce(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())

	nonce, err := s.entitlementUC.ResetRedemptionNonce(r.Context(), id.UserID, id.Email)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"nonce": nonce})
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())

	view, err := s.entitlementUC.GetAccount(r.Context(), id.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"credit_balance": view.CreditBalance,
		"entitlement":    toEntitlementDTO(view.Entitlement),
	})
}
