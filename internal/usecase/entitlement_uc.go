// File: internal/usecase/entitlement_uc.go
package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"pclink-backend/internal/config"
	"pclink-backend/internal/domain"
	"pclink-backend/internal/domain/model"
	"pclink-backend/internal/domain/ports/repository"
	"pclink-backend/internal/infra/logging"
)

// Compile-time check
var _ EntitlementUseCase = (*entitlementUC)(nil)

const secondsPerDay = 24 * 60 * 60

// AccountView is the caller-visible account state: balance plus the
// entitlement snapshot projected to now (the projection is never persisted by
// read paths).
type AccountView struct {
	CreditBalance int64
	Entitlement   model.EntitlementSnapshot
}

// CouponResult reports a ledgered coupon redemption.
type CouponResult struct {
	AlreadyRedeemed bool
	Deltas          model.RedemptionDeltas
	CreditBalance   int64
	Entitlement     model.EntitlementSnapshot
}

type EntitlementUseCase interface {
	// BuySubscription spends credits for a (tier, days) pack and tops up the
	// decayed remaining seconds of that tier.
	BuySubscription(ctx context.Context, userID string, tier model.Tier, days int) (*AccountView, error)
	// RedeemCoupon applies a coupon's deltas exactly once per
	// (code, user, reset nonce).
	RedeemCoupon(ctx context.Context, userID, code string) (*CouponResult, error)
	// ApplyFixedCoupon applies one of the fixed debug codes. Unlike
	// RedeemCoupon it keeps no redemption ledger: repeated calls reapply the
	// delta each time. Gated by the debug allow-list.
	ApplyFixedCoupon(ctx context.Context, userID, email, code string) (*AccountView, error)
	// ResetRedemptionNonce bumps the user's coupon reset nonce, making every
	// coupon redeemable again for that user. Gated by the debug allow-list.
	ResetRedemptionNonce(ctx context.Context, userID, email string) (int, error)
	GetAccount(ctx context.Context, userID string) (*AccountView, error)
}

type entitlementUC struct {
	accounts    repository.UserAccountRepository
	coupons     repository.CouponRepository
	redemptions repository.CouponRedemptionRepository
	billing     config.BillingConfig
	debugEmails []string
	tm          repository.TransactionManager
	log         *zerolog.Logger
}

func NewEntitlementUseCase(
	accounts repository.UserAccountRepository,
	coupons repository.CouponRepository,
	redemptions repository.CouponRedemptionRepository,
	billing config.BillingConfig,
	debugEmails []string,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *entitlementUC {
	return &entitlementUC{
		accounts:    accounts,
		coupons:     coupons,
		redemptions: redemptions,
		billing:     billing,
		debugEmails: debugEmails,
		tm:          tm,
		log:         logger,
	}
}

func hashCouponCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

func (u *entitlementUC) emailAllowed(email string) bool {
	for _, e := range u.debugEmails {
		if strings.EqualFold(e, email) {
			return true
		}
	}
	return false
}

func (u *entitlementUC) loadOrNewAccount(ctx context.Context, tx repository.Tx, userID string, now time.Time) (*model.UserAccount, error) {
	acct, err := u.accounts.Find(ctx, tx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return model.NewUserAccount(userID, now), nil
	}
	return acct, err
}

func (u *entitlementUC) BuySubscription(ctx context.Context, userID string, tier model.Tier, days int) (*AccountView, error) {
	defer logging.TraceDuration(u.log, "EntitlementUC.BuySubscription")()

	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}
	if !tier.Valid() {
		return nil, fmt.Errorf("%w: unknown tier %q", domain.ErrInvalidArgument, tier)
	}
	pack := u.billing.FindPack(string(tier), days)
	if pack == nil {
		return nil, fmt.Errorf("%w: no pack for tier %q and %d days", domain.ErrInvalidArgument, tier, days)
	}

	var view AccountView
	txOpts := pgx.TxOptions{IsoLevel: pgx.Serializable}
	err := u.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		now := time.Now().UTC()
		acct, err := u.loadOrNewAccount(ctx, tx, userID, now)
		if err != nil {
			return err
		}
		if acct.CreditBalance < pack.Cost {
			return fmt.Errorf("%w: balance %d, pack costs %d", domain.ErrInsufficientCredits, acct.CreditBalance, pack.Cost)
		}

		// Top up on the decayed remainder, never on the stored seconds.
		snap := acct.Entitlement.DecayTo(now)
		acct.Entitlement = snap.Add(tier, int64(days)*secondsPerDay)
		acct.CreditBalance -= pack.Cost
		acct.CreditUpdatedAt = now
		if err := u.accounts.Save(ctx, tx, acct); err != nil {
			return err
		}
		view = AccountView{CreditBalance: acct.CreditBalance, Entitlement: acct.Entitlement}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func (u *entitlementUC) RedeemCoupon(ctx context.Context, userID, code string) (*CouponResult, error) {
	defer logging.TraceDuration(u.log, "EntitlementUC.RedeemCoupon")()

	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("%w: empty coupon code", domain.ErrInvalidArgument)
	}
	codeHash := hashCouponCode(code)

	var res CouponResult
	txOpts := pgx.TxOptions{IsoLevel: pgx.Serializable}
	err := u.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		res = CouponResult{}

		coupon, err := u.coupons.FindByHash(ctx, tx, codeHash)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		acct, err := u.loadOrNewAccount(ctx, tx, userID, now)
		if err != nil {
			return err
		}

		if !coupon.Enabled {
			return fmt.Errorf("%w: coupon disabled", domain.ErrFailedPrecondition)
		}
		if coupon.Amount == 0 {
			return fmt.Errorf("%w: coupon has zero amount", domain.ErrFailedPrecondition)
		}
		if coupon.Type != model.CouponTypeCredit && coupon.Type != model.CouponTypeSubDays {
			return fmt.Errorf("%w: unknown coupon type %q", domain.ErrFailedPrecondition, coupon.Type)
		}
		if coupon.Type == model.CouponTypeSubDays && (coupon.Tier == nil || !coupon.Tier.Valid()) {
			return fmt.Errorf("%w: subDays coupon without tier", domain.ErrFailedPrecondition)
		}
		if coupon.Expired(now) {
			return fmt.Errorf("%w: coupon expired", domain.ErrExpired)
		}

		// Replay-safe: an existing redemption for this nonce answers with the
		// recorded deltas and changes nothing.
		prior, err := u.redemptions.Find(ctx, tx, codeHash, userID, acct.CouponResetNonce)
		if err == nil {
			res = CouponResult{
				AlreadyRedeemed: true,
				Deltas:          prior.Deltas,
				CreditBalance:   acct.CreditBalance,
				Entitlement:     acct.Entitlement.DecayTo(now),
			}
			return nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		if coupon.MaxRedemptions != nil {
			if *coupon.MaxRedemptions <= 0 {
				return fmt.Errorf("%w: unsupported maxRedemptions %d", domain.ErrFailedPrecondition, *coupon.MaxRedemptions)
			}
			if coupon.RedeemedCount >= *coupon.MaxRedemptions {
				return fmt.Errorf("%w: coupon fully redeemed", domain.ErrResourceExhausted)
			}
		}
		if coupon.PerUserLimit != nil && *coupon.PerUserLimit != 1 {
			return fmt.Errorf("%w: unsupported perUserLimit %d", domain.ErrFailedPrecondition, *coupon.PerUserLimit)
		}

		var deltas model.RedemptionDeltas
		switch coupon.Type {
		case model.CouponTypeCredit:
			deltas.Credits = coupon.Amount
		case model.CouponTypeSubDays:
			secs := coupon.Amount * secondsPerDay
			if *coupon.Tier == model.TierPro {
				deltas.ProSeconds = secs
			} else {
				deltas.PremiumSeconds = secs
			}
		}

		snap := acct.Entitlement.DecayTo(now)
		snap = snap.Add(model.TierPro, deltas.ProSeconds)
		snap = snap.Add(model.TierPremium, deltas.PremiumSeconds)
		acct.Entitlement = snap
		acct.CreditBalance += deltas.Credits
		if acct.CreditBalance < 0 {
			acct.CreditBalance = 0
		}
		acct.CreditUpdatedAt = now
		if err := u.accounts.Save(ctx, tx, acct); err != nil {
			return err
		}

		redemption := &model.CouponRedemption{
			ID:         uuid.NewString(),
			CodeHash:   codeHash,
			UserID:     userID,
			ResetNonce: acct.CouponResetNonce,
			Deltas:     deltas,
			Type:       coupon.Type,
			Tier:       coupon.Tier,
			Amount:     coupon.Amount,
			Campaign:   coupon.Campaign,
			RedeemedAt: now,
		}
		if err := u.redemptions.Save(ctx, tx, redemption); err != nil {
			return err
		}

		coupon.RedeemedCount++
		if err := u.coupons.Save(ctx, tx, coupon); err != nil {
			return err
		}

		res = CouponResult{
			Deltas:        deltas,
			CreditBalance: acct.CreditBalance,
			Entitlement:   acct.Entitlement,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// fixedCoupons is the small hardcoded vocabulary of debug codes. These bypass
// the redemption ledger on purpose: reapplying one repeats its delta.
var fixedCoupons = map[string]model.RedemptionDeltas{
	"DEV-CREDITS-100": {Credits: 100},
	"DEV-PRO-7D":      {ProSeconds: 7 * secondsPerDay},
	"DEV-PREMIUM-3D":  {PremiumSeconds: 3 * secondsPerDay},
	"DEV-UNPRO-7D":    {ProSeconds: -7 * secondsPerDay},
}

func (u *entitlementUC) ApplyFixedCoupon(ctx context.Context, userID, email, code string) (*AccountView, error) {
	defer logging.TraceDuration(u.log, "EntitlementUC.ApplyFixedCoupon")()

	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}
	if !u.emailAllowed(email) {
		return nil, fmt.Errorf("%w: not on the debug allow-list", domain.ErrPermissionDenied)
	}
	deltas, ok := fixedCoupons[strings.TrimSpace(code)]
	if !ok {
		return nil, fmt.Errorf("%w: unknown fixed coupon", domain.ErrNotFound)
	}

	var view AccountView
	txOpts := pgx.TxOptions{IsoLevel: pgx.Serializable}
	err := u.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		now := time.Now().UTC()
		acct, err := u.loadOrNewAccount(ctx, tx, userID, now)
		if err != nil {
			return err
		}

		snap := acct.Entitlement.DecayTo(now)
		snap = snap.Add(model.TierPro, deltas.ProSeconds)
		snap = snap.Add(model.TierPremium, deltas.PremiumSeconds)
		acct.Entitlement = snap
		acct.CreditBalance += deltas.Credits
		if acct.CreditBalance < 0 {
			acct.CreditBalance = 0
		}
		acct.CreditUpdatedAt = now
		if err := u.accounts.Save(ctx, tx, acct); err != nil {
			return err
		}
		view = AccountView{CreditBalance: acct.CreditBalance, Entitlement: acct.Entitlement}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func (u *entitlementUC) ResetRedemptionNonce(ctx context.Context, userID, email string) (int, error) {
	defer logging.TraceDuration(u.log, "EntitlementUC.ResetRedemptionNonce")()

	if userID == "" {
		return 0, domain.ErrUnauthenticated
	}
	if !u.emailAllowed(email) {
		return 0, fmt.Errorf("%w: not on the debug allow-list", domain.ErrPermissionDenied)
	}

	var nonce int
	txOpts := pgx.TxOptions{IsoLevel: pgx.Serializable}
	err := u.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		now := time.Now().UTC()
		acct, err := u.loadOrNewAccount(ctx, tx, userID, now)
		if err != nil {
			return err
		}
		acct.CouponResetNonce++
		if err := u.accounts.Save(ctx, tx, acct); err != nil {
			return err
		}
		nonce = acct.CouponResetNonce
		return nil
	})
	if err != nil {
		return 0, err
	}
	return nonce, nil
}

func (u *entitlementUC) GetAccount(ctx context.Context, userID string) (*AccountView, error) {
	defer logging.TraceDuration(u.log, "EntitlementUC.GetAccount")()

	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}
	now := time.Now().UTC()
	acct, err := u.accounts.Find(ctx, repository.NoTX, userID)
	if errors.Is(err, domain.ErrNotFound) {
		acct = model.NewUserAccount(userID, now)
	} else if err != nil {
		return nil, err
	}
	return &AccountView{
		CreditBalance: acct.CreditBalance,
		Entitlement:   acct.Entitlement.DecayTo(now),
	}, nil
}
