package model

import "time"

type CouponType string

const (
	CouponTypeCredit  CouponType = "credit"
	CouponTypeSubDays CouponType = "subDays"
)

// Coupon is looked up by the SHA-256 hash of its code. Amount is signed:
// negative subDays amounts revoke tier time. The only mutation a redemption
// performs on the coupon itself is incrementing RedeemedCount.
type Coupon struct {
	CodeHash       string
	Type           CouponType
	Amount         int64 // credits, or days for subDays
	Tier           *Tier // required for subDays
	Enabled        bool
	MaxRedemptions *int
	PerUserLimit   *int // only the value 1 is supported
	ExpiresAt      *time.Time
	Campaign       string
	RedeemedCount  int
}

func (c *Coupon) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !now.Before(*c.ExpiresAt)
}

// RedemptionDeltas is what a redeemed coupon applied to the account.
type RedemptionDeltas struct {
	Credits        int64
	ProSeconds     int64
	PremiumSeconds int64
}

// CouponRedemption is keyed by (CodeHash, UserID, ResetNonce); its existence
// makes redeeming the same coupon by the same user replay-safe until the
// user's reset nonce is bumped.
type CouponRedemption struct {
	ID         string
	CodeHash   string
	UserID     string
	ResetNonce int
	Deltas     RedemptionDeltas
	Type       CouponType
	Tier       *Tier
	Amount     int64
	Campaign   string
	RedeemedAt time.Time
}
