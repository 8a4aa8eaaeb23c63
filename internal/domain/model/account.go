package model

import "time"

// UserAccount carries the user-owned value guarded by the ledger: a fungible
// credit balance and the entitlement time bank. TokenVersion is bumped to
// logically void every token minted for the user before the bump.
type UserAccount struct {
	UserID           string
	CreditBalance    int64
	CreditUpdatedAt  time.Time
	Entitlement      EntitlementSnapshot
	TokenVersion     int
	CouponResetNonce int
}

// NewUserAccount returns the zero-value account used when a user is seen for
// the first time by any crediting path.
func NewUserAccount(userID string, now time.Time) *UserAccount {
	return &UserAccount{
		UserID:          userID,
		CreditUpdatedAt: now,
		Entitlement:     EntitlementSnapshot{AccruedAt: now},
	}
}
