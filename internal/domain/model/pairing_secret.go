package model

import (
	"time"
)

type PairingState string

const (
	PairingStateUnclaimed PairingState = "unclaimed"
	PairingStateClaimed   PairingState = "claimed"
	PairingStateUsed      PairingState = "used"
)

const (
	// Claim attempts are refused for this long once FailCount reaches
	// ClaimLockoutThreshold.
	ClaimLockoutThreshold = 5
	ClaimLockoutWindow    = 10 * time.Minute
)

// PairingSecret is the stored half of a one-time device pairing code. Only the
// peppered SHA-256 hash of the plaintext secret is persisted; the hash doubles
// as the row key.
type PairingSecret struct {
	Hash          string
	UserID        string
	State         PairingState
	Active        bool
	DeviceID      *string // set by claim, nil while unclaimed
	CreatedAt     time.Time
	ExpiresAt     time.Time
	UsedAt        *time.Time
	RevokedAt     *time.Time
	TokenIssuedAt *time.Time
	FailCount     int
	LastFailAt    *time.Time
}

func (s *PairingSecret) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// LockedOut reports whether repeated failures have put the secret inside its
// lockout window.
func (s *PairingSecret) LockedOut(now time.Time) bool {
	if s.FailCount < ClaimLockoutThreshold || s.LastFailAt == nil {
		return false
	}
	return now.Before(s.LastFailAt.Add(ClaimLockoutWindow))
}
