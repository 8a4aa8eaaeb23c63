package model

import "time"

type Tier string

const (
	TierPro     Tier = "pro"
	TierPremium Tier = "premium"
)

func (t Tier) Valid() bool {
	return t == TierPro || t == TierPremium
}

// EntitlementSnapshot is the stored time-bank state of an account. The stored
// second counts are only meaningful relative to AccruedAt; callers must project
// the snapshot through DecayTo(now) before treating it as a live balance.
type EntitlementSnapshot struct {
	ProSeconds     int64
	PremiumSeconds int64
	AccruedAt      time.Time
}

// DecayTo projects the snapshot forward to now. Premium time absorbs elapsed
// wall-clock time first; only the leftover beyond premium's capacity drains
// pro. Both tiers are clamped at zero and the result is re-anchored at now.
func (s EntitlementSnapshot) DecayTo(now time.Time) EntitlementSnapshot {
	elapsed := int64(now.Sub(s.AccruedAt) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	leftover := elapsed - s.PremiumSeconds
	if leftover < 0 {
		leftover = 0
	}
	return EntitlementSnapshot{
		PremiumSeconds: clampNonNegative(s.PremiumSeconds - elapsed),
		ProSeconds:     clampNonNegative(s.ProSeconds - leftover),
		AccruedAt:      now,
	}
}

// Add merges a signed delta of seconds into one tier, clamping at zero.
// Negative deltas subtract time (used by revoking coupons).
func (s EntitlementSnapshot) Add(tier Tier, seconds int64) EntitlementSnapshot {
	out := s
	switch tier {
	case TierPro:
		out.ProSeconds = clampNonNegative(out.ProSeconds + seconds)
	case TierPremium:
		out.PremiumSeconds = clampNonNegative(out.PremiumSeconds + seconds)
	}
	return out
}

func clampNonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
