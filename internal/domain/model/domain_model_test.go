//go:build !integration

package model

import (
	"testing"
	"time"
)

// --- TimeBank Tests ---

func TestEntitlementSnapshot_DecayTo(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("premium absorbs elapsed time before pro is touched", func(t *testing.T) {
		s := EntitlementSnapshot{ProSeconds: 100, PremiumSeconds: 50, AccruedAt: base}
		got := s.DecayTo(base.Add(30 * time.Second))

		if got.PremiumSeconds != 20 {
			t.Errorf("expected premium remaining 20, got %d", got.PremiumSeconds)
		}
		if got.ProSeconds != 100 {
			t.Errorf("expected pro untouched at 100, got %d", got.ProSeconds)
		}
	})

	t.Run("leftover beyond premium drains pro", func(t *testing.T) {
		s := EntitlementSnapshot{ProSeconds: 100, PremiumSeconds: 50, AccruedAt: base}
		got := s.DecayTo(base.Add(120 * time.Second))

		if got.PremiumSeconds != 0 {
			t.Errorf("expected premium remaining 0, got %d", got.PremiumSeconds)
		}
		// elapsed 120, premium absorbs 50, leftover 70 drains pro to 30
		if got.ProSeconds != 30 {
			t.Errorf("expected pro remaining 30, got %d", got.ProSeconds)
		}
	})

	t.Run("both tiers clamp at zero", func(t *testing.T) {
		s := EntitlementSnapshot{ProSeconds: 10, PremiumSeconds: 10, AccruedAt: base}
		got := s.DecayTo(base.Add(time.Hour))

		if got.ProSeconds != 0 || got.PremiumSeconds != 0 {
			t.Errorf("expected fully drained snapshot, got pro=%d premium=%d", got.ProSeconds, got.PremiumSeconds)
		}
	})

	t.Run("a snapshot from the future does not grow the balance", func(t *testing.T) {
		s := EntitlementSnapshot{ProSeconds: 100, PremiumSeconds: 50, AccruedAt: base.Add(time.Hour)}
		got := s.DecayTo(base)

		if got.ProSeconds != 100 || got.PremiumSeconds != 50 {
			t.Errorf("expected unchanged balances, got pro=%d premium=%d", got.ProSeconds, got.PremiumSeconds)
		}
		if !got.AccruedAt.Equal(base) {
			t.Errorf("expected snapshot re-anchored at now, got %v", got.AccruedAt)
		}
	})

	t.Run("decay is anchored at now", func(t *testing.T) {
		s := EntitlementSnapshot{ProSeconds: 100, AccruedAt: base}
		now := base.Add(10 * time.Second)
		if got := s.DecayTo(now); !got.AccruedAt.Equal(now) {
			t.Errorf("expected AccruedAt %v, got %v", now, got.AccruedAt)
		}
	})
}

func TestEntitlementSnapshot_Add(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := EntitlementSnapshot{ProSeconds: 100, PremiumSeconds: 50, AccruedAt: base}

	t.Run("adds to the named tier only", func(t *testing.T) {
		got := s.Add(TierPro, 60)
		if got.ProSeconds != 160 || got.PremiumSeconds != 50 {
			t.Errorf("unexpected balances pro=%d premium=%d", got.ProSeconds, got.PremiumSeconds)
		}
	})

	t.Run("negative deltas clamp at zero", func(t *testing.T) {
		got := s.Add(TierPremium, -500)
		if got.PremiumSeconds != 0 {
			t.Errorf("expected premium clamped to 0, got %d", got.PremiumSeconds)
		}
	})
}

// --- PairingSecret Tests ---

func TestPairingSecret_LockedOut(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("below the threshold never locks", func(t *testing.T) {
		at := now.Add(-time.Minute)
		s := PairingSecret{FailCount: ClaimLockoutThreshold - 1, LastFailAt: &at}
		if s.LockedOut(now) {
			t.Error("expected no lockout below threshold")
		}
	})

	t.Run("locks inside the window", func(t *testing.T) {
		at := now.Add(-time.Minute)
		s := PairingSecret{FailCount: ClaimLockoutThreshold, LastFailAt: &at}
		if !s.LockedOut(now) {
			t.Error("expected lockout inside the window")
		}
	})

	t.Run("window expires", func(t *testing.T) {
		at := now.Add(-ClaimLockoutWindow - time.Second)
		s := PairingSecret{FailCount: ClaimLockoutThreshold + 3, LastFailAt: &at}
		if s.LockedOut(now) {
			t.Error("expected lockout to expire with the window")
		}
	})
}

func TestNewDevice_DefaultNickname(t *testing.T) {
	now := time.Now()
	d := NewDevice("user-1", "device-12345", "windows", "", now)
	if d.Nickname != DefaultDeviceNickname {
		t.Errorf("expected default nickname %q, got %q", DefaultDeviceNickname, d.Nickname)
	}
	if d.Status != DeviceStatusActive {
		t.Errorf("expected status active, got %q", d.Status)
	}
}
