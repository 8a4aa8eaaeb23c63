//go:build !integration

package usecase_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"pclink-backend/internal/domain"
	"pclink-backend/internal/domain/model"
	"pclink-backend/internal/domain/ports/repository"
	"pclink-backend/internal/usecase"
)

const testPepper = "test-pepper"

func hashWithPepper(secret string) string {
	sum := sha256.Sum256([]byte(secret + testPepper))
	return hex.EncodeToString(sum[:])
}

type pairingFixture struct {
	uc       usecase.PairingUseCase
	secrets  *MockPairingSecretRepo
	devices  *MockDeviceRepo
	accounts *MockUserAccountRepo
	tokens   *MockTokenIssuer
}

func newPairingFixture() *pairingFixture {
	f := &pairingFixture{
		secrets:  NewMockPairingSecretRepo(),
		devices:  NewMockDeviceRepo(),
		accounts: NewMockUserAccountRepo(),
		tokens:   &MockTokenIssuer{},
	}
	f.uc = usecase.NewPairingUseCase(f.secrets, f.devices, f.accounts, f.tokens, &MockTxManager{}, testPepper, newTestLogger())
	return f
}

func (f *pairingFixture) seedSecret(secret, userID string, expiresAt time.Time) {
	s := &model.PairingSecret{
		Hash:      hashWithPepper(secret),
		UserID:    userID,
		State:     model.PairingStateUnclaimed,
		Active:    true,
		CreatedAt: time.Now().UTC().Add(-time.Minute),
		ExpiresAt: expiresAt,
	}
	_ = f.secrets.Save(context.Background(), repository.NoTX, s)
}

const (
	testSecret   = "0123456789abcdef0123456789abcdef"
	testDeviceID = "device-0001"
)

func TestPairingUC_IssueSecret(t *testing.T) {
	ctx := context.Background()

	t.Run("stores only the hash and honors the default TTL", func(t *testing.T) {
		f := newPairingFixture()
		before := time.Now().UTC()
		secret, expiresAt, err := f.uc.IssueSecret(ctx, "user-1", 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(secret) != 64 {
			t.Errorf("expected a 64-char hex secret, got %d chars", len(secret))
		}
		if _, ok := f.secrets.secrets[secret]; ok {
			t.Error("plaintext secret must never be persisted")
		}
		stored, ok := f.secrets.secrets[hashWithPepper(secret)]
		if !ok {
			t.Fatal("expected secret stored under its peppered hash")
		}
		if stored.State != model.PairingStateUnclaimed || !stored.Active {
			t.Errorf("expected active unclaimed secret, got state=%q active=%v", stored.State, stored.Active)
		}
		if d := expiresAt.Sub(before); d < 19*time.Minute || d > 21*time.Minute {
			t.Errorf("expected default 20 minute TTL, got %v", d)
		}
	})

	t.Run("clamps the requested TTL", func(t *testing.T) {
		f := newPairingFixture()
		cases := []struct {
			requested int
			want      time.Duration
		}{
			{requested: 1, want: 5 * time.Minute},
			{requested: 240, want: 60 * time.Minute},
			{requested: 30, want: 30 * time.Minute},
		}
		for _, tc := range cases {
			before := time.Now().UTC()
			_, expiresAt, err := f.uc.IssueSecret(ctx, "user-1", tc.requested)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if d := expiresAt.Sub(before); d < tc.want-time.Minute || d > tc.want+time.Minute {
				t.Errorf("requested %d minutes: expected TTL near %v, got %v", tc.requested, tc.want, d)
			}
		}
	})

	t.Run("requires a caller", func(t *testing.T) {
		f := newPairingFixture()
		if _, _, err := f.uc.IssueSecret(ctx, "", 20); !errors.Is(err, domain.ErrUnauthenticated) {
			t.Errorf("expected ErrUnauthenticated, got %v", err)
		}
	})
}

func TestPairingUC_ClaimAndPair(t *testing.T) {
	ctx := context.Background()
	future := time.Now().UTC().Add(20 * time.Minute)

	t.Run("happy path mints a token and binds the device", func(t *testing.T) {
		f := newPairingFixture()
		f.seedSecret(testSecret, "user-1", future)

		token, err := f.uc.ClaimAndPair(ctx, testSecret, testDeviceID, "windows", "Office PC")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if token != "signed-token-for-user-1" {
			t.Errorf("unexpected token %q", token)
		}

		s := f.secrets.secrets[hashWithPepper(testSecret)]
		if s.State != model.PairingStateUsed || s.Active {
			t.Errorf("expected used inactive secret, got state=%q active=%v", s.State, s.Active)
		}
		if s.UsedAt == nil || s.TokenIssuedAt == nil {
			t.Error("expected UsedAt and TokenIssuedAt set")
		}

		dev, err := f.devices.Find(ctx, repository.NoTX, "user-1", testDeviceID)
		if err != nil {
			t.Fatalf("expected device to exist: %v", err)
		}
		if dev.Nickname != "Office PC" || dev.Platform != "windows" {
			t.Errorf("unexpected device %+v", dev)
		}
	})

	t.Run("second claim of a consumed secret is denied", func(t *testing.T) {
		f := newPairingFixture()
		f.seedSecret(testSecret, "user-1", future)
		if _, err := f.uc.ClaimAndPair(ctx, testSecret, testDeviceID, "windows", ""); err != nil {
			t.Fatalf("first claim failed: %v", err)
		}
		if _, err := f.uc.ClaimAndPair(ctx, testSecret, "device-0002", "windows", ""); !errors.Is(err, domain.ErrPermissionDenied) {
			t.Errorf("expected ErrPermissionDenied on replay, got %v", err)
		}
		if s := f.secrets.secrets[hashWithPepper(testSecret)]; s.FailCount != 1 {
			t.Errorf("expected the failed replay counted, got fail count %d", s.FailCount)
		}
	})

	t.Run("a consumed secret past its TTL is still denied, not expired", func(t *testing.T) {
		f := newPairingFixture()
		f.seedSecret(testSecret, "user-1", future)
		if _, err := f.uc.ClaimAndPair(ctx, testSecret, testDeviceID, "windows", ""); err != nil {
			t.Fatalf("first claim failed: %v", err)
		}
		hash := hashWithPepper(testSecret)
		s := f.secrets.secrets[hash]
		s.ExpiresAt = time.Now().UTC().Add(-time.Hour)
		f.secrets.secrets[hash] = s

		if _, err := f.uc.ClaimAndPair(ctx, testSecret, "device-0002", "windows", ""); !errors.Is(err, domain.ErrPermissionDenied) {
			t.Errorf("expected ErrPermissionDenied on replay, got %v", err)
		}
		s = f.secrets.secrets[hash]
		if s.FailCount != 1 {
			t.Errorf("expected the failed replay counted, got fail count %d", s.FailCount)
		}
		if s.RevokedAt != nil {
			t.Error("expected no revocation stamp on a consumed secret")
		}
	})

	t.Run("repeated replays lock the secret out", func(t *testing.T) {
		f := newPairingFixture()
		f.seedSecret(testSecret, "user-1", future)
		if _, err := f.uc.ClaimAndPair(ctx, testSecret, testDeviceID, "windows", ""); err != nil {
			t.Fatalf("first claim failed: %v", err)
		}
		for i := 0; i < model.ClaimLockoutThreshold; i++ {
			if _, err := f.uc.ClaimAndPair(ctx, testSecret, "device-0002", "windows", ""); !errors.Is(err, domain.ErrPermissionDenied) {
				t.Fatalf("replay %d: expected ErrPermissionDenied, got %v", i, err)
			}
		}
		if _, err := f.uc.ClaimAndPair(ctx, testSecret, "device-0002", "windows", ""); !errors.Is(err, domain.ErrResourceExhausted) {
			t.Errorf("expected ErrResourceExhausted after the threshold, got %v", err)
		}
	})

	t.Run("unknown secret is not found", func(t *testing.T) {
		f := newPairingFixture()
		if _, err := f.uc.ClaimAndPair(ctx, testSecret, testDeviceID, "windows", ""); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("expired secret fails but its deactivation persists", func(t *testing.T) {
		f := newPairingFixture()
		f.seedSecret(testSecret, "user-1", time.Now().UTC().Add(-time.Minute))

		if _, err := f.uc.ClaimAndPair(ctx, testSecret, testDeviceID, "windows", ""); !errors.Is(err, domain.ErrExpired) {
			t.Fatalf("expected ErrExpired, got %v", err)
		}
		s := f.secrets.secrets[hashWithPepper(testSecret)]
		if s.Active {
			t.Error("expected expired secret deactivated despite the failed claim")
		}
		if s.RevokedAt == nil {
			t.Error("expected RevokedAt recorded")
		}
	})

	t.Run("locked out secret is throttled", func(t *testing.T) {
		f := newPairingFixture()
		f.seedSecret(testSecret, "user-1", future)
		hash := hashWithPepper(testSecret)
		s := f.secrets.secrets[hash]
		at := time.Now().UTC()
		s.FailCount = model.ClaimLockoutThreshold
		s.LastFailAt = &at
		f.secrets.secrets[hash] = s

		if _, err := f.uc.ClaimAndPair(ctx, testSecret, testDeviceID, "windows", ""); !errors.Is(err, domain.ErrResourceExhausted) {
			t.Errorf("expected ErrResourceExhausted, got %v", err)
		}
	})

	t.Run("mint failure rolls the claim back so the secret stays claimable", func(t *testing.T) {
		f := newPairingFixture()
		f.seedSecret(testSecret, "user-1", future)
		f.tokens.MintFunc = func(ctx context.Context, userID string, claims map[string]any) (string, error) {
			return "", errors.New("signer unavailable")
		}

		if _, err := f.uc.ClaimAndPair(ctx, testSecret, testDeviceID, "windows", ""); !errors.Is(err, domain.ErrFailedPrecondition) {
			t.Fatalf("expected ErrFailedPrecondition, got %v", err)
		}
		s := f.secrets.secrets[hashWithPepper(testSecret)]
		if s.State != model.PairingStateUnclaimed || !s.Active || s.DeviceID != nil {
			t.Fatalf("expected rolled-back secret, got state=%q active=%v deviceID=%v", s.State, s.Active, s.DeviceID)
		}

		// With the signer healthy again, the same secret pairs normally.
		f.tokens.MintFunc = nil
		if _, err := f.uc.ClaimAndPair(ctx, testSecret, testDeviceID, "windows", ""); err != nil {
			t.Errorf("expected retry to succeed, got %v", err)
		}
	})

	t.Run("a concurrent change between claim and finalize is denied", func(t *testing.T) {
		f := newPairingFixture()
		f.seedSecret(testSecret, "user-1", future)
		hash := hashWithPepper(testSecret)
		f.tokens.MintFunc = func(ctx context.Context, userID string, claims map[string]any) (string, error) {
			// Simulate another actor stealing the claim while the mint is in
			// flight.
			s := f.secrets.secrets[hash]
			other := "device-9999"
			s.DeviceID = &other
			f.secrets.secrets[hash] = s
			return "token", nil
		}

		if _, err := f.uc.ClaimAndPair(ctx, testSecret, testDeviceID, "windows", ""); !errors.Is(err, domain.ErrPermissionDenied) {
			t.Errorf("expected ErrPermissionDenied, got %v", err)
		}
	})

	t.Run("rejects malformed input before touching storage", func(t *testing.T) {
		f := newPairingFixture()
		if _, err := f.uc.ClaimAndPair(ctx, "short", testDeviceID, "windows", ""); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("short secret: expected ErrInvalidArgument, got %v", err)
		}
		if _, err := f.uc.ClaimAndPair(ctx, testSecret, "dev", "windows", ""); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("short deviceId: expected ErrInvalidArgument, got %v", err)
		}
		if _, err := f.uc.ClaimAndPair(ctx, testSecret, testDeviceID, "", ""); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("empty platform: expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestPairingUC_RevokeDevice(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes the device and bumps the token version", func(t *testing.T) {
		f := newPairingFixture()
		now := time.Now().UTC()
		_ = f.devices.Save(ctx, repository.NoTX, model.NewDevice("user-1", testDeviceID, "windows", "", now))
		_ = f.accounts.Save(ctx, repository.NoTX, model.NewUserAccount("user-1", now))

		if err := f.uc.RevokeDevice(ctx, "user-1", testDeviceID); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := f.devices.Find(ctx, repository.NoTX, "user-1", testDeviceID); !errors.Is(err, domain.ErrNotFound) {
			t.Error("expected device deleted")
		}
		acct, _ := f.accounts.Find(ctx, repository.NoTX, "user-1")
		if acct.TokenVersion != 1 {
			t.Errorf("expected token version 1, got %d", acct.TokenVersion)
		}
	})

	t.Run("missing device leaves the token version alone", func(t *testing.T) {
		f := newPairingFixture()
		now := time.Now().UTC()
		_ = f.accounts.Save(ctx, repository.NoTX, model.NewUserAccount("user-1", now))

		if err := f.uc.RevokeDevice(ctx, "user-1", testDeviceID); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		acct, _ := f.accounts.Find(ctx, repository.NoTX, "user-1")
		if acct.TokenVersion != 0 {
			t.Errorf("expected token version untouched, got %d", acct.TokenVersion)
		}
	})
}

func TestPairingUC_DeactivateExpiredSecrets(t *testing.T) {
	ctx := context.Background()
	f := newPairingFixture()
	f.seedSecret("expired-secret-000000000000000000000000", "user-1", time.Now().UTC().Add(-time.Minute))
	f.seedSecret("live-secret-000000000000000000000000000", "user-1", time.Now().UTC().Add(20*time.Minute))

	n, err := f.uc.DeactivateExpiredSecrets(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("expected one secret swept, got %d", n)
	}
	if s := f.secrets.secrets[hashWithPepper("expired-secret-000000000000000000000000")]; s.Active {
		t.Error("expected the expired secret deactivated")
	}
	if s := f.secrets.secrets[hashWithPepper("live-secret-000000000000000000000000000")]; !s.Active {
		t.Error("expected the live secret untouched")
	}
}

func TestPairingUC_ListDevices(t *testing.T) {
	ctx := context.Background()
	f := newPairingFixture()
	now := time.Now().UTC()
	_ = f.devices.Save(ctx, repository.NoTX, model.NewDevice("user-1", "device-0001", "windows", "", now))
	_ = f.devices.Save(ctx, repository.NoTX, model.NewDevice("user-2", "device-0002", "linux", "", now))

	devs, err := f.uc.ListDevices(ctx, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(devs) != 1 || devs[0].ID != "device-0001" {
		t.Errorf("expected only user-1's device, got %+v", devs)
	}
}
