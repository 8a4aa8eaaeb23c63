// File: internal/usecase/pairing_uc.go
package usecase

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"pclink-backend/internal/domain"
	"pclink-backend/internal/domain/model"
	"pclink-backend/internal/domain/ports/adapter"
	"pclink-backend/internal/domain/ports/repository"
	"pclink-backend/internal/infra/logging"
)

// Compile-time check
var _ PairingUseCase = (*pairingUC)(nil)

const (
	pairingTTLDefaultMinutes = 20
	pairingTTLMinMinutes     = 5
	pairingTTLMaxMinutes     = 60

	minSecretLen   = 20
	minDeviceIDLen = 8
	maxNicknameLen = 30
)

// PairingUseCase drives the one-time-secret device pairing protocol.
type PairingUseCase interface {
	// IssueSecret creates a pairing secret for the user and returns the
	// plaintext exactly once; only its peppered hash is persisted.
	IssueSecret(ctx context.Context, userID string, ttlMinutes int) (secret string, expiresAt time.Time, err error)
	// ClaimAndPair consumes a secret, mints a device-scoped auth token and
	// binds the device to the secret's owner.
	ClaimAndPair(ctx context.Context, secret, deviceID, platform, nickname string) (token string, err error)
	// RevokeDevice deletes the device and bumps the owner's token version so
	// previously minted tokens are understood to be stale.
	RevokeDevice(ctx context.Context, userID, deviceID string) error
	ListDevices(ctx context.Context, userID string) ([]*model.Device, error)
	// DeactivateExpiredSecrets sweeps secrets past their TTL and returns the
	// number deactivated. Run periodically by the expiry worker.
	DeactivateExpiredSecrets(ctx context.Context) (int, error)
}

type pairingUC struct {
	secrets  repository.PairingSecretRepository
	devices  repository.DeviceRepository
	accounts repository.UserAccountRepository
	tokens   adapter.TokenIssuer
	tm       repository.TransactionManager
	pepper   string
	log      *zerolog.Logger
}

func NewPairingUseCase(
	secrets repository.PairingSecretRepository,
	devices repository.DeviceRepository,
	accounts repository.UserAccountRepository,
	tokens adapter.TokenIssuer,
	tm repository.TransactionManager,
	pepper string,
	logger *zerolog.Logger,
) *pairingUC {
	return &pairingUC{
		secrets:  secrets,
		devices:  devices,
		accounts: accounts,
		tokens:   tokens,
		tm:       tm,
		pepper:   pepper,
		log:      logger,
	}
}

func (u *pairingUC) hashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret + u.pepper))
	return hex.EncodeToString(sum[:])
}

func newSecret() (string, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}

func clampTTL(minutes int) int {
	if minutes == 0 {
		minutes = pairingTTLDefaultMinutes
	}
	if minutes < pairingTTLMinMinutes {
		return pairingTTLMinMinutes
	}
	if minutes > pairingTTLMaxMinutes {
		return pairingTTLMaxMinutes
	}
	return minutes
}

func (u *pairingUC) IssueSecret(ctx context.Context, userID string, ttlMinutes int) (string, time.Time, error) {
	defer logging.TraceDuration(u.log, "PairingUC.IssueSecret")()

	if userID == "" {
		return "", time.Time{}, domain.ErrUnauthenticated
	}

	secret, err := newSecret()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: secret generation failed", domain.ErrInternal)
	}

	now := time.Now().UTC()
	s := &model.PairingSecret{
		Hash:      u.hashSecret(secret),
		UserID:    userID,
		State:     model.PairingStateUnclaimed,
		Active:    true,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Duration(clampTTL(ttlMinutes)) * time.Minute),
	}
	if err := u.secrets.Save(ctx, repository.NoTX, s); err != nil {
		return "", time.Time{}, err
	}
	return secret, s.ExpiresAt, nil
}

func (u *pairingUC) ClaimAndPair(ctx context.Context, secret, deviceID, platform, nickname string) (string, error) {
	defer logging.TraceDuration(u.log, "PairingUC.ClaimAndPair")()

	if len(secret) < minSecretLen {
		return "", fmt.Errorf("%w: invalid secret", domain.ErrInvalidArgument)
	}
	if len(deviceID) < minDeviceIDLen {
		return "", fmt.Errorf("%w: invalid deviceId", domain.ErrInvalidArgument)
	}
	if platform == "" {
		return "", fmt.Errorf("%w: invalid platform", domain.ErrInvalidArgument)
	}
	if len(nickname) > maxNicknameLen {
		return "", fmt.Errorf("%w: nickname too long", domain.ErrInvalidArgument)
	}

	hash := u.hashSecret(secret)
	txOpts := pgx.TxOptions{IsoLevel: pgx.Serializable}

	// Phase 1: consume the secret before minting. The mint below is a
	// non-transactional network call and must never run twice for one secret.
	// Refusals that mutate the row (expiry deactivation, fail counting) set
	// claimErr and return nil so the write commits before the error surfaces.
	var userID string
	var claimErr error
	err := u.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		userID, claimErr = "", nil

		s, err := u.secrets.FindByHash(ctx, tx, hash)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		if s.LockedOut(now) {
			return fmt.Errorf("%w: too many attempts", domain.ErrResourceExhausted)
		}
		if !s.Active {
			s.FailCount++
			s.LastFailAt = &now
			if err := u.secrets.Save(ctx, tx, s); err != nil {
				return err
			}
			claimErr = fmt.Errorf("%w: secret is not active", domain.ErrPermissionDenied)
			return nil
		}
		if s.Expired(now) {
			s.Active = false
			s.RevokedAt = &now
			if err := u.secrets.Save(ctx, tx, s); err != nil {
				return err
			}
			claimErr = fmt.Errorf("%w: secret expired", domain.ErrExpired)
			return nil
		}
		if s.UserID == "" {
			return fmt.Errorf("%w: corrupted secret row", domain.ErrInternal)
		}

		s.State = model.PairingStateClaimed
		s.Active = false
		s.DeviceID = &deviceID
		if err := u.secrets.Save(ctx, tx, s); err != nil {
			return err
		}
		userID = s.UserID
		return nil
	})
	if err != nil {
		return "", err
	}
	if claimErr != nil {
		return "", claimErr
	}

	token, mintErr := u.tokens.Mint(ctx, userID, map[string]any{"deviceId": deviceID})
	if mintErr != nil {
		u.rollbackClaim(ctx, hash, deviceID)
		return "", fmt.Errorf("%w: token mint failed: %v", domain.ErrFailedPrecondition, mintErr)
	}

	// Phase 2: finalize. The secret must still be claimed by this device;
	// anything else means a concurrent finalize or rollback raced us.
	err = u.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		s, err := u.secrets.FindByHash(ctx, tx, hash)
		if err != nil {
			return err
		}
		if s.State != model.PairingStateClaimed || s.DeviceID == nil || *s.DeviceID != deviceID {
			return fmt.Errorf("%w: pairing state changed mid-protocol", domain.ErrPermissionDenied)
		}

		now := time.Now().UTC()
		dev, err := u.devices.Find(ctx, tx, userID, deviceID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			dev = model.NewDevice(userID, deviceID, platform, nickname, now)
		case err != nil:
			return err
		default:
			dev.Platform = platform
			dev.LastSeenAt = now
			dev.Status = model.DeviceStatusActive
			dev.RevokedAt = nil
			if nickname != "" {
				dev.Nickname = nickname
			}
		}
		if err := u.devices.Save(ctx, tx, dev); err != nil {
			return err
		}

		s.State = model.PairingStateUsed
		s.UsedAt = &now
		s.TokenIssuedAt = &now
		return u.secrets.Save(ctx, tx, s)
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

// rollbackClaim is the best-effort compensating transaction run when the mint
// fails after a successful claim. It reverts the secret to a claimable state
// only while it is still claimed by the same device. Its own failure is logged
// and swallowed so the mint failure stays visible to the caller; the secret is
// then unusable until its TTL runs out, which is an accepted degraded outcome.
func (u *pairingUC) rollbackClaim(ctx context.Context, hash, deviceID string) {
	err := u.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable}, func(ctx context.Context, tx repository.Tx) error {
		s, err := u.secrets.FindByHash(ctx, tx, hash)
		if err != nil {
			return err
		}
		if s.State != model.PairingStateClaimed || s.DeviceID == nil || *s.DeviceID != deviceID {
			return nil
		}
		s.State = model.PairingStateUnclaimed
		s.Active = true
		s.DeviceID = nil
		return u.secrets.Save(ctx, tx, s)
	})
	if err != nil {
		u.log.Warn().Err(err).Str("device_id", deviceID).Msg("pairing claim rollback failed")
	}
}

func (u *pairingUC) RevokeDevice(ctx context.Context, userID, deviceID string) error {
	defer logging.TraceDuration(u.log, "PairingUC.RevokeDevice")()

	if userID == "" {
		return domain.ErrUnauthenticated
	}
	if len(deviceID) < minDeviceIDLen {
		return fmt.Errorf("%w: invalid deviceId", domain.ErrInvalidArgument)
	}

	txOpts := pgx.TxOptions{IsoLevel: pgx.Serializable}
	return u.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		if _, err := u.devices.Find(ctx, tx, userID, deviceID); err != nil {
			return err
		}
		if err := u.devices.Delete(ctx, tx, userID, deviceID); err != nil {
			return err
		}

		now := time.Now().UTC()
		acct, err := u.accounts.Find(ctx, tx, userID)
		if errors.Is(err, domain.ErrNotFound) {
			acct = model.NewUserAccount(userID, now)
		} else if err != nil {
			return err
		}
		acct.TokenVersion++
		return u.accounts.Save(ctx, tx, acct)
	})
}

func (u *pairingUC) DeactivateExpiredSecrets(ctx context.Context) (int, error) {
	defer logging.TraceDuration(u.log, "PairingUC.DeactivateExpiredSecrets")()

	var n int
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		var err error
		n, err = u.secrets.DeactivateExpired(ctx, tx, time.Now().UTC())
		return err
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (u *pairingUC) ListDevices(ctx context.Context, userID string) ([]*model.Device, error) {
	defer logging.TraceDuration(u.log, "PairingUC.ListDevices")()
	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}
	return u.devices.ListByUser(ctx, repository.NoTX, userID)
}
