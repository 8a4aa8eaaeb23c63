package repository

import (
	"context"
	"time"

	"pclink-backend/internal/domain/model"
)

// -----------------------------
// Pairing secrets
// -----------------------------

type PairingSecretRepository interface {
	// Save upserts the full secret row keyed by its hash.
	Save(ctx context.Context, tx Tx, s *model.PairingSecret) error
	// FindByHash returns domain.ErrNotFound when no row maps to the hash.
	FindByHash(ctx context.Context, tx Tx, hash string) (*model.PairingSecret, error)
	// DeactivateExpired marks every still-active secret past its expiry as
	// inactive and returns the number of rows touched.
	DeactivateExpired(ctx context.Context, tx Tx, now time.Time) (int, error)
}
