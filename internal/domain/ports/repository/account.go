package repository

import (
	"context"

	"pclink-backend/internal/domain/model"
)

// -----------------------------
// User accounts
// -----------------------------

type UserAccountRepository interface {
	// Find returns domain.ErrNotFound when the user has no account row yet;
	// callers substitute model.NewUserAccount in that case.
	Find(ctx context.Context, tx Tx, userID string) (*model.UserAccount, error)
	// Save upserts the account row keyed by user id.
	Save(ctx context.Context, tx Tx, a *model.UserAccount) error
}
