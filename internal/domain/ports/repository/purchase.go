package repository

import (
	"context"

	"pclink-backend/internal/domain/model"
)

// -----------------------------
// Purchase ledger
// -----------------------------

type PurchaseLedgerRepository interface {
	// Find looks up the ledger row for (platform, transactionID) and returns
	// domain.ErrNotFound when the transaction has never been granted.
	Find(ctx context.Context, tx Tx, platform model.Platform, transactionID string) (*model.PurchaseRecord, error)
	Save(ctx context.Context, tx Tx, rec *model.PurchaseRecord) error
}
