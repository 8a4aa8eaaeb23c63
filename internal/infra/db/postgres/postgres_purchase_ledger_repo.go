package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"pclink-backend/internal/domain"
	"pclink-backend/internal/domain/model"
	"pclink-backend/internal/domain/ports/repository"
)

var _ repository.PurchaseLedgerRepository = (*PostgresPurchaseLedgerRepo)(nil)

// PostgresPurchaseLedgerRepo stores one row per granted transaction, keyed by
// (platform, transaction_id). The primary key enforces the idempotency
// invariant even if two transactions race past the existence probe.
type PostgresPurchaseLedgerRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresPurchaseLedgerRepo(pool *pgxpool.Pool) *PostgresPurchaseLedgerRepo {
	return &PostgresPurchaseLedgerRepo{pool: pool}
}

func (r *PostgresPurchaseLedgerRepo) Find(ctx context.Context, tx repository.Tx, platform model.Platform, transactionID string) (*model.PurchaseRecord, error) {
	const q = `
SELECT id, user_id, platform, product_id, credits, transaction_id, purchase_id, created_at
  FROM purchase_ledger WHERE platform=$1 AND transaction_id=$2;
`
	row := pickRow(ctx, r.pool, tx, q, platform, transactionID)
	var rec model.PurchaseRecord
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.Platform, &rec.ProductID, &rec.Credits,
		&rec.TransactionID, &rec.PurchaseID, &rec.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (r *PostgresPurchaseLedgerRepo) Save(ctx context.Context, tx repository.Tx, rec *model.PurchaseRecord) error {
	const q = `
INSERT INTO purchase_ledger (
  id, user_id, platform, product_id, credits, transaction_id, purchase_id, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8);
`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, q, rec.ID, rec.UserID, rec.Platform, rec.ProductID, rec.Credits,
		rec.TransactionID, rec.PurchaseID, rec.CreatedAt)
	return err
}
