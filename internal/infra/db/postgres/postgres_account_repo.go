package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"pclink-backend/internal/domain"
	"pclink-backend/internal/domain/model"
	"pclink-backend/internal/domain/ports/repository"
)

var _ repository.UserAccountRepository = (*PostgresUserAccountRepo)(nil)

type PostgresUserAccountRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresUserAccountRepo(pool *pgxpool.Pool) *PostgresUserAccountRepo {
	return &PostgresUserAccountRepo{pool: pool}
}

func (r *PostgresUserAccountRepo) Find(ctx context.Context, tx repository.Tx, userID string) (*model.UserAccount, error) {
	const q = `
SELECT user_id, credit_balance, credit_updated_at,
       pro_seconds, premium_seconds, accrued_at,
       token_version, coupon_reset_nonce
  FROM user_accounts WHERE user_id=$1;
`
	row := pickRow(ctx, r.pool, tx, q, userID)
	var a model.UserAccount
	if err := row.Scan(&a.UserID, &a.CreditBalance, &a.CreditUpdatedAt,
		&a.Entitlement.ProSeconds, &a.Entitlement.PremiumSeconds, &a.Entitlement.AccruedAt,
		&a.TokenVersion, &a.CouponResetNonce); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *PostgresUserAccountRepo) Save(ctx context.Context, tx repository.Tx, a *model.UserAccount) error {
	const q = `
INSERT INTO user_accounts (
  user_id, credit_balance, credit_updated_at,
  pro_seconds, premium_seconds, accrued_at,
  token_version, coupon_reset_nonce
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8
) ON CONFLICT (user_id) DO UPDATE SET
  credit_balance=$2, credit_updated_at=$3,
  pro_seconds=$4, premium_seconds=$5, accrued_at=$6,
  token_version=$7, coupon_reset_nonce=$8;
`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, q, a.UserID, a.CreditBalance, a.CreditUpdatedAt,
		a.Entitlement.ProSeconds, a.Entitlement.PremiumSeconds, a.Entitlement.AccruedAt,
		a.TokenVersion, a.CouponResetNonce)
	return err
}
