package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"pclink-backend/internal/domain"
	"pclink-backend/internal/domain/model"
	"pclink-backend/internal/domain/ports/repository"
)

var (
	_ repository.CouponRepository           = (*PostgresCouponRepo)(nil)
	_ repository.CouponRedemptionRepository = (*PostgresCouponRedemptionRepo)(nil)
)

type PostgresCouponRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresCouponRepo(pool *pgxpool.Pool) *PostgresCouponRepo {
	return &PostgresCouponRepo{pool: pool}
}

func (r *PostgresCouponRepo) FindByHash(ctx context.Context, tx repository.Tx, codeHash string) (*model.Coupon, error) {
	const q = `
SELECT code_hash, type, amount, tier, enabled, max_redemptions, per_user_limit,
       expires_at, campaign, redeemed_count
  FROM coupons WHERE code_hash=$1;
`
	row := pickRow(ctx, r.pool, tx, q, codeHash)
	var c model.Coupon
	if err := row.Scan(&c.CodeHash, &c.Type, &c.Amount, &c.Tier, &c.Enabled, &c.MaxRedemptions,
		&c.PerUserLimit, &c.ExpiresAt, &c.Campaign, &c.RedeemedCount); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *PostgresCouponRepo) Save(ctx context.Context, tx repository.Tx, c *model.Coupon) error {
	const q = `
INSERT INTO coupons (
  code_hash, type, amount, tier, enabled, max_redemptions, per_user_limit,
  expires_at, campaign, redeemed_count
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10
) ON CONFLICT (code_hash) DO UPDATE SET
  type=$2, amount=$3, tier=$4, enabled=$5, max_redemptions=$6, per_user_limit=$7,
  expires_at=$8, campaign=$9, redeemed_count=$10;
`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, q, c.CodeHash, c.Type, c.Amount, c.Tier, c.Enabled, c.MaxRedemptions,
		c.PerUserLimit, c.ExpiresAt, c.Campaign, c.RedeemedCount)
	return err
}

type PostgresCouponRedemptionRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresCouponRedemptionRepo(pool *pgxpool.Pool) *PostgresCouponRedemptionRepo {
	return &PostgresCouponRedemptionRepo{pool: pool}
}

func (r *PostgresCouponRedemptionRepo) Find(ctx context.Context, tx repository.Tx, codeHash, userID string, resetNonce int) (*model.CouponRedemption, error) {
	const q = `
SELECT id, code_hash, user_id, reset_nonce, credits_delta, pro_seconds_delta, premium_seconds_delta,
       type, tier, amount, campaign, redeemed_at
  FROM coupon_redemptions WHERE code_hash=$1 AND user_id=$2 AND reset_nonce=$3;
`
	row := pickRow(ctx, r.pool, tx, q, codeHash, userID, resetNonce)
	var red model.CouponRedemption
	if err := row.Scan(&red.ID, &red.CodeHash, &red.UserID, &red.ResetNonce,
		&red.Deltas.Credits, &red.Deltas.ProSeconds, &red.Deltas.PremiumSeconds,
		&red.Type, &red.Tier, &red.Amount, &red.Campaign, &red.RedeemedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &red, nil
}

func (r *PostgresCouponRedemptionRepo) Save(ctx context.Context, tx repository.Tx, red *model.CouponRedemption) error {
	const q = `
INSERT INTO coupon_redemptions (
  id, code_hash, user_id, reset_nonce, credits_delta, pro_seconds_delta, premium_seconds_delta,
  type, tier, amount, campaign, redeemed_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12);
`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, q, red.ID, red.CodeHash, red.UserID, red.ResetNonce,
		red.Deltas.Credits, red.Deltas.ProSeconds, red.Deltas.PremiumSeconds,
		red.Type, red.Tier, red.Amount, red.Campaign, red.RedeemedAt)
	return err
}
