package repository

import (
	"context"

	"pclink-backend/internal/domain/model"
)

// -----------------------------
// Coupons & redemptions
// -----------------------------

type CouponRepository interface {
	// FindByHash returns domain.ErrNotFound for unknown codes.
	FindByHash(ctx context.Context, tx Tx, codeHash string) (*model.Coupon, error)
	Save(ctx context.Context, tx Tx, c *model.Coupon) error
}

type CouponRedemptionRepository interface {
	// Find looks up the redemption witness for (codeHash, userID, resetNonce);
	// domain.ErrNotFound means the triple has never redeemed.
	Find(ctx context.Context, tx Tx, codeHash, userID string, resetNonce int) (*model.CouponRedemption, error)
	Save(ctx context.Context, tx Tx, r *model.CouponRedemption) error
}
