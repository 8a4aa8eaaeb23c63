// File: cmd/seed/main.go
package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"time"

	"pclink-backend/internal/config"
	"pclink-backend/internal/domain/model"
	"pclink-backend/internal/domain/ports/repository"
	pg "pclink-backend/internal/infra/db/postgres"
)

// schema is applied idempotently before seeding.
const schema = `
CREATE TABLE IF NOT EXISTS pairing_secrets (
  hash            TEXT PRIMARY KEY,
  user_id         TEXT NOT NULL,
  state           TEXT NOT NULL,
  active          BOOLEAN NOT NULL,
  device_id       TEXT,
  created_at      TIMESTAMPTZ NOT NULL,
  expires_at      TIMESTAMPTZ NOT NULL,
  used_at         TIMESTAMPTZ,
  revoked_at      TIMESTAMPTZ,
  token_issued_at TIMESTAMPTZ,
  fail_count      INT NOT NULL DEFAULT 0,
  last_fail_at    TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS devices (
  user_id      TEXT NOT NULL,
  device_id    TEXT NOT NULL,
  nickname     TEXT NOT NULL,
  platform     TEXT NOT NULL,
  created_at   TIMESTAMPTZ NOT NULL,
  last_seen_at TIMESTAMPTZ NOT NULL,
  status       TEXT NOT NULL,
  revoked_at   TIMESTAMPTZ,
  PRIMARY KEY (user_id, device_id)
);

CREATE TABLE IF NOT EXISTS user_accounts (
  user_id            TEXT PRIMARY KEY,
  credit_balance     BIGINT NOT NULL DEFAULT 0 CHECK (credit_balance >= 0),
  credit_updated_at  TIMESTAMPTZ NOT NULL,
  pro_seconds        BIGINT NOT NULL DEFAULT 0 CHECK (pro_seconds >= 0),
  premium_seconds    BIGINT NOT NULL DEFAULT 0 CHECK (premium_seconds >= 0),
  accrued_at         TIMESTAMPTZ NOT NULL,
  token_version      INT NOT NULL DEFAULT 0,
  coupon_reset_nonce INT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS purchase_ledger (
  id             TEXT NOT NULL,
  user_id        TEXT NOT NULL,
  platform       TEXT NOT NULL,
  product_id     TEXT NOT NULL,
  credits        BIGINT NOT NULL,
  transaction_id TEXT NOT NULL,
  purchase_id    TEXT,
  created_at     TIMESTAMPTZ NOT NULL,
  PRIMARY KEY (platform, transaction_id)
);

CREATE TABLE IF NOT EXISTS coupons (
  code_hash       TEXT PRIMARY KEY,
  type            TEXT NOT NULL,
  amount          BIGINT NOT NULL,
  tier            TEXT,
  enabled         BOOLEAN NOT NULL DEFAULT TRUE,
  max_redemptions INT,
  per_user_limit  INT,
  expires_at      TIMESTAMPTZ,
  campaign        TEXT NOT NULL DEFAULT '',
  redeemed_count  INT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS coupon_redemptions (
  id                    TEXT NOT NULL,
  code_hash             TEXT NOT NULL,
  user_id               TEXT NOT NULL,
  reset_nonce           INT NOT NULL,
  credits_delta         BIGINT NOT NULL,
  pro_seconds_delta     BIGINT NOT NULL,
  premium_seconds_delta BIGINT NOT NULL,
  type                  TEXT NOT NULL,
  tier                  TEXT,
  amount                BIGINT NOT NULL,
  campaign              TEXT NOT NULL DEFAULT '',
  redeemed_at           TIMESTAMPTZ NOT NULL,
  PRIMARY KEY (code_hash, user_id, reset_nonce)
);
`

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, schema); err != nil {
		log.Fatalf("apply schema: %v", err)
	}
	fmt.Println("schema applied")

	// Seed a few sample coupons for testing redemption flows.
	couponRepo := pg.NewPostgresCouponRepo(pool)
	tierPro := model.TierPro
	maxOne := 1
	perUser := 1
	seed := []struct {
		code string
		c    model.Coupon
	}{
		{"WELCOME-50", model.Coupon{Type: model.CouponTypeCredit, Amount: 50, Enabled: true, Campaign: "welcome"}},
		{"PRO-TRIAL-7", model.Coupon{Type: model.CouponTypeSubDays, Amount: 7, Tier: &tierPro, Enabled: true, PerUserLimit: &perUser, Campaign: "trial"}},
		{"LAUNCH-ONCE", model.Coupon{Type: model.CouponTypeCredit, Amount: 200, Enabled: true, MaxRedemptions: &maxOne, Campaign: "launch"}},
	}
	for _, s := range seed {
		sum := sha256.Sum256([]byte(s.code))
		c := s.c
		c.CodeHash = hex.EncodeToString(sum[:])
		existing, err := couponRepo.FindByHash(ctx, repository.NoTX, c.CodeHash)
		if err == nil && existing != nil {
			fmt.Printf("coupon %s already present\n", s.code)
			continue
		}
		if err := couponRepo.Save(ctx, repository.NoTX, &c); err != nil {
			log.Fatalf("seed coupon %s: %v", s.code, err)
		}
		fmt.Printf("seeded coupon %s\n", s.code)
	}
}
