package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"pclink-backend/internal/domain"
	"pclink-backend/internal/domain/model"
	"pclink-backend/internal/domain/ports/repository"
)

var _ repository.PairingSecretRepository = (*PostgresPairingSecretRepo)(nil)

type PostgresPairingSecretRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresPairingSecretRepo(pool *pgxpool.Pool) *PostgresPairingSecretRepo {
	return &PostgresPairingSecretRepo{pool: pool}
}

func (r *PostgresPairingSecretRepo) Save(ctx context.Context, tx repository.Tx, s *model.PairingSecret) error {
	const q = `
INSERT INTO pairing_secrets (
  hash, user_id, state, active, device_id, created_at, expires_at,
  used_at, revoked_at, token_issued_at, fail_count, last_fail_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12
) ON CONFLICT (hash) DO UPDATE SET
  state=$3, active=$4, device_id=$5, used_at=$8, revoked_at=$9,
  token_issued_at=$10, fail_count=$11, last_fail_at=$12;
`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, q,
		s.Hash, s.UserID, s.State, s.Active, s.DeviceID, s.CreatedAt, s.ExpiresAt,
		s.UsedAt, s.RevokedAt, s.TokenIssuedAt, s.FailCount, s.LastFailAt)
	return err
}

func (r *PostgresPairingSecretRepo) FindByHash(ctx context.Context, tx repository.Tx, hash string) (*model.PairingSecret, error) {
	const q = `
SELECT hash, user_id, state, active, device_id, created_at, expires_at,
       used_at, revoked_at, token_issued_at, fail_count, last_fail_at
  FROM pairing_secrets WHERE hash=$1;
`
	row := pickRow(ctx, r.pool, tx, q, hash)
	var s model.PairingSecret
	if err := row.Scan(&s.Hash, &s.UserID, &s.State, &s.Active, &s.DeviceID, &s.CreatedAt, &s.ExpiresAt,
		&s.UsedAt, &s.RevokedAt, &s.TokenIssuedAt, &s.FailCount, &s.LastFailAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *PostgresPairingSecretRepo) DeactivateExpired(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	const q = `
UPDATE pairing_secrets SET active=false, revoked_at=$1
 WHERE active AND expires_at < $1;
`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return 0, err
	}
	tag, err := ex.Exec(ctx, q, now)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
