package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"pclink-backend/internal/domain"
	"pclink-backend/internal/domain/model"
	"pclink-backend/internal/domain/ports/repository"
)

var _ repository.DeviceRepository = (*PostgresDeviceRepo)(nil)

type PostgresDeviceRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresDeviceRepo(pool *pgxpool.Pool) *PostgresDeviceRepo {
	return &PostgresDeviceRepo{pool: pool}
}

func (r *PostgresDeviceRepo) Save(ctx context.Context, tx repository.Tx, d *model.Device) error {
	const q = `
INSERT INTO devices (
  user_id, device_id, nickname, platform, created_at, last_seen_at, status, revoked_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8
) ON CONFLICT (user_id, device_id) DO UPDATE SET
  nickname=$3, platform=$4, last_seen_at=$6, status=$7, revoked_at=$8;
`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, q, d.UserID, d.ID, d.Nickname, d.Platform, d.CreatedAt, d.LastSeenAt, d.Status, d.RevokedAt)
	return err
}

func (r *PostgresDeviceRepo) Find(ctx context.Context, tx repository.Tx, userID, deviceID string) (*model.Device, error) {
	const q = `
SELECT user_id, device_id, nickname, platform, created_at, last_seen_at, status, revoked_at
  FROM devices WHERE user_id=$1 AND device_id=$2;
`
	row := pickRow(ctx, r.pool, tx, q, userID, deviceID)
	var d model.Device
	if err := row.Scan(&d.UserID, &d.ID, &d.Nickname, &d.Platform, &d.CreatedAt, &d.LastSeenAt, &d.Status, &d.RevokedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *PostgresDeviceRepo) Delete(ctx context.Context, tx repository.Tx, userID, deviceID string) error {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	tag, err := ex.Exec(ctx, `DELETE FROM devices WHERE user_id=$1 AND device_id=$2;`, userID, deviceID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresDeviceRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Device, error) {
	const q = `
SELECT user_id, device_id, nickname, platform, created_at, last_seen_at, status, revoked_at
  FROM devices WHERE user_id=$1 ORDER BY created_at;
`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Device
	for rows.Next() {
		var d model.Device
		if err := rows.Scan(&d.UserID, &d.ID, &d.Nickname, &d.Platform, &d.CreatedAt, &d.LastSeenAt, &d.Status, &d.RevokedAt); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}
