package repository

import (
	"context"

	"pclink-backend/internal/domain/model"
)

// -----------------------------
// Devices
// -----------------------------

type DeviceRepository interface {
	Save(ctx context.Context, tx Tx, d *model.Device) error
	// Find returns domain.ErrNotFound when the user has no such device.
	Find(ctx context.Context, tx Tx, userID, deviceID string) (*model.Device, error)
	Delete(ctx context.Context, tx Tx, userID, deviceID string) error
	ListByUser(ctx context.Context, tx Tx, userID string) ([]*model.Device, error)
}
