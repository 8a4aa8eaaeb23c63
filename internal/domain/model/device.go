package model

import "time"

type DeviceStatus string

const (
	DeviceStatusActive  DeviceStatus = "active"
	DeviceStatusRevoked DeviceStatus = "revoked"
)

// DefaultDeviceNickname is used when a device is paired without a nickname.
const DefaultDeviceNickname = "Unnamed PC"

// Device is a paired endpoint owned by a user account.
type Device struct {
	ID         string
	UserID     string
	Nickname   string
	Platform   string
	CreatedAt  time.Time
	LastSeenAt time.Time
	Status     DeviceStatus
	RevokedAt  *time.Time
}

func NewDevice(userID, deviceID, platform, nickname string, now time.Time) *Device {
	if nickname == "" {
		nickname = DefaultDeviceNickname
	}
	return &Device{
		ID:         deviceID,
		UserID:     userID,
		Nickname:   nickname,
		Platform:   platform,
		CreatedAt:  now,
		LastSeenAt: now,
		Status:     DeviceStatusActive,
	}
}
