package model

import "time"

type Platform string

const (
	PlatformAndroid Platform = "android"
	PlatformIOS     Platform = "ios"
)

func (p Platform) Valid() bool {
	return p == PlatformAndroid || p == PlatformIOS
}

// PurchaseRecord is the ledger row written once per granted transaction.
// Its (Platform, TransactionID) key is the sole idempotency witness for a
// purchase: presence means the credits were already granted.
type PurchaseRecord struct {
	ID            string
	UserID        string
	Platform      Platform
	ProductID     string
	Credits       int64
	TransactionID string
	PurchaseID    *string
	CreatedAt     time.Time
}
