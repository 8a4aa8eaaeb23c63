package adapter

import "context"

// PlayPurchase is the subset of the Play purchases resource the ledger needs.
type PlayPurchase struct {
	PurchaseState      int // 0 = purchased
	OrderID            string
	PurchaseTimeMillis int64
}

const PlayPurchaseStatePurchased = 0

// PlayVerifier fetches the server-side state of an Android in-app purchase.
type PlayVerifier interface {
	GetPurchase(ctx context.Context, packageName, productID, token string) (*PlayPurchase, error)
}

// ReceiptLineItem is one transaction inside an App Store receipt.
type ReceiptLineItem struct {
	ProductID          string
	TransactionID      string
	PurchaseDateMillis int64
}

// ReceiptResponse is the parsed verifyReceipt response. Status 0 means valid;
// the adapter already handles the production→sandbox environment retry, so
// callers see the final status only.
type ReceiptResponse struct {
	Status            int
	BundleID          string
	InApp             []ReceiptLineItem
	LatestReceiptInfo []ReceiptLineItem
}

const ReceiptStatusOK = 0

// ReceiptVerifier submits a base64 receipt for verification.
type ReceiptVerifier interface {
	VerifyReceipt(ctx context.Context, receiptData string) (*ReceiptResponse, error)
}
