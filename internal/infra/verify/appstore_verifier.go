// File: internal/infra/verify/appstore_verifier.go
package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"pclink-backend/internal/domain/ports/adapter"
)

var _ adapter.ReceiptVerifier = (*AppStoreVerifier)(nil)

const (
	appStoreProductionURL = "https://buy.itunes.apple.com/verifyReceipt"
	appStoreSandboxURL    = "https://sandbox.itunes.apple.com/verifyReceipt"

	// Apple's sentinel for "this is a sandbox receipt, resubmit to sandbox".
	statusSandboxReceipt = 21007
)

// AppStoreVerifier submits receipts to verifyReceipt, retrying against the
// sandbox endpoint when production answers with the 21007 sentinel.
type AppStoreVerifier struct {
	sharedSecret  string
	productionURL string
	sandboxURL    string
	client        *http.Client
}

func NewAppStoreVerifier(sharedSecret string) *AppStoreVerifier {
	return &AppStoreVerifier{
		sharedSecret:  sharedSecret,
		productionURL: appStoreProductionURL,
		sandboxURL:    appStoreSandboxURL,
		client:        &http.Client{},
	}
}

type verifyReceiptRequest struct {
	ReceiptData string `json:"receipt-data"`
	Password    string `json:"password,omitempty"`
}

type receiptLineItem struct {
	ProductID      string `json:"product_id"`
	TransactionID  string `json:"transaction_id"`
	PurchaseDateMS string `json:"purchase_date_ms"`
}

type verifyReceiptResponse struct {
	Status  int `json:"status"`
	Receipt struct {
		BundleID string            `json:"bundle_id"`
		InApp    []receiptLineItem `json:"in_app"`
	} `json:"receipt"`
	LatestReceiptInfo []receiptLineItem `json:"latest_receipt_info"`
}

func (v *AppStoreVerifier) VerifyReceipt(ctx context.Context, receiptData string) (*adapter.ReceiptResponse, error) {
	resp, err := v.post(ctx, v.productionURL, receiptData)
	if err != nil {
		return nil, err
	}
	if resp.Status == statusSandboxReceipt {
		resp, err = v.post(ctx, v.sandboxURL, receiptData)
		if err != nil {
			return nil, err
		}
	}

	out := &adapter.ReceiptResponse{
		Status:   resp.Status,
		BundleID: resp.Receipt.BundleID,
	}
	out.LatestReceiptInfo = convertLineItems(resp.LatestReceiptInfo)
	out.InApp = convertLineItems(resp.Receipt.InApp)
	return out, nil
}

func (v *AppStoreVerifier) post(ctx context.Context, endpoint, receiptData string) (*verifyReceiptResponse, error) {
	jsonData, err := json.Marshal(verifyReceiptRequest{ReceiptData: receiptData, Password: v.sharedSecret})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request data: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var parsed verifyReceiptResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w, body: %s", err, string(body))
	}
	return &parsed, nil
}

func convertLineItems(in []receiptLineItem) []adapter.ReceiptLineItem {
	out := make([]adapter.ReceiptLineItem, 0, len(in))
	for _, li := range in {
		ms, _ := strconv.ParseInt(li.PurchaseDateMS, 10, 64)
		out = append(out, adapter.ReceiptLineItem{
			ProductID:          li.ProductID,
			TransactionID:      li.TransactionID,
			PurchaseDateMillis: ms,
		})
	}
	return out
}
