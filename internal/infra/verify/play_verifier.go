// File: internal/infra/verify/play_verifier.go
package verify

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"context"

	"pclink-backend/internal/domain/ports/adapter"
)

var _ adapter.PlayVerifier = (*PlayDirectVerifier)(nil)

const playBaseURL = "https://androidpublisher.googleapis.com/androidpublisher/v3"

// PlayDirectVerifier fetches purchase state from the Play purchases.products
// endpoint using direct HTTP calls.
type PlayDirectVerifier struct {
	accessToken string
	baseURL     string
	client      *http.Client
}

func NewPlayDirectVerifier(accessToken string) *PlayDirectVerifier {
	return &PlayDirectVerifier{
		accessToken: accessToken,
		baseURL:     playBaseURL,
		client:      &http.Client{},
	}
}

// playProductPurchase mirrors the purchases.products resource.
type playProductPurchase struct {
	PurchaseState      int    `json:"purchaseState"`
	OrderID            string `json:"orderId"`
	PurchaseTimeMillis int64  `json:"purchaseTimeMillis,string"`
}

func (v *PlayDirectVerifier) GetPurchase(ctx context.Context, packageName, productID, token string) (*adapter.PlayPurchase, error) {
	u := fmt.Sprintf("%s/applications/%s/purchases/products/%s/tokens/%s",
		v.baseURL, url.PathEscape(packageName), url.PathEscape(productID), url.PathEscape(token))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+v.accessToken)

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("play API status %d: %s", resp.StatusCode, string(body))
	}

	var p playProductPurchase
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w, body: %s", err, string(body))
	}
	return &adapter.PlayPurchase{
		PurchaseState:      p.PurchaseState,
		OrderID:            p.OrderID,
		PurchaseTimeMillis: p.PurchaseTimeMillis,
	}, nil
}
