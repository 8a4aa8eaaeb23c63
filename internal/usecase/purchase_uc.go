// File: internal/usecase/purchase_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"pclink-backend/internal/config"
	"pclink-backend/internal/domain"
	"pclink-backend/internal/domain/model"
	"pclink-backend/internal/domain/ports/adapter"
	"pclink-backend/internal/domain/ports/repository"
	"pclink-backend/internal/infra/logging"
)

// Compile-time check
var _ PurchaseUseCase = (*purchaseUC)(nil)

// PurchaseResult reports the outcome of an idempotent credit grant.
type PurchaseResult struct {
	CreditBalance    int64
	Granted          int64
	AlreadyProcessed bool
	TransactionID    string
}

type PurchaseUseCase interface {
	// VerifyAndCredit verifies a platform purchase with the external verifier
	// and grants the SKU's credits exactly once per transaction identity.
	VerifyAndCredit(ctx context.Context, userID string, platform model.Platform, productID, payload, purchaseID string) (*PurchaseResult, error)
}

type purchaseUC struct {
	ledger   repository.PurchaseLedgerRepository
	accounts repository.UserAccountRepository
	play     adapter.PlayVerifier
	receipts adapter.ReceiptVerifier
	billing  config.BillingConfig
	tm       repository.TransactionManager
	log      *zerolog.Logger
}

func NewPurchaseUseCase(
	ledger repository.PurchaseLedgerRepository,
	accounts repository.UserAccountRepository,
	play adapter.PlayVerifier,
	receipts adapter.ReceiptVerifier,
	billing config.BillingConfig,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *purchaseUC {
	return &purchaseUC{
		ledger:   ledger,
		accounts: accounts,
		play:     play,
		receipts: receipts,
		billing:  billing,
		tm:       tm,
		log:      logger,
	}
}

func (u *purchaseUC) VerifyAndCredit(ctx context.Context, userID string, platform model.Platform, productID, payload, purchaseID string) (*PurchaseResult, error) {
	defer logging.TraceDuration(u.log, "PurchaseUC.VerifyAndCredit")()

	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}
	credits, ok := u.billing.Products[productID]
	if !ok {
		return nil, fmt.Errorf("%w: unknown product %q", domain.ErrInvalidArgument, productID)
	}
	if payload == "" {
		return nil, fmt.Errorf("%w: empty verification payload", domain.ErrInvalidArgument)
	}

	// Verification runs outside any transaction; a verifier failure must never
	// turn into a credit grant.
	var candidates []string
	switch platform {
	case model.PlatformAndroid:
		txID, err := u.verifyPlay(ctx, productID, payload)
		if err != nil {
			return nil, err
		}
		candidates = []string{txID}
	case model.PlatformIOS:
		var err error
		candidates, err = u.verifyReceipt(ctx, productID, purchaseID, payload)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: unsupported platform %q", domain.ErrInvalidArgument, platform)
	}

	var res PurchaseResult
	txOpts := pgx.TxOptions{IsoLevel: pgx.Serializable}
	err := u.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		res = PurchaseResult{}

		// A receipt may legitimately bundle several transactions (restores,
		// renewals). Credit the first candidate the ledger has never seen.
		grantID := ""
		for _, cand := range candidates {
			if _, err := u.ledger.Find(ctx, tx, platform, cand); errors.Is(err, domain.ErrNotFound) {
				grantID = cand
				break
			} else if err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		acct, err := u.accounts.Find(ctx, tx, userID)
		if errors.Is(err, domain.ErrNotFound) {
			acct = model.NewUserAccount(userID, now)
		} else if err != nil {
			return err
		}

		if grantID == "" {
			res = PurchaseResult{
				CreditBalance:    acct.CreditBalance,
				AlreadyProcessed: true,
				TransactionID:    candidates[0],
			}
			return nil
		}

		acct.CreditBalance += credits
		acct.CreditUpdatedAt = now
		if err := u.accounts.Save(ctx, tx, acct); err != nil {
			return err
		}

		rec := &model.PurchaseRecord{
			ID:            uuid.NewString(),
			UserID:        userID,
			Platform:      platform,
			ProductID:     productID,
			Credits:       credits,
			TransactionID: grantID,
			CreatedAt:     now,
		}
		if purchaseID != "" {
			rec.PurchaseID = &purchaseID
		}
		if err := u.ledger.Save(ctx, tx, rec); err != nil {
			return err
		}

		res = PurchaseResult{
			CreditBalance: acct.CreditBalance,
			Granted:       credits,
			TransactionID: grantID,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (u *purchaseUC) verifyPlay(ctx context.Context, productID, token string) (string, error) {
	p, err := u.play.GetPurchase(ctx, u.billing.PlayPackageName, productID, token)
	if err != nil {
		return "", fmt.Errorf("%w: play verification failed: %v", domain.ErrFailedPrecondition, err)
	}
	if p.PurchaseState != adapter.PlayPurchaseStatePurchased {
		return "", fmt.Errorf("%w: purchase not in purchased state", domain.ErrFailedPrecondition)
	}
	if p.OrderID != "" {
		return p.OrderID, nil
	}
	return token, nil
}

// verifyReceipt validates an App Store receipt and returns the matching
// transaction ids, newest first, with the caller's preferred purchase id moved
// to the front when present.
func (u *purchaseUC) verifyReceipt(ctx context.Context, productID, purchaseID, receiptData string) ([]string, error) {
	resp, err := u.receipts.VerifyReceipt(ctx, receiptData)
	if err != nil {
		return nil, fmt.Errorf("%w: receipt verification failed: %v", domain.ErrFailedPrecondition, err)
	}
	if resp.Status != adapter.ReceiptStatusOK {
		return nil, fmt.Errorf("%w: receipt rejected with status %d", domain.ErrFailedPrecondition, resp.Status)
	}
	if u.billing.AppleBundleID != "" && resp.BundleID != "" && resp.BundleID != u.billing.AppleBundleID {
		return nil, fmt.Errorf("%w: bundle id mismatch", domain.ErrFailedPrecondition)
	}

	type item struct {
		txID string
		atMS int64
	}
	var items []item
	seen := map[string]bool{}
	collect := func(lines []adapter.ReceiptLineItem) {
		for _, li := range lines {
			if li.ProductID != productID || li.TransactionID == "" || seen[li.TransactionID] {
				continue
			}
			seen[li.TransactionID] = true
			items = append(items, item{txID: li.TransactionID, atMS: li.PurchaseDateMillis})
		}
	}
	collect(resp.LatestReceiptInfo)
	collect(resp.InApp)
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no matching transaction in receipt", domain.ErrNotFound)
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].atMS > items[j].atMS })

	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.txID)
	}
	if purchaseID != "" {
		for i, id := range out {
			if id == purchaseID && i > 0 {
				copy(out[1:i+1], out[:i])
				out[0] = id
				break
			}
		}
	}
	return out, nil
}
