//go:build !integration

package usecase_test

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"pclink-backend/internal/domain"
	"pclink-backend/internal/domain/model"
	"pclink-backend/internal/domain/ports/adapter"
	"pclink-backend/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

// --- Transaction Manager ---

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, opts pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func (m *MockTxManager) WithTx(ctx context.Context, opts pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, opts, fn)
	}
	return fn(ctx, repository.NoTX)
}

// --- Pairing Secret Repository ---

type MockPairingSecretRepo struct {
	mu      sync.Mutex
	secrets map[string]model.PairingSecret

	SaveFunc       func(ctx context.Context, tx repository.Tx, s *model.PairingSecret) error
	FindByHashFunc func(ctx context.Context, tx repository.Tx, hash string) (*model.PairingSecret, error)
}

func NewMockPairingSecretRepo() *MockPairingSecretRepo {
	return &MockPairingSecretRepo{secrets: make(map[string]model.PairingSecret)}
}

func (m *MockPairingSecretRepo) Save(ctx context.Context, tx repository.Tx, s *model.PairingSecret) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, s)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secrets[s.Hash] = *s
	return nil
}

func (m *MockPairingSecretRepo) FindByHash(ctx context.Context, tx repository.Tx, hash string) (*model.PairingSecret, error) {
	if m.FindByHashFunc != nil {
		return m.FindByHashFunc(ctx, tx, hash)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.secrets[hash]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := s
	return &cp, nil
}

func (m *MockPairingSecretRepo) DeactivateExpired(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for hash, s := range m.secrets {
		if s.Active && s.ExpiresAt.Before(now) {
			s.Active = false
			s.RevokedAt = &now
			m.secrets[hash] = s
			n++
		}
	}
	return n, nil
}

// --- Device Repository ---

type MockDeviceRepo struct {
	mu      sync.Mutex
	devices map[string]model.Device

	SaveFunc   func(ctx context.Context, tx repository.Tx, d *model.Device) error
	DeleteFunc func(ctx context.Context, tx repository.Tx, userID, deviceID string) error
}

func NewMockDeviceRepo() *MockDeviceRepo {
	return &MockDeviceRepo{devices: make(map[string]model.Device)}
}

func deviceKey(userID, deviceID string) string {
	return fmt.Sprintf("%s/%s", userID, deviceID)
}

func (m *MockDeviceRepo) Save(ctx context.Context, tx repository.Tx, d *model.Device) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, d)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.devices[deviceKey(d.UserID, d.ID)] = *d
	return nil
}

func (m *MockDeviceRepo) Find(ctx context.Context, tx repository.Tx, userID, deviceID string) (*model.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.devices[deviceKey(userID, deviceID)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := d
	return &cp, nil
}

func (m *MockDeviceRepo) Delete(ctx context.Context, tx repository.Tx, userID, deviceID string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, tx, userID, deviceID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := deviceKey(userID, deviceID)
	if _, ok := m.devices[key]; !ok {
		return domain.ErrNotFound
	}
	delete(m.devices, key)
	return nil
}

func (m *MockDeviceRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Device
	for _, d := range m.devices {
		if d.UserID == userID {
			cp := d
			out = append(out, &cp)
		}
	}
	return out, nil
}

// --- User Account Repository ---

type MockUserAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]model.UserAccount

	SaveFunc func(ctx context.Context, tx repository.Tx, a *model.UserAccount) error
}

func NewMockUserAccountRepo() *MockUserAccountRepo {
	return &MockUserAccountRepo{accounts: make(map[string]model.UserAccount)}
}

func (m *MockUserAccountRepo) Find(ctx context.Context, tx repository.Tx, userID string) (*model.UserAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := a
	return &cp, nil
}

func (m *MockUserAccountRepo) Save(ctx context.Context, tx repository.Tx, a *model.UserAccount) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, a)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[a.UserID] = *a
	return nil
}

// --- Purchase Ledger Repository ---

type MockPurchaseLedgerRepo struct {
	mu      sync.Mutex
	records map[string]model.PurchaseRecord

	SaveFunc func(ctx context.Context, tx repository.Tx, r *model.PurchaseRecord) error
}

func NewMockPurchaseLedgerRepo() *MockPurchaseLedgerRepo {
	return &MockPurchaseLedgerRepo{records: make(map[string]model.PurchaseRecord)}
}

func ledgerKey(platform model.Platform, transactionID string) string {
	return fmt.Sprintf("%s/%s", platform, transactionID)
}

func (m *MockPurchaseLedgerRepo) Find(ctx context.Context, tx repository.Tx, platform model.Platform, transactionID string) (*model.PurchaseRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[ledgerKey(platform, transactionID)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := r
	return &cp, nil
}

func (m *MockPurchaseLedgerRepo) Save(ctx context.Context, tx repository.Tx, r *model.PurchaseRecord) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, r)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[ledgerKey(r.Platform, r.TransactionID)] = *r
	return nil
}

// --- Coupon Repositories ---

type MockCouponRepo struct {
	mu      sync.Mutex
	coupons map[string]model.Coupon
}

func NewMockCouponRepo() *MockCouponRepo {
	return &MockCouponRepo{coupons: make(map[string]model.Coupon)}
}

func (m *MockCouponRepo) FindByHash(ctx context.Context, tx repository.Tx, codeHash string) (*model.Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.coupons[codeHash]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := c
	return &cp, nil
}

func (m *MockCouponRepo) Save(ctx context.Context, tx repository.Tx, c *model.Coupon) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.coupons[c.CodeHash] = *c
	return nil
}

type MockCouponRedemptionRepo struct {
	mu          sync.Mutex
	redemptions map[string]model.CouponRedemption
}

func NewMockCouponRedemptionRepo() *MockCouponRedemptionRepo {
	return &MockCouponRedemptionRepo{redemptions: make(map[string]model.CouponRedemption)}
}

func redemptionKey(codeHash, userID string, resetNonce int) string {
	return fmt.Sprintf("%s/%s/%d", codeHash, userID, resetNonce)
}

func (m *MockCouponRedemptionRepo) Find(ctx context.Context, tx repository.Tx, codeHash, userID string, resetNonce int) (*model.CouponRedemption, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.redemptions[redemptionKey(codeHash, userID, resetNonce)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := r
	return &cp, nil
}

func (m *MockCouponRedemptionRepo) Save(ctx context.Context, tx repository.Tx, r *model.CouponRedemption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.redemptions[redemptionKey(r.CodeHash, r.UserID, r.ResetNonce)] = *r
	return nil
}

// --- Adapters ---

type MockTokenIssuer struct {
	MintFunc func(ctx context.Context, userID string, claims map[string]any) (string, error)
}

func (m *MockTokenIssuer) Mint(ctx context.Context, userID string, claims map[string]any) (string, error) {
	if m.MintFunc != nil {
		return m.MintFunc(ctx, userID, claims)
	}
	return "signed-token-for-" + userID, nil
}

type MockPlayVerifier struct {
	GetPurchaseFunc func(ctx context.Context, packageName, productID, token string) (*adapter.PlayPurchase, error)
}

func (m *MockPlayVerifier) GetPurchase(ctx context.Context, packageName, productID, token string) (*adapter.PlayPurchase, error) {
	if m.GetPurchaseFunc != nil {
		return m.GetPurchaseFunc(ctx, packageName, productID, token)
	}
	return &adapter.PlayPurchase{PurchaseState: adapter.PlayPurchaseStatePurchased, OrderID: "GPA.0000-0000"}, nil
}

type MockReceiptVerifier struct {
	VerifyReceiptFunc func(ctx context.Context, receiptData string) (*adapter.ReceiptResponse, error)
}

func (m *MockReceiptVerifier) VerifyReceipt(ctx context.Context, receiptData string) (*adapter.ReceiptResponse, error) {
	if m.VerifyReceiptFunc != nil {
		return m.VerifyReceiptFunc(ctx, receiptData)
	}
	return &adapter.ReceiptResponse{Status: adapter.ReceiptStatusOK}, nil
}
