package ledger

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ajopay/internal/domain"
	"ajopay/pkg/errors"
	"ajopay/pkg/logger"
)

type MockEntryRepository struct {
	mock.Mock
}

func (m *MockEntryRepository) Append(ctx context.Context, e *domain.LedgerEntry) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockEntryRepository) FindByWalletID(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]*domain.LedgerEntry, error) {
	args := m.Called(ctx, walletID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.LedgerEntry), args.Error(1)
}

func (m *MockEntryRepository) FindByReference(ctx context.Context, reference string) ([]*domain.LedgerEntry, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.LedgerEntry), args.Error(1)
}

type MockWalletRepository struct {
	mock.Mock
}

func (m *MockWalletRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Wallet), args.Error(1)
}

func (m *MockWalletRepository) Credit(ctx context.Context, id uuid.UUID, amountKobo int64) error {
	args := m.Called(ctx, id, amountKobo)
	return args.Error(0)
}

func (m *MockWalletRepository) Debit(ctx context.Context, id uuid.UUID, amountKobo int64) error {
	args := m.Called(ctx, id, amountKobo)
	return args.Error(0)
}

func TestRecordCreditAppendsEntry(t *testing.T) {
	wallets := new(MockWalletRepository)
	entries := new(MockEntryRepository)
	svc := NewService(wallets, entries, logger.NewNop())

	walletID := uuid.New()
	wallet := &domain.Wallet{ID: walletID, Currency: domain.NGN, AvailableKobo: 150000}

	wallets.On("Credit", mock.Anything, walletID, int64(50000)).Return(nil)
	wallets.On("FindByID", mock.Anything, walletID).Return(wallet, nil)
	entries.On("Append", mock.Anything, mock.MatchedBy(func(e *domain.LedgerEntry) bool {
		return e.AmountKobo == 50000 && e.Code == domain.LedgerCodeDeposit && e.BalanceAfter == 150000
	})).Return(nil)

	entry, err := svc.Record(context.Background(), walletID, 50000, domain.LedgerCodeDeposit, "PAY-ABC")
	require.NoError(t, err)
	assert.Equal(t, domain.NGN, entry.Currency)
	wallets.AssertExpectations(t)
	entries.AssertExpectations(t)
}

func TestRecordDebitUsesAbsoluteAmount(t *testing.T) {
	wallets := new(MockWalletRepository)
	entries := new(MockEntryRepository)
	svc := NewService(wallets, entries, logger.NewNop())

	walletID := uuid.New()
	wallet := &domain.Wallet{ID: walletID, Currency: domain.NGN, AvailableKobo: 100000}

	wallets.On("Debit", mock.Anything, walletID, int64(50000)).Return(nil)
	wallets.On("FindByID", mock.Anything, walletID).Return(wallet, nil)
	entries.On("Append", mock.Anything, mock.MatchedBy(func(e *domain.LedgerEntry) bool {
		return e.AmountKobo == -50000
	})).Return(nil)

	_, err := svc.Record(context.Background(), walletID, -50000, domain.LedgerCodePayoutHold, "PO-1")
	require.NoError(t, err)
	wallets.AssertExpectations(t)
}

func TestRecordInsufficientBalance(t *testing.T) {
	wallets := new(MockWalletRepository)
	entries := new(MockEntryRepository)
	svc := NewService(wallets, entries, logger.NewNop())

	walletID := uuid.New()
	wallets.On("Debit", mock.Anything, walletID, int64(50000)).Return(errors.ErrInsufficientBalance)

	_, err := svc.Record(context.Background(), walletID, -50000, domain.LedgerCodePayoutHold, "PO-1")
	assert.ErrorIs(t, err, errors.ErrInsufficientBalance)
	entries.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}
