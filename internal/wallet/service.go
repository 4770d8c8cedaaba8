package wallet

import (
	"context"
	"time"

	"github.com/google/uuid"

	"ajopay/internal/domain"
	"ajopay/pkg/errors"
	"ajopay/pkg/logger"
)

// Repository defines wallet storage operations.
type Repository interface {
	Create(ctx context.Context, wallet *domain.Wallet) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) ([]*domain.Wallet, error)
	FindByUserAndCurrency(ctx context.Context, userID uuid.UUID, currency domain.Currency) (*domain.Wallet, error)
}

// Service manages user wallets. Balance mutation goes through the ledger
// service, never here.
type Service struct {
	repo   Repository
	logger logger.Logger
}

func NewService(repo Repository, log logger.Logger) *Service {
	return &Service{repo: repo, logger: log}
}

// CreateWallet opens a wallet for a user in the given currency. One wallet
// per user per currency; an existing one is returned as-is.
func (s *Service) CreateWallet(ctx context.Context, userID uuid.UUID, currency domain.Currency) (*domain.Wallet, error) {
	existing, err := s.repo.FindByUserAndCurrency(ctx, userID, currency)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	wallet := &domain.Wallet{
		ID:        uuid.New(),
		UserID:    userID,
		Currency:  currency,
		Status:    domain.WalletStatusActive,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := s.repo.Create(ctx, wallet); err != nil {
		return nil, errors.Wrap(err, "create wallet")
	}

	s.logger.Info("wallet created", map[string]interface{}{
		"wallet_id": wallet.ID.String(),
		"user_id":   userID.String(),
		"currency":  string(currency),
	})
	return wallet, nil
}

func (s *Service) GetWallet(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Service) GetUserWallets(ctx context.Context, userID uuid.UUID) ([]*domain.Wallet, error) {
	return s.repo.FindByUserID(ctx, userID)
}

// GetBalance returns the available and ledger balances in minor units.
func (s *Service) GetBalance(ctx context.Context, walletID uuid.UUID) (available, ledger int64, err error) {
	w, err := s.repo.FindByID(ctx, walletID)
	if err != nil {
		return 0, 0, err
	}
	return w.AvailableKobo, w.LedgerKobo, nil
}
