// Package ledger maintains the append-only audit trail of wallet movement.
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"

	"ajopay/internal/domain"
	"ajopay/pkg/errors"
	"ajopay/pkg/logger"
)

type Service struct {
	wallets WalletRepository
	entries Repository
	logger  logger.Logger
}

func NewService(wallets WalletRepository, entries Repository, log logger.Logger) *Service {
	return &Service{
		wallets: wallets,
		entries: entries,
		logger:  log,
	}
}

// Record moves funds on the wallet and appends the matching ledger entry.
// A negative amount debits the wallet, a positive amount credits it.
func (s *Service) Record(ctx context.Context, walletID uuid.UUID, amountKobo int64, code, reference string) (*domain.LedgerEntry, error) {
	if amountKobo < 0 {
		if err := s.wallets.Debit(ctx, walletID, -amountKobo); err != nil {
			return nil, err
		}
	} else if amountKobo > 0 {
		if err := s.wallets.Credit(ctx, walletID, amountKobo); err != nil {
			return nil, err
		}
	}

	wallet, err := s.wallets.FindByID(ctx, walletID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load wallet after movement")
	}

	entry := &domain.LedgerEntry{
		ID:           uuid.New(),
		WalletID:     walletID,
		AmountKobo:   amountKobo,
		Currency:     wallet.Currency,
		Code:         code,
		Reference:    reference,
		BalanceAfter: wallet.AvailableKobo,
		CreatedAt:    time.Now(),
	}

	if err := s.entries.Append(ctx, entry); err != nil {
		return nil, err
	}

	s.logger.Info("Ledger entry recorded", map[string]interface{}{
		"wallet_id":   walletID,
		"amount_kobo": amountKobo,
		"code":        code,
		"reference":   reference,
	})

	return entry, nil
}

func (s *Service) History(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]*domain.LedgerEntry, error) {
	return s.entries.FindByWalletID(ctx, walletID, limit, offset)
}

func (s *Service) ByReference(ctx context.Context, reference string) ([]*domain.LedgerEntry, error) {
	return s.entries.FindByReference(ctx, reference)
}

type Repository interface {
	Append(ctx context.Context, e *domain.LedgerEntry) error
	FindByWalletID(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]*domain.LedgerEntry, error)
	FindByReference(ctx context.Context, reference string) ([]*domain.LedgerEntry, error)
}

type WalletRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	Credit(ctx context.Context, id uuid.UUID, amountKobo int64) error
	Debit(ctx context.Context, id uuid.UUID, amountKobo int64) error
}
