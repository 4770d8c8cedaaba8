package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"ajopay/internal/domain"
	"ajopay/pkg/errors"
)

type WalletRepository struct {
	db *sqlx.DB
}

func NewWalletRepository(db *sqlx.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

func (r *WalletRepository) Create(ctx context.Context, wallet *domain.Wallet) error {
	query := `
		INSERT INTO wallets (
			id, user_id, currency, available_kobo, ledger_kobo, status, created_at, updated_at
		) VALUES (
			:id, :user_id, :currency, :available_kobo, :ledger_kobo, :status, :created_at, :updated_at
		)
	`
	_, err := r.db.NamedExecContext(ctx, query, wallet)
	return errors.Wrap(err, "failed to create wallet")
}

func (r *WalletRepository) Update(ctx context.Context, wallet *domain.Wallet) error {
	wallet.UpdatedAt = time.Now()
	query := `
		UPDATE wallets SET
			available_kobo = :available_kobo,
			ledger_kobo = :ledger_kobo,
			status = :status,
			last_transaction_at = :last_transaction_at,
			updated_at = :updated_at
		WHERE id = :id
	`
	_, err := r.db.NamedExecContext(ctx, query, wallet)
	return errors.Wrap(err, "failed to update wallet")
}

func (r *WalletRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	wallet := &domain.Wallet{}
	query := `SELECT * FROM wallets WHERE id = $1`
	err := r.db.GetContext(ctx, wallet, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrWalletNotFound
		}
		return nil, errors.Wrap(err, "failed to find wallet by id")
	}
	return wallet, nil
}

func (r *WalletRepository) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*domain.Wallet, error) {
	var wallets []*domain.Wallet
	query := `SELECT * FROM wallets WHERE user_id = $1`
	err := r.db.SelectContext(ctx, &wallets, query, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find wallets by user id")
	}
	return wallets, nil
}

func (r *WalletRepository) FindByUserAndCurrency(ctx context.Context, userID uuid.UUID, currency domain.Currency) (*domain.Wallet, error) {
	wallet := &domain.Wallet{}
	query := `SELECT * FROM wallets WHERE user_id = $1 AND currency = $2`
	err := r.db.GetContext(ctx, wallet, query, userID, currency)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // let the service decide whether absence is an error
		}
		return nil, errors.Wrap(err, "failed to find wallet by user and currency")
	}
	return wallet, nil
}

// Credit adds funds to both balances unconditionally.
func (r *WalletRepository) Credit(ctx context.Context, id uuid.UUID, amountKobo int64) error {
	query := `
		UPDATE wallets SET
			available_kobo = available_kobo + $1,
			ledger_kobo = ledger_kobo + $1,
			last_transaction_at = NOW(),
			updated_at = NOW()
		WHERE id = $2
	`
	_, err := r.db.ExecContext(ctx, query, amountKobo, id)
	return errors.Wrap(err, "failed to credit wallet")
}

// Debit removes funds, guarded so the available balance never goes negative.
func (r *WalletRepository) Debit(ctx context.Context, id uuid.UUID, amountKobo int64) error {
	query := `
		UPDATE wallets SET
			available_kobo = available_kobo - $1,
			ledger_kobo = ledger_kobo - $1,
			last_transaction_at = NOW(),
			updated_at = NOW()
		WHERE id = $2 AND available_kobo >= $1
	`
	result, err := r.db.ExecContext(ctx, query, amountKobo, id)
	if err != nil {
		return errors.Wrap(err, "failed to debit wallet")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.ErrInsufficientBalance
	}
	return nil
}

func (r *WalletRepository) FindAll(ctx context.Context, limit, offset int) ([]*domain.Wallet, error) {
	var wallets []*domain.Wallet
	query := `SELECT * FROM wallets ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	err := r.db.SelectContext(ctx, &wallets, query, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find all wallets")
	}
	return wallets, nil
}
