package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"ajopay/internal/domain"
	"ajopay/pkg/errors"
)

// LedgerRepository is insert-only; entries are never updated or deleted.
type LedgerRepository struct {
	db *sqlx.DB
}

func NewLedgerRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) Append(ctx context.Context, e *domain.LedgerEntry) error {
	query := `
		INSERT INTO ledger_entries (
			id, wallet_id, amount_kobo, currency, code, reference, balance_after, created_at
		) VALUES (
			:id, :wallet_id, :amount_kobo, :currency, :code, :reference, :balance_after, :created_at
		)
	`
	_, err := r.db.NamedExecContext(ctx, query, e)
	return errors.Wrap(err, "failed to append ledger entry")
}

func (r *LedgerRepository) FindByWalletID(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]*domain.LedgerEntry, error) {
	var entries []*domain.LedgerEntry
	query := `SELECT * FROM ledger_entries WHERE wallet_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	err := r.db.SelectContext(ctx, &entries, query, walletID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find ledger entries")
	}
	return entries, nil
}

func (r *LedgerRepository) FindByReference(ctx context.Context, reference string) ([]*domain.LedgerEntry, error) {
	var entries []*domain.LedgerEntry
	query := `SELECT * FROM ledger_entries WHERE reference = $1 ORDER BY created_at ASC`
	err := r.db.SelectContext(ctx, &entries, query, reference)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find ledger entries by reference")
	}
	return entries, nil
}

// FindSince returns entries created on or after the given time, used to feed
// the ledger-source side of a reconciliation run.
func (r *LedgerRepository) FindSince(ctx context.Context, since string, limit int) ([]*domain.LedgerEntry, error) {
	var entries []*domain.LedgerEntry
	query := `SELECT * FROM ledger_entries WHERE created_at >= $1 ORDER BY created_at ASC LIMIT $2`
	err := r.db.SelectContext(ctx, &entries, query, since, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find ledger entries since")
	}
	return entries, nil
}
