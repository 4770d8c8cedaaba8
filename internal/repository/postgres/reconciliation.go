package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"ajopay/internal/domain"
	"ajopay/pkg/errors"
)

type ReconciliationRepository struct {
	db *sqlx.DB
}

func NewReconciliationRepository(db *sqlx.DB) *ReconciliationRepository {
	return &ReconciliationRepository{db: db}
}

func (r *ReconciliationRepository) CreateRun(ctx context.Context, run *domain.ReconciliationRun) error {
	query := `
		INSERT INTO reconciliation_runs (id, org_id, status, started_at, created_by, created_at)
		VALUES (:id, :org_id, :status, :started_at, :created_by, :created_at)
	`
	_, err := r.db.NamedExecContext(ctx, query, run)
	return errors.Wrap(err, "failed to create reconciliation run")
}

func (r *ReconciliationRepository) FindRunByID(ctx context.Context, id uuid.UUID) (*domain.ReconciliationRun, error) {
	run := &domain.ReconciliationRun{}
	query := `SELECT * FROM reconciliation_runs WHERE id = $1`
	err := r.db.GetContext(ctx, run, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrRunNotFound
		}
		return nil, errors.Wrap(err, "failed to find reconciliation run")
	}
	return run, nil
}

func (r *ReconciliationRepository) FindRunsByOrg(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*domain.ReconciliationRun, error) {
	var runs []*domain.ReconciliationRun
	query := `SELECT * FROM reconciliation_runs WHERE org_id = $1 ORDER BY started_at DESC LIMIT $2 OFFSET $3`
	err := r.db.SelectContext(ctx, &runs, query, orgID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list reconciliation runs")
	}
	return runs, nil
}

// CompleteRun transitions pending -> completed.
func (r *ReconciliationRepository) CompleteRun(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE reconciliation_runs SET status = 'completed', completed_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return errors.Wrap(err, "failed to complete reconciliation run")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.ErrRunCompleted
	}
	return nil
}

// InsertItems bulk-inserts imported statement items for a run.
func (r *ReconciliationRepository) InsertItems(ctx context.Context, items []*domain.ReconciliationItem) error {
	if len(items) == 0 {
		return nil
	}
	query := `
		INSERT INTO reconciliation_items (
			id, run_id, source, reference, amount_kobo, currency, entry_date, status, created_at, updated_at
		) VALUES (
			:id, :run_id, :source, :reference, :amount_kobo, :currency, :entry_date, :status, :created_at, :updated_at
		)
	`
	_, err := r.db.NamedExecContext(ctx, query, items)
	return errors.Wrap(err, "failed to insert reconciliation items")
}

func (r *ReconciliationRepository) FindItemByID(ctx context.Context, id uuid.UUID) (*domain.ReconciliationItem, error) {
	item := &domain.ReconciliationItem{}
	query := `SELECT * FROM reconciliation_items WHERE id = $1`
	err := r.db.GetContext(ctx, item, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrItemNotFound
		}
		return nil, errors.Wrap(err, "failed to find reconciliation item")
	}
	return item, nil
}

func (r *ReconciliationRepository) FindItemsByRun(ctx context.Context, runID uuid.UUID) ([]*domain.ReconciliationItem, error) {
	var items []*domain.ReconciliationItem
	query := `SELECT * FROM reconciliation_items WHERE run_id = $1 ORDER BY created_at ASC`
	err := r.db.SelectContext(ctx, &items, query, runID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list reconciliation items")
	}
	return items, nil
}

func (r *ReconciliationRepository) FindPendingItemsByRun(ctx context.Context, runID uuid.UUID) ([]*domain.ReconciliationItem, error) {
	var items []*domain.ReconciliationItem
	query := `SELECT * FROM reconciliation_items WHERE run_id = $1 AND status = 'pending' ORDER BY created_at ASC`
	err := r.db.SelectContext(ctx, &items, query, runID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list pending reconciliation items")
	}
	return items, nil
}

// TransitionItem moves a single pending item to the given status.
func (r *ReconciliationRepository) TransitionItem(ctx context.Context, id uuid.UUID, to domain.ItemStatus) error {
	query := `
		UPDATE reconciliation_items SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = 'pending'
	`
	result, err := r.db.ExecContext(ctx, query, to, id)
	if err != nil {
		return errors.Wrap(err, "failed to transition reconciliation item")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.ErrItemNotPending
	}
	return nil
}

// ResolveItem marks a pending or mismatched item resolved. Matched and
// already-resolved items are left untouched.
func (r *ReconciliationRepository) ResolveItem(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE reconciliation_items SET status = 'resolved', updated_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'mismatched')
	`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return errors.Wrap(err, "failed to resolve reconciliation item")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.ErrItemNotPending
	}
	return nil
}

func (r *ReconciliationRepository) CountPendingItems(ctx context.Context, runID uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM reconciliation_items WHERE run_id = $1 AND status = 'pending'`
	err := r.db.GetContext(ctx, &count, query, runID)
	return count, errors.Wrap(err, "failed to count pending items")
}
