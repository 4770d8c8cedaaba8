package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"ajopay/internal/domain"
	"ajopay/pkg/errors"
)

type PayoutRepository struct {
	db *sqlx.DB
}

func NewPayoutRepository(db *sqlx.DB) *PayoutRepository {
	return &PayoutRepository{db: db}
}

func (r *PayoutRepository) Create(ctx context.Context, p *domain.Payout) error {
	query := `
		INSERT INTO payouts (
			id, wallet_id, recipient_id, amount_kobo, currency, status, approvals,
			split_code, reference, created_at, updated_at
		) VALUES (
			:id, :wallet_id, :recipient_id, :amount_kobo, :currency, :status, :approvals,
			:split_code, :reference, :created_at, :updated_at
		)
	`
	_, err := r.db.NamedExecContext(ctx, query, p)
	return errors.Wrap(err, "failed to create payout")
}

func (r *PayoutRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Payout, error) {
	p := &domain.Payout{}
	query := `SELECT * FROM payouts WHERE id = $1`
	err := r.db.GetContext(ctx, p, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrPayoutNotFound
		}
		return nil, errors.Wrap(err, "failed to find payout by id")
	}
	return p, nil
}

func (r *PayoutRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Payout, error) {
	if len(ids) == 0 {
		return []*domain.Payout{}, nil
	}
	query, args, err := sqlx.In("SELECT * FROM payouts WHERE id IN (?)", ids)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build query")
	}
	query = r.db.Rebind(query)
	var payouts []*domain.Payout
	err = r.db.SelectContext(ctx, &payouts, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find payouts by ids")
	}
	return payouts, nil
}

func (r *PayoutRepository) FindByStatus(ctx context.Context, status domain.PayoutStatus, limit, offset int) ([]*domain.Payout, error) {
	var payouts []*domain.Payout
	query := `SELECT * FROM payouts WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	err := r.db.SelectContext(ctx, &payouts, query, status, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find payouts by status")
	}
	return payouts, nil
}

// RecordApproval inserts one admin's approval. The (payout_id, approver_id)
// unique constraint rejects a second approval by the same admin.
func (r *PayoutRepository) RecordApproval(ctx context.Context, a *domain.PayoutApproval) error {
	query := `
		INSERT INTO payout_approvals (id, payout_id, approver_id, created_at)
		VALUES (:id, :payout_id, :approver_id, :created_at)
	`
	_, err := r.db.NamedExecContext(ctx, query, a)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return errors.ErrDuplicateApproval
		}
		return errors.Wrap(err, "failed to record approval")
	}
	return nil
}

// IncrementApprovals bumps the approval counter while the payout is still
// pending and returns the new count. ErrPayoutNotPending if the row moved on.
func (r *PayoutRepository) IncrementApprovals(ctx context.Context, id uuid.UUID) (int, error) {
	var approvals int
	query := `
		UPDATE payouts SET approvals = approvals + 1, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING approvals
	`
	err := r.db.GetContext(ctx, &approvals, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, errors.ErrPayoutNotPending
		}
		return 0, errors.Wrap(err, "failed to increment approvals")
	}
	return approvals, nil
}

// Queue transitions pending -> queued once the approval count is satisfied.
func (r *PayoutRepository) Queue(ctx context.Context, id uuid.UUID, threshold int) error {
	query := `
		UPDATE payouts SET status = 'queued', queued_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'pending' AND approvals >= $2
	`
	result, err := r.db.ExecContext(ctx, query, id, threshold)
	if err != nil {
		return errors.Wrap(err, "failed to queue payout")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.ErrPayoutNotPending
	}
	return nil
}

// Settle transitions queued -> paid|failed.
func (r *PayoutRepository) Settle(ctx context.Context, id uuid.UUID, to domain.PayoutStatus, at time.Time) error {
	query := `
		UPDATE payouts SET status = $1, settled_at = $2, updated_at = NOW()
		WHERE id = $3 AND status = 'queued'
	`
	result, err := r.db.ExecContext(ctx, query, to, at, id)
	if err != nil {
		return errors.Wrap(err, "failed to settle payout")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.ErrPayoutNotQueued
	}
	return nil
}

func (r *PayoutRepository) ApprovalsFor(ctx context.Context, payoutID uuid.UUID) ([]*domain.PayoutApproval, error) {
	var approvals []*domain.PayoutApproval
	query := `SELECT * FROM payout_approvals WHERE payout_id = $1 ORDER BY created_at ASC`
	err := r.db.SelectContext(ctx, &approvals, query, payoutID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list approvals")
	}
	return approvals, nil
}
