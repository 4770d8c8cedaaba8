package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"ajopay/internal/domain"
	"ajopay/pkg/errors"
)

type PaymentRepository struct {
	db *sqlx.DB
}

func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	query := `
		INSERT INTO payments (
			id, user_id, wallet_id, reference, amount_kobo, currency, status, channel, created_at, updated_at
		) VALUES (
			:id, :user_id, :wallet_id, :reference, :amount_kobo, :currency, :status, :channel, :created_at, :updated_at
		)
	`
	_, err := r.db.NamedExecContext(ctx, query, p)
	return errors.Wrap(err, "failed to create payment")
}

func (r *PaymentRepository) FindByReference(ctx context.Context, reference string) (*domain.Payment, error) {
	p := &domain.Payment{}
	query := `SELECT * FROM payments WHERE reference = $1`
	err := r.db.GetContext(ctx, p, query, reference)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrPaymentNotFound
		}
		return nil, errors.Wrap(err, "failed to find payment by reference")
	}
	return p, nil
}

// MarkSuccess flips an initialized payment to success exactly once; the
// status guard makes verification idempotent per reference.
func (r *PaymentRepository) MarkSuccess(ctx context.Context, reference, channel string, paidAt time.Time) (bool, error) {
	query := `
		UPDATE payments SET status = 'success', channel = $1, paid_at = $2, updated_at = NOW()
		WHERE reference = $3 AND status = 'initialized'
	`
	result, err := r.db.ExecContext(ctx, query, channel, paidAt, reference)
	if err != nil {
		return false, errors.Wrap(err, "failed to mark payment success")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to get rows affected")
	}
	return rows > 0, nil
}

func (r *PaymentRepository) MarkFailed(ctx context.Context, reference string, status domain.PaymentStatus) error {
	query := `
		UPDATE payments SET status = $1, updated_at = NOW()
		WHERE reference = $2 AND status = 'initialized'
	`
	_, err := r.db.ExecContext(ctx, query, status, reference)
	return errors.Wrap(err, "failed to mark payment failed")
}
