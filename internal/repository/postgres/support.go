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

type SupportRepository struct {
	db *sqlx.DB
}

func NewSupportRepository(db *sqlx.DB) *SupportRepository {
	return &SupportRepository{db: db}
}

func (r *SupportRepository) CreateTicket(ctx context.Context, t *domain.SupportTicket) error {
	query := `
		INSERT INTO support_tickets (id, user_id, subject, body, status, assigned_to, created_at, updated_at)
		VALUES (:id, :user_id, :subject, :body, :status, :assigned_to, :created_at, :updated_at)
	`
	_, err := r.db.NamedExecContext(ctx, query, t)
	return errors.Wrap(err, "failed to create support ticket")
}

func (r *SupportRepository) UpdateTicket(ctx context.Context, t *domain.SupportTicket) error {
	t.UpdatedAt = time.Now()
	query := `
		UPDATE support_tickets SET
			status = :status,
			assigned_to = :assigned_to,
			updated_at = :updated_at
		WHERE id = :id
	`
	_, err := r.db.NamedExecContext(ctx, query, t)
	return errors.Wrap(err, "failed to update support ticket")
}

func (r *SupportRepository) FindTicketByID(ctx context.Context, id uuid.UUID) (*domain.SupportTicket, error) {
	t := &domain.SupportTicket{}
	query := `SELECT * FROM support_tickets WHERE id = $1`
	err := r.db.GetContext(ctx, t, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrTicketNotFound
		}
		return nil, errors.Wrap(err, "failed to find support ticket")
	}
	return t, nil
}

func (r *SupportRepository) FindTicketsByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.SupportTicket, error) {
	var tickets []*domain.SupportTicket
	query := `SELECT * FROM support_tickets WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	err := r.db.SelectContext(ctx, &tickets, query, userID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list support tickets")
	}
	return tickets, nil
}

func (r *SupportRepository) FindOpenTickets(ctx context.Context, limit, offset int) ([]*domain.SupportTicket, error) {
	var tickets []*domain.SupportTicket
	query := `SELECT * FROM support_tickets WHERE status IN ('open', 'pending') ORDER BY created_at ASC LIMIT $1 OFFSET $2`
	err := r.db.SelectContext(ctx, &tickets, query, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list open support tickets")
	}
	return tickets, nil
}

func (r *SupportRepository) AddMessage(ctx context.Context, m *domain.SupportMessage) error {
	query := `
		INSERT INTO support_messages (id, ticket_id, author_id, body, created_at)
		VALUES (:id, :ticket_id, :author_id, :body, :created_at)
	`
	_, err := r.db.NamedExecContext(ctx, query, m)
	return errors.Wrap(err, "failed to add support message")
}

func (r *SupportRepository) FindMessages(ctx context.Context, ticketID uuid.UUID) ([]*domain.SupportMessage, error) {
	var messages []*domain.SupportMessage
	query := `SELECT * FROM support_messages WHERE ticket_id = $1 ORDER BY created_at ASC`
	err := r.db.SelectContext(ctx, &messages, query, ticketID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list support messages")
	}
	return messages, nil
}
