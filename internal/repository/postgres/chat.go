package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"ajopay/internal/domain"
	"ajopay/pkg/errors"
)

type ChatRepository struct {
	db *sqlx.DB
}

func NewChatRepository(db *sqlx.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

func (r *ChatRepository) CreateThread(ctx context.Context, t *domain.ChatThread) error {
	query := `
		INSERT INTO chat_threads (id, created_by, peer_id, title, created_at, updated_at)
		VALUES (:id, :created_by, :peer_id, :title, :created_at, :updated_at)
	`
	_, err := r.db.NamedExecContext(ctx, query, t)
	return errors.Wrap(err, "failed to create chat thread")
}

func (r *ChatRepository) FindThreadByID(ctx context.Context, id uuid.UUID) (*domain.ChatThread, error) {
	t := &domain.ChatThread{}
	query := `SELECT * FROM chat_threads WHERE id = $1`
	err := r.db.GetContext(ctx, t, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrThreadNotFound
		}
		return nil, errors.Wrap(err, "failed to find chat thread")
	}
	return t, nil
}

func (r *ChatRepository) FindThreadsByUser(ctx context.Context, userID uuid.UUID) ([]*domain.ChatThread, error) {
	var threads []*domain.ChatThread
	query := `SELECT * FROM chat_threads WHERE created_by = $1 OR peer_id = $1 ORDER BY updated_at DESC`
	err := r.db.SelectContext(ctx, &threads, query, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list chat threads")
	}
	return threads, nil
}

func (r *ChatRepository) AddMessage(ctx context.Context, m *domain.ChatMessage) error {
	query := `
		INSERT INTO chat_messages (id, thread_id, sender_id, body, created_at)
		VALUES (:id, :thread_id, :sender_id, :body, :created_at)
	`
	if _, err := r.db.NamedExecContext(ctx, query, m); err != nil {
		return errors.Wrap(err, "failed to add chat message")
	}
	_, err := r.db.ExecContext(ctx, `UPDATE chat_threads SET updated_at = NOW() WHERE id = $1`, m.ThreadID)
	return errors.Wrap(err, "failed to touch chat thread")
}

func (r *ChatRepository) FindMessages(ctx context.Context, threadID uuid.UUID, limit, offset int) ([]*domain.ChatMessage, error) {
	var messages []*domain.ChatMessage
	query := `SELECT * FROM chat_messages WHERE thread_id = $1 ORDER BY created_at ASC LIMIT $2 OFFSET $3`
	err := r.db.SelectContext(ctx, &messages, query, threadID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list chat messages")
	}
	return messages, nil
}
