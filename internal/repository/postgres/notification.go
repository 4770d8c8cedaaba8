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

type NotificationRepository struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Enqueue(ctx context.Context, n *domain.Notification) error {
	query := `
		INSERT INTO notifications (
			id, user_id, channel, kind, subject, body, status, error, created_at, updated_at
		) VALUES (
			:id, :user_id, :channel, :kind, :subject, :body, :status, :error, :created_at, :updated_at
		)
	`
	_, err := r.db.NamedExecContext(ctx, query, n)
	return errors.Wrap(err, "failed to enqueue notification")
}

// DequeueBatch claims up to limit queued notifications for dispatch, oldest
// first, locking rows so concurrent dispatchers do not double-send.
func (r *NotificationRepository) DequeueBatch(ctx context.Context, limit int) ([]*domain.Notification, error) {
	var batch []*domain.Notification
	query := `
		SELECT * FROM notifications
		WHERE status = 'queued'
		ORDER BY created_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`
	err := r.db.SelectContext(ctx, &batch, query, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to dequeue notifications")
	}
	return batch, nil
}

func (r *NotificationRepository) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE notifications SET status = 'sent', sent_at = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, at, id)
	return errors.Wrap(err, "failed to mark notification sent")
}

func (r *NotificationRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	query := `UPDATE notifications SET status = 'failed', error = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, reason, id)
	return errors.Wrap(err, "failed to mark notification failed")
}

func (r *NotificationRepository) FindByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Notification, error) {
	var notifications []*domain.Notification
	query := `SELECT * FROM notifications WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	err := r.db.SelectContext(ctx, &notifications, query, userID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list notifications")
	}
	return notifications, nil
}

func (r *NotificationRepository) GetPrefs(ctx context.Context, userID uuid.UUID) (*domain.NotificationPrefs, error) {
	prefs := &domain.NotificationPrefs{}
	query := `SELECT * FROM notification_prefs WHERE user_id = $1`
	err := r.db.GetContext(ctx, prefs, query, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			// default: everything on
			return &domain.NotificationPrefs{UserID: userID, Toast: true, SMS: true, Email: true}, nil
		}
		return nil, errors.Wrap(err, "failed to get notification prefs")
	}
	return prefs, nil
}

func (r *NotificationRepository) UpsertPrefs(ctx context.Context, prefs *domain.NotificationPrefs) error {
	query := `
		INSERT INTO notification_prefs (user_id, toast, sms, email)
		VALUES (:user_id, :toast, :sms, :email)
		ON CONFLICT (user_id) DO UPDATE SET toast = :toast, sms = :sms, email = :email
	`
	_, err := r.db.NamedExecContext(ctx, query, prefs)
	return errors.Wrap(err, "failed to upsert notification prefs")
}

// --- Outbound messages (provider delivery tracking) ---

func (r *NotificationRepository) CreateOutbound(ctx context.Context, m *domain.OutboundMessage) error {
	query := `
		INSERT INTO outbound_messages (
			id, notification_id, provider_msg_id, channel, recipient, status, created_at, updated_at
		) VALUES (
			:id, :notification_id, :provider_msg_id, :channel, :recipient, :status, :created_at, :updated_at
		)
	`
	_, err := r.db.NamedExecContext(ctx, query, m)
	return errors.Wrap(err, "failed to create outbound message")
}

// UpdateOutboundStatus updates delivery status by provider message id.
func (r *NotificationRepository) UpdateOutboundStatus(ctx context.Context, providerMsgID, status string) error {
	query := `UPDATE outbound_messages SET status = $1, updated_at = NOW() WHERE provider_msg_id = $2`
	result, err := r.db.ExecContext(ctx, query, status, providerMsgID)
	if err != nil {
		return errors.Wrap(err, "failed to update outbound message status")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.ErrMessageNotFound
	}
	return nil
}
