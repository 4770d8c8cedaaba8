// Package notification implements the queue-backed notification pipeline:
// enqueue, dispatch through channel senders, and delivery-status tracking.
package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"ajopay/internal/domain"
	"ajopay/pkg/errors"
	"ajopay/pkg/logger"
)

// Repository defines notification storage operations.
type Repository interface {
	Enqueue(ctx context.Context, n *domain.Notification) error
	DequeueBatch(ctx context.Context, limit int) ([]*domain.Notification, error)
	MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	FindByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Notification, error)
	GetPrefs(ctx context.Context, userID uuid.UUID) (*domain.NotificationPrefs, error)
	UpsertPrefs(ctx context.Context, prefs *domain.NotificationPrefs) error
	CreateOutbound(ctx context.Context, m *domain.OutboundMessage) error
	UpdateOutboundStatus(ctx context.Context, providerMsgID, status string) error
}

// UserFinder resolves recipients' addresses at dispatch time.
type UserFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// EmailSender delivers a single email.
type EmailSender interface {
	Send(to, subject, body string) error
}

// SMSSender delivers a single SMS, returning the provider message id.
type SMSSender interface {
	Send(ctx context.Context, to, body string) (string, error)
}

// PrefsCache caches channel opt-ins between dispatch passes.
type PrefsCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Service owns the notification queue. Enqueue never dispatches; Dispatch
// drains queued rows through the channel senders.
type Service struct {
	repo         Repository
	users        UserFinder
	mailer       EmailSender
	sms          SMSSender
	cache        PrefsCache
	prefsTTL     time.Duration
	smsUnitPrice decimal.Decimal
	logger       logger.Logger
}

func NewService(repo Repository, users UserFinder, mailer EmailSender, sms SMSSender, c PrefsCache, prefsTTL time.Duration, smsUnitPrice decimal.Decimal, log logger.Logger) *Service {
	return &Service{
		repo:         repo,
		users:        users,
		mailer:       mailer,
		sms:          sms,
		cache:        c,
		prefsTTL:     prefsTTL,
		smsUnitPrice: smsUnitPrice,
		logger:       log,
	}
}

func prefsKey(userID uuid.UUID) string {
	return fmt.Sprintf("notif:prefs:%s", userID)
}

// Prefs returns the user's channel opt-ins, consulting the Redis cache
// before the database. Absent rows default to all channels enabled.
func (s *Service) Prefs(ctx context.Context, userID uuid.UUID) (*domain.NotificationPrefs, error) {
	var cached domain.NotificationPrefs
	err := s.cache.Get(ctx, prefsKey(userID), &cached)
	if err == nil {
		return &cached, nil
	}
	if err != redis.Nil {
		s.logger.Warn("prefs cache read failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	prefs, err := s.repo.GetPrefs(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, prefsKey(userID), prefs, s.prefsTTL); err != nil {
		s.logger.Warn("prefs cache write failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return prefs, nil
}

// UpdatePrefs persists the opt-in set and invalidates the cache.
func (s *Service) UpdatePrefs(ctx context.Context, prefs *domain.NotificationPrefs) error {
	if err := s.repo.UpsertPrefs(ctx, prefs); err != nil {
		return err
	}
	return s.cache.Delete(ctx, prefsKey(prefs.UserID))
}

func channelEnabled(prefs *domain.NotificationPrefs, ch domain.Channel) bool {
	switch ch {
	case domain.ChannelToast:
		return prefs.Toast
	case domain.ChannelSMS:
		return prefs.SMS
	case domain.ChannelEmail:
		return prefs.Email
	default:
		return false
	}
}

// Enqueue stores a notification for later dispatch. Channels the user has
// opted out of are skipped silently.
func (s *Service) Enqueue(ctx context.Context, userID uuid.UUID, channel domain.Channel, kind, subject, body string) error {
	switch channel {
	case domain.ChannelToast, domain.ChannelSMS, domain.ChannelEmail:
	default:
		return errors.ErrUnknownChannel
	}

	prefs, err := s.Prefs(ctx, userID)
	if err != nil {
		return err
	}
	if !channelEnabled(prefs, channel) {
		return nil
	}

	n := &domain.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Channel:   channel,
		Kind:      kind,
		Subject:   subject,
		Body:      body,
		Status:    domain.NotificationStatusQueued,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	return s.repo.Enqueue(ctx, n)
}

// DispatchResult summarizes one drain pass.
type DispatchResult struct {
	Dispatched int `json:"dispatched"`
	Failed     int `json:"failed"`
}

// Dispatch drains up to limit queued notifications through their channel
// senders. A failed send marks the row failed and continues with the rest.
func (s *Service) Dispatch(ctx context.Context, limit int) (*DispatchResult, error) {
	batch, err := s.repo.DequeueBatch(ctx, limit)
	if err != nil {
		return nil, err
	}

	result := &DispatchResult{}
	for _, n := range batch {
		if err := s.send(ctx, n); err != nil {
			result.Failed++
			if markErr := s.repo.MarkFailed(ctx, n.ID, err.Error()); markErr != nil {
				s.logger.Error("failed to mark notification failed", map[string]interface{}{
					"notification_id": n.ID.String(),
					"error":           markErr.Error(),
				})
			}
			continue
		}
		result.Dispatched++
		if err := s.repo.MarkSent(ctx, n.ID, time.Now()); err != nil {
			s.logger.Error("failed to mark notification sent", map[string]interface{}{
				"notification_id": n.ID.String(),
				"error":           err.Error(),
			})
		}
	}

	if len(batch) > 0 {
		s.logger.Info("notification dispatch pass", map[string]interface{}{
			"dispatched": result.Dispatched,
			"failed":     result.Failed,
		})
	}
	return result, nil
}

func (s *Service) send(ctx context.Context, n *domain.Notification) error {
	switch n.Channel {
	case domain.ChannelToast:
		// Toast rows are delivered by client polling; marking sent is enough.
		return nil
	case domain.ChannelEmail:
		user, err := s.users.FindByID(ctx, n.UserID)
		if err != nil {
			return err
		}
		if user.Email == "" {
			return fmt.Errorf("user %s has no email address", n.UserID)
		}
		return s.mailer.Send(user.Email, n.Subject, n.Body)
	case domain.ChannelSMS:
		user, err := s.users.FindByID(ctx, n.UserID)
		if err != nil {
			return err
		}
		if user.Phone == "" {
			return fmt.Errorf("user %s has no phone number", n.UserID)
		}
		msgID, err := s.sms.Send(ctx, user.Phone, n.Body)
		if err != nil {
			return err
		}
		outbound := &domain.OutboundMessage{
			ID:             uuid.New(),
			NotificationID: n.ID,
			ProviderMsgID:  msgID,
			Channel:        domain.ChannelSMS,
			Recipient:      user.Phone,
			Status:         "submitted",
			CreatedAt:      time.Now(),
			UpdatedAt:      time.Now(),
		}
		if err := s.repo.CreateOutbound(ctx, outbound); err != nil {
			s.logger.Error("failed to record outbound message", map[string]interface{}{
				"provider_msg_id": msgID,
				"error":           err.Error(),
			})
		}
		return nil
	default:
		return errors.ErrUnknownChannel
	}
}

// ListForUser returns the user's notifications, newest first.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.FindByUser(ctx, userID, limit, offset)
}

// UpdateDeliveryStatus applies a provider delivery report to the outbound
// message it references.
func (s *Service) UpdateDeliveryStatus(ctx context.Context, providerMsgID, status string) error {
	switch status {
	case "delivered", "undelivered", "submitted", "expired":
	default:
		return errors.ErrInvalidWebhookPayload
	}
	return s.repo.UpdateOutboundStatus(ctx, providerMsgID, status)
}

// EstimateSMSCost prices a broadcast: unit price times recipient count.
func (s *Service) EstimateSMSCost(recipients int) decimal.Decimal {
	if recipients <= 0 {
		return decimal.Zero
	}
	return s.smsUnitPrice.Mul(decimal.NewFromInt(int64(recipients)))
}
