// Package kyc handles identity-verification submissions and the provider
// webhook that resolves them.
package kyc

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ajopay/internal/domain"
	"ajopay/pkg/errors"
	"ajopay/pkg/logger"
)

// Repository defines KYC profile storage operations.
type Repository interface {
	Create(ctx context.Context, p *domain.KYCProfile) error
	Update(ctx context.Context, p *domain.KYCProfile) error
	FindByUserID(ctx context.Context, userID uuid.UUID) (*domain.KYCProfile, error)
	FindByProviderRef(ctx context.Context, providerRef string) (*domain.KYCProfile, error)
}

// UserStatusSetter mirrors the profile status onto the users table.
type UserStatusSetter interface {
	SetKYCStatus(ctx context.Context, id uuid.UUID, status domain.KYCStatus) error
}

// validTransitions is the allowed state machine for a KYC profile. Terminal
// states (verified, rejected) accept no further transitions except a fresh
// submission, which creates a new profile.
var validTransitions = map[domain.KYCStatus][]domain.KYCStatus{
	domain.KYCStatusPending:    {domain.KYCStatusProcessing, domain.KYCStatusRejected},
	domain.KYCStatusProcessing: {domain.KYCStatusVerified, domain.KYCStatusRejected},
}

func canTransition(from, to domain.KYCStatus) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Service manages KYC submissions and webhook-driven status updates.
type Service struct {
	repo          Repository
	users         UserStatusSetter
	provider      string
	webhookSecret string
	logger        logger.Logger
}

func NewService(repo Repository, users UserStatusSetter, provider, webhookSecret string, log logger.Logger) *Service {
	return &Service{
		repo:          repo,
		users:         users,
		provider:      provider,
		webhookSecret: webhookSecret,
		logger:        log,
	}
}

// Submit records a verification request and hands it to the provider. The
// profile starts pending and immediately moves to processing once a provider
// reference exists.
func (s *Service) Submit(ctx context.Context, userID uuid.UUID, payload domain.Metadata) (*domain.KYCProfile, error) {
	existing, err := s.repo.FindByUserID(ctx, userID)
	if err != nil && err != errors.ErrKYCProfileNotFound {
		return nil, err
	}
	if existing != nil && (existing.Status == domain.KYCStatusPending || existing.Status == domain.KYCStatusProcessing) {
		return existing, nil
	}

	profile := &domain.KYCProfile{
		ID:          uuid.New(),
		UserID:      userID,
		Provider:    s.provider,
		ProviderRef: fmt.Sprintf("KYC-%s", uuid.New().String()[:12]),
		Status:      domain.KYCStatusPending,
		Payload:     payload,
		SubmittedAt: time.Now(),
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := s.repo.Create(ctx, profile); err != nil {
		return nil, errors.Wrap(err, "create kyc profile")
	}

	profile.Status = domain.KYCStatusProcessing
	profile.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, profile); err != nil {
		return nil, errors.Wrap(err, "update kyc profile")
	}
	if err := s.users.SetKYCStatus(ctx, userID, domain.KYCStatusProcessing); err != nil {
		return nil, err
	}

	s.logger.Info("kyc submitted", map[string]interface{}{
		"user_id":      userID.String(),
		"provider_ref": profile.ProviderRef,
	})
	return profile, nil
}

func (s *Service) GetProfile(ctx context.Context, userID uuid.UUID) (*domain.KYCProfile, error) {
	return s.repo.FindByUserID(ctx, userID)
}

// WebhookEvent is the provider's callback payload.
type WebhookEvent struct {
	ProviderRef string `json:"reference"`
	Status      string `json:"status"`
	Reason      string `json:"reason,omitempty"`
}

// VerifySignature checks the HMAC-SHA256 hex signature over the raw body.
func (s *Service) VerifySignature(body []byte, signature string) error {
	mac := hmac.New(sha256.New, []byte(s.webhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return errors.ErrBadSignature
	}
	return nil
}

// HandleWebhook applies a provider decision to the profile. The signature
// must already have been verified against the raw body.
func (s *Service) HandleWebhook(ctx context.Context, body []byte) error {
	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return errors.Wrap(err, "decode kyc webhook")
	}

	var target domain.KYCStatus
	switch event.Status {
	case "verified", "approved":
		target = domain.KYCStatusVerified
	case "rejected", "failed":
		target = domain.KYCStatusRejected
	default:
		return fmt.Errorf("unknown kyc webhook status %q", event.Status)
	}

	profile, err := s.repo.FindByProviderRef(ctx, event.ProviderRef)
	if err != nil {
		return err
	}

	if !canTransition(profile.Status, target) {
		return errors.ErrInvalidKYCTransition
	}

	now := time.Now()
	profile.Status = target
	profile.Reason = event.Reason
	profile.ReviewedAt = &now
	profile.UpdatedAt = now
	if err := s.repo.Update(ctx, profile); err != nil {
		return errors.Wrap(err, "update kyc profile")
	}
	if err := s.users.SetKYCStatus(ctx, profile.UserID, target); err != nil {
		return err
	}

	s.logger.Info("kyc status updated", map[string]interface{}{
		"provider_ref": event.ProviderRef,
		"status":       string(target),
	})
	return nil
}
