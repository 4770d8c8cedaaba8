package kyc

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ajopay/internal/domain"
	"ajopay/pkg/errors"
	"ajopay/pkg/logger"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, p *domain.KYCProfile) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockRepository) Update(ctx context.Context, p *domain.KYCProfile) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*domain.KYCProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KYCProfile), args.Error(1)
}

func (m *MockRepository) FindByProviderRef(ctx context.Context, providerRef string) (*domain.KYCProfile, error) {
	args := m.Called(ctx, providerRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KYCProfile), args.Error(1)
}

type MockUserStatusSetter struct {
	mock.Mock
}

func (m *MockUserStatusSetter) SetKYCStatus(ctx context.Context, id uuid.UUID, status domain.KYCStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestSubmitReturnsExistingInFlightProfile(t *testing.T) {
	repo := new(MockRepository)
	users := new(MockUserStatusSetter)
	svc := NewService(repo, users, "smileid", "secret", logger.NewNop())

	userID := uuid.New()
	existing := &domain.KYCProfile{ID: uuid.New(), UserID: userID, Status: domain.KYCStatusProcessing}
	repo.On("FindByUserID", mock.Anything, userID).Return(existing, nil)

	profile, err := svc.Submit(context.Background(), userID, domain.Metadata{"document_type": "nin"})
	require.NoError(t, err)
	assert.Equal(t, existing.ID, profile.ID)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSubmitCreatesProcessingProfile(t *testing.T) {
	repo := new(MockRepository)
	users := new(MockUserStatusSetter)
	svc := NewService(repo, users, "smileid", "secret", logger.NewNop())

	userID := uuid.New()
	repo.On("FindByUserID", mock.Anything, userID).Return(nil, errors.ErrKYCProfileNotFound)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(p *domain.KYCProfile) bool {
		return p.UserID == userID && p.Provider == "smileid" && p.ProviderRef != ""
	})).Return(nil)
	repo.On("Update", mock.Anything, mock.MatchedBy(func(p *domain.KYCProfile) bool {
		return p.Status == domain.KYCStatusProcessing
	})).Return(nil)
	users.On("SetKYCStatus", mock.Anything, userID, domain.KYCStatusProcessing).Return(nil)

	profile, err := svc.Submit(context.Background(), userID, domain.Metadata{"document_type": "nin"})
	require.NoError(t, err)
	assert.Equal(t, domain.KYCStatusProcessing, profile.Status)
	repo.AssertExpectations(t)
	users.AssertExpectations(t)
}

func TestVerifySignature(t *testing.T) {
	svc := NewService(new(MockRepository), new(MockUserStatusSetter), "smileid", "secret", logger.NewNop())

	body := []byte(`{"reference":"KYC-abc","status":"verified"}`)
	assert.NoError(t, svc.VerifySignature(body, sign("secret", body)))
	assert.ErrorIs(t, svc.VerifySignature(body, sign("wrong", body)), errors.ErrBadSignature)
	assert.ErrorIs(t, svc.VerifySignature(body, "deadbeef"), errors.ErrBadSignature)
}

func TestHandleWebhookVerifiesProfile(t *testing.T) {
	repo := new(MockRepository)
	users := new(MockUserStatusSetter)
	svc := NewService(repo, users, "smileid", "secret", logger.NewNop())

	profile := &domain.KYCProfile{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		ProviderRef: "KYC-abc",
		Status:      domain.KYCStatusProcessing,
	}
	repo.On("FindByProviderRef", mock.Anything, "KYC-abc").Return(profile, nil)
	repo.On("Update", mock.Anything, mock.MatchedBy(func(p *domain.KYCProfile) bool {
		return p.Status == domain.KYCStatusVerified && p.ReviewedAt != nil
	})).Return(nil)
	users.On("SetKYCStatus", mock.Anything, profile.UserID, domain.KYCStatusVerified).Return(nil)

	err := svc.HandleWebhook(context.Background(), []byte(`{"reference":"KYC-abc","status":"verified"}`))
	assert.NoError(t, err)
	repo.AssertExpectations(t)
	users.AssertExpectations(t)
}

func TestHandleWebhookRejectsInvalidTransition(t *testing.T) {
	repo := new(MockRepository)
	users := new(MockUserStatusSetter)
	svc := NewService(repo, users, "smileid", "secret", logger.NewNop())

	profile := &domain.KYCProfile{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		ProviderRef: "KYC-abc",
		Status:      domain.KYCStatusVerified,
	}
	repo.On("FindByProviderRef", mock.Anything, "KYC-abc").Return(profile, nil)

	err := svc.HandleWebhook(context.Background(), []byte(`{"reference":"KYC-abc","status":"rejected"}`))
	assert.ErrorIs(t, err, errors.ErrInvalidKYCTransition)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestHandleWebhookUnknownStatus(t *testing.T) {
	svc := NewService(new(MockRepository), new(MockUserStatusSetter), "smileid", "secret", logger.NewNop())

	err := svc.HandleWebhook(context.Background(), []byte(`{"reference":"KYC-abc","status":"maybe"}`))
	assert.Error(t, err)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, canTransition(domain.KYCStatusPending, domain.KYCStatusProcessing))
	assert.True(t, canTransition(domain.KYCStatusProcessing, domain.KYCStatusVerified))
	assert.True(t, canTransition(domain.KYCStatusProcessing, domain.KYCStatusRejected))
	assert.False(t, canTransition(domain.KYCStatusVerified, domain.KYCStatusRejected))
	assert.False(t, canTransition(domain.KYCStatusRejected, domain.KYCStatusVerified))
	assert.False(t, canTransition(domain.KYCStatusPending, domain.KYCStatusVerified))
}
