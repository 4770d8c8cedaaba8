package auth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"ajopay/internal/domain"
	apperrors "ajopay/pkg/errors"
	"ajopay/pkg/logger"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockRepository) FindByPhone(ctx context.Context, phone string) (*domain.User, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

type MockSMSSender struct {
	mock.Mock
}

func (m *MockSMSSender) Send(ctx context.Context, to, body string) (string, error) {
	args := m.Called(ctx, to, body)
	return args.String(0), args.Error(1)
}

func newTestService(repo *MockRepository, sms *MockSMSSender) *Service {
	otpStore := NewOTPStore(newMemStore(), 6, 5*time.Minute, 10*time.Minute)
	return NewService(repo, otpStore, sms, "test-secret", 15*time.Minute, logger.NewNop())
}

func TestRegisterIssuesTokensForNewMember(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, new(MockSMSSender))

	repo.On("ExistsByEmail", mock.Anything, "a@b.com").Return(false, nil)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.Email == "a@b.com" && u.Role == domain.RoleMember && u.PasswordHash != "hunter2password"
	})).Return(nil)

	resp, err := svc.Register(context.Background(), &RegisterRequest{
		Email:       "a@b.com",
		Phone:       "+2348012345678",
		Password:    "hunter2password",
		FirstName:   "Ada",
		LastName:    "Obi",
		CountryCode: "NG",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.True(t, resp.IsNewUser)

	// Role claim must come from the user record.
	token, err := jwt.Parse(resp.AccessToken, func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, "member", claims["role"])
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, new(MockSMSSender))

	repo.On("ExistsByEmail", mock.Anything, "a@b.com").Return(true, nil)

	_, err := svc.Register(context.Background(), &RegisterRequest{Email: "a@b.com", Password: "hunter2password"})
	assert.ErrorIs(t, err, apperrors.ErrUserAlreadyExists)
}

func TestLoginWrongPassword(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, new(MockSMSSender))

	hash, _ := bcrypt.GenerateFromPassword([]byte("correct-password"), bcrypt.MinCost)
	user := &domain.User{ID: uuid.New(), Email: "a@b.com", PasswordHash: string(hash), IsActive: true}
	repo.On("FindByEmail", mock.Anything, "a@b.com").Return(user, nil)

	_, err := svc.Login(context.Background(), &LoginRequest{Email: "a@b.com", Password: "wrong"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestLoginInactiveUser(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, new(MockSMSSender))

	hash, _ := bcrypt.GenerateFromPassword([]byte("correct-password"), bcrypt.MinCost)
	user := &domain.User{ID: uuid.New(), Email: "a@b.com", PasswordHash: string(hash), IsActive: false}
	repo.On("FindByEmail", mock.Anything, "a@b.com").Return(user, nil)

	_, err := svc.Login(context.Background(), &LoginRequest{Email: "a@b.com", Password: "correct-password"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestLoginUpdatesLastLogin(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, new(MockSMSSender))

	hash, _ := bcrypt.GenerateFromPassword([]byte("correct-password"), bcrypt.MinCost)
	user := &domain.User{ID: uuid.New(), Email: "a@b.com", PasswordHash: string(hash), IsActive: true}
	repo.On("FindByEmail", mock.Anything, "a@b.com").Return(user, nil)
	repo.On("Update", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.LastLogin != nil
	})).Return(nil)

	resp, err := svc.Login(context.Background(), &LoginRequest{Email: "a@b.com", Password: "correct-password"})
	require.NoError(t, err)
	assert.False(t, resp.IsNewUser)
	repo.AssertExpectations(t)
}

func TestSendOTPProviderFailure(t *testing.T) {
	repo := new(MockRepository)
	sms := new(MockSMSSender)
	svc := newTestService(repo, sms)

	sms.On("Send", mock.Anything, "+2348012345678", mock.Anything).Return("", fmt.Errorf("timeout"))

	err := svc.SendOTP(context.Background(), "+2348012345678")
	assert.ErrorIs(t, err, apperrors.ErrProviderUnavailable)
}

func TestVerifyOTPSignUpCreatesMember(t *testing.T) {
	repo := new(MockRepository)
	sms := new(MockSMSSender)
	svc := newTestService(repo, sms)

	phone := "+2348012345678"
	sms.On("Send", mock.Anything, phone, mock.Anything).Return("msg-1", nil)
	require.NoError(t, svc.SendOTP(context.Background(), phone))

	code, err := svc.otp.Generate(context.Background(), phone)
	require.NoError(t, err)

	repo.On("FindByPhone", mock.Anything, phone).Return(nil, apperrors.ErrUserNotFound)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.Phone == phone && u.Role == domain.RoleMember && u.PhoneVerified
	})).Return(nil)

	resp, err := svc.VerifyOTP(context.Background(), phone, code, true)
	require.NoError(t, err)
	assert.True(t, resp.IsNewUser)
	repo.AssertExpectations(t)
}

func TestVerifyOTPLoginUnknownPhone(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, new(MockSMSSender))

	phone := "+2348012345678"
	code, err := svc.otp.Generate(context.Background(), phone)
	require.NoError(t, err)

	repo.On("FindByPhone", mock.Anything, phone).Return(nil, apperrors.ErrUserNotFound)

	_, err = svc.VerifyOTP(context.Background(), phone, code, false)
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestVerifyOTPInvalidCode(t *testing.T) {
	svc := newTestService(new(MockRepository), new(MockSMSSender))

	_, err := svc.VerifyOTP(context.Background(), "+2348012345678", "123456", false)
	assert.ErrorIs(t, err, apperrors.ErrOTPNotRequested)
}
