// Package auth implements authentication: register/login with password
// credentials plus phone OTP verification, and JWT issuance.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"ajopay/internal/domain"
	apperrors "ajopay/pkg/errors"
	"ajopay/pkg/logger"
)

// Repository defines the user storage operations auth depends on.
type Repository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByPhone(ctx context.Context, phone string) (*domain.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Update(ctx context.Context, user *domain.User) error
}

// SMSSender dispatches a single message, returning the provider message id.
type SMSSender interface {
	Send(ctx context.Context, to, body string) (string, error)
}

// Service provides registration, login, OTP flows, and token issuance.
type Service struct {
	repo      Repository
	otp       *OTPStore
	sms       SMSSender
	jwtSecret string
	jwtExpiry time.Duration
	logger    logger.Logger
}

func NewService(repo Repository, otpStore *OTPStore, sms SMSSender, jwtSecret string, jwtExpiry time.Duration, log logger.Logger) *Service {
	return &Service{
		repo:      repo,
		otp:       otpStore,
		sms:       sms,
		jwtSecret: jwtSecret,
		jwtExpiry: jwtExpiry,
		logger:    log,
	}
}

// RegisterRequest captures the fields required to create a new user.
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Phone       string `json:"phone" validate:"required,msisdn"`
	Password    string `json:"password" validate:"required,min=8"`
	FirstName   string `json:"first_name" validate:"required"`
	LastName    string `json:"last_name" validate:"required"`
	CountryCode string `json:"country_code" validate:"required,len=2"`
}

// LoginRequest captures credentials for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// TokenResponse is returned on successful register/login with issued tokens.
type TokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresAt    time.Time    `json:"expires_at"`
	User         *domain.User `json:"user"`
	IsNewUser    bool         `json:"is_new_user,omitempty"`
}

// Register creates a new user and returns tokens. New users always start as
// members; role escalation happens through the users table, never at signup.
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*TokenResponse, error) {
	exists, err := s.repo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperrors.ErrUserAlreadyExists
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		ID:           uuid.New(),
		Email:        req.Email,
		Phone:        req.Phone,
		PasswordHash: string(passwordHash),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         domain.RoleMember,
		KYCStatus:    domain.KYCStatusPending,
		CountryCode:  req.CountryCode,
		IsActive:     true,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, apperrors.ErrUserAlreadyExists
		}
		return nil, err
	}

	s.logger.Info("user registered", map[string]interface{}{
		"user_id": user.ID.String(),
	})
	return s.generateTokens(user, true)
}

// Login authenticates a user and returns tokens.
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*TokenResponse, error) {
	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, apperrors.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apperrors.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, apperrors.ErrInvalidCredentials
	}

	now := time.Now()
	user.LastLogin = &now
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}

	return s.generateTokens(user, false)
}

// SendOTP generates a one-time code for the phone and dispatches it through
// the SMS provider. A provider failure surfaces as ErrProviderUnavailable.
func (s *Service) SendOTP(ctx context.Context, phone string) error {
	code, err := s.otp.Generate(ctx, phone)
	if err != nil {
		return err
	}

	body := fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, int(s.otp.Period().Minutes()))
	if _, err := s.sms.Send(ctx, phone, body); err != nil {
		s.logger.Error("otp sms dispatch failed", map[string]interface{}{
			"error": err.Error(),
		})
		return apperrors.ErrProviderUnavailable
	}

	s.logger.Info("otp sent", map[string]interface{}{
		"phone_suffix": suffix(phone, 4),
	})
	return nil
}

// VerifyOTP checks the code for the phone. On signup a user record is
// created with the phone as identity; otherwise the existing user must have
// been registered with that phone.
func (s *Service) VerifyOTP(ctx context.Context, phone, code string, isSignUp bool) (*TokenResponse, error) {
	if err := s.otp.Verify(ctx, phone, code); err != nil {
		return nil, err
	}

	user, err := s.repo.FindByPhone(ctx, phone)
	if err != nil && err != apperrors.ErrUserNotFound {
		return nil, err
	}

	isNew := false
	if user == nil || err == apperrors.ErrUserNotFound {
		if !isSignUp {
			return nil, apperrors.ErrUserNotFound
		}
		user = &domain.User{
			ID:            uuid.New(),
			Phone:         phone,
			Role:          domain.RoleMember,
			KYCStatus:     domain.KYCStatusPending,
			IsActive:      true,
			PhoneVerified: true,
			CreatedAt:     time.Now(),
			UpdatedAt:     time.Now(),
		}
		if err := s.repo.Create(ctx, user); err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23505" {
				return nil, apperrors.ErrUserAlreadyExists
			}
			return nil, err
		}
		isNew = true
	} else if !user.PhoneVerified {
		user.PhoneVerified = true
		user.UpdatedAt = time.Now()
		if err := s.repo.Update(ctx, user); err != nil {
			return nil, err
		}
	}

	s.logger.Info("otp verified", map[string]interface{}{
		"user_id": user.ID.String(),
		"signup":  isNew,
	})
	return s.generateTokens(user, isNew)
}

func (s *Service) generateTokens(user *domain.User, isNew bool) (*TokenResponse, error) {
	expiresAt := time.Now().Add(s.jwtExpiry)

	claims := jwt.MapClaims{
		"user_id": user.ID.String(),
		"email":   user.Email,
		"role":    string(user.Role),
		"exp":     expiresAt.Unix(),
		"iat":     time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	accessToken, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	refreshToken, err := generateRandomToken(32)
	if err != nil {
		return nil, err
	}

	return &TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
		User:         user,
		IsNewUser:    isNew,
	}, nil
}

func generateRandomToken(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

func suffix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
