package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/redis/go-redis/v9"

	apperrors "ajopay/pkg/errors"
)

// SecretStore keeps per-phone TOTP secrets with a TTL.
type SecretStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// OTPStore issues and checks time-based one-time codes for phone numbers.
// Each phone gets its own TOTP secret kept in Redis for the secret TTL; the
// code itself is valid for one period.
type OTPStore struct {
	cache     SecretStore
	digits    otp.Digits
	period    time.Duration
	secretTTL time.Duration
}

func NewOTPStore(c SecretStore, digits int, period, secretTTL time.Duration) *OTPStore {
	d := otp.DigitsSix
	if digits == 8 {
		d = otp.DigitsEight
	}
	return &OTPStore{
		cache:     c,
		digits:    d,
		period:    period,
		secretTTL: secretTTL,
	}
}

func (o *OTPStore) Period() time.Duration {
	return o.period
}

func otpSecretKey(phone string) string {
	return fmt.Sprintf("otp:secret:%s", phone)
}

// Generate creates (or refreshes) the phone's secret and returns the current
// code. Re-requesting before expiry rotates the secret, invalidating any
// previously sent code.
func (o *OTPStore) Generate(ctx context.Context, phone string) (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "ajopay",
		AccountName: phone,
		Period:      uint(o.period.Seconds()),
		Digits:      o.digits,
	})
	if err != nil {
		return "", apperrors.Wrap(err, "generate otp secret")
	}

	if err := o.cache.Set(ctx, otpSecretKey(phone), key.Secret(), o.secretTTL); err != nil {
		return "", apperrors.Wrap(err, "store otp secret")
	}

	code, err := totp.GenerateCodeCustom(key.Secret(), time.Now(), totp.ValidateOpts{
		Period: uint(o.period.Seconds()),
		Digits: o.digits,
	})
	if err != nil {
		return "", apperrors.Wrap(err, "generate otp code")
	}
	return code, nil
}

// Verify checks the code against the stored secret. The secret is consumed
// on success so a code never verifies twice.
func (o *OTPStore) Verify(ctx context.Context, phone, code string) error {
	var secret string
	if err := o.cache.Get(ctx, otpSecretKey(phone), &secret); err != nil {
		if err == redis.Nil {
			return apperrors.ErrOTPNotRequested
		}
		return apperrors.Wrap(err, "load otp secret")
	}

	valid, err := totp.ValidateCustom(code, secret, time.Now(), totp.ValidateOpts{
		Period: uint(o.period.Seconds()),
		Digits: o.digits,
		Skew:   1,
	})
	if err != nil || !valid {
		return apperrors.ErrOTPInvalid
	}

	if err := o.cache.Delete(ctx, otpSecretKey(phone)); err != nil {
		return apperrors.Wrap(err, "consume otp secret")
	}
	return nil
}
