// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Email        EmailConfig
	SMS          SMSConfig
	Gateway      GatewayConfig
	KYC          KYCConfig
	OTP          OTPConfig
	Payout       PayoutConfig
	Notification NotificationConfig
}

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPUseTLS   bool
}

// SMSConfig configures the outbound SMS provider.
type SMSConfig struct {
	BaseURL   string
	APIKey    string
	SenderID  string
	UnitPrice string // major units per message, e.g. "4.50"
}

// GatewayConfig configures the card payment gateway (Paystack-compatible API).
type GatewayConfig struct {
	BaseURL       string
	SecretKey     string
	CallbackURL   string
	WebhookSecret string
}

type KYCConfig struct {
	WebhookSecret string
	Provider      string
}

type OTPConfig struct {
	Digits   int
	Period   time.Duration
	SecretTTL time.Duration
}

type PayoutConfig struct {
	ApprovalThreshold int
}

type NotificationConfig struct {
	DispatchBatchSize int
	PrefsCacheTTL     time.Duration
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:  getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),
		},
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL:      normalizeRedisURL(getEnv("REDIS_URL", "localhost:6379")),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:     getEnv("JWT_SECRET", "change-this-secret"),
			Expiration: getDurationEnv("JWT_EXPIRATION", 15*time.Minute),
		},
		Email: EmailConfig{
			SMTPHost:     getEnv("SMTP_HOST", "smtp.gmail.com"),
			SMTPPort:     getIntEnv("SMTP_PORT", 587),
			SMTPUsername: getEnv("SMTP_USERNAME", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
			SMTPFrom:     getEnv("SMTP_FROM", ""),
			SMTPUseTLS:   getBoolEnv("SMTP_USE_TLS", true),
		},
		SMS: SMSConfig{
			BaseURL:   getEnv("SMS_BASE_URL", "https://api.sms.example.com"),
			APIKey:    getEnv("SMS_API_KEY", ""),
			SenderID:  getEnv("SMS_SENDER_ID", "AjoPay"),
			UnitPrice: getEnv("SMS_UNIT_PRICE", "4.50"),
		},
		Gateway: GatewayConfig{
			BaseURL:       getEnv("GATEWAY_BASE_URL", "https://api.paystack.co"),
			SecretKey:     getEnv("GATEWAY_SECRET_KEY", ""),
			CallbackURL:   getEnv("GATEWAY_CALLBACK_URL", ""),
			WebhookSecret: getEnv("GATEWAY_WEBHOOK_SECRET", ""),
		},
		KYC: KYCConfig{
			WebhookSecret: getEnv("KYC_WEBHOOK_SECRET", ""),
			Provider:      getEnv("KYC_PROVIDER", "smile_identity"),
		},
		OTP: OTPConfig{
			Digits:    getIntEnv("OTP_DIGITS", 6),
			Period:    getDurationEnv("OTP_PERIOD", 5*time.Minute),
			SecretTTL: getDurationEnv("OTP_SECRET_TTL", 10*time.Minute),
		},
		Payout: PayoutConfig{
			ApprovalThreshold: getIntEnv("PAYOUT_APPROVAL_THRESHOLD", 2),
		},
		Notification: NotificationConfig{
			DispatchBatchSize: getIntEnv("NOTIFICATION_DISPATCH_BATCH", 100),
			PrefsCacheTTL:     getDurationEnv("NOTIFICATION_PREFS_TTL", 10*time.Minute),
		},
	}
}

// ValidateCore checks configuration the service cannot run without.
func (c *Config) ValidateCore() error {
	if c.Database.URL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.JWT.Secret == "" || c.JWT.Secret == "change-this-secret" {
		return errors.New("JWT_SECRET must be set to a non-default value")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func normalizeRedisURL(url string) string {
	// Strip redis:// or redis+tls:// scheme if present
	if strings.HasPrefix(url, "redis+tls://") {
		return url[len("redis+tls://"):]
	}
	if strings.HasPrefix(url, "redis://") {
		return url[len("redis://"):]
	}
	return url
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return defaultValue
}
