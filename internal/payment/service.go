// Package payment integrates the card-payment gateway: initialization,
// verification, and the async confirmation webhook.
package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"ajopay/internal/domain"
	"ajopay/pkg/errors"
	"ajopay/pkg/logger"
)

// Repository defines payment storage operations.
type Repository interface {
	Create(ctx context.Context, p *domain.Payment) error
	FindByReference(ctx context.Context, reference string) (*domain.Payment, error)
	MarkSuccess(ctx context.Context, reference, channel string, paidAt time.Time) (bool, error)
	MarkFailed(ctx context.Context, reference string, status domain.PaymentStatus) error
}

// WalletFinder resolves the user's wallet for the payment currency.
type WalletFinder interface {
	FindByUserAndCurrency(ctx context.Context, userID uuid.UUID, currency domain.Currency) (*domain.Wallet, error)
}

// LedgerRecorder posts the wallet credit once a payment settles.
type LedgerRecorder interface {
	Record(ctx context.Context, walletID uuid.UUID, amountKobo int64, code, reference string) (*domain.LedgerEntry, error)
}

// Gateway is the payment provider's API surface.
type Gateway interface {
	Initialize(ctx context.Context, email string, amountKobo int64, currency, reference string) (*InitializeResult, error)
	Verify(ctx context.Context, reference string) (*VerifyResult, error)
}

// Service orchestrates gateway payments into wallet credits.
type Service struct {
	repo          Repository
	wallets       WalletFinder
	ledger        LedgerRecorder
	gateway       Gateway
	webhookSecret string
	logger        logger.Logger
}

func NewService(repo Repository, wallets WalletFinder, ledger LedgerRecorder, gateway Gateway, webhookSecret string, log logger.Logger) *Service {
	return &Service{
		repo:          repo,
		wallets:       wallets,
		ledger:        ledger,
		gateway:       gateway,
		webhookSecret: webhookSecret,
		logger:        log,
	}
}

// Initialize registers a pending payment and returns the gateway checkout
// URL. The reference is ours, not the gateway's.
func (s *Service) Initialize(ctx context.Context, userID uuid.UUID, email string, amountKobo int64, currency domain.Currency) (*InitializeResult, error) {
	if amountKobo <= 0 {
		return nil, errors.ErrInvalidAmount
	}

	wallet, err := s.wallets.FindByUserAndCurrency(ctx, userID, currency)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		return nil, errors.ErrWalletNotFound
	}

	reference := fmt.Sprintf("PAY-%s", strings.ToUpper(uuid.New().String()[:12]))
	payment := &domain.Payment{
		ID:         uuid.New(),
		UserID:     userID,
		WalletID:   wallet.ID,
		Reference:  reference,
		AmountKobo: amountKobo,
		Currency:   currency,
		Status:     domain.PaymentStatusInitialized,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, errors.Wrap(err, "create payment")
	}

	result, err := s.gateway.Initialize(ctx, email, amountKobo, string(currency), reference)
	if err != nil {
		return nil, err
	}

	s.logger.Info("payment initialized", map[string]interface{}{
		"reference":   reference,
		"user_id":     userID.String(),
		"amount_kobo": amountKobo,
	})
	return result, nil
}

// Verify checks the gateway's view of the reference and, on success, credits
// the wallet exactly once. Re-verifying a settled payment is a no-op success.
func (s *Service) Verify(ctx context.Context, userID uuid.UUID, reference string) (*domain.Payment, error) {
	payment, err := s.repo.FindByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if payment.UserID != userID {
		return nil, errors.ErrForbidden
	}

	if payment.Status == domain.PaymentStatusSuccess {
		return payment, nil
	}

	result, err := s.gateway.Verify(ctx, reference)
	if err != nil {
		return nil, err
	}

	switch result.Status {
	case "success":
		return payment, s.settle(ctx, payment, result.Channel)
	case "failed":
		if err := s.repo.MarkFailed(ctx, reference, domain.PaymentStatusFailed); err != nil {
			return nil, err
		}
		payment.Status = domain.PaymentStatusFailed
		return payment, errors.ErrPaymentNotSuccessful
	case "abandoned":
		if err := s.repo.MarkFailed(ctx, reference, domain.PaymentStatusAbandoned); err != nil {
			return nil, err
		}
		payment.Status = domain.PaymentStatusAbandoned
		return payment, errors.ErrPaymentNotSuccessful
	default:
		return payment, errors.ErrPaymentNotSuccessful
	}
}

// settle marks the payment successful and credits the wallet. The guarded
// update makes the credit idempotent: only the caller that wins the
// initialized->success transition posts the ledger entry.
func (s *Service) settle(ctx context.Context, payment *domain.Payment, channel string) error {
	now := time.Now()
	won, err := s.repo.MarkSuccess(ctx, payment.Reference, channel, now)
	if err != nil {
		return err
	}
	payment.Status = domain.PaymentStatusSuccess
	payment.PaidAt = &now
	if !won {
		return nil
	}

	if _, err := s.ledger.Record(ctx, payment.WalletID, payment.AmountKobo, domain.LedgerCodeDeposit, payment.Reference); err != nil {
		return errors.Wrap(err, "credit wallet for payment")
	}

	s.logger.Info("payment settled", map[string]interface{}{
		"reference":   payment.Reference,
		"amount_kobo": payment.AmountKobo,
	})
	return nil
}

// VerifyWebhookSignature checks the gateway's HMAC-SHA512 hex signature over
// the raw body.
func (s *Service) VerifyWebhookSignature(body []byte, signature string) error {
	mac := hmac.New(sha512.New, []byte(s.webhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return errors.ErrBadSignature
	}
	return nil
}

type webhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		Status    string `json:"status"`
		Channel   string `json:"channel"`
	} `json:"data"`
}

// HandleWebhook applies an async gateway confirmation. Unknown events are
// acknowledged without action.
func (s *Service) HandleWebhook(ctx context.Context, body []byte) error {
	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return errors.Wrap(err, "decode gateway webhook")
	}

	switch event.Event {
	case "charge.success":
		payment, err := s.repo.FindByReference(ctx, event.Data.Reference)
		if err != nil {
			return err
		}
		return s.settle(ctx, payment, event.Data.Channel)
	case "charge.failed":
		return s.repo.MarkFailed(ctx, event.Data.Reference, domain.PaymentStatusFailed)
	default:
		s.logger.Debug("ignoring gateway webhook event", map[string]interface{}{
			"event": event.Event,
		})
		return nil
	}
}
