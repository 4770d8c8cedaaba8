// Package payout implements the multi-approval disbursement workflow.
//
// A payout starts pending, advances to queued only once enough distinct
// admins have approved it, and ends paid or failed. The approval threshold
// defaults to two and is read from configuration.
package payout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ajopay/internal/domain"
	"ajopay/pkg/errors"
	"ajopay/pkg/logger"
)

const DefaultApprovalThreshold = 2

type Service struct {
	repo      Repository
	ledger    LedgerRecorder
	notifier  Notifier
	threshold int
	logger    logger.Logger
}

func NewService(repo Repository, ledger LedgerRecorder, notifier Notifier, threshold int, log logger.Logger) *Service {
	if threshold <= 0 {
		threshold = DefaultApprovalThreshold
	}
	return &Service{
		repo:      repo,
		ledger:    ledger,
		notifier:  notifier,
		threshold: threshold,
		logger:    log,
	}
}

type CreateRequest struct {
	WalletID    uuid.UUID `json:"wallet_id" validate:"required"`
	RecipientID uuid.UUID `json:"recipient_id" validate:"required"`
	AmountKobo  int64     `json:"amount_kobo" validate:"required,gt=0"`
	Currency    domain.Currency `json:"currency" validate:"required"`
	SplitCode   *string   `json:"split_code,omitempty"`
}

func (s *Service) Create(ctx context.Context, req *CreateRequest) (*domain.Payout, error) {
	p := &domain.Payout{
		ID:          uuid.New(),
		WalletID:    req.WalletID,
		RecipientID: req.RecipientID,
		AmountKobo:  req.AmountKobo,
		Currency:    req.Currency,
		Status:      domain.PayoutStatusPending,
		Approvals:   0,
		SplitCode:   req.SplitCode,
		Reference:   fmt.Sprintf("PO-%s", uuid.New().String()[:8]),
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("Payout created", map[string]interface{}{
		"payout_id":   p.ID,
		"wallet_id":   p.WalletID,
		"amount_kobo": p.AmountKobo,
	})
	return p, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Payout, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Service) ListByStatus(ctx context.Context, status domain.PayoutStatus, limit, offset int) ([]*domain.Payout, error) {
	return s.repo.FindByStatus(ctx, status, limit, offset)
}

// Approve records one admin's approval. Each call increments the count by
// exactly one; the call that reaches the threshold performs the transition
// to queued and places the ledger hold. Approving a payout that is not
// pending is an error, never a silent no-op.
func (s *Service) Approve(ctx context.Context, payoutID, approverID uuid.UUID) (*domain.Payout, error) {
	p, err := s.repo.FindByID(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if p.Status != domain.PayoutStatusPending {
		return nil, errors.ErrPayoutNotPending
	}

	approval := &domain.PayoutApproval{
		ID:         uuid.New(),
		PayoutID:   payoutID,
		ApproverID: approverID,
		CreatedAt:  time.Now(),
	}
	if err := s.repo.RecordApproval(ctx, approval); err != nil {
		return nil, err
	}

	count, err := s.repo.IncrementApprovals(ctx, payoutID)
	if err != nil {
		return nil, err
	}

	if count >= s.threshold {
		if err := s.repo.Queue(ctx, payoutID, s.threshold); err != nil {
			return nil, err
		}
		if _, err := s.ledger.Record(ctx, p.WalletID, -p.AmountKobo, domain.LedgerCodePayoutHold, p.Reference); err != nil {
			return nil, errors.Wrap(err, "failed to place payout hold")
		}
		s.logger.Info("Payout queued", map[string]interface{}{
			"payout_id": payoutID,
			"approvals": count,
		})
	}

	return s.repo.FindByID(ctx, payoutID)
}

// BulkResult summarizes a bulk approval pass.
type BulkResult struct {
	Affected   []uuid.UUID     `json:"affected"`
	Skipped    []uuid.UUID     `json:"skipped"`
	SMSCost    decimal.Decimal `json:"sms_cost_estimate"`
	Recipients int             `json:"recipients"`
}

// BulkApprove applies Approve to every selected payout that is currently
// pending. Payouts in any other state are skipped silently, and a failure
// on one payout does not roll back the others.
func (s *Service) BulkApprove(ctx context.Context, ids []uuid.UUID, approverID uuid.UUID) (*BulkResult, error) {
	if len(ids) == 0 {
		return nil, errors.ErrNoPayoutsSelected
	}

	payouts, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	result := &BulkResult{SMSCost: decimal.Zero}
	for _, p := range payouts {
		if p.Status != domain.PayoutStatusPending {
			result.Skipped = append(result.Skipped, p.ID)
			continue
		}
		if _, err := s.Approve(ctx, p.ID, approverID); err != nil {
			s.logger.Warn("Bulk approve: payout skipped", map[string]interface{}{
				"payout_id": p.ID,
				"error":     err.Error(),
			})
			result.Skipped = append(result.Skipped, p.ID)
			continue
		}
		result.Affected = append(result.Affected, p.ID)
	}

	return result, nil
}

// BulkApproveAndNotify runs BulkApprove, then enqueues notifications for the
// affected recipients on each selected channel. Nothing is dispatched here;
// the notification dispatch step drains the queue separately. The returned
// result carries the estimated SMS cost (unit price x recipient count).
func (s *Service) BulkApproveAndNotify(ctx context.Context, ids []uuid.UUID, approverID uuid.UUID, channels []domain.Channel) (*BulkResult, error) {
	result, err := s.BulkApprove(ctx, ids, approverID)
	if err != nil {
		return nil, err
	}
	if len(result.Affected) == 0 {
		return result, nil
	}

	payouts, err := s.repo.FindByIDs(ctx, result.Affected)
	if err != nil {
		return result, err
	}

	recipients := make(map[uuid.UUID]bool)
	smsRecipients := 0
	for _, p := range payouts {
		if recipients[p.RecipientID] {
			continue
		}
		recipients[p.RecipientID] = true

		subject := "Payout approved"
		body := fmt.Sprintf("Your payout %s has been approved and queued for disbursement.", p.Reference)
		for _, ch := range channels {
			if err := s.notifier.Enqueue(ctx, p.RecipientID, ch, "payout_approved", subject, body); err != nil {
				s.logger.Error("Failed to enqueue payout notification", map[string]interface{}{
					"payout_id": p.ID,
					"channel":   ch,
					"error":     err.Error(),
				})
				continue
			}
			if ch == domain.ChannelSMS {
				smsRecipients++
			}
		}
	}

	result.Recipients = len(recipients)
	result.SMSCost = s.notifier.EstimateSMSCost(smsRecipients)
	return result, nil
}

// MarkPaid finalizes a queued payout after the disbursement settled.
func (s *Service) MarkPaid(ctx context.Context, id uuid.UUID) (*domain.Payout, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Settle(ctx, id, domain.PayoutStatusPaid, time.Now()); err != nil {
		return nil, err
	}
	s.logger.Info("Payout paid", map[string]interface{}{"payout_id": id, "reference": p.Reference})
	return s.repo.FindByID(ctx, id)
}

// MarkFailed finalizes a queued payout that could not be disbursed and
// releases the held funds back to the wallet.
func (s *Service) MarkFailed(ctx context.Context, id uuid.UUID) (*domain.Payout, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Settle(ctx, id, domain.PayoutStatusFailed, time.Now()); err != nil {
		return nil, err
	}
	if _, err := s.ledger.Record(ctx, p.WalletID, p.AmountKobo, domain.LedgerCodePayoutRelease, p.Reference); err != nil {
		return nil, errors.Wrap(err, "failed to release payout hold")
	}
	s.logger.Warn("Payout failed", map[string]interface{}{"payout_id": id, "reference": p.Reference})
	return s.repo.FindByID(ctx, id)
}

type Repository interface {
	Create(ctx context.Context, p *domain.Payout) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Payout, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Payout, error)
	FindByStatus(ctx context.Context, status domain.PayoutStatus, limit, offset int) ([]*domain.Payout, error)
	RecordApproval(ctx context.Context, a *domain.PayoutApproval) error
	IncrementApprovals(ctx context.Context, id uuid.UUID) (int, error)
	Queue(ctx context.Context, id uuid.UUID, threshold int) error
	Settle(ctx context.Context, id uuid.UUID, to domain.PayoutStatus, at time.Time) error
}

type LedgerRecorder interface {
	Record(ctx context.Context, walletID uuid.UUID, amountKobo int64, code, reference string) (*domain.LedgerEntry, error)
}

type Notifier interface {
	Enqueue(ctx context.Context, userID uuid.UUID, channel domain.Channel, kind, subject, body string) error
	EstimateSMSCost(recipients int) decimal.Decimal
}
