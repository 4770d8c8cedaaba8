package payout

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"ajopay/internal/domain"
	"ajopay/pkg/errors"
	"ajopay/pkg/logger"
)

// Mocks

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, p *domain.Payout) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Payout, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payout), args.Error(1)
}

func (m *MockRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Payout, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Payout), args.Error(1)
}

func (m *MockRepository) FindByStatus(ctx context.Context, status domain.PayoutStatus, limit, offset int) ([]*domain.Payout, error) {
	args := m.Called(ctx, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Payout), args.Error(1)
}

func (m *MockRepository) RecordApproval(ctx context.Context, a *domain.PayoutApproval) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockRepository) IncrementApprovals(ctx context.Context, id uuid.UUID) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) Queue(ctx context.Context, id uuid.UUID, threshold int) error {
	args := m.Called(ctx, id, threshold)
	return args.Error(0)
}

func (m *MockRepository) Settle(ctx context.Context, id uuid.UUID, to domain.PayoutStatus, at time.Time) error {
	args := m.Called(ctx, id, to, at)
	return args.Error(0)
}

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) Record(ctx context.Context, walletID uuid.UUID, amountKobo int64, code, reference string) (*domain.LedgerEntry, error) {
	args := m.Called(ctx, walletID, amountKobo, code, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LedgerEntry), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Enqueue(ctx context.Context, userID uuid.UUID, channel domain.Channel, kind, subject, body string) error {
	args := m.Called(ctx, userID, channel, kind, subject, body)
	return args.Error(0)
}

func (m *MockNotifier) EstimateSMSCost(recipients int) decimal.Decimal {
	args := m.Called(recipients)
	return args.Get(0).(decimal.Decimal)
}

func pendingPayout() *domain.Payout {
	return &domain.Payout{
		ID:          uuid.New(),
		WalletID:    uuid.New(),
		RecipientID: uuid.New(),
		AmountKobo:  500_000,
		Currency:    domain.NGN,
		Status:      domain.PayoutStatusPending,
		Reference:   "PO-abc12345",
	}
}

// Tests

func TestApproveFirstApprovalStaysPending(t *testing.T) {
	repo := new(MockRepository)
	ledger := new(MockLedger)
	notifier := new(MockNotifier)
	svc := NewService(repo, ledger, notifier, 2, logger.NewNop())

	p := pendingPayout()
	approver := uuid.New()

	repo.On("FindByID", mock.Anything, p.ID).Return(p, nil)
	repo.On("RecordApproval", mock.Anything, mock.MatchedBy(func(a *domain.PayoutApproval) bool {
		return a.PayoutID == p.ID && a.ApproverID == approver
	})).Return(nil)
	repo.On("IncrementApprovals", mock.Anything, p.ID).Return(1, nil)

	_, err := svc.Approve(context.Background(), p.ID, approver)
	assert.NoError(t, err)

	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "Queue", mock.Anything, mock.Anything, mock.Anything)
	ledger.AssertNotCalled(t, "Record", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestApproveThresholdQueuesAndHolds(t *testing.T) {
	repo := new(MockRepository)
	ledger := new(MockLedger)
	notifier := new(MockNotifier)
	svc := NewService(repo, ledger, notifier, 2, logger.NewNop())

	p := pendingPayout()
	approver := uuid.New()

	repo.On("FindByID", mock.Anything, p.ID).Return(p, nil)
	repo.On("RecordApproval", mock.Anything, mock.Anything).Return(nil)
	repo.On("IncrementApprovals", mock.Anything, p.ID).Return(2, nil)
	repo.On("Queue", mock.Anything, p.ID, 2).Return(nil)
	ledger.On("Record", mock.Anything, p.WalletID, -p.AmountKobo, domain.LedgerCodePayoutHold, p.Reference).
		Return(&domain.LedgerEntry{}, nil)

	_, err := svc.Approve(context.Background(), p.ID, approver)
	assert.NoError(t, err)

	repo.AssertExpectations(t)
	ledger.AssertExpectations(t)
}

func TestApproveDuplicateApprover(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, new(MockLedger), new(MockNotifier), 2, logger.NewNop())

	p := pendingPayout()
	repo.On("FindByID", mock.Anything, p.ID).Return(p, nil)
	repo.On("RecordApproval", mock.Anything, mock.Anything).Return(errors.ErrDuplicateApproval)

	_, err := svc.Approve(context.Background(), p.ID, uuid.New())
	assert.ErrorIs(t, err, errors.ErrDuplicateApproval)

	repo.AssertNotCalled(t, "IncrementApprovals", mock.Anything, mock.Anything)
}

func TestApproveNonPendingRejected(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, new(MockLedger), new(MockNotifier), 2, logger.NewNop())

	p := pendingPayout()
	p.Status = domain.PayoutStatusQueued
	repo.On("FindByID", mock.Anything, p.ID).Return(p, nil)

	_, err := svc.Approve(context.Background(), p.ID, uuid.New())
	assert.ErrorIs(t, err, errors.ErrPayoutNotPending)

	repo.AssertNotCalled(t, "RecordApproval", mock.Anything, mock.Anything)
}

func TestBulkApproveSkipsNonPending(t *testing.T) {
	repo := new(MockRepository)
	ledger := new(MockLedger)
	svc := NewService(repo, ledger, new(MockNotifier), 2, logger.NewNop())

	pending := pendingPayout()
	paid := pendingPayout()
	paid.Status = domain.PayoutStatusPaid
	ids := []uuid.UUID{pending.ID, paid.ID}

	repo.On("FindByIDs", mock.Anything, ids).Return([]*domain.Payout{pending, paid}, nil)
	repo.On("FindByID", mock.Anything, pending.ID).Return(pending, nil)
	repo.On("RecordApproval", mock.Anything, mock.Anything).Return(nil)
	repo.On("IncrementApprovals", mock.Anything, pending.ID).Return(1, nil)

	result, err := svc.BulkApprove(context.Background(), ids, uuid.New())
	assert.NoError(t, err)
	assert.Equal(t, []uuid.UUID{pending.ID}, result.Affected)
	assert.Equal(t, []uuid.UUID{paid.ID}, result.Skipped)
}

func TestBulkApproveEmptySelection(t *testing.T) {
	svc := NewService(new(MockRepository), new(MockLedger), new(MockNotifier), 2, logger.NewNop())

	_, err := svc.BulkApprove(context.Background(), nil, uuid.New())
	assert.ErrorIs(t, err, errors.ErrNoPayoutsSelected)
}

func TestBulkApproveAndNotifyEstimatesSMSCost(t *testing.T) {
	repo := new(MockRepository)
	ledger := new(MockLedger)
	notifier := new(MockNotifier)
	svc := NewService(repo, ledger, notifier, 1, logger.NewNop())

	p := pendingPayout()
	ids := []uuid.UUID{p.ID}

	repo.On("FindByIDs", mock.Anything, ids).Return([]*domain.Payout{p}, nil)
	repo.On("FindByID", mock.Anything, p.ID).Return(p, nil)
	repo.On("RecordApproval", mock.Anything, mock.Anything).Return(nil)
	repo.On("IncrementApprovals", mock.Anything, p.ID).Return(1, nil)
	repo.On("Queue", mock.Anything, p.ID, 1).Return(nil)
	ledger.On("Record", mock.Anything, p.WalletID, -p.AmountKobo, domain.LedgerCodePayoutHold, p.Reference).
		Return(&domain.LedgerEntry{}, nil)

	notifier.On("Enqueue", mock.Anything, p.RecipientID, domain.ChannelSMS, "payout_approved", mock.Anything, mock.Anything).Return(nil)
	notifier.On("Enqueue", mock.Anything, p.RecipientID, domain.ChannelToast, "payout_approved", mock.Anything, mock.Anything).Return(nil)
	notifier.On("EstimateSMSCost", 1).Return(decimal.RequireFromString("4.50"))

	result, err := svc.BulkApproveAndNotify(context.Background(), ids, uuid.New(), []domain.Channel{domain.ChannelSMS, domain.ChannelToast})
	assert.NoError(t, err)
	assert.Equal(t, 1, result.Recipients)
	assert.True(t, result.SMSCost.Equal(decimal.RequireFromString("4.50")))

	notifier.AssertExpectations(t)
}

func TestMarkFailedReleasesHold(t *testing.T) {
	repo := new(MockRepository)
	ledger := new(MockLedger)
	svc := NewService(repo, ledger, new(MockNotifier), 2, logger.NewNop())

	p := pendingPayout()
	p.Status = domain.PayoutStatusQueued

	repo.On("FindByID", mock.Anything, p.ID).Return(p, nil)
	repo.On("Settle", mock.Anything, p.ID, domain.PayoutStatusFailed, mock.Anything).Return(nil)
	ledger.On("Record", mock.Anything, p.WalletID, p.AmountKobo, domain.LedgerCodePayoutRelease, p.Reference).
		Return(&domain.LedgerEntry{}, nil)

	_, err := svc.MarkFailed(context.Background(), p.ID)
	assert.NoError(t, err)

	repo.AssertExpectations(t)
	ledger.AssertExpectations(t)
}
