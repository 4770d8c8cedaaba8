package reconciliation

import (
	"context"
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

func (m *MockRepository) CreateRun(ctx context.Context, run *domain.ReconciliationRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockRepository) FindRunByID(ctx context.Context, id uuid.UUID) (*domain.ReconciliationRun, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReconciliationRun), args.Error(1)
}

func (m *MockRepository) FindRunsByOrg(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*domain.ReconciliationRun, error) {
	args := m.Called(ctx, orgID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ReconciliationRun), args.Error(1)
}

func (m *MockRepository) CompleteRun(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository) InsertItems(ctx context.Context, items []*domain.ReconciliationItem) error {
	args := m.Called(ctx, items)
	return args.Error(0)
}

func (m *MockRepository) FindItemByID(ctx context.Context, id uuid.UUID) (*domain.ReconciliationItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReconciliationItem), args.Error(1)
}

func (m *MockRepository) FindItemsByRun(ctx context.Context, runID uuid.UUID) ([]*domain.ReconciliationItem, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ReconciliationItem), args.Error(1)
}

func (m *MockRepository) FindPendingItemsByRun(ctx context.Context, runID uuid.UUID) ([]*domain.ReconciliationItem, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ReconciliationItem), args.Error(1)
}

func (m *MockRepository) TransitionItem(ctx context.Context, id uuid.UUID, to domain.ItemStatus) error {
	args := m.Called(ctx, id, to)
	return args.Error(0)
}

func (m *MockRepository) ResolveItem(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository) CountPendingItems(ctx context.Context, runID uuid.UUID) (int, error) {
	args := m.Called(ctx, runID)
	return args.Int(0), args.Error(1)
}

func pendingRun() *domain.ReconciliationRun {
	return &domain.ReconciliationRun{
		ID:     uuid.New(),
		OrgID:  uuid.New(),
		Status: domain.RunStatusPending,
	}
}

func TestImportRejectsCompletedRun(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, logger.NewNop())

	run := pendingRun()
	run.Status = domain.RunStatusCompleted
	repo.On("FindRunByID", mock.Anything, run.ID).Return(run, nil)

	_, err := svc.Import(context.Background(), run.ID, domain.SourcePSP, []byte("Reference,Amount\nTRX,1.00\n"), domain.NGN)
	assert.ErrorIs(t, err, errors.ErrRunCompleted)
	repo.AssertNotCalled(t, "InsertItems", mock.Anything, mock.Anything)
}

func TestImportInsertsParsedItems(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, logger.NewNop())

	run := pendingRun()
	repo.On("FindRunByID", mock.Anything, run.ID).Return(run, nil)
	repo.On("InsertItems", mock.Anything, mock.MatchedBy(func(items []*domain.ReconciliationItem) bool {
		return len(items) == 2 && items[0].RunID == run.ID
	})).Return(nil)

	result, err := svc.Import(context.Background(), run.ID, domain.SourceBank,
		[]byte("Reference,Amount\nA,10.00\nB,-10.00\n"), domain.NGN)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Created)
	assert.Zero(t, result.Dropped)
	repo.AssertExpectations(t)
}

func TestConfirmMatchTransitionsAllItems(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, logger.NewNop())

	runID := uuid.New()
	a := &domain.ReconciliationItem{ID: uuid.New(), RunID: runID, AmountKobo: -50000, Status: domain.ItemStatusPending}
	b := &domain.ReconciliationItem{ID: uuid.New(), RunID: runID, AmountKobo: 50000, Status: domain.ItemStatusPending}

	repo.On("FindItemByID", mock.Anything, a.ID).Return(a, nil)
	repo.On("FindItemByID", mock.Anything, b.ID).Return(b, nil)
	repo.On("TransitionItem", mock.Anything, a.ID, domain.ItemStatusMatched).Return(nil)
	repo.On("TransitionItem", mock.Anything, b.ID, domain.ItemStatusMatched).Return(nil)

	err := svc.ConfirmMatch(context.Background(), runID, []uuid.UUID{a.ID, b.ID})
	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestConfirmMatchRejectsNonZeroSum(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, logger.NewNop())

	runID := uuid.New()
	a := &domain.ReconciliationItem{ID: uuid.New(), RunID: runID, AmountKobo: -50000, Status: domain.ItemStatusPending}
	b := &domain.ReconciliationItem{ID: uuid.New(), RunID: runID, AmountKobo: 40000, Status: domain.ItemStatusPending}

	repo.On("FindItemByID", mock.Anything, a.ID).Return(a, nil)
	repo.On("FindItemByID", mock.Anything, b.ID).Return(b, nil)

	err := svc.ConfirmMatch(context.Background(), runID, []uuid.UUID{a.ID, b.ID})
	assert.ErrorIs(t, err, errors.ErrSuggestionStale)
	repo.AssertNotCalled(t, "TransitionItem", mock.Anything, mock.Anything, mock.Anything)
}

func TestConfirmMatchRejectsStaleItems(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, logger.NewNop())

	runID := uuid.New()
	a := &domain.ReconciliationItem{ID: uuid.New(), RunID: runID, AmountKobo: -50000, Status: domain.ItemStatusMatched}

	repo.On("FindItemByID", mock.Anything, a.ID).Return(a, nil)

	err := svc.ConfirmMatch(context.Background(), runID, []uuid.UUID{a.ID, uuid.New()})
	assert.ErrorIs(t, err, errors.ErrSuggestionStale)
}

func TestBulkResolveSkipsMatchedItems(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, logger.NewNop())

	runID := uuid.New()
	pending := &domain.ReconciliationItem{ID: uuid.New(), RunID: runID, Status: domain.ItemStatusPending}
	mismatched := &domain.ReconciliationItem{ID: uuid.New(), RunID: runID, Status: domain.ItemStatusMismatched}
	matched := &domain.ReconciliationItem{ID: uuid.New(), RunID: runID, Status: domain.ItemStatusMatched}

	repo.On("FindItemByID", mock.Anything, pending.ID).Return(pending, nil)
	repo.On("FindItemByID", mock.Anything, mismatched.ID).Return(mismatched, nil)
	repo.On("FindItemByID", mock.Anything, matched.ID).Return(matched, nil)
	repo.On("ResolveItem", mock.Anything, pending.ID).Return(nil)
	repo.On("ResolveItem", mock.Anything, mismatched.ID).Return(nil)

	resolved, err := svc.BulkResolve(context.Background(), runID, []uuid.UUID{pending.ID, mismatched.ID, matched.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, resolved)
	repo.AssertNotCalled(t, "ResolveItem", mock.Anything, matched.ID)
}

func TestCompleteRunWithPendingItems(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, logger.NewNop())

	runID := uuid.New()
	repo.On("CountPendingItems", mock.Anything, runID).Return(3, nil)

	err := svc.CompleteRun(context.Background(), runID)
	assert.ErrorIs(t, err, errors.ErrRunHasPendingItems)
	repo.AssertNotCalled(t, "CompleteRun", mock.Anything, runID)
}

func TestCompleteRunSucceeds(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, logger.NewNop())

	runID := uuid.New()
	repo.On("CountPendingItems", mock.Anything, runID).Return(0, nil)
	repo.On("CompleteRun", mock.Anything, runID).Return(nil)

	err := svc.CompleteRun(context.Background(), runID)
	assert.NoError(t, err)
	repo.AssertExpectations(t)
}
