package reconciliation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"ajopay/internal/domain"
	"ajopay/pkg/errors"
	"ajopay/pkg/logger"
)

// Repository defines reconciliation storage operations.
type Repository interface {
	CreateRun(ctx context.Context, run *domain.ReconciliationRun) error
	FindRunByID(ctx context.Context, id uuid.UUID) (*domain.ReconciliationRun, error)
	FindRunsByOrg(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*domain.ReconciliationRun, error)
	CompleteRun(ctx context.Context, id uuid.UUID) error
	InsertItems(ctx context.Context, items []*domain.ReconciliationItem) error
	FindItemByID(ctx context.Context, id uuid.UUID) (*domain.ReconciliationItem, error)
	FindItemsByRun(ctx context.Context, runID uuid.UUID) ([]*domain.ReconciliationItem, error)
	FindPendingItemsByRun(ctx context.Context, runID uuid.UUID) ([]*domain.ReconciliationItem, error)
	TransitionItem(ctx context.Context, id uuid.UUID, to domain.ItemStatus) error
	ResolveItem(ctx context.Context, id uuid.UUID) error
	CountPendingItems(ctx context.Context, runID uuid.UUID) (int, error)
}

// Service manages reconciliation runs: statement import, match suggestion,
// and item resolution.
type Service struct {
	repo   Repository
	logger logger.Logger
}

func NewService(repo Repository, log logger.Logger) *Service {
	return &Service{repo: repo, logger: log}
}

func (s *Service) CreateRun(ctx context.Context, orgID, createdBy uuid.UUID) (*domain.ReconciliationRun, error) {
	run := &domain.ReconciliationRun{
		ID:        uuid.New(),
		OrgID:     orgID,
		Status:    domain.RunStatusPending,
		StartedAt: time.Now(),
		CreatedBy: createdBy,
		CreatedAt: time.Now(),
	}
	if err := s.repo.CreateRun(ctx, run); err != nil {
		return nil, errors.Wrap(err, "create reconciliation run")
	}

	s.logger.Info("reconciliation run created", map[string]interface{}{
		"run_id": run.ID.String(),
		"org_id": orgID.String(),
	})
	return run, nil
}

func (s *Service) GetRun(ctx context.Context, id uuid.UUID) (*domain.ReconciliationRun, error) {
	return s.repo.FindRunByID(ctx, id)
}

func (s *Service) ListRuns(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*domain.ReconciliationRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.FindRunsByOrg(ctx, orgID, limit, offset)
}

// Import parses a raw CSV statement and inserts its rows as pending items on
// the run. Rows that fail to parse are reported back, never inserted.
func (s *Service) Import(ctx context.Context, runID uuid.UUID, source domain.ItemSource, raw []byte, currency domain.Currency) (*ImportResult, error) {
	run, err := s.repo.FindRunByID(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run.Status != domain.RunStatusPending {
		return nil, errors.ErrRunCompleted
	}

	items, rowErrors, dropped, err := parseStatement(string(raw), runID, source, currency)
	if err != nil {
		return nil, err
	}

	if len(items) > 0 {
		if err := s.repo.InsertItems(ctx, items); err != nil {
			return nil, errors.Wrap(err, "insert statement items")
		}
	}

	s.logger.Info("statement imported", map[string]interface{}{
		"run_id":  runID.String(),
		"source":  string(source),
		"created": len(items),
		"dropped": dropped,
		"errors":  len(rowErrors),
	})

	return &ImportResult{
		RunID:     runID,
		Source:    source,
		Created:   len(items),
		Dropped:   dropped,
		RowErrors: rowErrors,
	}, nil
}

func (s *Service) Items(ctx context.Context, runID uuid.UUID) ([]*domain.ReconciliationItem, error) {
	if _, err := s.repo.FindRunByID(ctx, runID); err != nil {
		return nil, err
	}
	return s.repo.FindItemsByRun(ctx, runID)
}

// Suggestions computes match proposals over the run's pending items. The
// result is recomputed on every call so confirmed items never reappear.
func (s *Service) Suggestions(ctx context.Context, runID uuid.UUID) ([]MatchSuggestion, error) {
	if _, err := s.repo.FindRunByID(ctx, runID); err != nil {
		return nil, err
	}
	pending, err := s.repo.FindPendingItemsByRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	return suggestMatches(pending), nil
}

// ConfirmMatch transitions every member item of a suggestion to matched.
// If any member has left the pending state since the suggestion was
// computed, the whole confirmation is rejected as stale.
func (s *Service) ConfirmMatch(ctx context.Context, runID uuid.UUID, itemIDs []uuid.UUID) error {
	if len(itemIDs) < 2 {
		return errors.ErrSuggestionStale
	}

	items := make([]*domain.ReconciliationItem, 0, len(itemIDs))
	for _, id := range itemIDs {
		item, err := s.repo.FindItemByID(ctx, id)
		if err != nil {
			return err
		}
		if item.RunID != runID {
			return errors.ErrItemNotFound
		}
		if item.Status != domain.ItemStatusPending {
			return errors.ErrSuggestionStale
		}
		items = append(items, item)
	}

	var sum int64
	for _, item := range items {
		sum += item.AmountKobo
	}
	if sum != 0 {
		return errors.ErrSuggestionStale
	}

	for _, item := range items {
		if err := s.repo.TransitionItem(ctx, item.ID, domain.ItemStatusMatched); err != nil {
			if err == errors.ErrItemNotPending {
				return errors.ErrSuggestionStale
			}
			return err
		}
	}

	s.logger.Info("match confirmed", map[string]interface{}{
		"run_id": runID.String(),
		"items":  len(items),
	})
	return nil
}

// MarkMismatched flags a pending item for manual follow-up.
func (s *Service) MarkMismatched(ctx context.Context, runID, itemID uuid.UUID) error {
	item, err := s.repo.FindItemByID(ctx, itemID)
	if err != nil {
		return err
	}
	if item.RunID != runID {
		return errors.ErrItemNotFound
	}
	return s.repo.TransitionItem(ctx, itemID, domain.ItemStatusMismatched)
}

// BulkResolve transitions the given pending or mismatched items to resolved.
// Items already matched or resolved are skipped, not failed.
func (s *Service) BulkResolve(ctx context.Context, runID uuid.UUID, itemIDs []uuid.UUID) (int, error) {
	resolved := 0
	for _, id := range itemIDs {
		item, err := s.repo.FindItemByID(ctx, id)
		if err != nil {
			if err == errors.ErrItemNotFound {
				continue
			}
			return resolved, err
		}
		if item.RunID != runID {
			continue
		}
		if item.Status != domain.ItemStatusPending && item.Status != domain.ItemStatusMismatched {
			continue
		}
		if err := s.repo.ResolveItem(ctx, id); err != nil {
			if err == errors.ErrItemNotPending {
				continue
			}
			return resolved, err
		}
		resolved++
	}
	return resolved, nil
}

// CompleteRun closes the run. Every item must have left the pending state.
func (s *Service) CompleteRun(ctx context.Context, runID uuid.UUID) error {
	pending, err := s.repo.CountPendingItems(ctx, runID)
	if err != nil {
		return err
	}
	if pending > 0 {
		return errors.ErrRunHasPendingItems
	}
	if err := s.repo.CompleteRun(ctx, runID); err != nil {
		return err
	}
	s.logger.Info("reconciliation run completed", map[string]interface{}{
		"run_id": runID.String(),
	})
	return nil
}
