// Package chat implements direct-message threads with a live websocket
// stream per thread.
package chat

import (
	"context"
	"time"

	"github.com/google/uuid"

	"ajopay/internal/domain"
	"ajopay/pkg/errors"
	"ajopay/pkg/logger"
)

// Repository defines chat storage operations.
type Repository interface {
	CreateThread(ctx context.Context, t *domain.ChatThread) error
	FindThreadByID(ctx context.Context, id uuid.UUID) (*domain.ChatThread, error)
	FindThreadsByUser(ctx context.Context, userID uuid.UUID) ([]*domain.ChatThread, error)
	AddMessage(ctx context.Context, m *domain.ChatMessage) error
	FindMessages(ctx context.Context, threadID uuid.UUID, limit, offset int) ([]*domain.ChatMessage, error)
}

type Service struct {
	repo   Repository
	hub    *Hub
	logger logger.Logger
}

func NewService(repo Repository, hub *Hub, log logger.Logger) *Service {
	return &Service{repo: repo, hub: hub, logger: log}
}

func (s *Service) Hub() *Hub {
	return s.hub
}

func (s *Service) CreateThread(ctx context.Context, createdBy, peerID uuid.UUID, title string) (*domain.ChatThread, error) {
	thread := &domain.ChatThread{
		ID:        uuid.New(),
		CreatedBy: createdBy,
		PeerID:    peerID,
		Title:     title,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := s.repo.CreateThread(ctx, thread); err != nil {
		return nil, errors.Wrap(err, "create chat thread")
	}
	return thread, nil
}

func (s *Service) ListThreads(ctx context.Context, userID uuid.UUID) ([]*domain.ChatThread, error) {
	return s.repo.FindThreadsByUser(ctx, userID)
}

// Authorize loads the thread and checks the user is one of its two
// participants.
func (s *Service) Authorize(ctx context.Context, threadID, userID uuid.UUID) (*domain.ChatThread, error) {
	thread, err := s.repo.FindThreadByID(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if thread.CreatedBy != userID && thread.PeerID != userID {
		return nil, errors.ErrNotThreadParticipant
	}
	return thread, nil
}

// SendMessage persists a message and fans it out to live subscribers.
func (s *Service) SendMessage(ctx context.Context, threadID, senderID uuid.UUID, body string) (*domain.ChatMessage, error) {
	if _, err := s.Authorize(ctx, threadID, senderID); err != nil {
		return nil, err
	}

	msg := &domain.ChatMessage{
		ID:        uuid.New(),
		ThreadID:  threadID,
		SenderID:  senderID,
		Body:      body,
		CreatedAt: time.Now(),
	}
	if err := s.repo.AddMessage(ctx, msg); err != nil {
		return nil, errors.Wrap(err, "add chat message")
	}

	s.hub.Broadcast(threadID, msg)
	return msg, nil
}

func (s *Service) Messages(ctx context.Context, threadID, userID uuid.UUID, limit, offset int) ([]*domain.ChatMessage, error) {
	if _, err := s.Authorize(ctx, threadID, userID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.FindMessages(ctx, threadID, limit, offset)
}
