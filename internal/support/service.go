// Package support implements the ticketing workflow for member issues.
package support

import (
	"context"
	"time"

	"github.com/google/uuid"

	"ajopay/internal/domain"
	"ajopay/pkg/errors"
	"ajopay/pkg/logger"
)

// Repository defines ticket storage operations.
type Repository interface {
	CreateTicket(ctx context.Context, t *domain.SupportTicket) error
	UpdateTicket(ctx context.Context, t *domain.SupportTicket) error
	FindTicketByID(ctx context.Context, id uuid.UUID) (*domain.SupportTicket, error)
	FindTicketsByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.SupportTicket, error)
	FindOpenTickets(ctx context.Context, limit, offset int) ([]*domain.SupportTicket, error)
	AddMessage(ctx context.Context, m *domain.SupportMessage) error
	FindMessages(ctx context.Context, ticketID uuid.UUID) ([]*domain.SupportMessage, error)
}

// validTicketTransitions: tickets move forward through the workflow; closed
// is terminal, resolved can be reopened by a reply.
var validTicketTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusOpen:     {domain.TicketStatusPending, domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusPending:  {domain.TicketStatusOpen, domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusResolved: {domain.TicketStatusOpen, domain.TicketStatusClosed},
}

type Service struct {
	repo   Repository
	logger logger.Logger
}

func NewService(repo Repository, log logger.Logger) *Service {
	return &Service{repo: repo, logger: log}
}

func (s *Service) CreateTicket(ctx context.Context, userID uuid.UUID, subject, body string) (*domain.SupportTicket, error) {
	ticket := &domain.SupportTicket{
		ID:        uuid.New(),
		UserID:    userID,
		Subject:   subject,
		Body:      body,
		Status:    domain.TicketStatusOpen,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := s.repo.CreateTicket(ctx, ticket); err != nil {
		return nil, errors.Wrap(err, "create ticket")
	}

	s.logger.Info("support ticket created", map[string]interface{}{
		"ticket_id": ticket.ID.String(),
		"user_id":   userID.String(),
	})
	return ticket, nil
}

func (s *Service) GetTicket(ctx context.Context, id uuid.UUID) (*domain.SupportTicket, error) {
	return s.repo.FindTicketByID(ctx, id)
}

func (s *Service) ListUserTickets(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.SupportTicket, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.FindTicketsByUser(ctx, userID, limit, offset)
}

func (s *Service) ListOpenTickets(ctx context.Context, limit, offset int) ([]*domain.SupportTicket, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.FindOpenTickets(ctx, limit, offset)
}

// Transition moves a ticket through the workflow. Support staff only; the
// handler enforces the role.
func (s *Service) Transition(ctx context.Context, ticketID uuid.UUID, to domain.TicketStatus, assignee *uuid.UUID) (*domain.SupportTicket, error) {
	ticket, err := s.repo.FindTicketByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	allowed := false
	for _, t := range validTicketTransitions[ticket.Status] {
		if t == to {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, errors.ErrInvalidTicketTransition
	}

	ticket.Status = to
	if assignee != nil {
		ticket.AssignedTo = assignee
	}
	ticket.UpdatedAt = time.Now()
	if err := s.repo.UpdateTicket(ctx, ticket); err != nil {
		return nil, errors.Wrap(err, "update ticket")
	}
	return ticket, nil
}

// Reply appends a message. A reply on a resolved ticket reopens it.
func (s *Service) Reply(ctx context.Context, ticketID, authorID uuid.UUID, body string) (*domain.SupportMessage, error) {
	ticket, err := s.repo.FindTicketByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status == domain.TicketStatusClosed {
		return nil, errors.ErrTicketClosed
	}

	msg := &domain.SupportMessage{
		ID:        uuid.New(),
		TicketID:  ticketID,
		AuthorID:  authorID,
		Body:      body,
		CreatedAt: time.Now(),
	}
	if err := s.repo.AddMessage(ctx, msg); err != nil {
		return nil, errors.Wrap(err, "add ticket message")
	}

	if ticket.Status == domain.TicketStatusResolved {
		ticket.Status = domain.TicketStatusOpen
		ticket.UpdatedAt = time.Now()
		if err := s.repo.UpdateTicket(ctx, ticket); err != nil {
			return nil, errors.Wrap(err, "reopen ticket")
		}
	}
	return msg, nil
}

func (s *Service) Messages(ctx context.Context, ticketID uuid.UUID) ([]*domain.SupportMessage, error) {
	if _, err := s.repo.FindTicketByID(ctx, ticketID); err != nil {
		return nil, err
	}
	return s.repo.FindMessages(ctx, ticketID)
}
