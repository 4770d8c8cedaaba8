package support

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

func (m *MockRepository) CreateTicket(ctx context.Context, t *domain.SupportTicket) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockRepository) UpdateTicket(ctx context.Context, t *domain.SupportTicket) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockRepository) FindTicketByID(ctx context.Context, id uuid.UUID) (*domain.SupportTicket, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SupportTicket), args.Error(1)
}

func (m *MockRepository) FindTicketsByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.SupportTicket, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.SupportTicket), args.Error(1)
}

func (m *MockRepository) FindOpenTickets(ctx context.Context, limit, offset int) ([]*domain.SupportTicket, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.SupportTicket), args.Error(1)
}

func (m *MockRepository) AddMessage(ctx context.Context, msg *domain.SupportMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockRepository) FindMessages(ctx context.Context, ticketID uuid.UUID) ([]*domain.SupportMessage, error) {
	args := m.Called(ctx, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.SupportMessage), args.Error(1)
}

func openTicket() *domain.SupportTicket {
	return &domain.SupportTicket{
		ID:      uuid.New(),
		UserID:  uuid.New(),
		Subject: "Missing contribution",
		Status:  domain.TicketStatusOpen,
	}
}

func TestCreateTicketStartsOpen(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, logger.NewNop())

	userID := uuid.New()
	repo.On("CreateTicket", mock.Anything, mock.MatchedBy(func(tk *domain.SupportTicket) bool {
		return tk.UserID == userID && tk.Status == domain.TicketStatusOpen
	})).Return(nil)

	ticket, err := svc.CreateTicket(context.Background(), userID, "Missing contribution", "My March deposit is not showing.")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	repo.AssertExpectations(t)
}

func TestTransitionValid(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, logger.NewNop())

	ticket := openTicket()
	assignee := uuid.New()
	repo.On("FindTicketByID", mock.Anything, ticket.ID).Return(ticket, nil)
	repo.On("UpdateTicket", mock.Anything, mock.MatchedBy(func(tk *domain.SupportTicket) bool {
		return tk.Status == domain.TicketStatusPending && tk.AssignedTo != nil && *tk.AssignedTo == assignee
	})).Return(nil)

	updated, err := svc.Transition(context.Background(), ticket.ID, domain.TicketStatusPending, &assignee)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusPending, updated.Status)
}

func TestTransitionClosedIsTerminal(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, logger.NewNop())

	ticket := openTicket()
	ticket.Status = domain.TicketStatusClosed
	repo.On("FindTicketByID", mock.Anything, ticket.ID).Return(ticket, nil)

	_, err := svc.Transition(context.Background(), ticket.ID, domain.TicketStatusOpen, nil)
	assert.ErrorIs(t, err, errors.ErrInvalidTicketTransition)
	repo.AssertNotCalled(t, "UpdateTicket", mock.Anything, mock.Anything)
}

func TestReplyOnClosedTicket(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, logger.NewNop())

	ticket := openTicket()
	ticket.Status = domain.TicketStatusClosed
	repo.On("FindTicketByID", mock.Anything, ticket.ID).Return(ticket, nil)

	_, err := svc.Reply(context.Background(), ticket.ID, uuid.New(), "any update?")
	assert.ErrorIs(t, err, errors.ErrTicketClosed)
}

func TestReplyReopensResolvedTicket(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, logger.NewNop())

	ticket := openTicket()
	ticket.Status = domain.TicketStatusResolved
	repo.On("FindTicketByID", mock.Anything, ticket.ID).Return(ticket, nil)
	repo.On("AddMessage", mock.Anything, mock.Anything).Return(nil)
	repo.On("UpdateTicket", mock.Anything, mock.MatchedBy(func(tk *domain.SupportTicket) bool {
		return tk.Status == domain.TicketStatusOpen
	})).Return(nil)

	msg, err := svc.Reply(context.Background(), ticket.ID, ticket.UserID, "still broken")
	require.NoError(t, err)
	assert.Equal(t, "still broken", msg.Body)
	repo.AssertExpectations(t)
}

func TestReplyOnOpenTicketDoesNotTouchStatus(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, logger.NewNop())

	ticket := openTicket()
	repo.On("FindTicketByID", mock.Anything, ticket.ID).Return(ticket, nil)
	repo.On("AddMessage", mock.Anything, mock.Anything).Return(nil)

	_, err := svc.Reply(context.Background(), ticket.ID, ticket.UserID, "more detail")
	require.NoError(t, err)
	repo.AssertNotCalled(t, "UpdateTicket", mock.Anything, mock.Anything)
}
