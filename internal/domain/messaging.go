package domain

import (
	"time"

	"github.com/google/uuid"
)

// Channel is a notification delivery channel.
type Channel string

const (
	ChannelToast Channel = "toast"
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

// Notification is a queued message to a user. Enqueueing never dispatches;
// a separate dispatch step drains queued rows.
type Notification struct {
	ID        uuid.UUID          `json:"id" db:"id"`
	UserID    uuid.UUID          `json:"user_id" db:"user_id"`
	Channel   Channel            `json:"channel" db:"channel"`
	Kind      string             `json:"kind" db:"kind"`
	Subject   string             `json:"subject" db:"subject"`
	Body      string             `json:"body" db:"body"`
	Status    NotificationStatus `json:"status" db:"status"`
	Error     string             `json:"error" db:"error"`
	SentAt    *time.Time         `json:"sent_at,omitempty" db:"sent_at"`
	CreatedAt time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" db:"updated_at"`
}

type NotificationStatus string

const (
	NotificationStatusQueued NotificationStatus = "queued"
	NotificationStatusSent   NotificationStatus = "sent"
	NotificationStatusFailed NotificationStatus = "failed"
)

// NotificationPrefs is a user's per-channel opt-in set.
type NotificationPrefs struct {
	UserID uuid.UUID `json:"user_id" db:"user_id"`
	Toast  bool      `json:"toast" db:"toast"`
	SMS    bool      `json:"sms" db:"sms"`
	Email  bool      `json:"email" db:"email"`
}

// OutboundMessage tracks delivery of a provider-dispatched SMS/email so the
// messaging-status webhook can update it by provider message id.
type OutboundMessage struct {
	ID             uuid.UUID `json:"id" db:"id"`
	NotificationID uuid.UUID `json:"notification_id" db:"notification_id"`
	ProviderMsgID  string    `json:"provider_msg_id" db:"provider_msg_id"`
	Channel        Channel   `json:"channel" db:"channel"`
	Recipient      string    `json:"recipient" db:"recipient"`
	Status         string    `json:"status" db:"status"` // submitted, delivered, undelivered
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// SupportTicket is an operator-visible support request.
type SupportTicket struct {
	ID        uuid.UUID    `json:"id" db:"id"`
	UserID    uuid.UUID    `json:"user_id" db:"user_id"`
	Subject   string       `json:"subject" db:"subject"`
	Body      string       `json:"body" db:"body"`
	Status    TicketStatus `json:"status" db:"status"`
	AssignedTo *uuid.UUID  `json:"assigned_to,omitempty" db:"assigned_to"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt time.Time    `json:"updated_at" db:"updated_at"`
}

type TicketStatus string

const (
	TicketStatusOpen     TicketStatus = "open"
	TicketStatusPending  TicketStatus = "pending"
	TicketStatusResolved TicketStatus = "resolved"
	TicketStatusClosed   TicketStatus = "closed"
)

// SupportMessage is one reply on a ticket thread.
type SupportMessage struct {
	ID        uuid.UUID `json:"id" db:"id"`
	TicketID  uuid.UUID `json:"ticket_id" db:"ticket_id"`
	AuthorID  uuid.UUID `json:"author_id" db:"author_id"`
	Body      string    `json:"body" db:"body"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ChatThread is a direct conversation between two users (or user and support).
type ChatThread struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedBy uuid.UUID `json:"created_by" db:"created_by"`
	PeerID    uuid.UUID `json:"peer_id" db:"peer_id"`
	Title     string    `json:"title" db:"title"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ChatMessage is one message in a thread.
type ChatMessage struct {
	ID        uuid.UUID `json:"id" db:"id"`
	ThreadID  uuid.UUID `json:"thread_id" db:"thread_id"`
	SenderID  uuid.UUID `json:"sender_id" db:"sender_id"`
	Body      string    `json:"body" db:"body"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
