package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"ajopay/internal/domain"
	"ajopay/internal/middleware"
	"ajopay/internal/support"
	"ajopay/pkg/errors"
	"ajopay/pkg/logger"
	"ajopay/pkg/validator"
)

// SupportHandler handles the ticketing endpoints.
type SupportHandler struct {
	service   *support.Service
	validator *validator.Validator
	logger    logger.Logger
}

func NewSupportHandler(service *support.Service, val *validator.Validator, log logger.Logger) *SupportHandler {
	return &SupportHandler{
		service:   service,
		validator: val,
		logger:    log,
	}
}

type createTicketRequest struct {
	Subject string `json:"subject" validate:"required,min=3,max=200"`
	Body    string `json:"body" validate:"required,min=3"`
}

// Create opens a new support ticket for the authenticated user.
func (h *SupportHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req createTicketRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		if err == io.EOF {
			h.respondError(w, http.StatusBadRequest, "Request body is required")
			return
		}
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ticket, err := h.service.CreateTicket(r.Context(), userID, req.Subject, req.Body)
	if err != nil {
		h.logger.Error("Ticket creation failed", map[string]interface{}{"error": err.Error()})
		h.respondError(w, http.StatusInternalServerError, "Failed to create ticket")
		return
	}

	h.respondJSON(w, http.StatusCreated, ticket)
}

// List returns the caller's tickets, or the open queue for support staff
// with ?queue=open.
func (h *SupportHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	limit, offset := pagination(r)

	if r.URL.Query().Get("queue") == "open" {
		role, _ := middleware.RoleFromContext(r.Context())
		if role != domain.RoleSupport && role != domain.RoleAdmin {
			h.respondError(w, http.StatusForbidden, "Insufficient permissions")
			return
		}
		tickets, err := h.service.ListOpenTickets(r.Context(), limit, offset)
		if err != nil {
			h.logger.Error("Open ticket list failed", map[string]interface{}{"error": err.Error()})
			h.respondError(w, http.StatusInternalServerError, "Failed to list tickets")
			return
		}
		h.respondJSON(w, http.StatusOK, map[string]interface{}{"tickets": tickets})
		return
	}

	tickets, err := h.service.ListUserTickets(r.Context(), userID, limit, offset)
	if err != nil {
		h.logger.Error("Ticket list failed", map[string]interface{}{"error": err.Error()})
		h.respondError(w, http.StatusInternalServerError, "Failed to list tickets")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{"tickets": tickets})
}

func (h *SupportHandler) loadAuthorized(w http.ResponseWriter, r *http.Request) (*domain.SupportTicket, uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid ticket ID")
		return nil, uuid.Nil, false
	}

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Authentication required")
		return nil, uuid.Nil, false
	}

	ticket, err := h.service.GetTicket(r.Context(), id)
	if err != nil {
		h.respondError(w, http.StatusNotFound, "Ticket not found")
		return nil, uuid.Nil, false
	}

	role, _ := middleware.RoleFromContext(r.Context())
	if ticket.UserID != userID && role != domain.RoleSupport && role != domain.RoleAdmin {
		h.respondError(w, http.StatusForbidden, "Not your ticket")
		return nil, uuid.Nil, false
	}
	return ticket, userID, true
}

// Get returns one ticket, owner or support staff only.
func (h *SupportHandler) Get(w http.ResponseWriter, r *http.Request) {
	ticket, _, ok := h.loadAuthorized(w, r)
	if !ok {
		return
	}
	h.respondJSON(w, http.StatusOK, ticket)
}

type replyRequest struct {
	Body string `json:"body" validate:"required,min=1"`
}

// Reply appends a message to the ticket thread.
func (h *SupportHandler) Reply(w http.ResponseWriter, r *http.Request) {
	ticket, userID, ok := h.loadAuthorized(w, r)
	if !ok {
		return
	}

	var req replyRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := h.service.Reply(r.Context(), ticket.ID, userID, req.Body)
	if err != nil {
		if err == errors.ErrTicketClosed {
			h.respondError(w, http.StatusConflict, "Ticket is closed")
			return
		}
		h.logger.Error("Ticket reply failed", map[string]interface{}{"error": err.Error()})
		h.respondError(w, http.StatusInternalServerError, "Reply failed")
		return
	}

	h.respondJSON(w, http.StatusCreated, msg)
}

// Messages returns the ticket's message thread.
func (h *SupportHandler) Messages(w http.ResponseWriter, r *http.Request) {
	ticket, _, ok := h.loadAuthorized(w, r)
	if !ok {
		return
	}

	messages, err := h.service.Messages(r.Context(), ticket.ID)
	if err != nil {
		h.logger.Error("Ticket messages fetch failed", map[string]interface{}{"error": err.Error()})
		h.respondError(w, http.StatusInternalServerError, "Failed to fetch messages")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{"messages": messages})
}

type transitionRequest struct {
	Status   domain.TicketStatus `json:"status" validate:"required,oneof=open pending resolved closed"`
	Assignee *uuid.UUID          `json:"assignee,omitempty"`
}

// Transition moves a ticket through the workflow. Support staff only; the
// route is gated by RequireRole.
func (h *SupportHandler) Transition(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid ticket ID")
		return
	}

	var req transitionRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ticket, err := h.service.Transition(r.Context(), id, req.Status, req.Assignee)
	if err != nil {
		switch err {
		case errors.ErrTicketNotFound:
			h.respondError(w, http.StatusNotFound, "Ticket not found")
		case errors.ErrInvalidTicketTransition:
			h.respondError(w, http.StatusConflict, "Invalid status transition")
		default:
			h.logger.Error("Ticket transition failed", map[string]interface{}{"error": err.Error()})
			h.respondError(w, http.StatusInternalServerError, "Transition failed")
		}
		return
	}

	h.respondJSON(w, http.StatusOK, ticket)
}

func (h *SupportHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *SupportHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
