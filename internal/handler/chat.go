package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"ajopay/internal/chat"
	"ajopay/internal/middleware"
	"ajopay/pkg/errors"
	"ajopay/pkg/logger"
	"ajopay/pkg/validator"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now (CORS)
	},
}

// ChatHandler handles chat threads, messages, and the live websocket stream.
type ChatHandler struct {
	service   *chat.Service
	validator *validator.Validator
	logger    logger.Logger
}

func NewChatHandler(service *chat.Service, val *validator.Validator, log logger.Logger) *ChatHandler {
	return &ChatHandler{
		service:   service,
		validator: val,
		logger:    log,
	}
}

type createThreadRequest struct {
	PeerID uuid.UUID `json:"peer_id" validate:"required"`
	Title  string    `json:"title" validate:"max=200"`
}

// CreateThread opens a conversation with another user.
func (h *ChatHandler) CreateThread(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req createThreadRequest
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

	thread, err := h.service.CreateThread(r.Context(), userID, req.PeerID, req.Title)
	if err != nil {
		h.logger.Error("Thread creation failed", map[string]interface{}{"error": err.Error()})
		h.respondError(w, http.StatusInternalServerError, "Failed to create thread")
		return
	}

	h.respondJSON(w, http.StatusCreated, thread)
}

// ListThreads returns the caller's conversations.
func (h *ChatHandler) ListThreads(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	threads, err := h.service.ListThreads(r.Context(), userID)
	if err != nil {
		h.logger.Error("Thread list failed", map[string]interface{}{"error": err.Error()})
		h.respondError(w, http.StatusInternalServerError, "Failed to list threads")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{"threads": threads})
}

type sendMessageRequest struct {
	Body string `json:"body" validate:"required,min=1,max=4000"`
}

// SendMessage posts a message to a thread and fans it out to live listeners.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	threadID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid thread ID")
		return
	}

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req sendMessageRequest
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

	msg, err := h.service.SendMessage(r.Context(), threadID, userID, req.Body)
	if err != nil {
		switch err {
		case errors.ErrThreadNotFound:
			h.respondError(w, http.StatusNotFound, "Thread not found")
		case errors.ErrNotThreadParticipant:
			h.respondError(w, http.StatusForbidden, "Not a participant of this thread")
		default:
			h.logger.Error("Message send failed", map[string]interface{}{"error": err.Error()})
			h.respondError(w, http.StatusInternalServerError, "Send failed")
		}
		return
	}

	h.respondJSON(w, http.StatusCreated, msg)
}

// Messages returns thread history, participants only.
func (h *ChatHandler) Messages(w http.ResponseWriter, r *http.Request) {
	threadID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid thread ID")
		return
	}

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	limit, offset := pagination(r)
	messages, err := h.service.Messages(r.Context(), threadID, userID, limit, offset)
	if err != nil {
		switch err {
		case errors.ErrThreadNotFound:
			h.respondError(w, http.StatusNotFound, "Thread not found")
		case errors.ErrNotThreadParticipant:
			h.respondError(w, http.StatusForbidden, "Not a participant of this thread")
		default:
			h.logger.Error("Message history failed", map[string]interface{}{"error": err.Error()})
			h.respondError(w, http.StatusInternalServerError, "Failed to fetch messages")
		}
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{"messages": messages})
}

// Stream upgrades to a websocket and pushes new thread messages as they
// arrive, plus a ping every 30 seconds to keep the connection alive.
func (h *ChatHandler) Stream(w http.ResponseWriter, r *http.Request) {
	threadID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid thread ID")
		return
	}

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	if _, err := h.service.Authorize(r.Context(), threadID, userID); err != nil {
		switch err {
		case errors.ErrThreadNotFound:
			h.respondError(w, http.StatusNotFound, "Thread not found")
		case errors.ErrNotThreadParticipant:
			h.respondError(w, http.StatusForbidden, "Not a participant of this thread")
		default:
			h.respondError(w, http.StatusInternalServerError, "Stream setup failed")
		}
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", map[string]interface{}{"error": err.Error()})
		return
	}
	defer conn.Close()

	messages, cancel := h.service.Hub().Subscribe(threadID)
	defer cancel()

	h.logger.Info("Chat stream connected", map[string]interface{}{
		"thread_id": threadID.String(),
		"user_id":   userID.String(),
	})

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg := <-messages:
			if err := conn.WriteJSON(map[string]interface{}{
				"type":    "message",
				"message": msg,
			}); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}

func (h *ChatHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *ChatHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
