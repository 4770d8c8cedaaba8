package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"ajopay/internal/domain"
	"ajopay/internal/middleware"
	"ajopay/internal/notification"
	"ajopay/pkg/errors"
	"ajopay/pkg/logger"
	"ajopay/pkg/validator"
)

// NotificationHandler handles the notification feed, preferences, dispatch,
// and the provider delivery-status webhook.
type NotificationHandler struct {
	service   *notification.Service
	validator *validator.Validator
	logger    logger.Logger
}

func NewNotificationHandler(service *notification.Service, val *validator.Validator, log logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		service:   service,
		validator: val,
		logger:    log,
	}
}

// List returns the authenticated user's notifications.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	limit, offset := pagination(r)
	notifications, err := h.service.ListForUser(r.Context(), userID, limit, offset)
	if err != nil {
		h.logger.Error("Notification list failed", map[string]interface{}{"error": err.Error()})
		h.respondError(w, http.StatusInternalServerError, "Failed to list notifications")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{"notifications": notifications})
}

// GetPrefs returns the user's channel preferences.
func (h *NotificationHandler) GetPrefs(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	prefs, err := h.service.Prefs(r.Context(), userID)
	if err != nil {
		h.logger.Error("Prefs fetch failed", map[string]interface{}{"error": err.Error()})
		h.respondError(w, http.StatusInternalServerError, "Failed to fetch preferences")
		return
	}

	h.respondJSON(w, http.StatusOK, prefs)
}

type updatePrefsRequest struct {
	Toast bool `json:"toast"`
	SMS   bool `json:"sms"`
	Email bool `json:"email"`
}

// UpdatePrefs replaces the user's channel preferences.
func (h *NotificationHandler) UpdatePrefs(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req updatePrefsRequest
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

	prefs := &domain.NotificationPrefs{
		UserID: userID,
		Toast:  req.Toast,
		SMS:    req.SMS,
		Email:  req.Email,
	}
	if err := h.service.UpdatePrefs(r.Context(), prefs); err != nil {
		h.logger.Error("Prefs update failed", map[string]interface{}{"error": err.Error()})
		h.respondError(w, http.StatusInternalServerError, "Failed to update preferences")
		return
	}

	h.respondJSON(w, http.StatusOK, prefs)
}

type dispatchRequest struct {
	Limit int `json:"limit"`
}

// Dispatch drains a batch of queued notifications. Admin only.
func (h *NotificationHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	var req dispatchRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil && err != io.EOF {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Limit <= 0 || req.Limit > 500 {
		req.Limit = 100
	}

	result, err := h.service.Dispatch(r.Context(), req.Limit)
	if err != nil {
		h.logger.Error("Notification dispatch failed", map[string]interface{}{"error": err.Error()})
		h.respondError(w, http.StatusInternalServerError, "Dispatch failed")
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

type deliveryStatusEvent struct {
	MessageID string `json:"message_id" validate:"required"`
	Status    string `json:"status" validate:"required"`
}

// DeliveryWebhook receives SMS delivery reports from the provider.
func (h *NotificationHandler) DeliveryWebhook(w http.ResponseWriter, r *http.Request) {
	var event deliveryStatusEvent
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)

	if err := dec.Decode(&event); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid webhook payload")
		return
	}
	if err := h.validator.Validate(&event); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.UpdateDeliveryStatus(r.Context(), event.MessageID, event.Status); err != nil {
		switch err {
		case errors.ErrMessageNotFound:
			h.respondError(w, http.StatusNotFound, "Unknown message ID")
		case errors.ErrInvalidWebhookPayload:
			h.respondError(w, http.StatusBadRequest, "Unknown delivery status")
		default:
			h.logger.Error("Delivery webhook failed", map[string]interface{}{"error": err.Error()})
			h.respondError(w, http.StatusInternalServerError, "Webhook processing failed")
		}
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (h *NotificationHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *NotificationHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
