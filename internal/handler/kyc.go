package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"ajopay/internal/domain"
	"ajopay/internal/kyc"
	"ajopay/internal/middleware"
	"ajopay/pkg/errors"
	"ajopay/pkg/logger"
	"ajopay/pkg/validator"
)

// KYCHandler handles identity-verification submissions and the provider webhook.
type KYCHandler struct {
	service   *kyc.Service
	validator *validator.Validator
	logger    logger.Logger
}

func NewKYCHandler(service *kyc.Service, val *validator.Validator, log logger.Logger) *KYCHandler {
	return &KYCHandler{
		service:   service,
		validator: val,
		logger:    log,
	}
}

type submitKYCRequest struct {
	DocumentType   string `json:"document_type" validate:"required,oneof=passport national_id drivers_license voters_card"`
	DocumentNumber string `json:"document_number" validate:"required,min=4"`
	FirstName      string `json:"first_name" validate:"required"`
	LastName       string `json:"last_name" validate:"required"`
	DateOfBirth    string `json:"date_of_birth" validate:"required,datetime=2006-01-02"`
}

// Submit records a KYC verification request for the authenticated user.
func (h *KYCHandler) Submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req submitKYCRequest
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

	payload := domain.Metadata{
		"document_type":   req.DocumentType,
		"document_number": req.DocumentNumber,
		"first_name":      req.FirstName,
		"last_name":       req.LastName,
		"date_of_birth":   req.DateOfBirth,
	}

	profile, err := h.service.Submit(r.Context(), userID, payload)
	if err != nil {
		h.logger.Error("KYC submission failed", map[string]interface{}{"error": err.Error()})
		h.respondError(w, http.StatusInternalServerError, "Submission failed")
		return
	}

	h.respondJSON(w, http.StatusCreated, profile)
}

// Status returns the authenticated user's latest KYC profile.
func (h *KYCHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	profile, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		if err == errors.ErrKYCProfileNotFound {
			h.respondError(w, http.StatusNotFound, "No KYC submission on file")
			return
		}
		h.logger.Error("KYC status fetch failed", map[string]interface{}{"error": err.Error()})
		h.respondError(w, http.StatusInternalServerError, "Failed to fetch status")
		return
	}

	h.respondJSON(w, http.StatusOK, profile)
}

// Webhook receives the provider's verification decision. The raw body is
// authenticated with an HMAC signature header before any parsing.
func (h *KYCHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Failed to read body")
		return
	}

	signature := r.Header.Get("X-Kyc-Signature")
	if err := h.service.VerifySignature(body, signature); err != nil {
		h.respondError(w, http.StatusUnauthorized, "Invalid signature")
		return
	}

	if err := h.service.HandleWebhook(r.Context(), body); err != nil {
		switch err {
		case errors.ErrKYCProfileNotFound:
			h.respondError(w, http.StatusNotFound, "Unknown provider reference")
		case errors.ErrInvalidKYCTransition:
			h.respondError(w, http.StatusConflict, "Invalid status transition")
		default:
			h.logger.Error("KYC webhook failed", map[string]interface{}{"error": err.Error()})
			h.respondError(w, http.StatusBadRequest, "Webhook processing failed")
		}
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (h *KYCHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *KYCHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
