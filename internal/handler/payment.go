package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"ajopay/internal/domain"
	"ajopay/internal/middleware"
	"ajopay/internal/payment"
	"ajopay/pkg/errors"
	"ajopay/pkg/logger"
	"ajopay/pkg/validator"
)

// PaymentHandler handles gateway payment initialization and verification.
type PaymentHandler struct {
	service   *payment.Service
	validator *validator.Validator
	logger    logger.Logger
}

func NewPaymentHandler(service *payment.Service, val *validator.Validator, log logger.Logger) *PaymentHandler {
	return &PaymentHandler{
		service:   service,
		validator: val,
		logger:    log,
	}
}

type initializeRequest struct {
	Email      string          `json:"email" validate:"required,email"`
	AmountKobo int64           `json:"amount_kobo" validate:"required,gt=0"`
	Currency   domain.Currency `json:"currency" validate:"required,oneof=NGN GHS KES"`
}

// Initialize registers a pending payment and returns the checkout URL.
func (h *PaymentHandler) Initialize(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req initializeRequest
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

	result, err := h.service.Initialize(r.Context(), userID, req.Email, req.AmountKobo, req.Currency)
	if err != nil {
		switch err {
		case errors.ErrWalletNotFound:
			h.respondError(w, http.StatusNotFound, "No wallet for this currency")
		case errors.ErrProviderUnavailable:
			h.respondError(w, http.StatusServiceUnavailable, "Payment gateway unavailable")
		default:
			if errors.Is(err, errors.ErrGatewayRejected) {
				h.respondError(w, http.StatusBadGateway, "Payment gateway rejected the request")
				return
			}
			h.logger.Error("Payment init failed", map[string]interface{}{"error": err.Error()})
			h.respondError(w, http.StatusInternalServerError, "Initialization failed")
		}
		return
	}

	h.respondJSON(w, http.StatusCreated, result)
}

// Verify checks a payment reference and credits the wallet on success.
func (h *PaymentHandler) Verify(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	reference := mux.Vars(r)["reference"]
	p, err := h.service.Verify(r.Context(), userID, reference)
	if err != nil {
		switch err {
		case errors.ErrPaymentNotFound:
			h.respondError(w, http.StatusNotFound, "Payment not found")
		case errors.ErrForbidden:
			h.respondError(w, http.StatusForbidden, "Not your payment")
		case errors.ErrPaymentNotSuccessful:
			h.respondJSON(w, http.StatusOK, p)
		case errors.ErrProviderUnavailable:
			h.respondError(w, http.StatusServiceUnavailable, "Payment gateway unavailable")
		default:
			h.logger.Error("Payment verify failed", map[string]interface{}{"error": err.Error()})
			h.respondError(w, http.StatusInternalServerError, "Verification failed")
		}
		return
	}

	h.respondJSON(w, http.StatusOK, p)
}

// Webhook receives async gateway confirmations, authenticated via HMAC.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Failed to read body")
		return
	}

	signature := r.Header.Get("X-Gateway-Signature")
	if err := h.service.VerifyWebhookSignature(body, signature); err != nil {
		h.respondError(w, http.StatusUnauthorized, "Invalid signature")
		return
	}

	if err := h.service.HandleWebhook(r.Context(), body); err != nil {
		if err == errors.ErrPaymentNotFound {
			h.respondError(w, http.StatusNotFound, "Unknown payment reference")
			return
		}
		h.logger.Error("Gateway webhook failed", map[string]interface{}{"error": err.Error()})
		h.respondError(w, http.StatusBadRequest, "Webhook processing failed")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (h *PaymentHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *PaymentHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
