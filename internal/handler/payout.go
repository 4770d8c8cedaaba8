package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"ajopay/internal/domain"
	"ajopay/internal/middleware"
	"ajopay/internal/payout"
	"ajopay/pkg/errors"
	"ajopay/pkg/logger"
	"ajopay/pkg/validator"
)

// PayoutHandler handles payout creation and the approval workflow.
type PayoutHandler struct {
	service   *payout.Service
	validator *validator.Validator
	logger    logger.Logger
}

func NewPayoutHandler(service *payout.Service, val *validator.Validator, log logger.Logger) *PayoutHandler {
	return &PayoutHandler{
		service:   service,
		validator: val,
		logger:    log,
	}
}

// Create registers a pending payout awaiting approvals.
func (h *PayoutHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req payout.CreateRequest

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit
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

	p, err := h.service.Create(r.Context(), &req)
	if err != nil {
		h.logger.Error("Payout creation failed", map[string]interface{}{"error": err.Error()})
		h.respondError(w, http.StatusInternalServerError, "Failed to create payout")
		return
	}

	h.respondJSON(w, http.StatusCreated, p)
}

// Get returns a payout by id.
func (h *PayoutHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid payout ID")
		return
	}

	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, http.StatusNotFound, "Payout not found")
		return
	}

	h.respondJSON(w, http.StatusOK, p)
}

// List returns payouts filtered by status.
func (h *PayoutHandler) List(w http.ResponseWriter, r *http.Request) {
	status := domain.PayoutStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = domain.PayoutStatusPending
	}
	limit, offset := pagination(r)

	payouts, err := h.service.ListByStatus(r.Context(), status, limit, offset)
	if err != nil {
		h.logger.Error("Payout list failed", map[string]interface{}{"error": err.Error()})
		h.respondError(w, http.StatusInternalServerError, "Failed to list payouts")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{"payouts": payouts})
}

// Approve records one admin approval on a pending payout.
func (h *PayoutHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid payout ID")
		return
	}

	approverID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	p, err := h.service.Approve(r.Context(), id, approverID)
	if err != nil {
		switch err {
		case errors.ErrPayoutNotFound:
			h.respondError(w, http.StatusNotFound, "Payout not found")
		case errors.ErrPayoutNotPending:
			h.respondError(w, http.StatusConflict, "Payout is not pending approval")
		case errors.ErrDuplicateApproval:
			h.respondError(w, http.StatusConflict, "Payout already approved by this admin")
		default:
			h.logger.Error("Payout approval failed", map[string]interface{}{"error": err.Error()})
			h.respondError(w, http.StatusInternalServerError, "Approval failed")
		}
		return
	}

	h.respondJSON(w, http.StatusOK, p)
}

type bulkApproveRequest struct {
	PayoutIDs []uuid.UUID      `json:"payout_ids" validate:"required,min=1"`
	Notify    bool             `json:"notify"`
	Channels  []domain.Channel `json:"channels,omitempty"`
}

// BulkApprove applies one approval to each selected payout, optionally
// notifying recipients whose payouts became queued.
func (h *PayoutHandler) BulkApprove(w http.ResponseWriter, r *http.Request) {
	var req bulkApproveRequest

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

	approverID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var result *payout.BulkResult
	var err error
	if req.Notify {
		result, err = h.service.BulkApproveAndNotify(r.Context(), req.PayoutIDs, approverID, req.Channels)
	} else {
		result, err = h.service.BulkApprove(r.Context(), req.PayoutIDs, approverID)
	}
	if err != nil {
		if err == errors.ErrNoPayoutsSelected {
			h.respondError(w, http.StatusBadRequest, "No payouts selected")
			return
		}
		h.logger.Error("Bulk approval failed", map[string]interface{}{"error": err.Error()})
		h.respondError(w, http.StatusInternalServerError, "Bulk approval failed")
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

// MarkPaid settles a queued payout.
func (h *PayoutHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid payout ID")
		return
	}

	p, err := h.service.MarkPaid(r.Context(), id)
	if err != nil {
		switch err {
		case errors.ErrPayoutNotFound:
			h.respondError(w, http.StatusNotFound, "Payout not found")
		case errors.ErrPayoutNotQueued:
			h.respondError(w, http.StatusConflict, "Payout is not queued")
		default:
			h.logger.Error("Payout settle failed", map[string]interface{}{"error": err.Error()})
			h.respondError(w, http.StatusInternalServerError, "Settle failed")
		}
		return
	}

	h.respondJSON(w, http.StatusOK, p)
}

// MarkFailed fails a queued payout and releases its ledger hold.
func (h *PayoutHandler) MarkFailed(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid payout ID")
		return
	}

	p, err := h.service.MarkFailed(r.Context(), id)
	if err != nil {
		switch err {
		case errors.ErrPayoutNotFound:
			h.respondError(w, http.StatusNotFound, "Payout not found")
		case errors.ErrPayoutNotQueued:
			h.respondError(w, http.StatusConflict, "Payout is not queued")
		default:
			h.logger.Error("Payout fail transition failed", map[string]interface{}{"error": err.Error()})
			h.respondError(w, http.StatusInternalServerError, "Transition failed")
		}
		return
	}

	h.respondJSON(w, http.StatusOK, p)
}

func pagination(r *http.Request) (limit, offset int) {
	limit = 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}
	return limit, offset
}

func (h *PayoutHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *PayoutHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
