package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"ajopay/internal/domain"
	"ajopay/internal/middleware"
	"ajopay/internal/reconciliation"
	"ajopay/pkg/errors"
	"ajopay/pkg/logger"
	"ajopay/pkg/validator"
)

// ReconciliationHandler handles statement import and match resolution.
type ReconciliationHandler struct {
	service   *reconciliation.Service
	validator *validator.Validator
	logger    logger.Logger
}

func NewReconciliationHandler(service *reconciliation.Service, val *validator.Validator, log logger.Logger) *ReconciliationHandler {
	return &ReconciliationHandler{
		service:   service,
		validator: val,
		logger:    log,
	}
}

type createRunRequest struct {
	OrgID uuid.UUID `json:"org_id" validate:"required"`
}

// CreateRun opens a new reconciliation run.
func (h *ReconciliationHandler) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req createRunRequest

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

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	run, err := h.service.CreateRun(r.Context(), req.OrgID, userID)
	if err != nil {
		h.logger.Error("Run creation failed", map[string]interface{}{"error": err.Error()})
		h.respondError(w, http.StatusInternalServerError, "Failed to create run")
		return
	}

	h.respondJSON(w, http.StatusCreated, run)
}

// ListRuns returns an org's runs.
func (h *ReconciliationHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	orgID, err := uuid.Parse(r.URL.Query().Get("org_id"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "org_id query parameter is required")
		return
	}
	limit, offset := pagination(r)

	runs, err := h.service.ListRuns(r.Context(), orgID, limit, offset)
	if err != nil {
		h.logger.Error("Run list failed", map[string]interface{}{"error": err.Error()})
		h.respondError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
}

// GetRun returns one run.
func (h *ReconciliationHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid run ID")
		return
	}

	run, err := h.service.GetRun(r.Context(), id)
	if err != nil {
		h.respondError(w, http.StatusNotFound, "Run not found")
		return
	}

	h.respondJSON(w, http.StatusOK, run)
}

// Import parses an uploaded CSV statement into the run. The file arrives as
// multipart form data under the "statement" field, with "source" naming its
// origin.
func (h *ReconciliationHandler) Import(w http.ResponseWriter, r *http.Request) {
	runID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid run ID")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 10<<20) // 10MB limit
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	source := domain.ItemSource(r.FormValue("source"))
	switch source {
	case domain.SourcePSP, domain.SourceBank, domain.SourceLedger:
	default:
		h.respondError(w, http.StatusBadRequest, "source must be one of psp, bank, ledger")
		return
	}

	currency := domain.Currency(r.FormValue("currency"))
	if currency == "" {
		currency = domain.NGN
	}

	file, _, err := r.FormFile("statement")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "statement file is required")
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Failed to read statement file")
		return
	}

	result, err := h.service.Import(r.Context(), runID, source, raw, currency)
	if err != nil {
		switch err {
		case errors.ErrRunNotFound:
			h.respondError(w, http.StatusNotFound, "Run not found")
		case errors.ErrRunCompleted:
			h.respondError(w, http.StatusConflict, "Run already completed")
		case errors.ErrEmptyStatement:
			h.respondError(w, http.StatusBadRequest, "Statement contains no usable rows")
		case errors.ErrMissingAmountColumn:
			h.respondError(w, http.StatusBadRequest, "Statement is missing an Amount column")
		default:
			h.logger.Error("Statement import failed", map[string]interface{}{"error": err.Error()})
			h.respondError(w, http.StatusInternalServerError, "Import failed")
		}
		return
	}

	h.respondJSON(w, http.StatusCreated, result)
}

// Items returns all items on a run.
func (h *ReconciliationHandler) Items(w http.ResponseWriter, r *http.Request) {
	runID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid run ID")
		return
	}

	items, err := h.service.Items(r.Context(), runID)
	if err != nil {
		if err == errors.ErrRunNotFound {
			h.respondError(w, http.StatusNotFound, "Run not found")
			return
		}
		h.logger.Error("Item list failed", map[string]interface{}{"error": err.Error()})
		h.respondError(w, http.StatusInternalServerError, "Failed to list items")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

// Suggestions computes match proposals over the run's pending items.
func (h *ReconciliationHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	runID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid run ID")
		return
	}

	suggestions, err := h.service.Suggestions(r.Context(), runID)
	if err != nil {
		if err == errors.ErrRunNotFound {
			h.respondError(w, http.StatusNotFound, "Run not found")
			return
		}
		h.logger.Error("Suggestion computation failed", map[string]interface{}{"error": err.Error()})
		h.respondError(w, http.StatusInternalServerError, "Failed to compute suggestions")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{"suggestions": suggestions})
}

type confirmMatchRequest struct {
	ItemIDs []uuid.UUID `json:"item_ids" validate:"required,min=2"`
}

// ConfirmMatch transitions a suggestion's items to matched.
func (h *ReconciliationHandler) ConfirmMatch(w http.ResponseWriter, r *http.Request) {
	runID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid run ID")
		return
	}

	var req confirmMatchRequest
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

	if err := h.service.ConfirmMatch(r.Context(), runID, req.ItemIDs); err != nil {
		switch err {
		case errors.ErrItemNotFound:
			h.respondError(w, http.StatusNotFound, "Item not found on this run")
		case errors.ErrSuggestionStale:
			h.respondError(w, http.StatusConflict, "Suggestion is stale, refresh and retry")
		default:
			h.logger.Error("Match confirmation failed", map[string]interface{}{"error": err.Error()})
			h.respondError(w, http.StatusInternalServerError, "Confirmation failed")
		}
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]bool{"matched": true})
}

type bulkResolveRequest struct {
	ItemIDs []uuid.UUID `json:"item_ids" validate:"required,min=1"`
}

// BulkResolve marks the selected items resolved.
func (h *ReconciliationHandler) BulkResolve(w http.ResponseWriter, r *http.Request) {
	runID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid run ID")
		return
	}

	var req bulkResolveRequest
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

	resolved, err := h.service.BulkResolve(r.Context(), runID, req.ItemIDs)
	if err != nil {
		h.logger.Error("Bulk resolve failed", map[string]interface{}{"error": err.Error()})
		h.respondError(w, http.StatusInternalServerError, "Bulk resolve failed")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]int{"resolved": resolved})
}

// MarkMismatched flags one item for manual follow-up.
func (h *ReconciliationHandler) MarkMismatched(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	runID, err := uuid.Parse(vars["id"])
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid run ID")
		return
	}
	itemID, err := uuid.Parse(vars["itemID"])
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid item ID")
		return
	}

	if err := h.service.MarkMismatched(r.Context(), runID, itemID); err != nil {
		switch err {
		case errors.ErrItemNotFound:
			h.respondError(w, http.StatusNotFound, "Item not found on this run")
		case errors.ErrItemNotPending:
			h.respondError(w, http.StatusConflict, "Item is not pending")
		default:
			h.logger.Error("Mismatch flag failed", map[string]interface{}{"error": err.Error()})
			h.respondError(w, http.StatusInternalServerError, "Transition failed")
		}
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]bool{"mismatched": true})
}

// CompleteRun closes a run once every item has been handled.
func (h *ReconciliationHandler) CompleteRun(w http.ResponseWriter, r *http.Request) {
	runID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid run ID")
		return
	}

	if err := h.service.CompleteRun(r.Context(), runID); err != nil {
		switch err {
		case errors.ErrRunNotFound:
			h.respondError(w, http.StatusNotFound, "Run not found")
		case errors.ErrRunCompleted:
			h.respondError(w, http.StatusConflict, "Run already completed")
		case errors.ErrRunHasPendingItems:
			h.respondError(w, http.StatusConflict, "Run still has pending items")
		default:
			h.logger.Error("Run completion failed", map[string]interface{}{"error": err.Error()})
			h.respondError(w, http.StatusInternalServerError, "Completion failed")
		}
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]bool{"completed": true})
}

func (h *ReconciliationHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *ReconciliationHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
