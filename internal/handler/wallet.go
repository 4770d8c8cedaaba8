package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"ajopay/internal/domain"
	"ajopay/internal/ledger"
	"ajopay/internal/middleware"
	"ajopay/internal/wallet"
	"ajopay/pkg/logger"
	"ajopay/pkg/validator"
)

// WalletHandler handles wallet and ledger read endpoints.
type WalletHandler struct {
	service   *wallet.Service
	ledger    *ledger.Service
	validator *validator.Validator
	logger    logger.Logger
}

func NewWalletHandler(service *wallet.Service, ledgerSvc *ledger.Service, val *validator.Validator, log logger.Logger) *WalletHandler {
	return &WalletHandler{
		service:   service,
		ledger:    ledgerSvc,
		validator: val,
		logger:    log,
	}
}

type createWalletRequest struct {
	Currency domain.Currency `json:"currency" validate:"required,oneof=NGN GHS KES"`
}

// Create opens a wallet for the authenticated user.
func (h *WalletHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req createWalletRequest
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

	wlt, err := h.service.CreateWallet(r.Context(), userID, req.Currency)
	if err != nil {
		h.logger.Error("Wallet creation failed", map[string]interface{}{"error": err.Error()})
		h.respondError(w, http.StatusInternalServerError, "Failed to create wallet")
		return
	}

	h.respondJSON(w, http.StatusCreated, wlt)
}

// List returns the authenticated user's wallets.
func (h *WalletHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	wallets, err := h.service.GetUserWallets(r.Context(), userID)
	if err != nil {
		h.logger.Error("Wallet list failed", map[string]interface{}{"error": err.Error()})
		h.respondError(w, http.StatusInternalServerError, "Failed to list wallets")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{"wallets": wallets})
}

// Get returns one wallet, owner only.
func (h *WalletHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid wallet ID")
		return
	}

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	wlt, err := h.service.GetWallet(r.Context(), id)
	if err != nil {
		h.respondError(w, http.StatusNotFound, "Wallet not found")
		return
	}
	if wlt.UserID != userID {
		h.respondError(w, http.StatusForbidden, "Not your wallet")
		return
	}

	h.respondJSON(w, http.StatusOK, wlt)
}

// History returns the wallet's ledger entries, owner only.
func (h *WalletHandler) History(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid wallet ID")
		return
	}

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	wlt, err := h.service.GetWallet(r.Context(), id)
	if err != nil {
		h.respondError(w, http.StatusNotFound, "Wallet not found")
		return
	}
	if wlt.UserID != userID {
		h.respondError(w, http.StatusForbidden, "Not your wallet")
		return
	}

	limit, offset := pagination(r)
	entries, err := h.ledger.History(r.Context(), id, limit, offset)
	if err != nil {
		h.logger.Error("Ledger history failed", map[string]interface{}{"error": err.Error()})
		h.respondError(w, http.StatusInternalServerError, "Failed to fetch history")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

func (h *WalletHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *WalletHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
