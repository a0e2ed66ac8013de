package handlers

import (
	"errors"
	"net/http"

	"transfer-ledger/internal/middleware"
	"transfer-ledger/internal/models"
	"transfer-ledger/internal/services"
	"transfer-ledger/internal/store"

	"github.com/rs/zerolog"
)

type BalanceHandler struct {
	balanceService *services.BalanceService
	logger         zerolog.Logger
}

func NewBalanceHandler(balanceService *services.BalanceService, logger zerolog.Logger) *BalanceHandler {
	return &BalanceHandler{
		balanceService: balanceService,
		logger:         logger,
	}
}

func (h *BalanceHandler) GetCurrentBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := targetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized", "User not authenticated")
		return
	}

	balance, err := h.balanceService.GetBalance(r.Context(), userID)
	if errors.Is(err, store.ErrNotFound) {
		respondWithError(w, http.StatusNotFound, "user_not_found", "User not found")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to fetch balance")
		respondWithError(w, http.StatusInternalServerError, "fetch_failed", "Failed to fetch balance")
		return
	}

	respondWithJSON(w, http.StatusOK, balance)
}

// Sync recomputes the balance from the transaction log and stores it.
func (h *BalanceHandler) Sync(w http.ResponseWriter, r *http.Request) {
	userID, ok := targetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized", "User not authenticated")
		return
	}

	balance, err := h.balanceService.Refresh(r.Context(), userID)
	if errors.Is(err, store.ErrNotFound) {
		respondWithError(w, http.StatusNotFound, "user_not_found", "User not found")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to synchronize balance")
		respondWithError(w, http.StatusInternalServerError, "sync_failed", "Failed to synchronize balance")
		return
	}

	respondWithJSON(w, http.StatusOK, balance)
}

func (h *BalanceHandler) Verify(w http.ResponseWriter, r *http.Request) {
	userID, ok := targetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized", "User not authenticated")
		return
	}

	consistent, err := h.balanceService.ReconcileBalance(r.Context(), userID)
	if errors.Is(err, store.ErrNotFound) {
		respondWithError(w, http.StatusNotFound, "user_not_found", "User not found")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to verify balance")
		respondWithError(w, http.StatusInternalServerError, "verify_failed", "Failed to verify balance")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":    userID,
		"consistent": consistent,
	})
}

// targetUserID is the authenticated user, or for admins the user named by the
// user_id query parameter.
func targetUserID(r *http.Request) (string, bool) {
	currentUserID, ok := middleware.GetUserID(r)
	if !ok {
		return "", false
	}

	userRole, _ := middleware.GetUserRole(r)
	if userRole == string(models.RoleAdmin) {
		if userID := r.URL.Query().Get("user_id"); userID != "" {
			return userID, true
		}
	}
	return currentUserID, true
}
