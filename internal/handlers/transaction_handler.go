package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"transfer-ledger/internal/models"
	"transfer-ledger/internal/services"
	"transfer-ledger/internal/store"

	"github.com/rs/zerolog"
)

type TransactionHandler struct {
	balanceService *services.BalanceService
	depositService *services.DepositService
	logger         zerolog.Logger
}

func NewTransactionHandler(balanceService *services.BalanceService, depositService *services.DepositService, logger zerolog.Logger) *TransactionHandler {
	return &TransactionHandler{
		balanceService: balanceService,
		depositService: depositService,
		logger:         logger,
	}
}

func (h *TransactionHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := targetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized", "User not authenticated")
		return
	}

	limit := queryInt(r, "limit", 50)

	transactions, err := h.balanceService.History(r.Context(), userID, limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to fetch transaction history")
		respondWithError(w, http.StatusInternalServerError, "fetch_failed", "Failed to fetch transaction history")
		return
	}

	respondWithJSON(w, http.StatusOK, transactions)
}

// Deposit credits a user from outside the ledger. Admin only.
func (h *TransactionHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req models.DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	if req.UserID == "" {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "user_id is required")
		return
	}

	amount := req.Amount
	if req.DisplayAmount != "" {
		parsed, err := models.ParseDisplayAmount(req.DisplayAmount)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid_amount", "Amount is not a valid number")
			return
		}
		amount = parsed
	}

	tx, balance, err := h.depositService.Deposit(r.Context(), req.UserID, amount, req.Label)
	switch {
	case errors.Is(err, services.ErrInvalidAmount):
		respondWithError(w, http.StatusBadRequest, "invalid_amount", err.Error())
		return
	case errors.Is(err, store.ErrNotFound):
		respondWithError(w, http.StatusNotFound, "user_not_found", "User not found")
		return
	case err != nil && tx == nil:
		h.logger.Error().Err(err).Msg("Deposit failed")
		respondWithError(w, http.StatusInternalServerError, "deposit_failed", "Deposit failed")
		return
	case err != nil:
		// recorded, the balance catches up on the next sync
		respondWithJSON(w, http.StatusAccepted, map[string]interface{}{
			"transaction": tx,
		})
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"transaction": tx,
		"balance": models.BalanceView{
			UserID:  req.UserID,
			Balance: balance,
			Display: models.FormatMinor(balance),
		},
	})
}
