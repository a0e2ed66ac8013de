package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"transfer-ledger/internal/middleware"
	"transfer-ledger/internal/models"
	"transfer-ledger/internal/services"
	"transfer-ledger/internal/store"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

type TransferHandler struct {
	transferService *services.TransferService
	balanceService  *services.BalanceService
	userService     *services.UserService
	logger          zerolog.Logger
}

func NewTransferHandler(transferService *services.TransferService, balanceService *services.BalanceService, userService *services.UserService, logger zerolog.Logger) *TransferHandler {
	return &TransferHandler{
		transferService: transferService,
		balanceService:  balanceService,
		userService:     userService,
		logger:          logger,
	}
}

// CreateTransferRequest identifies the recipient by id or email and the amount in
// minor units or as display text ("25.00").
type CreateTransferRequest struct {
	ReceiverUserID string `json:"receiver_user_id"`
	ReceiverEmail  string `json:"receiver_email"`
	Amount         int64  `json:"amount"`
	DisplayAmount  string `json:"display_amount"`
	Description    string `json:"description"`
}

type TransferResponse struct {
	models.TransferResult
	Balance *models.BalanceView `json:"balance,omitempty"`
}

var transferStatusCodes = map[models.TransferErrorCode]int{
	models.ErrCodeInvalidAmount:     http.StatusBadRequest,
	models.ErrCodeSelfTransfer:      http.StatusBadRequest,
	models.ErrCodeNotFound:          http.StatusNotFound,
	models.ErrCodeInsufficientFunds: http.StatusConflict,
	models.ErrCodeTransferFailed:    http.StatusInternalServerError,
}

func (h *TransferHandler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	var body CreateTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	senderID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized", "User not authenticated")
		return
	}

	amount := body.Amount
	if body.DisplayAmount != "" {
		parsed, err := models.ParseDisplayAmount(body.DisplayAmount)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, string(models.ErrCodeInvalidAmount), "Amount is not a valid number")
			return
		}
		amount = parsed
	}

	receiverID := body.ReceiverUserID
	if receiverID == "" {
		if body.ReceiverEmail == "" {
			respondWithError(w, http.StatusBadRequest, "invalid_request", "receiver_user_id or receiver_email is required")
			return
		}
		receiver, err := h.userService.GetUserByEmail(r.Context(), body.ReceiverEmail)
		if errors.Is(err, store.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, string(models.ErrCodeNotFound), "Recipient not found")
			return
		}
		if err != nil {
			h.logger.Error().Err(err).Msg("Recipient lookup failed")
			respondWithError(w, http.StatusInternalServerError, string(models.ErrCodeTransferFailed), "Transfer failed. Please try again later")
			return
		}
		receiverID = receiver.ID
	}

	result := h.transferService.Execute(r.Context(), models.TransferRequest{
		SenderUserID:   senderID,
		ReceiverUserID: receiverID,
		Amount:         amount,
		Description:    body.Description,
	})

	// a failed attempt may still have moved the sender's balance
	resp := TransferResponse{TransferResult: result}
	if view, err := h.balanceService.Refresh(r.Context(), senderID); err == nil {
		resp.Balance = view
	} else if view, err := h.balanceService.GetBalance(r.Context(), senderID); err == nil {
		resp.Balance = view
	}

	if !result.Success {
		code, ok := transferStatusCodes[result.Error.Code]
		if !ok {
			code = http.StatusInternalServerError
		}
		respondWithJSON(w, code, resp)
		return
	}

	respondWithJSON(w, http.StatusCreated, resp)
}

func (h *TransferHandler) GetTransfer(w http.ResponseWriter, r *http.Request) {
	transferID := mux.Vars(r)["id"]

	currentUserID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized", "User not authenticated")
		return
	}

	transfer, legs, err := h.transferService.GetTransfer(r.Context(), transferID)
	if errors.Is(err, store.ErrNotFound) {
		respondWithError(w, http.StatusNotFound, "transfer_not_found", "Transfer not found")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("transfer_id", transferID).Msg("Failed to fetch transfer")
		respondWithError(w, http.StatusInternalServerError, "fetch_failed", "Failed to fetch transfer")
		return
	}

	userRole, _ := middleware.GetUserRole(r)
	if userRole != string(models.RoleAdmin) &&
		transfer.SenderUserID != currentUserID && transfer.ReceiverUserID != currentUserID {
		respondWithError(w, http.StatusForbidden, "forbidden", "You can only view your own transfers")
		return
	}

	// non-admins only see their own leg
	if userRole != string(models.RoleAdmin) {
		own := legs[:0]
		for _, leg := range legs {
			if leg.UserID == currentUserID {
				own = append(own, leg)
			}
		}
		legs = own
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"transfer":     transfer,
		"transactions": legs,
	})
}
