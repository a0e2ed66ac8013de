package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"transfer-ledger/internal/middleware"
	"transfer-ledger/internal/services"
	"transfer-ledger/internal/store"

	"github.com/rs/zerolog"
)

type UserHandler struct {
	userService *services.UserService
	logger      zerolog.Logger
}

func NewUserHandler(userService *services.UserService, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger,
	}
}

type UpdatePreferencesRequest struct {
	NotificationsEnabled *bool `json:"notifications_enabled"`
}

func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized", "User not authenticated")
		return
	}

	user, err := h.userService.GetUserByID(r.Context(), userID)
	if errors.Is(err, store.ErrNotFound) {
		respondWithError(w, http.StatusNotFound, "user_not_found", "User not found")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to fetch user")
		respondWithError(w, http.StatusInternalServerError, "fetch_failed", "Failed to fetch user")
		return
	}

	respondWithJSON(w, http.StatusOK, user)
}

func (h *UserHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized", "User not authenticated")
		return
	}

	var req UpdatePreferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if req.NotificationsEnabled == nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "notifications_enabled is required")
		return
	}

	err := h.userService.UpdatePreferences(r.Context(), userID, *req.NotificationsEnabled)
	if errors.Is(err, store.ErrNotFound) {
		respondWithError(w, http.StatusNotFound, "user_not_found", "User not found")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to update preferences")
		respondWithError(w, http.StatusInternalServerError, "update_failed", "Failed to update preferences")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":               userID,
		"notifications_enabled": *req.NotificationsEnabled,
	})
}
