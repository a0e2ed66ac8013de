package services

import (
	"context"
	"errors"
	"fmt"

	"transfer-ledger/internal/config"
	"transfer-ledger/internal/models"
	"transfer-ledger/internal/store"

	"github.com/rs/zerolog"
)

var ErrInvalidAmount = errors.New("amount must be greater than zero")

// DepositService records money entering the ledger from outside, which is the
// only non-transfer activity this service writes.
type DepositService struct {
	store      store.Store
	balances   *BalanceService
	statuses   config.StatusIDs
	categories config.CategoryIDs
	logger     zerolog.Logger
}

func NewDepositService(st store.Store, balances *BalanceService, statuses config.StatusIDs, categories config.CategoryIDs, logger zerolog.Logger) *DepositService {
	return &DepositService{
		store:      st,
		balances:   balances,
		statuses:   statuses,
		categories: categories,
		logger:     logger,
	}
}

// Deposit credits userID with amount minor units and returns the written
// transaction together with the resynchronized balance.
func (s *DepositService) Deposit(ctx context.Context, userID string, amount int64, label string) (*models.Transaction, int64, error) {
	if amount <= 0 {
		return nil, 0, ErrInvalidAmount
	}
	if label == "" {
		label = "Deposit"
	}

	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, 0, err
	}

	tx, err := s.store.CreateTransaction(ctx, &models.Transaction{
		UserID:       userID,
		Amount:       amount,
		Counterparty: models.TruncateCounterparty(label),
		StatusID:     s.statuses.Completed,
		CategoryID:   s.categories.Deposit,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Error creating deposit transaction")
		return nil, 0, fmt.Errorf("failed to create deposit: %w", err)
	}

	balance, err := s.balances.Synchronize(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Str("transaction_id", tx.ID).Msg("Deposit written but balance sync failed")
		return tx, 0, err
	}

	s.logger.Info().
		Str("transaction_id", tx.ID).
		Str("user_id", userID).
		Int64("amount", amount).
		Msg("Deposit completed")

	return tx, balance, nil
}
