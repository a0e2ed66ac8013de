package services

import (
	"context"
	"fmt"
	"sync"

	"transfer-ledger/internal/cache"
	"transfer-ledger/internal/metrics"
	"transfer-ledger/internal/models"
	"transfer-ledger/internal/store"

	"github.com/rs/zerolog"
)

// DefaultTransactionListLimit caps how many transactions a synchronization sums.
const DefaultTransactionListLimit = 1000

// BalanceService keeps each user's cached balance equal to the sum of their
// transaction log.
type BalanceService struct {
	store     store.Store
	cache     cache.BalanceCache
	metrics   metrics.Collector
	logger    zerolog.Logger
	listLimit int
	mu        sync.Map
}

type BalanceOption func(*BalanceService)

func WithBalanceCache(c cache.BalanceCache) BalanceOption {
	return func(s *BalanceService) { s.cache = c }
}

func WithBalanceMetrics(c metrics.Collector) BalanceOption {
	return func(s *BalanceService) { s.metrics = c }
}

// WithListLimit overrides DefaultTransactionListLimit; non-positive values are ignored.
func WithListLimit(limit int) BalanceOption {
	return func(s *BalanceService) {
		if limit > 0 {
			s.listLimit = limit
		}
	}
}

func NewBalanceService(st store.Store, logger zerolog.Logger, opts ...BalanceOption) *BalanceService {
	s := &BalanceService{
		store:     st,
		cache:     cache.NoOpCache{},
		metrics:   metrics.NoOpCollector{},
		logger:    logger,
		listLimit: DefaultTransactionListLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *BalanceService) getMutex(userID string) *sync.Mutex {
	mu, _ := s.mu.LoadOrStore(userID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Synchronize recomputes userID's balance from its transactions, stores it and
// returns it. Only the newest listLimit transactions are visible to the sum.
// Synchronizations of the same user are serialized so a stale sum never
// overwrites a newer one.
func (s *BalanceService) Synchronize(ctx context.Context, userID string) (int64, error) {
	mu := s.getMutex(userID)
	mu.Lock()
	defer mu.Unlock()

	transactions, err := s.store.ListTransactions(ctx, userID, s.listLimit)
	if err != nil {
		s.metrics.RecordSync(false)
		return 0, fmt.Errorf("list transactions for %s: %w", userID, err)
	}

	if len(transactions) >= s.listLimit {
		s.logger.Warn().
			Str("user_id", userID).
			Int("limit", s.listLimit).
			Msg("Transaction list hit the fetch limit, balance may be truncated")
	}

	var balance int64
	for _, t := range transactions {
		balance += t.Amount
	}

	if err := s.store.UpdateUser(ctx, userID, store.UserUpdate{Balance: store.Int64(balance)}); err != nil {
		s.metrics.RecordSync(false)
		return 0, fmt.Errorf("update balance for %s: %w", userID, err)
	}
	s.metrics.RecordSync(true)

	if err := s.cache.SetBalance(ctx, userID, balance); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to refresh balance cache (non-critical)")
	}

	s.logger.Debug().
		Str("user_id", userID).
		Int64("balance", balance).
		Int("transactions", len(transactions)).
		Msg("Balance synchronized")

	return balance, nil
}

// GetBalance returns the balance view for userID, preferring the cache and falling
// back to the stored user record.
func (s *BalanceService) GetBalance(ctx context.Context, userID string) (*models.BalanceView, error) {
	balance, err := s.cache.GetBalance(ctx, userID)
	if err != nil {
		user, err := s.store.GetUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		balance = user.Balance
	}

	return &models.BalanceView{
		UserID:  userID,
		Balance: balance,
		Display: models.FormatMinor(balance),
	}, nil
}

// Refresh synchronizes userID and returns the resulting view. It is what callers
// use after a transfer attempt, successful or not.
func (s *BalanceService) Refresh(ctx context.Context, userID string) (*models.BalanceView, error) {
	balance, err := s.Synchronize(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &models.BalanceView{
		UserID:  userID,
		Balance: balance,
		Display: models.FormatMinor(balance),
	}, nil
}

// ReconcileBalance reports whether the cached balance matches the transaction log
// without writing anything.
func (s *BalanceService) ReconcileBalance(ctx context.Context, userID string) (bool, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return false, err
	}

	transactions, err := s.store.ListTransactions(ctx, userID, s.listLimit)
	if err != nil {
		return false, fmt.Errorf("list transactions for %s: %w", userID, err)
	}

	var calculated int64
	for _, t := range transactions {
		calculated += t.Amount
	}

	if user.Balance != calculated {
		s.logger.Warn().
			Str("user_id", userID).
			Int64("current_balance", user.Balance).
			Int64("calculated_balance", calculated).
			Msg("Balance discrepancy detected")
		return false, nil
	}
	return true, nil
}

// History lists the newest transactions of userID, at most limit of them.
func (s *BalanceService) History(ctx context.Context, userID string, limit int) ([]*models.Transaction, error) {
	if limit <= 0 || limit > s.listLimit {
		limit = s.listLimit
	}
	return s.store.ListTransactions(ctx, userID, limit)
}
