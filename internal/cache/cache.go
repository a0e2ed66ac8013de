// Package cache holds the balance view handed to UI callers after a refresh.
// It is never consulted by the transfer engine, which always recomputes balances
// from the transaction log.
package cache

import (
	"context"
	"errors"
)

var ErrMiss = errors.New("cache: miss")

type BalanceCache interface {
	// GetBalance returns ErrMiss when nothing is cached for userID.
	GetBalance(ctx context.Context, userID string) (int64, error)
	SetBalance(ctx context.Context, userID string, balance int64) error
	Close() error
}

// NoOpCache never stores anything.
type NoOpCache struct{}

func (NoOpCache) GetBalance(ctx context.Context, userID string) (int64, error) { return 0, ErrMiss }
func (NoOpCache) SetBalance(ctx context.Context, userID string, balance int64) error {
	return nil
}
func (NoOpCache) Close() error { return nil }
