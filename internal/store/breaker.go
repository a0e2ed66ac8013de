package store

import (
	"context"
	"errors"
	"time"

	"transfer-ledger/internal/metrics"
	"transfer-ledger/internal/models"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// ErrUnavailable is returned while the circuit breaker rejects calls.
var ErrUnavailable = errors.New("store: unavailable")

type BreakerConfig struct {
	// Timeout bounds every store call; 0 disables it.
	Timeout time.Duration
	// MaxRequests allowed through while half-open.
	MaxRequests uint32
	// Interval after which closed-state counts are cleared.
	Interval time.Duration
	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration
	// ConsecutiveFailures trips the breaker.
	ConsecutiveFailures uint32
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Timeout:             5 * time.Second,
		MaxRequests:         1,
		Interval:            60 * time.Second,
		OpenTimeout:         30 * time.Second,
		ConsecutiveFailures: 5,
	}
}

// BreakerStore wraps a Store with a per-call timeout and a circuit breaker.
// Not-found and duplicate results count as successes.
type BreakerStore struct {
	next    Store
	cb      *gobreaker.CircuitBreaker
	timeout time.Duration
}

func NewBreakerStore(next Store, cfg BreakerConfig, collector metrics.Collector, logger zerolog.Logger) *BreakerStore {
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}

	settings := gobreaker.Settings{
		Name:        "ledger-store",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicate)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Store circuit breaker state changed")
			collector.RecordStoreCircuitState(to.String())
		},
	}

	return &BreakerStore{
		next:    next,
		cb:      gobreaker.NewCircuitBreaker(settings),
		timeout: cfg.Timeout,
	}
}

func call[T any](b *BreakerStore, ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	result, err := b.cb.Execute(func() (interface{}, error) {
		return fn(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		var zero T
		return zero, errors.Join(ErrUnavailable, err)
	}
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}

func exec(b *BreakerStore, ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := call(b, ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

func (b *BreakerStore) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	return call(b, ctx, func(ctx context.Context) (*models.User, error) {
		return b.next.CreateUser(ctx, user)
	})
}

func (b *BreakerStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	return call(b, ctx, func(ctx context.Context) (*models.User, error) {
		return b.next.GetUser(ctx, id)
	})
}

func (b *BreakerStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return call(b, ctx, func(ctx context.Context) (*models.User, error) {
		return b.next.GetUserByEmail(ctx, email)
	})
}

func (b *BreakerStore) UpdateUser(ctx context.Context, id string, update UserUpdate) error {
	return exec(b, ctx, func(ctx context.Context) error {
		return b.next.UpdateUser(ctx, id, update)
	})
}

func (b *BreakerStore) ListTransactions(ctx context.Context, userID string, limit int) ([]*models.Transaction, error) {
	return call(b, ctx, func(ctx context.Context) ([]*models.Transaction, error) {
		return b.next.ListTransactions(ctx, userID, limit)
	})
}

func (b *BreakerStore) ListTransactionsByTransfer(ctx context.Context, transferID string) ([]*models.Transaction, error) {
	return call(b, ctx, func(ctx context.Context) ([]*models.Transaction, error) {
		return b.next.ListTransactionsByTransfer(ctx, transferID)
	})
}

func (b *BreakerStore) CreateTransaction(ctx context.Context, tx *models.Transaction) (*models.Transaction, error) {
	return call(b, ctx, func(ctx context.Context) (*models.Transaction, error) {
		return b.next.CreateTransaction(ctx, tx)
	})
}

func (b *BreakerStore) GetTransfer(ctx context.Context, id string) (*models.Transfer, error) {
	return call(b, ctx, func(ctx context.Context) (*models.Transfer, error) {
		return b.next.GetTransfer(ctx, id)
	})
}

func (b *BreakerStore) CreateTransfer(ctx context.Context, transfer *models.Transfer) (*models.Transfer, error) {
	return call(b, ctx, func(ctx context.Context) (*models.Transfer, error) {
		return b.next.CreateTransfer(ctx, transfer)
	})
}

func (b *BreakerStore) UpdateTransfer(ctx context.Context, id string, update TransferUpdate) error {
	return exec(b, ctx, func(ctx context.Context) error {
		return b.next.UpdateTransfer(ctx, id, update)
	})
}

func (b *BreakerStore) ListTransfersByStatus(ctx context.Context, statusID string, olderThan time.Time, limit int) ([]*models.Transfer, error) {
	return call(b, ctx, func(ctx context.Context) ([]*models.Transfer, error) {
		return b.next.ListTransfersByStatus(ctx, statusID, olderThan, limit)
	})
}
