package services

import (
	"context"
	"errors"
	"testing"

	"transfer-ledger/internal/cache"
	"transfer-ledger/internal/models"
	"transfer-ledger/internal/store"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapCache struct {
	balances map[string]int64
}

func (c *mapCache) GetBalance(ctx context.Context, userID string) (int64, error) {
	b, ok := c.balances[userID]
	if !ok {
		return 0, cache.ErrMiss
	}
	return b, nil
}

func (c *mapCache) SetBalance(ctx context.Context, userID string, balance int64) error {
	c.balances[userID] = balance
	return nil
}

func (c *mapCache) Close() error { return nil }

func TestSynchronize_ConvergesToLogSum(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	balances := NewBalanceService(st, zerolog.Nop())

	user := seedUser(t, st, "alice", 10000)
	for _, amount := range []int64{-2500, 300, -800} {
		_, err := st.CreateTransaction(ctx, &models.Transaction{UserID: user.ID, Amount: amount})
		require.NoError(t, err)
	}

	balance, err := balances.Synchronize(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(7000), balance)
	assert.Equal(t, int64(7000), storedBalance(t, st, user.ID))

	// idempotent
	balance, err = balances.Synchronize(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(7000), balance)
}

func TestSynchronize_EmptyLogIsZero(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	balances := NewBalanceService(st, zerolog.Nop())

	user := seedUser(t, st, "empty", 0)
	require.NoError(t, st.UpdateUser(ctx, user.ID, store.UserUpdate{Balance: store.Int64(999)}))

	balance, err := balances.Synchronize(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, balance)
	assert.Zero(t, storedBalance(t, st, user.ID))
}

func TestSynchronize_SumsOnlyWithinListLimit(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	balances := NewBalanceService(st, zerolog.Nop(), WithListLimit(2))

	user := seedUser(t, st, "capped", 0)
	for _, amount := range []int64{100, 200, 400} {
		_, err := st.CreateTransaction(ctx, &models.Transaction{UserID: user.ID, Amount: amount})
		require.NoError(t, err)
	}

	balance, err := balances.Synchronize(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(600), balance)
}

func TestSynchronize_PropagatesStoreErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("storage offline")

	t.Run("list", func(t *testing.T) {
		st := &faultyStore{MemoryStore: store.NewMemoryStore()}
		user := seedUser(t, st, "alice", 100)
		st.listTransactions = func(context.Context, string, int) ([]*models.Transaction, error) {
			return nil, boom
		}

		_, err := NewBalanceService(st, zerolog.Nop()).Synchronize(ctx, user.ID)
		assert.ErrorIs(t, err, boom)
		assert.Zero(t, storedBalance(t, st, user.ID))
	})

	t.Run("update", func(t *testing.T) {
		st := &faultyStore{MemoryStore: store.NewMemoryStore()}
		user := seedUser(t, st, "bob", 100)
		st.updateUser = func(context.Context, string, store.UserUpdate) error { return boom }

		_, err := NewBalanceService(st, zerolog.Nop()).Synchronize(ctx, user.ID)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("unknown user", func(t *testing.T) {
		st := store.NewMemoryStore()
		_, err := NewBalanceService(st, zerolog.Nop()).Synchronize(ctx, "nobody")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestGetBalance_PrefersCache(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	c := &mapCache{balances: map[string]int64{}}
	balances := NewBalanceService(st, zerolog.Nop(), WithBalanceCache(c))

	user := seedUser(t, st, "alice", 10000)

	view, err := balances.GetBalance(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, view.Balance)

	view, err = balances.Refresh(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "€100.00", view.Display)
	assert.Equal(t, int64(10000), c.balances[user.ID])

	c.balances[user.ID] = 42
	view, err = balances.GetBalance(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(42), view.Balance)
}

func TestReconcileBalance(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	balances := NewBalanceService(st, zerolog.Nop())

	user := seedUser(t, st, "alice", 500)

	ok, err := balances.ReconcileBalance(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = balances.Synchronize(ctx, user.ID)
	require.NoError(t, err)

	ok, err = balances.ReconcileBalance(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHistory_ClampsLimit(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	balances := NewBalanceService(st, zerolog.Nop(), WithListLimit(3))

	user := seedUser(t, st, "alice", 0)
	for i := 0; i < 5; i++ {
		_, err := st.CreateTransaction(ctx, &models.Transaction{UserID: user.ID, Amount: 1})
		require.NoError(t, err)
	}

	txs, err := balances.History(ctx, user.ID, 100)
	require.NoError(t, err)
	assert.Len(t, txs, 3)

	txs, err = balances.History(ctx, user.ID, 2)
	require.NoError(t, err)
	assert.Len(t, txs, 2)
}
