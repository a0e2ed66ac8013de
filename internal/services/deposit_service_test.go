package services

import (
	"context"
	"testing"

	"transfer-ledger/internal/store"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeposit(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	balances, _ := newTestServices(st)
	deposits := NewDepositService(st, balances, testStatuses, testCategories, zerolog.Nop())

	user := seedUser(t, st, "alice", 0)

	tx, balance, err := deposits.Deposit(ctx, user.ID, 10000, "")
	require.NoError(t, err)
	assert.Equal(t, int64(10000), balance)
	assert.Equal(t, "Deposit", tx.Counterparty)
	assert.Equal(t, testCategories.Deposit, tx.CategoryID)
	assert.Equal(t, testStatuses.Completed, tx.StatusID)
	assert.Empty(t, tx.TransferID)

	_, balance, err = deposits.Deposit(ctx, user.ID, 550, "Salary")
	require.NoError(t, err)
	assert.Equal(t, int64(10550), balance)
	assert.Equal(t, int64(10550), storedBalance(t, st, user.ID))
}

func TestDeposit_Rejects(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	balances, _ := newTestServices(st)
	deposits := NewDepositService(st, balances, testStatuses, testCategories, zerolog.Nop())

	user := seedUser(t, st, "alice", 0)

	_, _, err := deposits.Deposit(ctx, user.ID, 0, "")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, _, err = deposits.Deposit(ctx, "nobody", 100, "")
	assert.ErrorIs(t, err, store.ErrNotFound)

	txs, err := st.ListTransactions(ctx, user.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, txs)
}
