package services

import (
	"context"
	"testing"
	"time"

	"transfer-ledger/internal/config"
	"transfer-ledger/internal/models"
	"transfer-ledger/internal/store"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var (
	testStatuses = config.StatusIDs{
		Pending:   "st-pending",
		Completed: "st-completed",
		Rejected:  "st-rejected",
	}
	testCategories = config.CategoryIDs{
		Transfer: "cat-transfer",
		Deposit:  "cat-deposit",
	}
)

// faultyStore lets a test replace individual Store calls.
type faultyStore struct {
	*store.MemoryStore
	createTransaction func(ctx context.Context, tx *models.Transaction) (*models.Transaction, error)
	listTransactions  func(ctx context.Context, userID string, limit int) ([]*models.Transaction, error)
	updateUser        func(ctx context.Context, id string, update store.UserUpdate) error
	updateTransfer    func(ctx context.Context, id string, update store.TransferUpdate) error
}

func (f *faultyStore) CreateTransaction(ctx context.Context, tx *models.Transaction) (*models.Transaction, error) {
	if f.createTransaction != nil {
		return f.createTransaction(ctx, tx)
	}
	return f.MemoryStore.CreateTransaction(ctx, tx)
}

func (f *faultyStore) ListTransactions(ctx context.Context, userID string, limit int) ([]*models.Transaction, error) {
	if f.listTransactions != nil {
		return f.listTransactions(ctx, userID, limit)
	}
	return f.MemoryStore.ListTransactions(ctx, userID, limit)
}

func (f *faultyStore) UpdateUser(ctx context.Context, id string, update store.UserUpdate) error {
	if f.updateUser != nil {
		return f.updateUser(ctx, id, update)
	}
	return f.MemoryStore.UpdateUser(ctx, id, update)
}

func (f *faultyStore) UpdateTransfer(ctx context.Context, id string, update store.TransferUpdate) error {
	if f.updateTransfer != nil {
		return f.updateTransfer(ctx, id, update)
	}
	return f.MemoryStore.UpdateTransfer(ctx, id, update)
}

// seedUser creates a user whose log holds a single deposit of balance minor units.
// The stored balance is left at zero so tests can observe synchronization.
func seedUser(t *testing.T, st store.Store, name string, balance int64) *models.User {
	t.Helper()
	ctx := context.Background()

	user, err := st.CreateUser(ctx, &models.User{
		Username: name,
		Email:    name + "@example.com",
		Role:     string(models.RoleUser),
	})
	require.NoError(t, err)

	if balance != 0 {
		_, err = st.CreateTransaction(ctx, &models.Transaction{
			UserID:       user.ID,
			Amount:       balance,
			Counterparty: "Deposit",
			StatusID:     testStatuses.Completed,
			CategoryID:   testCategories.Deposit,
		})
		require.NoError(t, err)
	}
	return user
}

func newTestServices(st store.Store) (*BalanceService, *TransferService) {
	logger := zerolog.Nop()
	balances := NewBalanceService(st, logger)
	transfers := NewTransferService(st, balances, testStatuses, testCategories, nil, logger)
	return balances, transfers
}

func storedBalance(t *testing.T, st store.Store, userID string) int64 {
	t.Helper()
	user, err := st.GetUser(context.Background(), userID)
	require.NoError(t, err)
	return user.Balance
}

func farFuture() time.Time {
	return time.Now().Add(24 * time.Hour)
}
