// Package store holds the persistence contract for users, transactions and
// transfers, and its MySQL and in-memory implementations.
//
// Each call is atomic for the single record it touches. No call spans records,
// so multi-record sequences built on top of a Store can be observed half done.
package store

import (
	"context"
	"errors"
	"time"

	"transfer-ledger/internal/models"
)

var (
	// ErrNotFound is returned (possibly wrapped) when the requested record does not exist.
	ErrNotFound = errors.New("store: record not found")

	// ErrDuplicate is returned when a unique attribute (user email) is already taken.
	ErrDuplicate = errors.New("store: duplicate record")
)

// UserUpdate carries the user fields to overwrite; nil fields are left untouched.
type UserUpdate struct {
	Balance              *int64
	NotificationsEnabled *bool
}

// TransferUpdate carries the transfer fields to overwrite; nil fields are left untouched.
type TransferUpdate struct {
	StatusID *string
}

// Store is the ledger persistence used by the balance synchronizer, the transfer
// engine and the reconciler.
type Store interface {
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, id string, update UserUpdate) error

	// ListTransactions returns at most limit transactions of userID, newest first.
	ListTransactions(ctx context.Context, userID string, limit int) ([]*models.Transaction, error)
	ListTransactionsByTransfer(ctx context.Context, transferID string) ([]*models.Transaction, error)
	// CreateTransaction assigns ID and CreatedAt and returns the stored record.
	CreateTransaction(ctx context.Context, tx *models.Transaction) (*models.Transaction, error)

	GetTransfer(ctx context.Context, id string) (*models.Transfer, error)
	// CreateTransfer assigns ID and CreatedAt and returns the stored record.
	CreateTransfer(ctx context.Context, transfer *models.Transfer) (*models.Transfer, error)
	UpdateTransfer(ctx context.Context, id string, update TransferUpdate) error
	// ListTransfersByStatus returns transfers with statusID created before olderThan, oldest first.
	ListTransfersByStatus(ctx context.Context, statusID string, olderThan time.Time, limit int) ([]*models.Transfer, error)
}

func Int64(v int64) *int64    { return &v }
func String(v string) *string { return &v }
func Bool(v bool) *bool       { return &v }
