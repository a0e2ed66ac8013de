package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"transfer-ledger/internal/models"

	"github.com/google/uuid"
)

// MemoryStore keeps everything in process memory. Records are copied on the way in
// and out so callers never share state with the store.
type MemoryStore struct {
	mu           sync.RWMutex
	users        map[string]*models.User
	transactions []*models.Transaction
	transfers    map[string]*models.Transfer
	now          func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[string]*models.User),
		transfers: make(map[string]*models.Transfer),
		now:       time.Now,
	}
}

// WithClock replaces the timestamp source; intended for tests.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

func (s *MemoryStore) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return nil, fmt.Errorf("user %s: %w", user.Email, ErrDuplicate)
		}
	}

	stored := *user
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	now := s.now()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.users[stored.ID] = &stored

	out := stored
	return &out, nil
}

func (s *MemoryStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	out := *u
	return &out, nil
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			out := *u
			return &out, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
}

func (s *MemoryStore) UpdateUser(ctx context.Context, id string, update UserUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	if update.Balance != nil {
		u.Balance = *update.Balance
	}
	if update.NotificationsEnabled != nil {
		u.NotificationsEnabled = *update.NotificationsEnabled
	}
	u.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) ListTransactions(ctx context.Context, userID string, limit int) ([]*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Transaction
	// newest first; ties keep reverse insertion order
	for i := len(s.transactions) - 1; i >= 0; i-- {
		t := s.transactions[i]
		if t.UserID != userID {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) ListTransactionsByTransfer(ctx context.Context, transferID string) ([]*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Transaction
	for _, t := range s.transactions {
		if t.TransferID == transferID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemoryStore) CreateTransaction(ctx context.Context, tx *models.Transaction) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *tx
	stored.ID = uuid.NewString()
	stored.CreatedAt = s.now()
	s.transactions = append(s.transactions, &stored)

	out := stored
	return &out, nil
}

func (s *MemoryStore) GetTransfer(ctx context.Context, id string) (*models.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.transfers[id]
	if !ok {
		return nil, fmt.Errorf("transfer %s: %w", id, ErrNotFound)
	}
	out := *t
	return &out, nil
}

func (s *MemoryStore) CreateTransfer(ctx context.Context, transfer *models.Transfer) (*models.Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *transfer
	stored.ID = uuid.NewString()
	stored.CreatedAt = s.now()
	s.transfers[stored.ID] = &stored

	out := stored
	return &out, nil
}

func (s *MemoryStore) UpdateTransfer(ctx context.Context, id string, update TransferUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.transfers[id]
	if !ok {
		return fmt.Errorf("transfer %s: %w", id, ErrNotFound)
	}
	if update.StatusID != nil {
		t.StatusID = *update.StatusID
	}
	return nil
}

func (s *MemoryStore) ListTransfersByStatus(ctx context.Context, statusID string, olderThan time.Time, limit int) ([]*models.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Transfer
	for _, t := range s.transfers {
		if t.StatusID == statusID && t.CreatedAt.Before(olderThan) {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
