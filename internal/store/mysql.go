package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"transfer-ledger/internal/models"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const mysqlDuplicateEntry = 1062

// SQLStore implements Store on MySQL. The pool must be opened with
// parseTime=true and clientFoundRows=true so that no-op updates still count a row;
// db.InitDB sets both.
type SQLStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewSQLStore(db *sql.DB, logger zerolog.Logger) *SQLStore {
	return &SQLStore{
		db:     db,
		logger: logger,
	}
}

const userColumns = "id, username, email, password_hash, role, balance, card_number, notifications_enabled, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var user models.User
	var cardNumber sql.NullString
	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.Role,
		&user.Balance, &cardNumber, &user.NotificationsEnabled, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.CardNumber = cardNumber.String
	return &user, nil
}

func (s *SQLStore) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	stored := *user
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users ("+userColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		stored.ID, stored.Username, stored.Email, stored.PasswordHash, stored.Role,
		stored.Balance, nullString(stored.CardNumber), stored.NotificationsEnabled, stored.CreatedAt, stored.UpdatedAt,
	)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
			return nil, fmt.Errorf("user %s: %w", stored.Email, ErrDuplicate)
		}
		s.logger.Error().Err(err).Str("email", stored.Email).Msg("Error creating user")
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &stored, nil
}

func (s *SQLStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", id).Msg("Error fetching user")
		return nil, fmt.Errorf("database error: %w", err)
	}
	return user, nil
}

func (s *SQLStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	if err != nil {
		s.logger.Error().Err(err).Str("email", email).Msg("Error fetching user by email")
		return nil, fmt.Errorf("database error: %w", err)
	}
	return user, nil
}

func (s *SQLStore) UpdateUser(ctx context.Context, id string, update UserUpdate) error {
	var sets []string
	var args []any
	if update.Balance != nil {
		sets = append(sets, "balance = ?")
		args = append(args, *update.Balance)
	}
	if update.NotificationsEnabled != nil {
		sets = append(sets, "notifications_enabled = ?")
		args = append(args, *update.NotificationsEnabled)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), id)

	result, err := s.db.ExecContext(ctx, "UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", id).Msg("Error updating user")
		return fmt.Errorf("failed to update user: %w", err)
	}
	return requireRow(result, "user", id)
}

const transactionColumns = "id, user_id, amount, counterparty, description, status_id, category_id, transfer_id, created_at"

func scanTransactions(rows *sql.Rows) ([]*models.Transaction, error) {
	var transactions []*models.Transaction
	for rows.Next() {
		var t models.Transaction
		var description, transferID sql.NullString
		err := rows.Scan(
			&t.ID, &t.UserID, &t.Amount, &t.Counterparty, &description,
			&t.StatusID, &t.CategoryID, &transferID, &t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning transaction: %w", err)
		}
		t.Description = description.String
		t.TransferID = transferID.String
		transactions = append(transactions, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return transactions, nil
}

func (s *SQLStore) ListTransactions(ctx context.Context, userID string, limit int) ([]*models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE user_id = ? ORDER BY created_at DESC LIMIT ?",
		userID, limit,
	)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Error listing transactions")
		return nil, fmt.Errorf("database error: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

func (s *SQLStore) ListTransactionsByTransfer(ctx context.Context, transferID string) ([]*models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE transfer_id = ? ORDER BY created_at ASC",
		transferID,
	)
	if err != nil {
		s.logger.Error().Err(err).Str("transfer_id", transferID).Msg("Error listing transfer legs")
		return nil, fmt.Errorf("database error: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

func (s *SQLStore) CreateTransaction(ctx context.Context, tx *models.Transaction) (*models.Transaction, error) {
	stored := *tx
	stored.ID = uuid.NewString()
	stored.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO transactions ("+transactionColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		stored.ID, stored.UserID, stored.Amount, stored.Counterparty, nullString(stored.Description),
		stored.StatusID, stored.CategoryID, nullString(stored.TransferID), stored.CreatedAt,
	)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", stored.UserID).Msg("Error creating transaction")
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	return &stored, nil
}

const transferColumns = "id, sender_user_id, receiver_user_id, amount, description, status_id, created_at"

func scanTransfer(row rowScanner) (*models.Transfer, error) {
	var t models.Transfer
	var description sql.NullString
	err := row.Scan(&t.ID, &t.SenderUserID, &t.ReceiverUserID, &t.Amount, &description, &t.StatusID, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	t.Description = description.String
	return &t, nil
}

func (s *SQLStore) GetTransfer(ctx context.Context, id string) (*models.Transfer, error) {
	transfer, err := scanTransfer(s.db.QueryRowContext(ctx, "SELECT "+transferColumns+" FROM transfers WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transfer %s: %w", id, ErrNotFound)
	}
	if err != nil {
		s.logger.Error().Err(err).Str("transfer_id", id).Msg("Error fetching transfer")
		return nil, fmt.Errorf("database error: %w", err)
	}
	return transfer, nil
}

func (s *SQLStore) CreateTransfer(ctx context.Context, transfer *models.Transfer) (*models.Transfer, error) {
	stored := *transfer
	stored.ID = uuid.NewString()
	stored.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO transfers ("+transferColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		stored.ID, stored.SenderUserID, stored.ReceiverUserID, stored.Amount,
		nullString(stored.Description), stored.StatusID, stored.CreatedAt,
	)
	if err != nil {
		s.logger.Error().Err(err).Str("sender_user_id", stored.SenderUserID).Msg("Error creating transfer")
		return nil, fmt.Errorf("failed to create transfer: %w", err)
	}
	return &stored, nil
}

func (s *SQLStore) UpdateTransfer(ctx context.Context, id string, update TransferUpdate) error {
	if update.StatusID == nil {
		return nil
	}

	result, err := s.db.ExecContext(ctx, "UPDATE transfers SET status_id = ? WHERE id = ?", *update.StatusID, id)
	if err != nil {
		s.logger.Error().Err(err).Str("transfer_id", id).Msg("Error updating transfer")
		return fmt.Errorf("failed to update transfer: %w", err)
	}
	return requireRow(result, "transfer", id)
}

func (s *SQLStore) ListTransfersByStatus(ctx context.Context, statusID string, olderThan time.Time, limit int) ([]*models.Transfer, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+transferColumns+" FROM transfers WHERE status_id = ? AND created_at < ? ORDER BY created_at ASC LIMIT ?",
		statusID, olderThan.UTC(), limit,
	)
	if err != nil {
		s.logger.Error().Err(err).Str("status_id", statusID).Msg("Error listing transfers")
		return nil, fmt.Errorf("database error: %w", err)
	}
	defer rows.Close()

	var transfers []*models.Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning transfer: %w", err)
		}
		transfers = append(transfers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transfers: %w", err)
	}
	return transfers, nil
}

func requireRow(result sql.Result, kind, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
