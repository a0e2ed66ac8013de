package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"
)

// InitDB opens the MySQL pool. parseTime and clientFoundRows are forced on
// whatever the DSN says; store.SQLStore depends on both.
func InitDB(dbURL string, logger zerolog.Logger) *sql.DB {
	dsn, err := normalizeDSN(dbURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid database URL")
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		logger.Fatal().Err(err).Msg("Could not open database")
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	err = db.Ping()
	if err != nil {
		logger.Fatal().Err(err).Msg("Database is not responding")
	}

	logger.Info().Msg("Connected to database")
	return db
}

func normalizeDSN(dbURL string) (string, error) {
	cfg, err := mysql.ParseDSN(dbURL)
	if err != nil {
		return "", fmt.Errorf("parse dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.ClientFoundRows = true
	return cfg.FormatDSN(), nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id CHAR(36) PRIMARY KEY,
		username VARCHAR(100) NOT NULL,
		email VARCHAR(255) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		role VARCHAR(50) NOT NULL,
		balance BIGINT NOT NULL DEFAULT 0,
		card_number VARCHAR(32),
		notifications_enabled BOOLEAN NOT NULL DEFAULT TRUE,
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id CHAR(36) PRIMARY KEY,
		user_id CHAR(36) NOT NULL,
		amount BIGINT NOT NULL,
		counterparty VARCHAR(255) NOT NULL,
		description VARCHAR(255),
		status_id VARCHAR(64) NOT NULL,
		category_id VARCHAR(64) NOT NULL,
		transfer_id CHAR(36),
		created_at DATETIME(6) NOT NULL,
		INDEX idx_transactions_user_created (user_id, created_at),
		INDEX idx_transactions_transfer (transfer_id)
	);`,
	`CREATE TABLE IF NOT EXISTS transfers (
		id CHAR(36) PRIMARY KEY,
		sender_user_id CHAR(36) NOT NULL,
		receiver_user_id CHAR(36) NOT NULL,
		amount BIGINT NOT NULL,
		description VARCHAR(255),
		status_id VARCHAR(64) NOT NULL,
		created_at DATETIME(6) NOT NULL,
		INDEX idx_transfers_status_created (status_id, created_at)
	);`,
}

func RunMigrations(db *sql.DB, logger zerolog.Logger) {
	for _, q := range migrations {
		_, err := db.Exec(q)
		if err != nil {
			logger.Fatal().Err(err).Msg("Migration failed")
		}
	}
	logger.Info().Int("statements", len(migrations)).Msg("Migrations completed")
}
