package database

import (
	"context"
	"database/sql"
	"fmt"

	"crypto-deposit-reconcile-go/internal/models"
	"crypto-deposit-reconcile-go/internal/store"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.DepositStore.
var _ store.DepositStore = (*Service)(nil)

type Service struct {
	db *sql.DB
}

func NewService(ctx context.Context, cfg models.DatabaseConfig) (*Service, error) {
	// Validate configuration
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}

	zap.L().Info("Opening SQLite database", zap.String("file", cfg.Path))
	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=1000")
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	service := &Service{db: db}
	if err := service.initSchema(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	zap.L().Info("Database service initialized successfully")
	return service, nil
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

func (s *Service) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		top_up_amount TEXT NOT NULL DEFAULT '0',
		version INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- One deposit address per network per user
	CREATE TABLE IF NOT EXISTS addresses (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		network TEXT NOT NULL,
		address TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(user_id, network)
	);

	CREATE INDEX IF NOT EXISTS idx_addresses_user ON addresses(user_id);
	CREATE INDEX IF NOT EXISTS idx_addresses_address ON addresses(address);

	-- Append-only deposit ledger. token_name is NOT NULL with '' meaning
	-- the native asset: SQLite treats NULLs as distinct inside UNIQUE, so a
	-- nullable column would not enforce at-most-once recording.
	CREATE TABLE IF NOT EXISTS deposits (
		id TEXT PRIMARY KEY,
		tx_id TEXT NOT NULL,
		user_id TEXT NOT NULL REFERENCES users(id),
		network TEXT NOT NULL,
		token_name TEXT NOT NULL DEFAULT '',
		amount INTEGER NOT NULL,
		vout INTEGER,
		credited INTEGER NOT NULL DEFAULT 0,
		credited_at TIMESTAMP,
		recorded_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(tx_id, network, token_name)
	);

	CREATE INDEX IF NOT EXISTS idx_deposits_user ON deposits(user_id);
	CREATE INDEX IF NOT EXISTS idx_deposits_user_uncredited ON deposits(user_id, credited);

	-- One row per reconciliation cycle that credited a non-zero amount
	CREATE TABLE IF NOT EXISTS credit_events (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		fiat_amount TEXT NOT NULL,
		breakdown TEXT NOT NULL DEFAULT '',
		balance_before TEXT NOT NULL,
		balance_after TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_credit_events_user ON credit_events(user_id);
	`

	_, err := s.db.Exec(schema)
	return err
}
