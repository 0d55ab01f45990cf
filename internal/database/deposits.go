package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"crypto-deposit-reconcile-go/internal/models"
	"crypto-deposit-reconcile-go/internal/store"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// RecordDeposit inserts one confirmed transfer into the ledger. Dedup is
// enforced by the UNIQUE(tx_id, network, token_name) constraint, not by a
// check-then-insert, so overlapping cycles cannot double-record.
func (s *Service) RecordDeposit(ctx context.Context, params store.RecordDepositParams) (string, error) {
	if params.TxId == "" {
		return "", fmt.Errorf("tx_id cannot be empty")
	}
	if params.Amount <= 0 {
		return "", fmt.Errorf("deposit amount must be positive, got %d", params.Amount)
	}

	depositId := uuid.New().String()
	var vout sql.NullInt64
	if params.Vout != nil {
		vout = sql.NullInt64{Int64: *params.Vout, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, queryInsertDeposit,
		depositId, params.TxId, params.UserId, params.Network, params.TokenName, params.Amount, vout)
	if err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("%w: tx %s on %s", store.ErrDuplicateDeposit,
				params.TxId, store.DepositKey(params.Network, params.TokenName))
		}
		return "", fmt.Errorf("failed to insert deposit: %w", err)
	}

	zap.L().Info("Deposit recorded",
		zap.String("deposit_id", depositId),
		zap.String("tx_id", params.TxId),
		zap.String("user_id", params.UserId),
		zap.String("asset", store.DepositKey(params.Network, params.TokenName)),
		zap.Int64("amount", params.Amount))
	return depositId, nil
}

// ListDepositTxIds returns the recorded transaction ids grouped by
// (network, token) scope, for the engine's already-seen check.
func (s *Service) ListDepositTxIds(ctx context.Context, userId string) (map[string]map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, queryGetDepositTxIds, userId)
	if err != nil {
		return nil, fmt.Errorf("failed to query deposit tx ids: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}()

	known := make(map[string]map[string]struct{})
	for rows.Next() {
		var txId, network, tokenName string
		if err := rows.Scan(&txId, &network, &tokenName); err != nil {
			return nil, fmt.Errorf("failed to scan deposit tx id: %w", err)
		}
		key := store.DepositKey(network, tokenName)
		if known[key] == nil {
			known[key] = make(map[string]struct{})
		}
		known[key][txId] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deposit rows: %w", err)
	}

	return known, nil
}

// UncreditedDeposits returns deposits that are recorded but not yet
// converted into a balance credit, oldest first.
func (s *Service) UncreditedDeposits(ctx context.Context, userId string) ([]models.Deposit, error) {
	rows, err := s.db.QueryContext(ctx, queryGetUncreditedDeposits, userId)
	if err != nil {
		return nil, fmt.Errorf("failed to query uncredited deposits: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}()

	var deposits []models.Deposit
	for rows.Next() {
		var d models.Deposit
		if err := rows.Scan(&d.Id, &d.TxId, &d.UserId, &d.Network, &d.TokenName,
			&d.Amount, &d.Vout, &d.Credited, &d.CreditedAt, &d.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan deposit: %w", err)
		}
		deposits = append(deposits, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deposit rows: %w", err)
	}

	return deposits, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
