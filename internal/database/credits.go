package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"crypto-deposit-reconcile-go/internal/models"
	"crypto-deposit-reconcile-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ApplyCredit atomically adds a fiat delta to the user's running balance,
// marks the source deposit rows credited and records a credit event. The
// balance update uses optimistic version locking so two overlapping cycles
// cannot both apply; the loser gets ErrConcurrentModification and retries
// on its next cycle.
func (s *Service) ApplyCredit(ctx context.Context, params store.ApplyCreditParams) (*models.CreditEvent, error) {
	if params.FiatAmount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: got %s", store.ErrNegativeCredit, params.FiatAmount.String())
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var balanceStr string
	var version int64
	err = tx.QueryRowContext(ctx, queryGetUserBalance, params.UserId).Scan(&balanceStr, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", store.ErrUserNotFound, params.UserId)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get current balance: %w", err)
	}

	currentBalance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse current balance %q: %w", balanceStr, err)
	}
	newBalance := currentBalance.Add(params.FiatAmount)

	result, err := tx.ExecContext(ctx, queryUpdateUserBalance, newBalance.String(), params.UserId, version)
	if err != nil {
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, fmt.Errorf("balance update failed - %w", store.ErrConcurrentModification)
	}

	for _, depositId := range params.DepositIds {
		result, err := tx.ExecContext(ctx, queryMarkDepositCredited, depositId)
		if err != nil {
			return nil, fmt.Errorf("failed to mark deposit %s credited: %w", depositId, err)
		}
		marked, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to check rows affected: %w", err)
		}
		if marked == 0 {
			// Another cycle credited this row between our read and write.
			return nil, fmt.Errorf("deposit %s already credited - %w", depositId, store.ErrConcurrentModification)
		}
	}

	event := &models.CreditEvent{
		Id:            uuid.New().String(),
		UserId:        params.UserId,
		FiatAmount:    params.FiatAmount,
		Breakdown:     params.Breakdown,
		BalanceBefore: currentBalance,
		BalanceAfter:  newBalance,
		CreatedAt:     time.Now().UTC(),
	}
	_, err = tx.ExecContext(ctx, queryInsertCreditEvent,
		event.Id, event.UserId, event.FiatAmount.String(), event.Breakdown,
		event.BalanceBefore.String(), event.BalanceAfter.String())
	if err != nil {
		return nil, fmt.Errorf("failed to insert credit event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Credit applied",
		zap.String("user_id", params.UserId),
		zap.String("fiat_amount", params.FiatAmount.String()),
		zap.String("old_balance", currentBalance.String()),
		zap.String("new_balance", newBalance.String()),
		zap.Int("deposits_credited", len(params.DepositIds)))
	return event, nil
}

func (s *Service) GetCreditEvents(ctx context.Context, userId string, limit int) ([]models.CreditEvent, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, queryGetCreditEvents, userId, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query credit events: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}()

	var events []models.CreditEvent
	for rows.Next() {
		var event models.CreditEvent
		var fiatStr, beforeStr, afterStr string
		if err := rows.Scan(&event.Id, &event.UserId, &fiatStr, &event.Breakdown,
			&beforeStr, &afterStr, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan credit event: %w", err)
		}

		if event.FiatAmount, err = decimal.NewFromString(fiatStr); err != nil {
			return nil, fmt.Errorf("failed to parse fiat amount %q: %w", fiatStr, err)
		}
		if event.BalanceBefore, err = decimal.NewFromString(beforeStr); err != nil {
			return nil, fmt.Errorf("failed to parse balance before %q: %w", beforeStr, err)
		}
		if event.BalanceAfter, err = decimal.NewFromString(afterStr); err != nil {
			return nil, fmt.Errorf("failed to parse balance after %q: %w", afterStr, err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating credit event rows: %w", err)
	}

	return events, nil
}
