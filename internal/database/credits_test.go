package database

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"crypto-deposit-reconcile-go/internal/store"

	"github.com/shopspring/decimal"
)

func recordTestDeposit(t *testing.T, service *Service, userId, txId string, amount int64) string {
	depositId, err := service.RecordDeposit(context.Background(), store.RecordDepositParams{
		TxId: txId, UserId: userId, Network: "BTC", Amount: amount,
	})
	if err != nil {
		t.Fatalf("RecordDeposit failed: %v", err)
	}
	return depositId
}

func TestApplyCredit_UpdatesBalanceAndMarksDeposits(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, service)
	depositId := recordTestDeposit(t, service, user.Id, "tx1", 250000000)

	event, err := service.ApplyCredit(ctx, store.ApplyCreditParams{
		UserId:     user.Id,
		FiatAmount: decimal.NewFromFloat(107.5),
		Breakdown:  `{"BTC":"2.5"}`,
		DepositIds: []string{depositId},
	})
	if err != nil {
		t.Fatalf("ApplyCredit failed: %v", err)
	}

	if !event.BalanceBefore.Equal(decimal.Zero) {
		t.Errorf("Expected balance before 0, got %s", event.BalanceBefore.String())
	}
	if !event.BalanceAfter.Equal(decimal.NewFromFloat(107.5)) {
		t.Errorf("Expected balance after 107.5, got %s", event.BalanceAfter.String())
	}

	updated, err := service.GetUserById(ctx, user.Id)
	if err != nil {
		t.Fatalf("GetUserById failed: %v", err)
	}
	if !updated.TopUpAmount.Equal(decimal.NewFromFloat(107.5)) {
		t.Errorf("Expected top-up amount 107.5, got %s", updated.TopUpAmount.String())
	}
	if updated.Version != user.Version+1 {
		t.Errorf("Expected version %d, got %d", user.Version+1, updated.Version)
	}

	uncredited, err := service.UncreditedDeposits(ctx, user.Id)
	if err != nil {
		t.Fatalf("UncreditedDeposits failed: %v", err)
	}
	if len(uncredited) != 0 {
		t.Errorf("Expected no uncredited deposits after credit, got %d", len(uncredited))
	}
}

func TestApplyCredit_BalanceOnlyGrows(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, service)

	for _, amount := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-5)} {
		_, err := service.ApplyCredit(ctx, store.ApplyCreditParams{
			UserId:     user.Id,
			FiatAmount: amount,
		})
		if !errors.Is(err, store.ErrNegativeCredit) {
			t.Errorf("Expected ErrNegativeCredit for %s, got %v", amount.String(), err)
		}
	}

	updated, err := service.GetUserById(ctx, user.Id)
	if err != nil {
		t.Fatalf("GetUserById failed: %v", err)
	}
	if !updated.TopUpAmount.Equal(decimal.Zero) {
		t.Errorf("Balance must be unchanged, got %s", updated.TopUpAmount.String())
	}
}

func TestApplyCredit_AlreadyCreditedDeposit(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, service)
	depositId := recordTestDeposit(t, service, user.Id, "tx1", 100)

	params := store.ApplyCreditParams{
		UserId:     user.Id,
		FiatAmount: decimal.NewFromInt(10),
		DepositIds: []string{depositId},
	}
	if _, err := service.ApplyCredit(ctx, params); err != nil {
		t.Fatalf("First ApplyCredit failed: %v", err)
	}

	// A second cycle computed from the same deposit rows must not double
	// credit: marking an already-credited row affects zero rows.
	_, err := service.ApplyCredit(ctx, params)
	if !errors.Is(err, store.ErrConcurrentModification) {
		t.Errorf("Expected ErrConcurrentModification, got %v", err)
	}

	updated, err := service.GetUserById(ctx, user.Id)
	if err != nil {
		t.Fatalf("GetUserById failed: %v", err)
	}
	if !updated.TopUpAmount.Equal(decimal.NewFromInt(10)) {
		t.Errorf("Expected balance 10 after rolled-back retry, got %s", updated.TopUpAmount.String())
	}
}

func TestApplyCredit_UnknownUser(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := service.ApplyCredit(context.Background(), store.ApplyCreditParams{
		UserId:     "nonexistent",
		FiatAmount: decimal.NewFromInt(10),
	})
	if !errors.Is(err, store.ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}
}

func TestGetCreditEvents_LimitAndOrder(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, service)

	for i := 0; i < 3; i++ {
		depositId := recordTestDeposit(t, service, user.Id, fmt.Sprintf("tx%d", i), 100)
		_, err := service.ApplyCredit(ctx, store.ApplyCreditParams{
			UserId:     user.Id,
			FiatAmount: decimal.NewFromInt(int64(i + 1)),
			DepositIds: []string{depositId},
		})
		if err != nil {
			t.Fatalf("ApplyCredit %d failed: %v", i, err)
		}
	}

	events, err := service.GetCreditEvents(ctx, user.Id, 2)
	if err != nil {
		t.Fatalf("GetCreditEvents failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}
}
