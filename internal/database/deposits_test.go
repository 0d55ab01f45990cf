package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"crypto-deposit-reconcile-go/internal/models"
	"crypto-deposit-reconcile-go/internal/store"

	_ "github.com/mattn/go-sqlite3"
)

func setupTestDB(t *testing.T) (*Service, func()) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	service := &Service{db: db}
	if err := service.initSchema(); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	cleanup := func() {
		db.Close()
	}

	return service, cleanup
}

func createTestUser(t *testing.T, service *Service) *models.User {
	user, err := service.CreateUser(context.Background(), "Test User")
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

func TestRecordDeposit_Duplicate(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, service)

	params := store.RecordDepositParams{
		TxId:    "tx1",
		UserId:  user.Id,
		Network: "BTC",
		Amount:  250000000,
	}
	if _, err := service.RecordDeposit(ctx, params); err != nil {
		t.Fatalf("First RecordDeposit failed: %v", err)
	}

	_, err := service.RecordDeposit(ctx, params)
	if !errors.Is(err, store.ErrDuplicateDeposit) {
		t.Errorf("Expected ErrDuplicateDeposit, got %v", err)
	}
}

func TestRecordDeposit_SameTxDifferentToken(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, service)

	// A TRX transaction can carry both a native transfer and a token
	// transfer; the ledger keys on (tx_id, network, token_name).
	_, err := service.RecordDeposit(ctx, store.RecordDepositParams{
		TxId: "tx1", UserId: user.Id, Network: "TRX", Amount: 1000000,
	})
	if err != nil {
		t.Fatalf("Native deposit failed: %v", err)
	}

	_, err = service.RecordDeposit(ctx, store.RecordDepositParams{
		TxId: "tx1", UserId: user.Id, Network: "TRX", TokenName: "USDT_TRC20", Amount: 5000000,
	})
	if err != nil {
		t.Errorf("Token deposit with same tx_id should be distinct, got %v", err)
	}
}

func TestRecordDeposit_RejectsInvalid(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, service)

	if _, err := service.RecordDeposit(ctx, store.RecordDepositParams{
		UserId: user.Id, Network: "BTC", Amount: 100,
	}); err == nil {
		t.Error("Expected error for empty tx_id")
	}

	if _, err := service.RecordDeposit(ctx, store.RecordDepositParams{
		TxId: "tx1", UserId: user.Id, Network: "BTC", Amount: 0,
	}); err == nil {
		t.Error("Expected error for non-positive amount")
	}
}

func TestListDepositTxIds_GroupedByScope(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, service)

	deposits := []store.RecordDepositParams{
		{TxId: "tx1", UserId: user.Id, Network: "BTC", Amount: 100},
		{TxId: "tx2", UserId: user.Id, Network: "BTC", Amount: 200},
		{TxId: "tx3", UserId: user.Id, Network: "TRX", TokenName: "USDT_TRC20", Amount: 300},
	}
	for _, params := range deposits {
		if _, err := service.RecordDeposit(ctx, params); err != nil {
			t.Fatalf("RecordDeposit failed: %v", err)
		}
	}

	known, err := service.ListDepositTxIds(ctx, user.Id)
	if err != nil {
		t.Fatalf("ListDepositTxIds failed: %v", err)
	}

	if len(known["BTC"]) != 2 {
		t.Errorf("Expected 2 BTC tx ids, got %d", len(known["BTC"]))
	}
	if _, ok := known["TRX/USDT_TRC20"]["tx3"]; !ok {
		t.Error("Expected tx3 under TRX/USDT_TRC20 scope")
	}
}

func TestUncreditedDeposits(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, service)

	vout := int64(1)
	depositId, err := service.RecordDeposit(ctx, store.RecordDepositParams{
		TxId: "tx1", UserId: user.Id, Network: "BTC", Amount: 100, Vout: &vout,
	})
	if err != nil {
		t.Fatalf("RecordDeposit failed: %v", err)
	}

	uncredited, err := service.UncreditedDeposits(ctx, user.Id)
	if err != nil {
		t.Fatalf("UncreditedDeposits failed: %v", err)
	}
	if len(uncredited) != 1 {
		t.Fatalf("Expected 1 uncredited deposit, got %d", len(uncredited))
	}
	if uncredited[0].Id != depositId {
		t.Errorf("Expected deposit %s, got %s", depositId, uncredited[0].Id)
	}
	if !uncredited[0].Vout.Valid || uncredited[0].Vout.Int64 != 1 {
		t.Errorf("Expected vout 1, got %+v", uncredited[0].Vout)
	}
	if uncredited[0].Credited {
		t.Error("Freshly recorded deposit must not be credited")
	}
}
