package store

import (
	"testing"
)

func TestDepositKey(t *testing.T) {
	if got := DepositKey("BTC", ""); got != "BTC" {
		t.Errorf("Expected BTC, got %s", got)
	}
	if got := DepositKey("TRX", "USDT_TRC20"); got != "TRX/USDT_TRC20" {
		t.Errorf("Expected TRX/USDT_TRC20, got %s", got)
	}
}

// Compile-time checks that the interface is importable and usable.
func TestDepositStoreInterfaceExists(t *testing.T) {
	_ = ErrDuplicateDeposit
	_ = ErrConcurrentModification
	_ = ErrUserNotFound
	_ = ErrNegativeCredit
	_ = RecordDepositParams{}
	_ = ApplyCreditParams{}

	var _ DepositStore
}
