package store

import (
	"context"
	"errors"

	"crypto-deposit-reconcile-go/internal/models"

	"github.com/shopspring/decimal"
)

// Sentinel errors shared across backend implementations.
var (
	// ErrDuplicateDeposit means the (tx_id, network, token_name) triple is
	// already recorded. Expected during overlapping cycles; never a fault.
	ErrDuplicateDeposit       = errors.New("duplicate deposit")
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrUserNotFound           = errors.New("user not found")
	ErrNegativeCredit         = errors.New("credit delta must be positive")
)

// DepositKey groups deposits by their (network, token) scope. An empty
// token name means the network's native asset.
func DepositKey(network, tokenName string) string {
	if tokenName == "" {
		return network
	}
	return network + "/" + tokenName
}

// RecordDepositParams contains the parameters for recording one confirmed
// on-chain transfer. Amount is the smallest on-chain unit.
type RecordDepositParams struct {
	TxId      string
	UserId    string
	Network   string
	TokenName string
	Amount    int64
	Vout      *int64
}

// ApplyCreditParams contains the parameters for one balance credit: the
// fiat delta plus the deposit rows the delta was computed from, which are
// marked credited in the same transaction.
type ApplyCreditParams struct {
	UserId     string
	FiatAmount decimal.Decimal
	Breakdown  string
	DepositIds []string
}

// DepositStore defines the contract the reconciliation engine and the
// command-line tools depend on.
type DepositStore interface {
	// --- Users ---
	CreateUser(ctx context.Context, name string) (*models.User, error)
	GetUsers(ctx context.Context) ([]models.User, error)
	GetUserById(ctx context.Context, userId string) (*models.User, error)

	// --- Addresses ---
	StoreAddress(ctx context.Context, userId, network, address string) (*models.Address, error)
	GetUserAddresses(ctx context.Context, userId string) ([]models.Address, error)

	// --- Deposit ledger ---
	RecordDeposit(ctx context.Context, params RecordDepositParams) (string, error)
	ListDepositTxIds(ctx context.Context, userId string) (map[string]map[string]struct{}, error)
	UncreditedDeposits(ctx context.Context, userId string) ([]models.Deposit, error)

	// --- Balance ---
	ApplyCredit(ctx context.Context, params ApplyCreditParams) (*models.CreditEvent, error)
	GetCreditEvents(ctx context.Context, userId string, limit int) ([]models.CreditEvent, error)

	// --- Lifecycle ---
	Close()
}
