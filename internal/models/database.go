package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// User represents a store customer whose deposit addresses we watch
type User struct {
	Id          string          `db:"id"`
	Name        string          `db:"name"`
	TopUpAmount decimal.Decimal `db:"top_up_amount"`
	Version     int64           `db:"version"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

// Address represents a user's deposit address on one network
type Address struct {
	Id        string    `db:"id"`
	UserId    string    `db:"user_id"`
	Network   string    `db:"network"`
	Address   string    `db:"address"`
	CreatedAt time.Time `db:"created_at"`
}

// Deposit is one confirmed on-chain transfer credited to a user.
// Amount is always the smallest on-chain unit (satoshi, wei, sun, ...).
// Rows are append-only; only the credited flag ever changes.
type Deposit struct {
	Id         string        `db:"id"`
	TxId       string        `db:"tx_id"`
	UserId     string        `db:"user_id"`
	Network    string        `db:"network"`
	TokenName  string        `db:"token_name"` // empty means the network's native asset
	Amount     int64         `db:"amount"`
	Vout       sql.NullInt64 `db:"vout"`
	Credited   bool          `db:"credited"`
	CreditedAt sql.NullTime  `db:"credited_at"`
	RecordedAt time.Time     `db:"recorded_at"`
}

// CreditEvent records one applied balance credit (audit trail)
type CreditEvent struct {
	Id            string          `db:"id"`
	UserId        string          `db:"user_id"`
	FiatAmount    decimal.Decimal `db:"fiat_amount"`
	Breakdown     string          `db:"breakdown"`
	BalanceBefore decimal.Decimal `db:"balance_before"`
	BalanceAfter  decimal.Decimal `db:"balance_after"`
	CreatedAt     time.Time       `db:"created_at"`
}
