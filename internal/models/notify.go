package models

import "github.com/shopspring/decimal"

// CreditNotification is handed to the notification dispatcher after a
// reconciliation cycle credited a non-zero amount. Amounts are native units
// keyed by asset (e.g. "BTC", "TRX/USDT_TRC20"); message formatting and
// delivery belong to the dispatcher, not to this system.
type CreditNotification struct {
	UserId    string
	Amounts   map[string]decimal.Decimal
	FiatTotal decimal.Decimal
}
