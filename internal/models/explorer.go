package models

// Transfer is a normalized confirmed incoming transfer as reported by an
// explorer client. Amount is the raw smallest-unit value; Vout is set only
// on UTXO networks where one transaction can pay the same address more than
// once.
type Transfer struct {
	TxId   string
	Amount int64
	Vout   *int64
}
