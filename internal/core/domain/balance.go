package domain

import "github.com/btcsuite/btcd/btcutil"

// BalanceInfo holds the confirmed and unconfirmed amounts observed for an
// address.
type BalanceInfo struct {
	Confirmed   btcutil.Amount
	Unconfirmed btcutil.Amount
}

// Total returns the sum of confirmed and unconfirmed amounts.
func (b BalanceInfo) Total() btcutil.Amount {
	return b.Confirmed + b.Unconfirmed
}
