package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a point-in-time snapshot of one ledger transaction.
type Transaction struct {
	ID       string
	Date     time.Time
	Account  string
	Payee    string
	Category string
	Amount   decimal.Decimal // negative = outflow, positive = inflow
	Notes    string
	IsParent bool
}

// Split is one leg of a split transaction to be created under a parent.
type Split struct {
	Amount   decimal.Decimal
	Category string
	Notes    string
}
