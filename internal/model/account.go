package model

import "github.com/shopspring/decimal"

// Account is a point-in-time snapshot of a budget account. Instances are
// created fresh on every fetch and never mutated.
type Account struct {
	ID        string
	Name      string
	Balance   decimal.Decimal
	OffBudget bool
	Closed    bool
}
