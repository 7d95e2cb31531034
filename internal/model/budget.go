package model

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// MonthLayout is the wire format for budget months ("202501" = January 2025).
const MonthLayout = "200601"

// BudgetAmount is the budgeted amount for one month. Amount is nil when the
// category exists in the month but nothing was budgeted.
type BudgetAmount struct {
	Month  string
	Amount *decimal.Decimal
}

// Budget is a point-in-time snapshot of one budget category (envelope) with
// its per-month budgeted amounts and running balance. Amounts are sorted by
// month ascending.
type Budget struct {
	ID       string
	Group    string
	Category string
	Amounts  []BudgetAmount
	Balance  decimal.Decimal
}

// SortAmounts orders the per-month amounts by month ascending. The YYYYMM
// format sorts correctly as a plain string.
func (b *Budget) SortAmounts() {
	sort.Slice(b.Amounts, func(i, j int) bool {
		return b.Amounts[i].Month < b.Amounts[j].Month
	})
}

// TotalThrough sums the budgeted amounts for every month up to and including
// the month containing now. Months that fail to parse are skipped.
func (b *Budget) TotalThrough(now time.Time) decimal.Decimal {
	cutoff := now.Format(MonthLayout)
	total := decimal.Zero
	for _, a := range b.Amounts {
		if a.Month > cutoff || a.Amount == nil {
			continue
		}
		total = total.Add(*a.Amount)
	}
	return total
}

// CurrentAmount returns the amount for the month containing now, or nil if the
// category has no entry for that month.
func (b *Budget) CurrentAmount(now time.Time) *BudgetAmount {
	cutoff := now.Format(MonthLayout)
	for i := len(b.Amounts) - 1; i >= 0; i-- {
		if b.Amounts[i].Month <= cutoff {
			return &b.Amounts[i]
		}
	}
	return nil
}
