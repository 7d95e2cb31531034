package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func amt(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestSortAmounts(t *testing.T) {
	b := Budget{
		Category: "Groceries",
		Amounts: []BudgetAmount{
			{Month: "202503", Amount: amt("300")},
			{Month: "202501", Amount: amt("100")},
			{Month: "202502", Amount: amt("200")},
		},
	}
	b.SortAmounts()

	months := []string{b.Amounts[0].Month, b.Amounts[1].Month, b.Amounts[2].Month}
	assert.Equal(t, []string{"202501", "202502", "202503"}, months)
}

func TestTotalThrough(t *testing.T) {
	b := Budget{
		Amounts: []BudgetAmount{
			{Month: "202501", Amount: amt("100")},
			{Month: "202502", Amount: nil}, // nothing budgeted
			{Month: "202503", Amount: amt("50")},
			{Month: "202512", Amount: amt("999")}, // future
		},
	}

	now := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	assert.True(t, b.TotalThrough(now).Equal(decimal.RequireFromString("150")))
}

func TestCurrentAmount(t *testing.T) {
	b := Budget{
		Amounts: []BudgetAmount{
			{Month: "202501", Amount: amt("100")},
			{Month: "202502", Amount: amt("200")},
			{Month: "202512", Amount: amt("999")},
		},
	}

	now := time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)
	cur := b.CurrentAmount(now)
	require.NotNil(t, cur)
	assert.Equal(t, "202502", cur.Month)
	assert.True(t, cur.Amount.Equal(decimal.RequireFromString("200")))
}

func TestCurrentAmount_NoneYet(t *testing.T) {
	b := Budget{
		Amounts: []BudgetAmount{{Month: "202506", Amount: amt("10")}},
	}

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Nil(t, b.CurrentAmount(now))
}
