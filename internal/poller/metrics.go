package poller

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// accountBalance mirrors one monetary sensor per account.
	accountBalance = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "actualbridge_account_balance",
			Help: "Current account balance in the budget's currency",
		},
		[]string{"source", "account", "currency"},
	)

	// budgetBalance mirrors one monetary sensor per budget category.
	budgetBalance = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "actualbridge_budget_balance",
			Help: "Remaining balance of a budget category: budgeted to date plus activity",
		},
		[]string{"source", "group", "category", "currency"},
	)

	// budgetMonthAmount exposes the current month's budgeted amount.
	budgetMonthAmount = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "actualbridge_budget_month_amount",
			Help: "Amount budgeted for the category in the current month",
		},
		[]string{"source", "group", "category", "currency"},
	)

	// available reports whether the last poll succeeded, the equivalent of
	// the sensor availability flag.
	available = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "actualbridge_available",
			Help: "1 when the last poll of the budget backend succeeded",
		},
		[]string{"source"},
	)

	pollErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "actualbridge_poll_errors_total",
			Help: "Total failed polls of the budget backend",
		},
		[]string{"source"},
	)

	pollDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "actualbridge_poll_duration_seconds",
			Help:    "Time spent refreshing all snapshots from the backend",
			Buckets: prometheus.DefBuckets,
		},
	)
)
