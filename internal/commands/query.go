package commands

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/actualbridge/actualbridge/internal/actual"
)

// One-shot query commands, mainly for checking a setup before pointing the
// automation platform at the HTTP API.

func newAccountsCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "List accounts and balances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, b, _, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer b.Close()

			accounts, err := b.Accounts(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tBALANCE\tFLAGS")
			for _, a := range accounts {
				flags := ""
				if a.OffBudget {
					flags += "off-budget "
				}
				if a.Closed {
					flags += "closed"
				}
				fmt.Fprintf(w, "%s\t%s %s\t%s\n", a.Name, a.Balance.StringFixed(2), cfg.Budget.Currency, flags)
			}
			return w.Flush()
		},
	}
}

func newBudgetsCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "budgets",
		Short: "List budget categories with this month's amounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, b, _, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer b.Close()

			budgets, err := b.Budgets(cmd.Context())
			if err != nil {
				return err
			}

			now := time.Now()
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "GROUP\tCATEGORY\tTHIS MONTH\tBALANCE")
			for i := range budgets {
				bd := &budgets[i]
				month := "-"
				if cur := bd.CurrentAmount(now); cur != nil && cur.Amount != nil {
					month = cur.Amount.StringFixed(2)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s %s\n",
					bd.Group, bd.Category, month, bd.Balance.StringFixed(2), cfg.Budget.Currency)
			}
			return w.Flush()
		},
	}
}

func newTransactionsCommand(configPath *string) *cobra.Command {
	var account, category, startDate, endDate string
	var parents bool

	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "List transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := actual.TransactionFilter{
				Account:  account,
				Category: category,
				Parents:  parents,
			}
			var err error
			if startDate != "" {
				if filter.StartDate, err = time.Parse("2006-01-02", startDate); err != nil {
					return fmt.Errorf("parsing --start-date: %w", err)
				}
			}
			if endDate != "" {
				if filter.EndDate, err = time.Parse("2006-01-02", endDate); err != nil {
					return fmt.Errorf("parsing --end-date: %w", err)
				}
			}

			cfg, b, _, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer b.Close()

			txns, err := b.Transactions(cmd.Context(), filter)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "DATE\tACCOUNT\tPAYEE\tCATEGORY\tAMOUNT")
			for _, t := range txns {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s %s\n",
					t.Date.Format("2006-01-02"), t.Account, t.Payee, t.Category,
					t.Amount.StringFixed(2), cfg.Budget.Currency)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "filter by account name")
	cmd.Flags().StringVar(&category, "category", "", "filter by category name")
	cmd.Flags().StringVar(&startDate, "start-date", "", "earliest date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&endDate, "end-date", "", "latest date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&parents, "parents", false, "show split parents instead of their children")

	return cmd
}
