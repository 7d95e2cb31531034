package actual

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/actualbridge/actualbridge/internal/model"
)

// Amounts are stored in the budget database as integer hundredths.

func money(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

func toCents(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

// Transaction dates are stored as integer YYYYMMDD.

func dateToInt(t time.Time) int64 {
	return int64(t.Year())*10000 + int64(t.Month())*100 + int64(t.Day())
}

func intToDate(v int64) time.Time {
	y := int(v / 10000)
	m := time.Month(v / 100 % 100)
	d := int(v % 100)
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Accounts returns a snapshot of every account with its balance: the sum of
// all live transaction amounts. Parent rows of splits are excluded so split
// children are not double counted.
func (s *Session) Accounts(ctx context.Context) ([]model.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.name, IFNULL(a.offbudget, 0), IFNULL(a.closed, 0), IFNULL(SUM(t.amount), 0)
		FROM accounts a
		LEFT JOIN transactions t
			ON t.acct = a.id AND IFNULL(t.tombstone, 0) = 0 AND IFNULL(t.is_parent, 0) = 0
		WHERE IFNULL(a.tombstone, 0) = 0
		GROUP BY a.id, a.name
		ORDER BY a.name`)
	if err != nil {
		return nil, fmt.Errorf("querying accounts: %w", err)
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		var a model.Account
		var offBudget, closed int
		var balance int64
		if err := rows.Scan(&a.ID, &a.Name, &offBudget, &closed, &balance); err != nil {
			return nil, fmt.Errorf("scanning account: %w", err)
		}
		a.OffBudget = offBudget != 0
		a.Closed = closed != 0
		a.Balance = money(balance)
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// AccountByName returns the account with the given name, or ErrNotFound.
func (s *Session) AccountByName(ctx context.Context, name string) (*model.Account, error) {
	accounts, err := s.Accounts(ctx)
	if err != nil {
		return nil, err
	}
	for i := range accounts {
		if accounts[i].Name == name {
			return &accounts[i], nil
		}
	}
	return nil, fmt.Errorf("account %q: %w", name, ErrNotFound)
}

// Budgets returns a snapshot of every budget category: its per-month budgeted
// amounts (sorted ascending) and its balance, the sum of all live transaction
// amounts in the category.
func (s *Session) Budgets(ctx context.Context) ([]model.Budget, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.name, IFNULL(g.name, ''), zb.month, zb.amount
		FROM zero_budgets zb
		JOIN categories c ON c.id = zb.category AND IFNULL(c.tombstone, 0) = 0
		LEFT JOIN category_groups g ON g.id = c.cat_group
		ORDER BY c.name, zb.month`)
	if err != nil {
		return nil, fmt.Errorf("querying budgets: %w", err)
	}
	defer rows.Close()

	byCategory := map[string]*model.Budget{}
	var order []string
	for rows.Next() {
		var catID, catName, group string
		var month int64
		var amount sql.NullInt64
		if err := rows.Scan(&catID, &catName, &group, &month, &amount); err != nil {
			return nil, fmt.Errorf("scanning budget: %w", err)
		}

		b, ok := byCategory[catID]
		if !ok {
			b = &model.Budget{ID: catID, Group: group, Category: catName}
			byCategory[catID] = b
			order = append(order, catID)
		}
		ba := model.BudgetAmount{Month: fmt.Sprintf("%06d", month)}
		if amount.Valid {
			v := money(amount.Int64)
			ba.Amount = &v
		}
		b.Amounts = append(b.Amounts, ba)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	budgets := make([]model.Budget, 0, len(order))
	for _, catID := range order {
		b := byCategory[catID]
		b.SortAmounts()
		balance, err := s.categoryBalance(ctx, catID)
		if err != nil {
			return nil, err
		}
		b.Balance = balance
		budgets = append(budgets, *b)
	}
	return budgets, nil
}

// BudgetByCategory returns the budget for the named category, or ErrNotFound.
func (s *Session) BudgetByCategory(ctx context.Context, category string) (*model.Budget, error) {
	budgets, err := s.Budgets(ctx)
	if err != nil {
		return nil, err
	}
	for i := range budgets {
		if budgets[i].Category == category {
			return &budgets[i], nil
		}
	}
	return nil, fmt.Errorf("budget %q: %w", category, ErrNotFound)
}

func (s *Session) categoryBalance(ctx context.Context, categoryID string) (decimal.Decimal, error) {
	var balance int64
	err := s.db.QueryRowContext(ctx, `
		SELECT IFNULL(SUM(amount), 0)
		FROM transactions
		WHERE category = ? AND IFNULL(tombstone, 0) = 0 AND IFNULL(is_parent, 0) = 0`,
		categoryID).Scan(&balance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("querying category balance: %w", err)
	}
	return money(balance), nil
}

// TransactionFilter narrows a Transactions query. Zero values mean "no
// filter". When Parents is set, split parents are returned instead of their
// children.
type TransactionFilter struct {
	Account   string
	Category  string
	StartDate time.Time
	EndDate   time.Time
	Parents   bool
}

// Transactions returns transactions newest first, translated into snapshots
// with payee, category, and account names resolved.
func (s *Session) Transactions(ctx context.Context, f TransactionFilter) ([]model.Transaction, error) {
	query := `
		SELECT t.id, t.date, IFNULL(a.name, ''), IFNULL(p.name, ''), IFNULL(c.name, ''),
			t.amount, IFNULL(t.notes, ''), IFNULL(t.is_parent, 0)
		FROM transactions t
		LEFT JOIN accounts a ON a.id = t.acct
		LEFT JOIN payees p ON p.id = t.description
		LEFT JOIN categories c ON c.id = t.category
		WHERE IFNULL(t.tombstone, 0) = 0 AND t.date IS NOT NULL`
	var args []any

	if f.Parents {
		query += ` AND IFNULL(t.is_child, 0) = 0`
	} else {
		query += ` AND IFNULL(t.is_parent, 0) = 0`
	}
	if f.Account != "" {
		query += ` AND a.name = ?`
		args = append(args, f.Account)
	}
	if f.Category != "" {
		query += ` AND c.name = ?`
		args = append(args, f.Category)
	}
	if !f.StartDate.IsZero() {
		query += ` AND t.date >= ?`
		args = append(args, dateToInt(f.StartDate))
	}
	if !f.EndDate.IsZero() {
		query += ` AND t.date <= ?`
		args = append(args, dateToInt(f.EndDate))
	}
	query += ` ORDER BY t.date DESC, t.id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying transactions: %w", err)
	}
	defer rows.Close()

	var txns []model.Transaction
	for rows.Next() {
		var t model.Transaction
		var date, amount int64
		var isParent int
		if err := rows.Scan(&t.ID, &date, &t.Account, &t.Payee, &t.Category, &amount, &t.Notes, &isParent); err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		t.Date = intToDate(date)
		t.Amount = money(amount)
		t.IsParent = isParent != 0
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

// CreateSplits splits the parent transaction into child rows. The split
// amounts must sum to the parent's amount. Changes apply to the local working
// copy; pushing them through the server's sync protocol is outside this
// client. Returns the IDs of the created children.
func (s *Session) CreateSplits(ctx context.Context, parentID string, splits []model.Split) ([]string, error) {
	if len(splits) == 0 {
		return nil, fmt.Errorf("at least one split is required")
	}

	var parentAmount int64
	var isParent int
	err := s.db.QueryRowContext(ctx, `
		SELECT amount, IFNULL(is_parent, 0)
		FROM transactions
		WHERE id = ? AND IFNULL(tombstone, 0) = 0 AND IFNULL(is_child, 0) = 0`,
		parentID).Scan(&parentAmount, &isParent)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("transaction %q: %w", parentID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying parent transaction: %w", err)
	}
	// Splitting an already-split parent would insert a second child set and
	// double the amount in balance sums.
	if isParent != 0 {
		return nil, fmt.Errorf("transaction %q is already split", parentID)
	}

	var total int64
	for _, sp := range splits {
		total += toCents(sp.Amount)
	}
	if total != parentAmount {
		return nil, fmt.Errorf("split amounts sum to %s, parent is %s",
			money(total), money(parentAmount))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	ids := make([]string, 0, len(splits))
	for i, sp := range splits {
		categoryID, err := s.categoryID(ctx, tx, sp.Category)
		if err != nil {
			return nil, err
		}

		childID := uuid.NewString()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO transactions (id, acct, category, amount, notes, date, is_child, parent_id, sort_order)
			SELECT ?, acct, ?, ?, ?, date, 1, id, ?
			FROM transactions WHERE id = ?`,
			childID, categoryID, toCents(sp.Amount), sp.Notes, i, parentID)
		if err != nil {
			return nil, fmt.Errorf("inserting split: %w", err)
		}
		ids = append(ids, childID)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE transactions SET is_parent = 1, category = NULL WHERE id = ?`, parentID); err != nil {
		return nil, fmt.Errorf("marking parent: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing splits: %w", err)
	}
	return ids, nil
}

func (s *Session) categoryID(ctx context.Context, tx *sql.Tx, name string) (any, error) {
	if name == "" {
		return nil, nil
	}
	var id string
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM categories WHERE name = ? AND IFNULL(tombstone, 0) = 0`, name).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("category %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying category: %w", err)
	}
	return id, nil
}
