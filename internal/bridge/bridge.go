// Package bridge is the call-through layer between the bridge's surfaces
// (HTTP API, poller, CLI) and the cached backend session: every operation
// acquires a session from the cache and translates the result.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/actualbridge/actualbridge/internal/actual"
	"github.com/actualbridge/actualbridge/internal/model"
	"github.com/actualbridge/actualbridge/internal/session"
)

// Querier is the full capability of one live session: handle lifecycle plus
// the budget queries. *actual.Session is the production implementation; tests
// substitute a double.
type Querier interface {
	session.Handle
	FileID() string
	BudgetName() string
	Accounts(ctx context.Context) ([]model.Account, error)
	AccountByName(ctx context.Context, name string) (*model.Account, error)
	Budgets(ctx context.Context) ([]model.Budget, error)
	BudgetByCategory(ctx context.Context, category string) (*model.Budget, error)
	Transactions(ctx context.Context, f actual.TransactionFilter) ([]model.Transaction, error)
	CreateSplits(ctx context.Context, parentID string, splits []model.Split) ([]string, error)
}

// Bridge exposes budget data through a cached session. One Bridge lives for
// the lifetime of the process serving one budget file.
type Bridge struct {
	cache  *session.Cache
	logger *slog.Logger
}

// New creates a Bridge over backend. Sessions idle longer than idleTimeout
// are discarded; a non-positive value selects the default.
func New(backend session.Backend, idleTimeout time.Duration, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		cache:  session.New(countedBackend{backend}, idleTimeout, logger),
		logger: logger,
	}
}

// countedBackend increments the session counter on every successful open.
type countedBackend struct {
	session.Backend
}

func (b countedBackend) Open(ctx context.Context) (session.Handle, error) {
	h, err := b.Backend.Open(ctx)
	if err == nil {
		sessionOpens.Inc()
	}
	return h, err
}

// Close tears down the cached session.
func (b *Bridge) Close() {
	b.cache.Close()
}

func (b *Bridge) session(ctx context.Context) (Querier, error) {
	h, err := b.cache.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	q, ok := h.(Querier)
	if !ok {
		return nil, fmt.Errorf("backend handle %T does not support queries", h)
	}
	return q, nil
}

// Accounts returns a snapshot of all accounts.
func (b *Bridge) Accounts(ctx context.Context) ([]model.Account, error) {
	s, err := b.session(ctx)
	if err != nil {
		return nil, err
	}
	return s.Accounts(ctx)
}

// Account returns the named account.
func (b *Bridge) Account(ctx context.Context, name string) (*model.Account, error) {
	s, err := b.session(ctx)
	if err != nil {
		return nil, err
	}
	return s.AccountByName(ctx, name)
}

// Budgets returns a snapshot of all budget categories.
func (b *Bridge) Budgets(ctx context.Context) ([]model.Budget, error) {
	s, err := b.session(ctx)
	if err != nil {
		return nil, err
	}
	return s.Budgets(ctx)
}

// Budget returns the budget for the named category.
func (b *Bridge) Budget(ctx context.Context, category string) (*model.Budget, error) {
	s, err := b.session(ctx)
	if err != nil {
		return nil, err
	}
	return s.BudgetByCategory(ctx, category)
}

// Transactions returns transactions matching the filter.
func (b *Bridge) Transactions(ctx context.Context, f actual.TransactionFilter) ([]model.Transaction, error) {
	s, err := b.session(ctx)
	if err != nil {
		return nil, err
	}
	return s.Transactions(ctx, f)
}

// CreateSplits splits a transaction into the given legs.
func (b *Bridge) CreateSplits(ctx context.Context, parentID string, splits []model.Split) ([]string, error) {
	s, err := b.session(ctx)
	if err != nil {
		return nil, err
	}
	return s.CreateSplits(ctx, parentID, splits)
}

// FileID returns the server-side ID of the bridged budget file.
func (b *Bridge) FileID(ctx context.Context) (string, error) {
	s, err := b.session(ctx)
	if err != nil {
		return "", err
	}
	return s.FileID(), nil
}

// BudgetName returns the display name of the bridged budget.
func (b *Bridge) BudgetName(ctx context.Context) (string, error) {
	s, err := b.session(ctx)
	if err != nil {
		return "", err
	}
	return s.BudgetName(), nil
}

// TestConnection verifies that a session can be established.
func (b *Bridge) TestConnection(ctx context.Context) error {
	_, err := b.session(ctx)
	return err
}

// ErrorCode maps a connection failure onto a short stable code suitable for
// CLI output and API error responses.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, actual.ErrTLS):
		return "failed_ssl"
	case errors.Is(err, actual.ErrAuth):
		return "failed_auth"
	case errors.Is(err, actual.ErrUnknownFile), errors.Is(err, actual.ErrInvalidFile):
		return "failed_file"
	case errors.Is(err, actual.ErrValidation):
		return "failed_session"
	case errors.Is(err, actual.ErrNetwork):
		return "failed_connection"
	default:
		return "failed_unknown"
	}
}
