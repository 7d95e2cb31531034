package bridge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/actualbridge/actualbridge/internal/actual"
	"github.com/actualbridge/actualbridge/internal/model"
	"github.com/actualbridge/actualbridge/internal/session"
)

// fakeQuerier implements Querier in memory.
type fakeQuerier struct {
	accounts []model.Account
	budgets  []model.Budget
	txns     []model.Transaction
	closed   bool
}

func (q *fakeQuerier) Validate(context.Context) (bool, error) { return true, nil }
func (q *fakeQuerier) Close() error                           { q.closed = true; return nil }
func (q *fakeQuerier) FileID() string                         { return "file1" }
func (q *fakeQuerier) BudgetName() string                     { return "Test Budget" }

func (q *fakeQuerier) Accounts(context.Context) ([]model.Account, error) {
	return q.accounts, nil
}

func (q *fakeQuerier) AccountByName(_ context.Context, name string) (*model.Account, error) {
	for i := range q.accounts {
		if q.accounts[i].Name == name {
			return &q.accounts[i], nil
		}
	}
	return nil, actual.ErrNotFound
}

func (q *fakeQuerier) Budgets(context.Context) ([]model.Budget, error) {
	return q.budgets, nil
}

func (q *fakeQuerier) BudgetByCategory(_ context.Context, category string) (*model.Budget, error) {
	for i := range q.budgets {
		if q.budgets[i].Category == category {
			return &q.budgets[i], nil
		}
	}
	return nil, actual.ErrNotFound
}

func (q *fakeQuerier) Transactions(context.Context, actual.TransactionFilter) ([]model.Transaction, error) {
	return q.txns, nil
}

func (q *fakeQuerier) CreateSplits(context.Context, string, []model.Split) ([]string, error) {
	return []string{"split1"}, nil
}

type fakeBackend struct {
	querier *fakeQuerier
	openErr error
	opens   int
}

func (b *fakeBackend) Open(context.Context) (session.Handle, error) {
	if b.openErr != nil {
		return nil, b.openErr
	}
	b.opens++
	return b.querier, nil
}

func newTestBridge(backend *fakeBackend) *Bridge {
	return New(backend, time.Minute, nil)
}

func TestAccountsReusesSession(t *testing.T) {
	backend := &fakeBackend{querier: &fakeQuerier{
		accounts: []model.Account{{ID: "a1", Name: "Checking", Balance: decimal.RequireFromString("10")}},
	}}
	b := newTestBridge(backend)
	defer b.Close()

	ctx := context.Background()
	accounts, err := b.Accounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)

	_, err = b.Account(ctx, "Checking")
	require.NoError(t, err)
	assert.Equal(t, 1, backend.opens, "both calls ride one cached session")
}

func TestSessionOpensCounted(t *testing.T) {
	backend := &fakeBackend{querier: &fakeQuerier{}}
	b := newTestBridge(backend)
	defer b.Close()

	before := testutil.ToFloat64(sessionOpens)

	ctx := context.Background()
	_, err := b.BudgetName(ctx)
	require.NoError(t, err)
	_, err = b.FileID(ctx)
	require.NoError(t, err)

	assert.Equal(t, before+1, testutil.ToFloat64(sessionOpens),
		"a reused session must not be recounted")
}

func TestSessionOpensNotCountedOnFailure(t *testing.T) {
	b := newTestBridge(&fakeBackend{openErr: actual.ErrNetwork})
	defer b.Close()

	before := testutil.ToFloat64(sessionOpens)
	_, err := b.Accounts(context.Background())
	require.Error(t, err)
	assert.Equal(t, before, testutil.ToFloat64(sessionOpens))
}

func TestAccount_NotFound(t *testing.T) {
	b := newTestBridge(&fakeBackend{querier: &fakeQuerier{}})
	defer b.Close()

	_, err := b.Account(context.Background(), "Nope")
	assert.ErrorIs(t, err, actual.ErrNotFound)
}

func TestOpenFailurePropagates(t *testing.T) {
	b := newTestBridge(&fakeBackend{openErr: actual.ErrAuth})
	defer b.Close()

	_, err := b.Accounts(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, actual.ErrAuth)

	var sessErr *session.Error
	assert.ErrorAs(t, err, &sessErr)
}

func TestCloseTearsDownSession(t *testing.T) {
	q := &fakeQuerier{}
	b := newTestBridge(&fakeBackend{querier: q})

	_, err := b.BudgetName(context.Background())
	require.NoError(t, err)

	b.Close()
	assert.True(t, q.closed)
}

func TestErrorCode(t *testing.T) {
	wrap := func(err error) error { return &session.Error{Err: err} }

	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{wrap(actual.ErrTLS), "failed_ssl"},
		{wrap(actual.ErrAuth), "failed_auth"},
		{wrap(actual.ErrUnknownFile), "failed_file"},
		{wrap(actual.ErrInvalidFile), "failed_file"},
		{wrap(actual.ErrValidation), "failed_session"},
		{wrap(actual.ErrNetwork), "failed_connection"},
		{errors.New("mystery"), "failed_unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorCode(tt.err))
	}
}
