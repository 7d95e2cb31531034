// Package poller periodically refreshes account and budget snapshots through
// the cached session and publishes them as Prometheus gauges, so home
// automation setups can scrape balances instead of querying the API.
package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/actualbridge/actualbridge/internal/id"
	"github.com/actualbridge/actualbridge/internal/model"
)

// MinimumInterval is the floor between two refreshes. Balances move slowly;
// polling faster than this only burns sessions.
const MinimumInterval = time.Minute

// API is the slice of the bridge the poller needs.
type API interface {
	Accounts(ctx context.Context) ([]model.Account, error)
	Budgets(ctx context.Context) ([]model.Budget, error)
	FileID(ctx context.Context) (string, error)
	BudgetName(ctx context.Context) (string, error)
}

// Snapshot is the last successfully fetched state, kept even while the
// backend is unavailable.
type Snapshot struct {
	Source     string
	BudgetName string
	Currency   string
	Accounts   []model.Account
	Budgets    []model.Budget
	UpdatedAt  time.Time
	Available  bool
}

// Poller owns the refresh loop for one bridged budget.
type Poller struct {
	api      API
	endpoint string
	fallback string
	currency string
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu   sync.RWMutex
	snap Snapshot
}

// New creates a Poller refreshing every interval (floored at MinimumInterval).
// fileRef is the configured budget file reference; it labels failure metrics
// until the first successful poll resolves the real file ID.
func New(api API, endpoint, fileRef, currency string, interval time.Duration, logger *slog.Logger) *Poller {
	if interval < MinimumInterval {
		interval = MinimumInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		api:      api,
		endpoint: endpoint,
		fallback: id.Source(endpoint, fileRef),
		currency: currency,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Run refreshes immediately, then on every tick until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	if err := p.Refresh(ctx); err != nil {
		p.logger.Error("initial poll failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := p.Refresh(ctx); err != nil {
				p.logger.Error("poll failed", slog.String("error", err.Error()))
			}
		}
	}
}

// Snapshot returns the last known state.
func (p *Poller) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snap
}

// Refresh fetches accounts and budgets concurrently and republishes all
// gauges. A failed refresh marks the source unavailable but keeps the last
// snapshot. Back-to-back calls inside MinimumInterval are no-ops.
func (p *Poller) Refresh(ctx context.Context) error {
	p.mu.RLock()
	last := p.snap.UpdatedAt
	p.mu.RUnlock()
	if !last.IsZero() && p.now().Sub(last) < MinimumInterval {
		return nil
	}

	start := p.now()
	fileID, err := p.api.FileID(ctx)
	if err != nil {
		p.markUnavailable(err)
		return err
	}
	source := id.Source(p.endpoint, fileID)

	var (
		accounts []model.Account
		budgets  []model.Budget
		name     string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		accounts, err = p.api.Accounts(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		budgets, err = p.api.Budgets(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		name, err = p.api.BudgetName(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		p.markUnavailable(err)
		return err
	}

	p.publish(source, accounts, budgets)
	available.WithLabelValues(source).Set(1)
	pollDuration.Observe(p.now().Sub(start).Seconds())

	p.mu.Lock()
	p.snap = Snapshot{
		Source:     source,
		BudgetName: name,
		Currency:   p.currency,
		Accounts:   accounts,
		Budgets:    budgets,
		UpdatedAt:  p.now(),
		Available:  true,
	}
	p.mu.Unlock()

	p.logger.Debug("poll complete",
		slog.Int("accounts", len(accounts)),
		slog.Int("budgets", len(budgets)),
		slog.Int64("duration_ms", p.now().Sub(start).Milliseconds()))
	return nil
}

func (p *Poller) publish(source string, accounts []model.Account, budgets []model.Budget) {
	accountBalance.DeletePartialMatch(map[string]string{"source": source})
	for _, a := range accounts {
		f, _ := a.Balance.Float64()
		accountBalance.WithLabelValues(source, a.Name, p.currency).Set(f)
	}

	budgetBalance.DeletePartialMatch(map[string]string{"source": source})
	budgetMonthAmount.DeletePartialMatch(map[string]string{"source": source})
	now := p.now()
	for i := range budgets {
		b := &budgets[i]
		// Budget state is the balance plus everything budgeted up to now.
		state, _ := b.Balance.Add(b.TotalThrough(now)).Float64()
		budgetBalance.WithLabelValues(source, b.Group, b.Category, p.currency).Set(state)

		if cur := b.CurrentAmount(now); cur != nil && cur.Amount != nil {
			f, _ := cur.Amount.Float64()
			budgetMonthAmount.WithLabelValues(source, b.Group, b.Category, p.currency).Set(f)
		}
	}
}

func (p *Poller) markUnavailable(err error) {
	p.mu.Lock()
	p.snap.Available = false
	source := p.snap.Source
	p.mu.Unlock()

	// Before the first successful poll the real file ID is unknown; failures
	// are still recorded under the configured file reference.
	if source == "" {
		source = p.fallback
	}
	available.WithLabelValues(source).Set(0)
	pollErrors.WithLabelValues(source).Inc()
	p.logger.Warn("budget backend unavailable", slog.String("error", err.Error()))
}
