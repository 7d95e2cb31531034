// Package server exposes the bridged budget over HTTP: JSON endpoints for
// REST sensors and automation service calls, plus the Prometheus scrape
// endpoint.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/actualbridge/actualbridge/internal/actual"
	"github.com/actualbridge/actualbridge/internal/model"
	"github.com/actualbridge/actualbridge/internal/poller"
)

// API is the slice of the bridge the handlers call through.
type API interface {
	Accounts(ctx context.Context) ([]model.Account, error)
	Account(ctx context.Context, name string) (*model.Account, error)
	Budgets(ctx context.Context) ([]model.Budget, error)
	Budget(ctx context.Context, category string) (*model.Budget, error)
	Transactions(ctx context.Context, f actual.TransactionFilter) ([]model.Transaction, error)
	CreateSplits(ctx context.Context, parentID string, splits []model.Split) ([]string, error)
}

// Snapshotter provides the poller's last known state.
type Snapshotter interface {
	Snapshot() poller.Snapshot
}

// Server is the bridge's HTTP front end.
type Server struct {
	api    API
	poller Snapshotter
	logger *slog.Logger
	http   *http.Server
}

// New creates a Server listening on addr.
func New(api API, p Snapshotter, addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{api: api, poller: p, logger: logger}
	s.http = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler builds the route table with logging middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/accounts", s.handleAccounts)
	mux.HandleFunc("GET /api/accounts/{name}", s.handleAccount)
	mux.HandleFunc("GET /api/budgets", s.handleBudgets)
	mux.HandleFunc("GET /api/budgets/{category}", s.handleBudget)
	mux.HandleFunc("GET /api/transactions", s.handleTransactions)
	mux.HandleFunc("POST /api/transactions/{id}/splits", s.handleCreateSplits)
	mux.Handle("GET /metrics", promhttp.Handler())

	return s.logging(mux)
}

// ListenAndServe blocks until the listener fails or Shutdown is called.
func (s *Server) ListenAndServe() error {
	s.logger.Info("http server listening", slog.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
