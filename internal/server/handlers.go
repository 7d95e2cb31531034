package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/actualbridge/actualbridge/internal/actual"
	"github.com/actualbridge/actualbridge/internal/bridge"
	"github.com/actualbridge/actualbridge/internal/id"
	"github.com/actualbridge/actualbridge/internal/model"
)

const dateLayout = "2006-01-02"

type accountResponse struct {
	ID        string          `json:"id"`
	EntityID  string          `json:"entity_id,omitempty"`
	Name      string          `json:"name"`
	Balance   decimal.Decimal `json:"balance"`
	OffBudget bool            `json:"off_budget"`
	Closed    bool            `json:"closed"`
}

type budgetAmountResponse struct {
	Month  string           `json:"month"`
	Amount *decimal.Decimal `json:"amount"`
}

type budgetResponse struct {
	ID       string                 `json:"id"`
	EntityID string                 `json:"entity_id,omitempty"`
	Group    string                 `json:"group,omitempty"`
	Category string                 `json:"category"`
	Balance  decimal.Decimal        `json:"balance"`
	Amounts  []budgetAmountResponse `json:"amounts"`
}

type transactionResponse struct {
	ID       string          `json:"id"`
	Date     string          `json:"date"`
	Account  string          `json:"account"`
	Payee    string          `json:"payee"`
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	Notes    string          `json:"notes,omitempty"`
}

type splitsRequest struct {
	Splits []struct {
		Amount   decimal.Decimal `json:"amount"`
		Category string          `json:"category"`
		Notes    string          `json:"notes"`
	} `json:"splits"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	snap := s.poller.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"source":      snap.Source,
		"budget_name": snap.BudgetName,
		"currency":    snap.Currency,
		"available":   snap.Available,
		"updated_at":  snap.UpdatedAt,
		"accounts":    len(snap.Accounts),
		"budgets":     len(snap.Budgets),
	})
}

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.api.Accounts(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	source := s.poller.Snapshot().Source
	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountResponse(a, source))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	a, err := s.api.Account(r.Context(), r.PathValue("name"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponse(*a, s.poller.Snapshot().Source))
}

func (s *Server) handleBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.api.Budgets(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	source := s.poller.Snapshot().Source
	out := make([]budgetResponse, 0, len(budgets))
	for i := range budgets {
		out = append(out, toBudgetResponse(budgets[i], source))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	b, err := s.api.Budget(r.Context(), r.PathValue("category"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBudgetResponse(*b, s.poller.Snapshot().Source))
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := actual.TransactionFilter{
		Account:  q.Get("account"),
		Category: q.Get("category"),
		Parents:  q.Get("parents") == "true",
	}

	var err error
	if v := q.Get("start_date"); v != "" {
		if filter.StartDate, err = time.Parse(dateLayout, v); err != nil {
			s.writeBadRequest(w, "start_date must be YYYY-MM-DD")
			return
		}
	}
	if v := q.Get("end_date"); v != "" {
		if filter.EndDate, err = time.Parse(dateLayout, v); err != nil {
			s.writeBadRequest(w, "end_date must be YYYY-MM-DD")
			return
		}
	}

	txns, err := s.api.Transactions(r.Context(), filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]transactionResponse, 0, len(txns))
	for _, t := range txns {
		out = append(out, transactionResponse{
			ID:       t.ID,
			Date:     t.Date.Format(dateLayout),
			Account:  t.Account,
			Payee:    t.Payee,
			Category: t.Category,
			Amount:   t.Amount,
			Notes:    t.Notes,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": out})
}

func (s *Server) handleCreateSplits(w http.ResponseWriter, r *http.Request) {
	var req splitsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeBadRequest(w, "invalid request body")
		return
	}
	if len(req.Splits) == 0 {
		s.writeBadRequest(w, "at least one split is required")
		return
	}

	splits := make([]model.Split, 0, len(req.Splits))
	for _, sp := range req.Splits {
		splits = append(splits, model.Split{Amount: sp.Amount, Category: sp.Category, Notes: sp.Notes})
	}

	ids, err := s.api.CreateSplits(r.Context(), r.PathValue("id"), splits)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"ids": ids})
}

// Entity IDs are only attached once the poller has resolved the source; until
// the first successful poll they are omitted.
func toAccountResponse(a model.Account, source string) accountResponse {
	resp := accountResponse{
		ID:        a.ID,
		Name:      a.Name,
		Balance:   a.Balance,
		OffBudget: a.OffBudget,
		Closed:    a.Closed,
	}
	if source != "" {
		resp.EntityID = id.Account(source, a.Name)
	}
	return resp
}

func toBudgetResponse(b model.Budget, source string) budgetResponse {
	amounts := make([]budgetAmountResponse, 0, len(b.Amounts))
	for _, a := range b.Amounts {
		amounts = append(amounts, budgetAmountResponse{Month: a.Month, Amount: a.Amount})
	}
	resp := budgetResponse{
		ID:       b.ID,
		Group:    b.Group,
		Category: b.Category,
		Balance:  b.Balance,
		Amounts:  amounts,
	}
	if source != "" {
		resp.EntityID = id.Budget(source, b.Category)
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

// writeError maps backend failures onto HTTP statuses: lookups that miss are
// 404, everything that means "the budget backend let us down" is 502 with the
// short failure code attached.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, actual.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusBadGateway, errorResponse{
		Error: err.Error(),
		Code:  bridge.ErrorCode(err),
	})
}
