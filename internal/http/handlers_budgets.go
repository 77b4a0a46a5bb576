package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

type budgetRequest struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Period   string          `json:"period"`
}

func (req budgetRequest) budget() core.Budget {
	return core.Budget{
		Category: req.Category,
		Amount:   req.Amount,
		Currency: core.CurrencyCode(req.Currency),
		Period:   core.BudgetPeriod(req.Period),
	}
}

type budgetResponse struct {
	ID        string          `json:"id"`
	Category  string          `json:"category"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Period    string          `json:"period"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func toBudgetResponse(b core.Budget) budgetResponse {
	return budgetResponse{
		ID:        b.ID,
		Category:  b.Category,
		Amount:    b.Amount,
		Currency:  string(b.Currency),
		Period:    string(b.Period),
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

type budgetStatusResponse struct {
	Category        string          `json:"category"`
	Currency        string          `json:"currency"`
	Period          string          `json:"period"`
	From            core.Date       `json:"from"`
	To              core.Date       `json:"to"`
	BudgetAmount    decimal.Decimal `json:"budget_amount"`
	SpentAmount     decimal.Decimal `json:"spent_amount"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
	PercentageUsed  decimal.Decimal `json:"percentage_used"`
	Status          string          `json:"status"`
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	b, err := s.deps.Budgets.Create(r.Context(), req.budget())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBudgetResponse(b))
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.deps.Budgets.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]budgetResponse, len(budgets))
	for i, b := range budgets {
		out[i] = toBudgetResponse(b)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	b, err := s.deps.Budgets.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBudgetResponse(b))
}

func (s *Server) handleGetBudgetByCategory(w http.ResponseWriter, r *http.Request) {
	b, err := s.deps.Budgets.GetByCategory(r.Context(), chi.URLParam(r, "category"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBudgetResponse(b))
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	b, err := s.deps.Budgets.Update(r.Context(), chi.URLParam(r, "id"), req.budget())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBudgetResponse(b))
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Budgets.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBudgetStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.deps.Budgets.Status(r.Context(), chi.URLParam(r, "category"), core.DateOf(s.now()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, budgetStatusResponse{
		Category:        st.Budget.Category,
		Currency:        string(st.Budget.Currency),
		Period:          string(st.Budget.Period),
		From:            st.From,
		To:              st.To,
		BudgetAmount:    st.Budget.Amount,
		SpentAmount:     st.Spent,
		RemainingAmount: st.Remaining,
		PercentageUsed:  st.PercentageUsed,
		Status:          st.Status,
	})
}
