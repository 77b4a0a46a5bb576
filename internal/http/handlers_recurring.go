package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

type ruleRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	IsIncome    bool            `json:"is_income"`
	StartDate   core.Date       `json:"start_date"`
	EndDate     *core.Date      `json:"end_date"`
	Frequency   string          `json:"frequency"`
	DayOfWeek   *int            `json:"day_of_week"`
	DayOfMonth  *int            `json:"day_of_month"`
	MonthOfYear *int            `json:"month_of_year"`
}

type ruleResponse struct {
	ID            string          `json:"id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Category      string          `json:"category"`
	Description   string          `json:"description"`
	IsIncome      bool            `json:"is_income"`
	StartDate     core.Date       `json:"start_date"`
	EndDate       *core.Date      `json:"end_date"`
	Frequency     string          `json:"frequency"`
	DayOfWeek     *int            `json:"day_of_week"`
	DayOfMonth    *int            `json:"day_of_month"`
	MonthOfYear   *int            `json:"month_of_year"`
	LastGenerated *core.Date      `json:"last_generated"`
	Describe      string          `json:"describe"`
	CreatedAt     time.Time       `json:"created_at"`
}

func toRuleResponse(r services.DescribedRule) ruleResponse {
	return ruleResponse{
		ID:            r.ID,
		Amount:        r.Amount,
		Currency:      string(r.Currency),
		Category:      r.Category,
		Description:   r.Description,
		IsIncome:      r.IsIncome,
		StartDate:     r.StartDate,
		EndDate:       r.EndDate,
		Frequency:     string(r.Frequency),
		DayOfWeek:     r.DayOfWeek,
		DayOfMonth:    r.DayOfMonth,
		MonthOfYear:   r.MonthOfYear,
		LastGenerated: r.LastGenerated,
		Describe:      r.Schedule,
		CreatedAt:     r.CreatedAt,
	}
}

func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	rule, err := s.deps.Recurring.Create(r.Context(), core.RecurringRule{
		Amount:      req.Amount,
		Currency:    core.CurrencyCode(req.Currency),
		Category:    req.Category,
		Description: req.Description,
		IsIncome:    req.IsIncome,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Frequency:   core.Frequency(req.Frequency),
		DayOfWeek:   req.DayOfWeek,
		DayOfMonth:  req.DayOfMonth,
		MonthOfYear: req.MonthOfYear,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRuleResponse(rule))
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := s.deps.Recurring.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]ruleResponse, len(rules))
	for i, rule := range rules {
		out[i] = toRuleResponse(rule)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	rule, err := s.deps.Recurring.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRuleResponse(rule))
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Recurring.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGenerateNow(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Generator.ProcessDue(r.Context(), s.now())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Manual recurring generation", log.FieldCreated, res.Created)
	writeJSON(w, http.StatusOK, res)
}
