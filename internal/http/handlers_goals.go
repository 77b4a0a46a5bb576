package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

type goalRequest struct {
	Name          string          `json:"name"`
	TargetAmount  decimal.Decimal `json:"target_amount"`
	CurrentAmount decimal.Decimal `json:"current_amount"`
	Currency      string          `json:"currency"`
	Category      string          `json:"category"`
	Deadline      *core.Date      `json:"deadline"`
	Description   string          `json:"description"`
}

func (req goalRequest) goal() core.Goal {
	return core.Goal{
		Name:          req.Name,
		TargetAmount:  req.TargetAmount,
		CurrentAmount: req.CurrentAmount,
		Currency:      core.CurrencyCode(req.Currency),
		Category:      req.Category,
		Deadline:      req.Deadline,
		Description:   req.Description,
	}
}

type contributionRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type goalResponse struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	TargetAmount       decimal.Decimal `json:"target_amount"`
	CurrentAmount      decimal.Decimal `json:"current_amount"`
	Currency           string          `json:"currency"`
	Category           string          `json:"category,omitempty"`
	Deadline           *core.Date      `json:"deadline"`
	Description        string          `json:"description"`
	ProgressPercentage decimal.Decimal `json:"progress_percentage"`
	IsCompleted        bool            `json:"is_completed"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`

	OriginalTargetAmount  *decimal.Decimal `json:"original_target_amount,omitempty"`
	OriginalCurrentAmount *decimal.Decimal `json:"original_current_amount,omitempty"`
	OriginalCurrency      string           `json:"original_currency,omitempty"`
}

func toGoalResponse(v services.GoalView) goalResponse {
	return goalResponse{
		ID:                    v.ID,
		Name:                  v.Name,
		TargetAmount:          v.TargetAmount,
		CurrentAmount:         v.CurrentAmount,
		Currency:              string(v.Currency),
		Category:              v.Category,
		Deadline:              v.Deadline,
		Description:           v.Description,
		ProgressPercentage:    v.Progress,
		IsCompleted:           v.Completed,
		CreatedAt:             v.CreatedAt,
		UpdatedAt:             v.UpdatedAt,
		OriginalTargetAmount:  v.OriginalTargetAmount,
		OriginalCurrentAmount: v.OriginalCurrentAmount,
		OriginalCurrency:      string(v.OriginalCurrency),
	}
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	g, err := s.deps.Goals.Create(r.Context(), req.goal())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGoalResponse(g))
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	goals, err := s.deps.Goals.List(r.Context(), q.Get("category"), q.Get("currency"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]goalResponse, len(goals))
	for i, g := range goals {
		out[i] = toGoalResponse(g)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request) {
	g, err := s.deps.Goals.Get(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("currency"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toGoalResponse(g))
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	g, err := s.deps.Goals.Update(r.Context(), chi.URLParam(r, "id"), req.goal())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toGoalResponse(g))
}

func (s *Server) handleContributeToGoal(w http.ResponseWriter, r *http.Request) {
	var req contributionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	g, err := s.deps.Goals.Contribute(r.Context(), chi.URLParam(r, "id"), req.Amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toGoalResponse(g))
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Goals.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
