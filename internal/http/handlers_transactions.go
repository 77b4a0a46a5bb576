package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

type transactionRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	IsIncome    bool            `json:"is_income"`
	Date        *core.Date      `json:"date"`
}

type transactionResponse struct {
	ID          string          `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	IsIncome    bool            `json:"is_income"`
	Date        core.Date       `json:"date"`
	RecurringID string          `json:"recurring_transaction_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`

	OriginalAmount   *decimal.Decimal `json:"original_amount,omitempty"`
	OriginalCurrency string           `json:"original_currency,omitempty"`
}

func toTransactionResponse(tx core.Transaction) transactionResponse {
	return transactionResponse{
		ID:          tx.ID,
		Amount:      tx.Amount,
		Currency:    string(tx.Currency),
		Category:    tx.Category,
		Description: tx.Description,
		IsIncome:    tx.IsIncome,
		Date:        tx.Date,
		RecurringID: tx.RecurringID,
		CreatedAt:   tx.CreatedAt,
	}
}

func toTransactionViewResponse(v services.TransactionView) transactionResponse {
	resp := toTransactionResponse(v.Transaction)
	resp.OriginalAmount = v.OriginalAmount
	resp.OriginalCurrency = string(v.OriginalCurrency)
	return resp
}

func (req transactionRequest) transaction(today core.Date) core.Transaction {
	day := today
	if req.Date != nil {
		day = *req.Date
	}
	return core.Transaction{
		Amount:      req.Amount,
		Currency:    core.CurrencyCode(req.Currency),
		Category:    req.Category,
		Description: req.Description,
		IsIncome:    req.IsIncome,
		Date:        day,
	}
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	tx, err := s.deps.Transactions.Create(r.Context(), req.transaction(core.DateOf(s.now())))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionResponse(tx))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	tx, err := s.deps.Transactions.Update(r.Context(), chi.URLParam(r, "id"), req.transaction(core.DateOf(s.now())))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(tx))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f storage.TransactionFilter
	if v := q.Get("from"); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		f.From = &d
	}
	if v := q.Get("to"); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		f.To = &d
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, r, core.NewValidationError("limit", "must be a non-negative integer"))
			return
		}
		f.Limit = n
	}
	f.RecurringID = q.Get("recurring_id")

	txs, err := s.deps.Transactions.List(r.Context(), f, q.Get("currency"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]transactionResponse, len(txs))
	for i, tx := range txs {
		out[i] = toTransactionViewResponse(tx)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.deps.Transactions.Get(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("currency"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionViewResponse(tx))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Transactions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
