package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

type convertRequest struct {
	Amount       decimal.Decimal `json:"amount"`
	FromCurrency string          `json:"from_currency"`
	ToCurrency   string          `json:"to_currency"`
}

func (s *Server) handleListCurrencies(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Catalog.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []core.CurrencyInfo{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetDefaultCurrency(w http.ResponseWriter, r *http.Request) {
	def, err := s.deps.Catalog.Default(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, def)
}

func (s *Server) handleSetDefaultCurrency(w http.ResponseWriter, r *http.Request) {
	def, err := s.deps.Catalog.SetDefault(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, def)
}

func (s *Server) handleGetRates(w http.ResponseWriter, r *http.Request) {
	table, err := s.deps.Catalog.Rates(r.Context(), r.URL.Query().Get("base"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, table)
}

func (s *Server) handleUpdateRates(w http.ResponseWriter, r *http.Request) {
	var rates map[string]decimal.Decimal
	if err := decodeJSON(w, r, &rates); err != nil {
		s.writeError(w, r, err)
		return
	}
	base := chi.URLParam(r, "base")
	if err := s.deps.Catalog.UpdateRates(r.Context(), base, rates); err != nil {
		s.writeError(w, r, err)
		return
	}
	table, err := s.deps.Catalog.Rates(r.Context(), base)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, table)
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	var req convertRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.deps.Catalog.Convert(r.Context(), req.Amount, req.FromCurrency, req.ToCurrency)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Catalog.Initialize(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
