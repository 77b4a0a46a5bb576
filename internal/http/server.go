// Package http exposes transactions, recurring rules, budgets, goals and the
// currency catalog as a JSON REST API.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/services"
)

// Generator triggers recurring generation on demand.
type Generator interface {
	ProcessDue(ctx context.Context, now time.Time) (services.GenerationResult, error)
}

// Deps are the services the handlers call.
type Deps struct {
	Catalog      *services.CurrencyCatalog
	Transactions *services.TransactionService
	Recurring    *services.RecurringService
	Budgets      *services.BudgetService
	Goals        *services.GoalService
	Generator    Generator
	// Ping reports storage health; nil means always healthy.
	Ping func(ctx context.Context) error
	// Limiter throttles writes per client when set.
	Limiter *ratelimit.Limiter
}

type Server struct {
	http.Server
	deps   Deps
	logger *log.Logger
	now    func() time.Time
}

// NewServer builds the server and its routes. The caller starts it with
// ListenAndServe and stops it with Shutdown.
func NewServer(addr string, deps Deps) *Server {
	s := &Server{
		deps:   deps,
		logger: log.Default(log.ComponentHTTP),
		now:    time.Now,
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(log.RequestLogger(s.logger, func(r *http.Request) string {
		return middleware.GetReqID(r.Context())
	}))
	r.Use(middleware.Recoverer)
	r.Use(apiHeaders)
	if s.deps.Limiter != nil {
		r.Use(s.deps.Limiter.Writes)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed"})
	})

	r.Get("/health", s.handleHealth)

	r.Route("/currencies", func(r chi.Router) {
		r.Get("/", s.handleListCurrencies)
		r.Get("/default", s.handleGetDefaultCurrency)
		r.Post("/default/{code}", s.handleSetDefaultCurrency)
		r.Get("/rates", s.handleGetRates)
		r.Post("/rates/{base}", s.handleUpdateRates)
		r.Post("/convert", s.handleConvert)
		r.Post("/initialize", s.handleInitialize)
	})

	r.Route("/transactions", func(r chi.Router) {
		r.Get("/", s.handleListTransactions)
		r.Post("/", s.handleCreateTransaction)
		r.Get("/{id}", s.handleGetTransaction)
		r.Put("/{id}", s.handleUpdateTransaction)
		r.Delete("/{id}", s.handleDeleteTransaction)
	})

	r.Route("/recurring-transactions", func(r chi.Router) {
		r.Get("/", s.handleListRules)
		r.Post("/", s.handleCreateRule)
		r.Post("/generate-now", s.handleGenerateNow)
		r.Get("/{id}", s.handleGetRule)
		r.Delete("/{id}", s.handleDeleteRule)
	})

	r.Route("/budgets", func(r chi.Router) {
		r.Get("/", s.handleListBudgets)
		r.Post("/", s.handleCreateBudget)
		r.Get("/category/{category}", s.handleGetBudgetByCategory)
		r.Get("/status/{category}", s.handleBudgetStatus)
		r.Get("/{id}", s.handleGetBudget)
		r.Put("/{id}", s.handleUpdateBudget)
		r.Delete("/{id}", s.handleDeleteBudget)
	})

	r.Route("/goals", func(r chi.Router) {
		r.Get("/", s.handleListGoals)
		r.Post("/", s.handleCreateGoal)
		r.Get("/{id}", s.handleGetGoal)
		r.Put("/{id}", s.handleUpdateGoal)
		r.Delete("/{id}", s.handleDeleteGoal)
		r.Post("/{id}/contribute", s.handleContributeToGoal)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ping != nil {
		if err := s.deps.Ping(r.Context()); err != nil {
			log.FromContext(r.Context()).ErrorContext(r.Context(), "Health check failed", log.FieldError, err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
