package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

type BudgetRepository interface {
	CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error)
	GetBudget(ctx context.Context, id string) (core.Budget, error)
	GetBudgetByCategory(ctx context.Context, category string) (core.Budget, error)
	ListBudgets(ctx context.Context) ([]core.Budget, error)
	UpdateBudget(ctx context.Context, b core.Budget) (core.Budget, error)
	DeleteBudget(ctx context.Context, id string) error
}

// TransactionLister is the read side of the transaction store.
type TransactionLister interface {
	ListTransactions(ctx context.Context, f storage.TransactionFilter) ([]core.Transaction, error)
}

// BudgetService manages per-category budgets and measures spending against them.
type BudgetService struct {
	repo    BudgetRepository
	txs     TransactionLister
	catalog *CurrencyCatalog
	logger  *log.Logger
}

func NewBudgetService(repo BudgetRepository, txs TransactionLister, catalog *CurrencyCatalog) *BudgetService {
	return &BudgetService{
		repo:    repo,
		txs:     txs,
		catalog: catalog,
		logger:  log.Default(log.ComponentPlanning),
	}
}

// Create stores b. Only one budget may exist per category.
func (s *BudgetService) Create(ctx context.Context, b core.Budget) (core.Budget, error) {
	b, err := s.prepare(ctx, b)
	if err != nil {
		return core.Budget{}, err
	}
	saved, err := s.repo.CreateBudget(ctx, b)
	if err != nil {
		return core.Budget{}, fmt.Errorf("save budget: %w", err)
	}
	s.logger.InfoContext(ctx, "Budget created",
		log.FieldCategory, saved.Category, log.FieldAmount, saved.Amount.String())
	return saved, nil
}

func (s *BudgetService) Get(ctx context.Context, id string) (core.Budget, error) {
	return s.repo.GetBudget(ctx, id)
}

func (s *BudgetService) GetByCategory(ctx context.Context, category string) (core.Budget, error) {
	return s.repo.GetBudgetByCategory(ctx, core.FormatCategory(category))
}

func (s *BudgetService) List(ctx context.Context) ([]core.Budget, error) {
	return s.repo.ListBudgets(ctx)
}

// Update replaces budget id with b.
func (s *BudgetService) Update(ctx context.Context, id string, b core.Budget) (core.Budget, error) {
	current, err := s.repo.GetBudget(ctx, id)
	if err != nil {
		return core.Budget{}, err
	}
	b.ID = current.ID
	b.CreatedAt = current.CreatedAt
	if b, err = s.prepare(ctx, b); err != nil {
		return core.Budget{}, err
	}
	updated, err := s.repo.UpdateBudget(ctx, b)
	if err != nil {
		return core.Budget{}, fmt.Errorf("update budget: %w", err)
	}
	return updated, nil
}

func (s *BudgetService) Delete(ctx context.Context, id string) error {
	return s.repo.DeleteBudget(ctx, id)
}

// Status sums the category's expenses over the budget period containing
// today, in the budget's currency.
func (s *BudgetService) Status(ctx context.Context, category string, today core.Date) (core.BudgetStatus, error) {
	b, err := s.GetByCategory(ctx, category)
	if err != nil {
		return core.BudgetStatus{}, err
	}
	from, to := b.Window(today)
	txs, err := s.txs.ListTransactions(ctx, storage.TransactionFilter{From: &from, To: &to})
	if err != nil {
		return core.BudgetStatus{}, fmt.Errorf("list transactions: %w", err)
	}

	spent := decimal.Zero
	for _, tx := range txs {
		if tx.IsIncome || tx.Category != b.Category {
			continue
		}
		amount := tx.Amount
		if tx.Currency != b.Currency {
			res, err := s.catalog.Convert(ctx, tx.Amount, string(tx.Currency), string(b.Currency))
			if err != nil {
				return core.BudgetStatus{}, fmt.Errorf("convert transaction %s: %w", tx.ID, err)
			}
			amount = res.ConvertedAmount
		}
		spent = spent.Add(amount)
	}
	return core.NewBudgetStatus(b, from, to, spent), nil
}

func (s *BudgetService) prepare(ctx context.Context, b core.Budget) (core.Budget, error) {
	b.Category = core.FormatCategory(b.Category)
	if b.Period == "" {
		b.Period = core.PeriodMonthly
	}
	code, err := s.catalog.resolveCode(ctx, b.Currency)
	if err != nil {
		return core.Budget{}, err
	}
	b.Currency = code
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	return b, nil
}
