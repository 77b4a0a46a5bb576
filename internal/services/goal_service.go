package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

type GoalRepository interface {
	CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error)
	GetGoal(ctx context.Context, id string) (core.Goal, error)
	ListGoals(ctx context.Context, category string) ([]core.Goal, error)
	UpdateGoal(ctx context.Context, g core.Goal) (core.Goal, error)
	AddToGoal(ctx context.Context, id string, amount decimal.Decimal) (core.Goal, error)
	DeleteGoal(ctx context.Context, id string) error
}

// GoalView is a goal shown in a requested currency. Progress always comes
// from the stored amounts; the Original fields are set only after a conversion.
type GoalView struct {
	core.Goal
	Progress              decimal.Decimal
	Completed             bool
	OriginalTargetAmount  *decimal.Decimal
	OriginalCurrentAmount *decimal.Decimal
	OriginalCurrency      core.CurrencyCode
}

type GoalService struct {
	repo    GoalRepository
	catalog *CurrencyCatalog
	logger  *log.Logger
}

func NewGoalService(repo GoalRepository, catalog *CurrencyCatalog) *GoalService {
	return &GoalService{
		repo:    repo,
		catalog: catalog,
		logger:  log.Default(log.ComponentPlanning),
	}
}

// Create stores g in the default currency unless it names one.
func (s *GoalService) Create(ctx context.Context, g core.Goal) (GoalView, error) {
	g, err := s.prepare(ctx, g)
	if err != nil {
		return GoalView{}, err
	}
	saved, err := s.repo.CreateGoal(ctx, g)
	if err != nil {
		return GoalView{}, fmt.Errorf("save goal: %w", err)
	}
	s.logger.InfoContext(ctx, "Goal created", log.FieldGoalID, saved.ID, "name", saved.Name)
	return newGoalView(saved), nil
}

// Get returns goal id, converted to target when target is non-empty.
func (s *GoalService) Get(ctx context.Context, id, target string) (GoalView, error) {
	g, err := s.repo.GetGoal(ctx, id)
	if err != nil {
		return GoalView{}, err
	}
	to, err := parseTarget(target)
	if err != nil {
		return GoalView{}, err
	}
	return s.view(ctx, g, to)
}

// List returns all goals, or those of one category.
func (s *GoalService) List(ctx context.Context, category, target string) ([]GoalView, error) {
	to, err := parseTarget(target)
	if err != nil {
		return nil, err
	}
	if category != "" {
		category = core.FormatCategory(category)
	}
	goals, err := s.repo.ListGoals(ctx, category)
	if err != nil {
		return nil, err
	}
	out := make([]GoalView, len(goals))
	for i, g := range goals {
		if out[i], err = s.view(ctx, g, to); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Update replaces goal id with g.
func (s *GoalService) Update(ctx context.Context, id string, g core.Goal) (GoalView, error) {
	current, err := s.repo.GetGoal(ctx, id)
	if err != nil {
		return GoalView{}, err
	}
	g.ID = current.ID
	g.CreatedAt = current.CreatedAt
	if g, err = s.prepare(ctx, g); err != nil {
		return GoalView{}, err
	}
	updated, err := s.repo.UpdateGoal(ctx, g)
	if err != nil {
		return GoalView{}, fmt.Errorf("update goal: %w", err)
	}
	return newGoalView(updated), nil
}

// Contribute adds amount, in the goal's currency, to the saved amount.
func (s *GoalService) Contribute(ctx context.Context, id string, amount decimal.Decimal) (GoalView, error) {
	if !amount.IsPositive() {
		return GoalView{}, core.NewValidationError("amount", "must be positive")
	}
	g, err := s.repo.AddToGoal(ctx, id, amount)
	if err != nil {
		return GoalView{}, err
	}
	v := newGoalView(g)
	s.logger.InfoContext(ctx, "Goal contribution recorded",
		log.FieldGoalID, id, log.FieldAmount, amount.String(), "progress", v.Progress.String())
	return v, nil
}

func (s *GoalService) Delete(ctx context.Context, id string) error {
	return s.repo.DeleteGoal(ctx, id)
}

func (s *GoalService) view(ctx context.Context, g core.Goal, to core.CurrencyCode) (GoalView, error) {
	v := newGoalView(g)
	if to == "" || g.Currency == to {
		return v, nil
	}
	target, err := s.catalog.Convert(ctx, g.TargetAmount, string(g.Currency), string(to))
	if err != nil {
		return GoalView{}, fmt.Errorf("convert goal %s: %w", g.ID, err)
	}
	current, err := s.catalog.Convert(ctx, g.CurrentAmount, string(g.Currency), string(to))
	if err != nil {
		return GoalView{}, fmt.Errorf("convert goal %s: %w", g.ID, err)
	}

	v.OriginalTargetAmount = &g.TargetAmount
	v.OriginalCurrentAmount = &g.CurrentAmount
	v.OriginalCurrency = g.Currency
	v.TargetAmount = target.ConvertedAmount
	v.CurrentAmount = current.ConvertedAmount
	v.Currency = to
	return v, nil
}

func (s *GoalService) prepare(ctx context.Context, g core.Goal) (core.Goal, error) {
	if g.Category != "" {
		g.Category = core.FormatCategory(g.Category)
	}
	code, err := s.catalog.resolveCode(ctx, g.Currency)
	if err != nil {
		return core.Goal{}, err
	}
	g.Currency = code
	if err := g.Validate(); err != nil {
		return core.Goal{}, err
	}
	return g, nil
}

func newGoalView(g core.Goal) GoalView {
	return GoalView{Goal: g, Progress: g.Progress(), Completed: g.IsCompleted()}
}

func parseTarget(target string) (core.CurrencyCode, error) {
	if target == "" {
		return "", nil
	}
	return core.ParseCurrencyCode(target)
}
