package services

import (
	"context"
	"fmt"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/recurrence"
)

// RecurringRepository is the storage for recurring rules.
type RecurringRepository interface {
	CreateRecurringRule(ctx context.Context, rule core.RecurringRule) (core.RecurringRule, error)
	GetRecurringRule(ctx context.Context, id string) (core.RecurringRule, error)
	ListRecurringRules(ctx context.Context) ([]core.RecurringRule, error)
	DeleteRecurringRule(ctx context.Context, id string) error
	SetLastGenerated(ctx context.Context, id string, day core.Date) error
}

// DescribedRule pairs a rule with its human-readable schedule.
type DescribedRule struct {
	core.RecurringRule
	Schedule string
}

func describe(rule core.RecurringRule) DescribedRule {
	return DescribedRule{RecurringRule: rule, Schedule: recurrence.Describe(rule)}
}

// RecurringService manages recurring rules. Rules are immutable once stored;
// an edit is a delete followed by a create.
type RecurringService struct {
	repo    RecurringRepository
	catalog *CurrencyCatalog
	logger  *log.Logger
}

func NewRecurringService(repo RecurringRepository, catalog *CurrencyCatalog) *RecurringService {
	return &RecurringService{
		repo:    repo,
		catalog: catalog,
		logger:  log.Default(log.ComponentRecurring),
	}
}

func (s *RecurringService) Create(ctx context.Context, rule core.RecurringRule) (DescribedRule, error) {
	rule.Category = core.FormatCategory(rule.Category)
	rule.LastGenerated = nil
	if rule.Currency == "" {
		def, err := s.catalog.Default(ctx)
		if err != nil {
			return DescribedRule{}, fmt.Errorf("resolve default currency: %w", err)
		}
		rule.Currency = def.Code
	}
	if err := rule.Validate(); err != nil {
		return DescribedRule{}, err
	}
	rule.Currency = core.CurrencyCode(normaliseCode(string(rule.Currency)))

	saved, err := s.repo.CreateRecurringRule(ctx, rule)
	if err != nil {
		return DescribedRule{}, fmt.Errorf("save recurring rule: %w", err)
	}
	s.logger.InfoContext(ctx, "Recurring rule created", log.NewFields().WithRule(saved).ToSlice()...)
	return describe(saved), nil
}

func (s *RecurringService) Get(ctx context.Context, id string) (DescribedRule, error) {
	rule, err := s.repo.GetRecurringRule(ctx, id)
	if err != nil {
		return DescribedRule{}, err
	}
	return describe(rule), nil
}

func (s *RecurringService) List(ctx context.Context) ([]DescribedRule, error) {
	rules, err := s.repo.ListRecurringRules(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]DescribedRule, len(rules))
	for i, r := range rules {
		out[i] = describe(r)
	}
	return out, nil
}

func (s *RecurringService) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteRecurringRule(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Recurring rule deleted", log.FieldRuleID, id)
	return nil
}

func normaliseCode(s string) string {
	code, err := core.ParseCurrencyCode(s)
	if err != nil {
		return s
	}
	return string(code)
}
