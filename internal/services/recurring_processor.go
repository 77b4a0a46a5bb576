package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/recurrence"
)

// GenerationResult summarises one ProcessDue run.
type GenerationResult struct {
	Created int      `json:"created"`
	Errors  []string `json:"errors"`
}

// RecurringProcessor materialises due occurrences of every recurring rule.
type RecurringProcessor struct {
	repo         RecurringRepository
	transactions *TransactionService
	engine       *recurrence.Engine
	logger       *log.Logger
}

func NewRecurringProcessor(repo RecurringRepository, transactions *TransactionService, engine *recurrence.Engine) *RecurringProcessor {
	if engine == nil {
		engine = recurrence.NewEngine(nil)
	}
	return &RecurringProcessor{
		repo:         repo,
		transactions: transactions,
		engine:       engine,
		logger:       log.Default(log.ComponentRecurring),
	}
}

// ProcessDue creates every occurrence between each rule's last generated
// date and now. Occurrences that already exist are counted as generated, so
// overlapping runs never duplicate. A failing rule is reported in the
// result and does not stop the others.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, now time.Time) (GenerationResult, error) {
	if p.repo == nil || p.transactions == nil {
		return GenerationResult{}, fmt.Errorf("processor not properly initialized")
	}

	rules, err := p.repo.ListRecurringRules(ctx)
	if err != nil {
		return GenerationResult{}, fmt.Errorf("list recurring rules: %w", err)
	}

	today := core.DateOf(now)
	result := GenerationResult{Errors: []string{}}

	p.logger.InfoContext(ctx, "Processing recurring rules",
		"total_rules", len(rules),
		log.FieldDate, today.String())

	for _, rule := range rules {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if finished(rule, today) {
			continue
		}

		created, err := p.processRule(ctx, rule, today)
		result.Created += created
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("rule %s: %v", rule.ID, err))
			p.logger.ErrorContext(ctx, "Failed to generate recurring transactions",
				log.NewFields().WithRule(rule).WithError(err).ToSlice()...)
		}
	}

	p.logger.InfoContext(ctx, "Recurring processing complete",
		log.FieldCreated, result.Created,
		"failed_rules", len(result.Errors))
	return result, nil
}

// finished reports whether rule ended before today and was generated up to
// its end date.
func finished(rule core.RecurringRule, today core.Date) bool {
	if rule.EndDate == nil || !rule.EndDate.Before(today) || rule.LastGenerated == nil {
		return false
	}
	return !rule.LastGenerated.Before(*rule.EndDate)
}

func (p *RecurringProcessor) processRule(ctx context.Context, rule core.RecurringRule, today core.Date) (int, error) {
	dates, err := p.engine.DueDates(rule, rule.LastGenerated, today)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, day := range dates {
		_, err := p.transactions.CreateFromRule(ctx, rule, day)
		switch {
		case err == nil:
			created++
			p.logger.DebugContext(ctx, "Created transaction from recurring rule",
				log.FieldRuleID, rule.ID,
				log.FieldDate, day.String())
		case errors.Is(err, core.ErrDuplicate):
			// generated by an earlier or concurrent run
		default:
			return created, fmt.Errorf("create occurrence %s: %w", day, err)
		}

		if err := p.repo.SetLastGenerated(ctx, rule.ID, day); err != nil {
			return created, fmt.Errorf("advance last generated: %w", err)
		}
	}
	return created, nil
}
