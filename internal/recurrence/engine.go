// Package recurrence evaluates recurring-transaction rules.
//
// The engine is stateless: it never records which occurrences were already
// materialised. Callers deduplicate on (rule ID, date) at the storage layer.
package recurrence

import (
	"errors"
	"fmt"

	"fintrack/internal/core"
)

type Engine struct {
	policy DayPolicy
}

// NewEngine returns an engine using policy for month-end handling.
// A nil policy means ClampToMonthEnd.
func NewEngine(policy DayPolicy) *Engine {
	if policy == nil {
		policy = ClampToMonthEnd
	}
	return &Engine{policy: policy}
}

// IsDue reports whether rule has an occurrence on day.
func (e *Engine) IsDue(rule core.RecurringRule, day core.Date) (bool, error) {
	if err := rule.ValidateSchedule(); err != nil {
		return false, err
	}
	return e.matches(rule, day), nil
}

// matches assumes rule has already been validated.
func (e *Engine) matches(rule core.RecurringRule, day core.Date) bool {
	if day.Before(rule.StartDate) {
		return false
	}
	if rule.EndDate != nil && day.After(*rule.EndDate) {
		return false
	}
	return duenessStrategies[rule.Frequency].Matches(rule, day, e.policy)
}

// DueOccurrences synthesises one transaction per rule that is due on day.
// The output depends only on its inputs, so repeated calls for the same day
// yield identical instances. Malformed rules are skipped and reported in the
// joined error while the remaining rules are still evaluated.
func (e *Engine) DueOccurrences(rules []core.RecurringRule, day core.Date) ([]core.Transaction, error) {
	var (
		out  []core.Transaction
		errs []error
	)
	for _, rule := range rules {
		due, err := e.IsDue(rule, day)
		if err != nil {
			errs = append(errs, fmt.Errorf("rule %s: %w", rule.ID, err))
			continue
		}
		if due {
			out = append(out, Occurrence(rule, day))
		}
	}
	return out, errors.Join(errs...)
}

// DueDates lists every occurrence after lastGenerated up to and including
// asOf, clipped to the rule's range. A nil lastGenerated means the rule has
// never produced anything and generation starts at StartDate.
func (e *Engine) DueDates(rule core.RecurringRule, lastGenerated *core.Date, asOf core.Date) ([]core.Date, error) {
	if err := rule.ValidateSchedule(); err != nil {
		return nil, err
	}

	from := rule.StartDate
	if lastGenerated != nil && !lastGenerated.Before(from) {
		from = lastGenerated.AddDays(1)
	}
	to := asOf
	if rule.EndDate != nil && rule.EndDate.Before(to) {
		to = *rule.EndDate
	}

	var dates []core.Date
	for d := from; !d.After(to); d = d.AddDays(1) {
		if e.matches(rule, d) {
			dates = append(dates, d)
		}
	}
	return dates, nil
}

// Occurrence materialises rule as a transaction dated day.
func Occurrence(rule core.RecurringRule, day core.Date) core.Transaction {
	return core.Transaction{
		Amount:      rule.Amount,
		Currency:    rule.Currency,
		Category:    rule.Category,
		Description: rule.Description,
		IsIncome:    rule.IsIncome,
		Date:        day,
		RecurringID: rule.ID,
	}
}
