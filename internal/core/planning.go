package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	PeriodWeekly  BudgetPeriod = "weekly"
	PeriodMonthly BudgetPeriod = "monthly"
	PeriodYearly  BudgetPeriod = "yearly"
)

// Budget status levels, by share of the budget spent.
const (
	BudgetUnder       = "under"
	BudgetApproaching = "approaching" // 75% or more
	BudgetExceeded    = "exceeded"    // 90% or more
)

var hundred = decimal.NewFromInt(100)

type (
	BudgetPeriod string

	// Budget caps spending in one category. There is at most one budget per category.
	Budget struct {
		ID        string
		Category  string
		Amount    decimal.Decimal
		Currency  CurrencyCode
		Period    BudgetPeriod
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	// BudgetStatus is the spending against a budget over one period.
	BudgetStatus struct {
		Budget         Budget
		From           Date
		To             Date
		Spent          decimal.Decimal
		Remaining      decimal.Decimal
		PercentageUsed decimal.Decimal
		Status         string
	}

	// Goal is a savings target. CurrentAmount grows through contributions.
	Goal struct {
		ID            string
		Name          string
		TargetAmount  decimal.Decimal
		CurrentAmount decimal.Decimal
		Currency      CurrencyCode
		Category      string
		Deadline      *Date
		Description   string
		CreatedAt     time.Time
		UpdatedAt     time.Time
	}
)

func (p BudgetPeriod) IsValid() bool {
	switch p {
	case PeriodWeekly, PeriodMonthly, PeriodYearly:
		return true
	default:
		return false
	}
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Category) == "" {
		return NewValidationError("category", "cannot be empty")
	}
	if !b.Amount.IsPositive() {
		return NewValidationError("amount", "must be positive")
	}
	if !b.Period.IsValid() {
		return NewValidationError("period", "must be one of weekly, monthly, yearly")
	}
	if b.Currency != "" {
		if _, err := ParseCurrencyCode(string(b.Currency)); err != nil {
			return err
		}
	}
	return nil
}

// Window returns the first and last day of the budget period containing day.
// Weeks start on Monday.
func (b Budget) Window(day Date) (Date, Date) {
	switch b.Period {
	case PeriodWeekly:
		from := day.AddDays(-day.WeekdayIndex())
		return from, from.AddDays(6)
	case PeriodYearly:
		return NewDate(day.Year(), 1, 1), NewDate(day.Year(), 12, 31)
	default:
		return NewDate(day.Year(), day.Month(), 1),
			NewDate(day.Year(), day.Month(), DaysIn(day.Year(), time.Month(day.Month())))
	}
}

// NewBudgetStatus compares spent against the budget amount.
func NewBudgetStatus(b Budget, from, to Date, spent decimal.Decimal) BudgetStatus {
	pct := decimal.Zero
	if b.Amount.IsPositive() {
		pct = spent.Div(b.Amount).Mul(hundred).Round(2)
	}

	status := BudgetUnder
	switch {
	case pct.GreaterThanOrEqual(decimal.NewFromInt(90)):
		status = BudgetExceeded
	case pct.GreaterThanOrEqual(decimal.NewFromInt(75)):
		status = BudgetApproaching
	}

	return BudgetStatus{
		Budget:         b,
		From:           from,
		To:             to,
		Spent:          spent,
		Remaining:      b.Amount.Sub(spent),
		PercentageUsed: pct,
		Status:         status,
	}
}

func (g Goal) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return NewValidationError("name", "cannot be empty")
	}
	if len(g.Name) > 100 {
		return NewValidationError("name", "too long (max 100 characters)")
	}
	if !g.TargetAmount.IsPositive() {
		return NewValidationError("target_amount", "must be positive")
	}
	if g.CurrentAmount.IsNegative() {
		return NewValidationError("current_amount", "cannot be negative")
	}
	if len(g.Description) > 200 {
		return NewValidationError("description", "too long (max 200 characters)")
	}
	if g.Currency != "" {
		if _, err := ParseCurrencyCode(string(g.Currency)); err != nil {
			return err
		}
	}
	return nil
}

// Progress is the saved share of the target in percent, capped at 100.
func (g Goal) Progress() decimal.Decimal {
	if !g.TargetAmount.IsPositive() {
		return decimal.Zero
	}
	pct := g.CurrentAmount.Div(g.TargetAmount).Mul(hundred).Round(2)
	return decimal.Min(pct, hundred)
}

func (g Goal) IsCompleted() bool {
	return g.Progress().GreaterThanOrEqual(hundred)
}
