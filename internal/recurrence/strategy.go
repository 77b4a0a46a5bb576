package recurrence

import (
	"time"

	"fintrack/internal/core"
)

// DuenessChecker decides whether a validated rule fires on a given day.
// Range checks happen before a checker is consulted.
type DuenessChecker interface {
	Matches(rule core.RecurringRule, day core.Date, policy DayPolicy) bool
}

// DailyChecker fires every day.
type DailyChecker struct{}

func (DailyChecker) Matches(core.RecurringRule, core.Date, DayPolicy) bool {
	return true
}

// WeeklyChecker fires on the rule's weekday (Monday=0).
type WeeklyChecker struct{}

func (WeeklyChecker) Matches(rule core.RecurringRule, day core.Date, _ DayPolicy) bool {
	return day.WeekdayIndex() == *rule.DayOfWeek
}

// MonthlyChecker fires on the policy-resolved day of every month.
type MonthlyChecker struct{}

func (MonthlyChecker) Matches(rule core.RecurringRule, day core.Date, policy DayPolicy) bool {
	target, ok := policy(day.Year(), time.Month(day.Month()), *rule.DayOfMonth)
	return ok && day.Day() == target
}

// YearlyChecker fires once a year in the rule's month.
type YearlyChecker struct{}

func (YearlyChecker) Matches(rule core.RecurringRule, day core.Date, policy DayPolicy) bool {
	if day.Month() != *rule.MonthOfYear {
		return false
	}
	return MonthlyChecker{}.Matches(rule, day, policy)
}

var duenessStrategies = map[core.Frequency]DuenessChecker{
	core.Daily:   DailyChecker{},
	core.Weekly:  WeeklyChecker{},
	core.Monthly: MonthlyChecker{},
	core.Yearly:  YearlyChecker{},
}
