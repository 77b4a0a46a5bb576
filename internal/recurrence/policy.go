package recurrence

import (
	"time"

	"fintrack/internal/core"
)

// DayPolicy resolves the anchor day of a monthly or yearly rule for a given
// month. It returns false when the rule does not fire in that month at all.
type DayPolicy func(year int, month time.Month, day int) (int, bool)

// ClampToMonthEnd fires on the last day of months that are shorter than the
// anchor day, so a rule for the 31st fires on Feb 28/29, Apr 30 and so on.
func ClampToMonthEnd(year int, month time.Month, day int) (int, bool) {
	if last := core.DaysIn(year, month); day > last {
		return last, true
	}
	return day, true
}

// StrictDay never fires in months that lack the anchor day.
func StrictDay(year int, month time.Month, day int) (int, bool) {
	if day > core.DaysIn(year, month) {
		return 0, false
	}
	return day, true
}

// PolicyByName maps configuration values to policies.
func PolicyByName(name string) (DayPolicy, bool) {
	switch name {
	case "", "clamp":
		return ClampToMonthEnd, true
	case "strict":
		return StrictDay, true
	default:
		return nil, false
	}
}
