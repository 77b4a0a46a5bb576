package recurrence

import (
	"fmt"

	"fintrack/internal/core"
)

var dayNames = [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

var monthNames = [12]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// Describe renders a rule's schedule for display, e.g. "Weekly (every Friday)".
func Describe(rule core.RecurringRule) string {
	switch rule.Frequency {
	case core.Daily:
		return "Daily"
	case core.Weekly:
		if rule.DayOfWeek == nil || *rule.DayOfWeek < 0 || *rule.DayOfWeek > 6 {
			return "Weekly"
		}
		return fmt.Sprintf("Weekly (every %s)", dayNames[*rule.DayOfWeek])
	case core.Monthly:
		if rule.DayOfMonth == nil {
			return "Monthly"
		}
		return fmt.Sprintf("Monthly (day %d)", *rule.DayOfMonth)
	case core.Yearly:
		if rule.DayOfMonth == nil || rule.MonthOfYear == nil || *rule.MonthOfYear < 1 || *rule.MonthOfYear > 12 {
			return "Yearly"
		}
		return fmt.Sprintf("Yearly (%s %d)", monthNames[*rule.MonthOfYear-1], *rule.DayOfMonth)
	default:
		return string(rule.Frequency)
	}
}
