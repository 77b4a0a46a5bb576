package recurrence

import (
	"testing"

	"fintrack/internal/core"
)

func TestDescribe(t *testing.T) {
	tests := []struct {
		rule core.RecurringRule
		want string
	}{
		{core.RecurringRule{Frequency: core.Daily}, "Daily"},
		{core.RecurringRule{Frequency: core.Weekly, DayOfWeek: intPtr(0)}, "Weekly (every Monday)"},
		{core.RecurringRule{Frequency: core.Weekly, DayOfWeek: intPtr(6)}, "Weekly (every Sunday)"},
		{core.RecurringRule{Frequency: core.Monthly, DayOfMonth: intPtr(15)}, "Monthly (day 15)"},
		{core.RecurringRule{Frequency: core.Yearly, MonthOfYear: intPtr(1), DayOfMonth: intPtr(1)}, "Yearly (January 1)"},
		{core.RecurringRule{Frequency: core.Yearly, MonthOfYear: intPtr(12), DayOfMonth: intPtr(25)}, "Yearly (December 25)"},
		{core.RecurringRule{Frequency: core.Weekly}, "Weekly"},
		{core.RecurringRule{Frequency: "fortnightly"}, "fortnightly"},
	}
	for _, tt := range tests {
		if got := Describe(tt.rule); got != tt.want {
			t.Errorf("Describe(%+v) = %q, want %q", tt.rule, got, tt.want)
		}
	}
}
