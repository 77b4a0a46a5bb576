package recurrence

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

func intPtr(v int) *int { return &v }

func datePtr(d core.Date) *core.Date { return &d }

func weeklyRule(dow int) core.RecurringRule {
	return core.RecurringRule{
		ID:          "weekly",
		Amount:      decimal.NewFromInt(20),
		Category:    "Groceries",
		Description: "market",
		StartDate:   core.NewDate(2024, 1, 1),
		EndDate:     datePtr(core.NewDate(2024, 3, 31)),
		Frequency:   core.Weekly,
		DayOfWeek:   intPtr(dow),
	}
}

func monthlyRule(day int) core.RecurringRule {
	return core.RecurringRule{
		ID:          "monthly",
		Amount:      decimal.NewFromInt(900),
		Category:    "Rent",
		Description: "flat",
		StartDate:   core.NewDate(2024, 1, 1),
		Frequency:   core.Monthly,
		DayOfMonth:  intPtr(day),
	}
}

func yearlyRule(month, day int) core.RecurringRule {
	return core.RecurringRule{
		ID:          "yearly",
		Amount:      decimal.NewFromInt(120),
		Category:    "Insurance",
		StartDate:   core.NewDate(2020, 1, 1),
		Frequency:   core.Yearly,
		DayOfMonth:  intPtr(day),
		MonthOfYear: intPtr(month),
	}
}

func TestIsDue_Daily(t *testing.T) {
	engine := NewEngine(nil)
	rule := core.RecurringRule{
		StartDate: core.NewDate(2024, 1, 10),
		EndDate:   datePtr(core.NewDate(2024, 1, 20)),
		Frequency: core.Daily,
	}

	tests := []struct {
		name string
		day  core.Date
		want bool
	}{
		{"before start - not due", core.NewDate(2024, 1, 9), false},
		{"on start - is due", core.NewDate(2024, 1, 10), true},
		{"inside range - is due", core.NewDate(2024, 1, 15), true},
		{"on end - is due", core.NewDate(2024, 1, 20), true},
		{"after end - not due", core.NewDate(2024, 1, 21), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.IsDue(rule, tt.day)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("IsDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsDue_WeeklyMatchesOnlyRuleWeekdayInRange(t *testing.T) {
	engine := NewEngine(nil)
	for dow := 0; dow < 7; dow++ {
		rule := weeklyRule(dow)
		for d := core.NewDate(2023, 12, 20); d.Before(core.NewDate(2024, 4, 10)); d = d.AddDays(1) {
			inRange := !d.Before(rule.StartDate) && !d.After(*rule.EndDate)
			want := inRange && d.WeekdayIndex() == dow
			got, err := engine.IsDue(rule, d)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != want {
				t.Fatalf("dow=%d day=%s: IsDue() = %v, want %v", dow, d, got, want)
			}
		}
	}
}

func TestIsDue_Monthly(t *testing.T) {
	tests := []struct {
		name   string
		policy DayPolicy
		rule   core.RecurringRule
		day    core.Date
		want   bool
	}{
		{"on target day - is due", nil, monthlyRule(15), core.NewDate(2024, 2, 15), true},
		{"other day - not due", nil, monthlyRule(15), core.NewDate(2024, 2, 14), false},
		{"day 31 on leap Feb 29 - is due", nil, monthlyRule(31), core.NewDate(2024, 2, 29), true},
		{"day 31 on Feb 28 of leap year - not due", nil, monthlyRule(31), core.NewDate(2024, 2, 28), false},
		{"day 31 on Feb 28 of common year - is due", nil, monthlyRule(31), core.NewDate(2025, 2, 28), true},
		{"day 31 on Apr 30 - is due", nil, monthlyRule(31), core.NewDate(2024, 4, 30), true},
		{"day 30 on Jan 31 - not due", nil, monthlyRule(30), core.NewDate(2024, 1, 31), false},
		{"strict: day 31 on Feb 29 - not due", StrictDay, monthlyRule(31), core.NewDate(2024, 2, 29), false},
		{"strict: day 31 on Mar 31 - is due", StrictDay, monthlyRule(31), core.NewDate(2024, 3, 31), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewEngine(tt.policy).IsDue(tt.rule, tt.day)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("IsDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsDue_MonthlyDay31FiresEveryFebruary(t *testing.T) {
	engine := NewEngine(nil)
	rule := monthlyRule(31)
	for year := 2024; year <= 2030; year++ {
		last := core.NewDate(year, 3, 1).AddDays(-1)
		due, err := engine.IsDue(rule, last)
		if err != nil {
			t.Fatal(err)
		}
		if !due {
			t.Errorf("expected rule to fire on %s", last)
		}
	}
}

func TestIsDue_Yearly(t *testing.T) {
	engine := NewEngine(nil)
	tests := []struct {
		name string
		rule core.RecurringRule
		day  core.Date
		want bool
	}{
		{"target month and day - is due", yearlyRule(6, 10), core.NewDate(2024, 6, 10), true},
		{"target day other month - not due", yearlyRule(6, 10), core.NewDate(2024, 7, 10), false},
		{"Feb 29 in common year falls on 28th", yearlyRule(2, 29), core.NewDate(2023, 2, 28), true},
		{"Feb 29 in leap year on 28th - not due", yearlyRule(2, 29), core.NewDate(2024, 2, 28), false},
		{"before start - not due", yearlyRule(6, 10), core.NewDate(2019, 6, 10), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.IsDue(tt.rule, tt.day)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("IsDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsDue_MalformedRule(t *testing.T) {
	engine := NewEngine(nil)
	rule := monthlyRule(1)
	rule.DayOfMonth = nil

	_, err := engine.IsDue(rule, core.NewDate(2024, 1, 1))
	if !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDueOccurrences(t *testing.T) {
	engine := NewEngine(nil)
	day := core.NewDate(2024, 2, 15) // a Thursday

	salary := monthlyRule(15)
	salary.ID = "salary"
	salary.IsIncome = true
	salary.Currency = "EUR"

	broken := monthlyRule(15)
	broken.ID = "broken"
	broken.DayOfMonth = nil

	rules := []core.RecurringRule{salary, weeklyRule(3), monthlyRule(1), broken}

	first, err := engine.DueOccurrences(rules, day)
	if !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected joined validation error, got %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("expected 2 occurrences, got %d", len(first))
	}

	want := core.Transaction{
		Amount:      salary.Amount,
		Currency:    "EUR",
		Category:    "Rent",
		Description: "flat",
		IsIncome:    true,
		Date:        day,
		RecurringID: "salary",
	}
	if !reflect.DeepEqual(first[0], want) {
		t.Fatalf("unexpected occurrence %+v", first[0])
	}

	second, _ := engine.DueOccurrences(rules, day)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("repeated evaluation for the same day must produce identical instances")
	}
}

func TestDueDates(t *testing.T) {
	engine := NewEngine(nil)

	tests := []struct {
		name          string
		rule          core.RecurringRule
		lastGenerated *core.Date
		asOf          core.Date
		want          []core.Date
	}{
		{
			name:  "monthly from start clamps short months",
			rule:  monthlyRule(31),
			asOf:  core.NewDate(2024, 4, 30),
			want:  []core.Date{core.NewDate(2024, 1, 31), core.NewDate(2024, 2, 29), core.NewDate(2024, 3, 31), core.NewDate(2024, 4, 30)},
		},
		{
			name:          "monthly resumes after last generated",
			rule:          monthlyRule(31),
			lastGenerated: datePtr(core.NewDate(2024, 2, 29)),
			asOf:          core.NewDate(2024, 4, 15),
			want:          []core.Date{core.NewDate(2024, 3, 31)},
		},
		{
			name:          "already generated today",
			rule:          monthlyRule(15),
			lastGenerated: datePtr(core.NewDate(2024, 2, 15)),
			asOf:          core.NewDate(2024, 2, 15),
			want:          nil,
		},
		{
			name: "weekly clipped by end date",
			rule: weeklyRule(0),
			asOf: core.NewDate(2024, 12, 31),
			want: mondays(core.NewDate(2024, 1, 1), core.NewDate(2024, 3, 31)),
		},
		{
			name: "yearly across years",
			rule: yearlyRule(1, 1),
			asOf: core.NewDate(2022, 6, 1),
			want: []core.Date{core.NewDate(2020, 1, 1), core.NewDate(2021, 1, 1), core.NewDate(2022, 1, 1)},
		},
		{
			name: "as of before start",
			rule: monthlyRule(1),
			asOf: core.NewDate(2023, 12, 31),
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.DueDates(tt.rule, tt.lastGenerated, tt.asOf)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DueDates() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDueDatesAgreeWithIsDue(t *testing.T) {
	engine := NewEngine(StrictDay)
	rule := monthlyRule(30)
	asOf := core.NewDate(2024, 12, 31)

	dates, err := engine.DueDates(rule, nil, asOf)
	if err != nil {
		t.Fatal(err)
	}
	set := make(map[core.Date]bool, len(dates))
	for _, d := range dates {
		set[d] = true
	}
	for d := rule.StartDate; !d.After(asOf); d = d.AddDays(1) {
		due, _ := engine.IsDue(rule, d)
		if due != set[d] {
			t.Fatalf("%s: IsDue=%v but listed=%v", d, due, set[d])
		}
	}
	if len(dates) != 11 {
		t.Fatalf("strict day 30 should skip February only, got %d dates", len(dates))
	}
}

func TestPolicyByName(t *testing.T) {
	for _, name := range []string{"", "clamp", "strict"} {
		if _, ok := PolicyByName(name); !ok {
			t.Errorf("PolicyByName(%q) not found", name)
		}
	}
	if _, ok := PolicyByName("nearest"); ok {
		t.Error("unknown policy should not resolve")
	}
	if day, ok := ClampToMonthEnd(2023, time.February, 30); !ok || day != 28 {
		t.Errorf("ClampToMonthEnd = %d, %v", day, ok)
	}
}

func mondays(from, to core.Date) []core.Date {
	var out []core.Date
	for d := from; !d.After(to); d = d.AddDays(1) {
		if d.WeekdayIndex() == 0 {
			out = append(out, d)
		}
	}
	return out
}
