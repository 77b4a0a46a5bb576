package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

const dateLayout = "2006-01-02"

type (
	Frequency string

	// Date is a calendar day. The time part is always midnight UTC.
	Date struct {
		time.Time
	}

	Transaction struct {
		ID          string
		Amount      decimal.Decimal
		Currency    CurrencyCode
		Category    string
		Description string
		IsIncome    bool
		Date        Date
		RecurringID string // empty for manually entered transactions
		CreatedAt   time.Time
	}

	// RecurringRule is a template from which dated transactions are generated.
	// Only the anchor fields relevant to Frequency are set.
	RecurringRule struct {
		ID            string
		Amount        decimal.Decimal
		Currency      CurrencyCode
		Category      string
		Description   string
		IsIncome      bool
		StartDate     Date
		EndDate       *Date
		Frequency     Frequency
		DayOfWeek     *int // Monday=0 .. Sunday=6
		DayOfMonth    *int
		MonthOfYear   *int
		LastGenerated *Date
		CreatedAt     time.Time
	}
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a date string in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, NewValidationError("date", "must be YYYY-MM-DD")
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// WeekdayIndex returns the day of week with Monday=0 and Sunday=6.
func (d Date) WeekdayIndex() int {
	return (int(d.Weekday()) + 6) % 7
}

// AddDays returns the date n days later (or earlier for negative n).
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }
func (d Date) After(o Date) bool  { return d.Time.After(o.Time) }
func (d Date) Equal(o Date) bool  { return d.Time.Equal(o.Time) }

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	return d.UnmarshalText([]byte(strings.Trim(string(b), `"`)))
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (f Frequency) IsValid() bool {
	switch f {
	case Daily, Weekly, Monthly, Yearly:
		return true
	default:
		return false
	}
}

func (t Transaction) Validate() error {
	if t.Date.IsZero() {
		return NewValidationError("date", "cannot be zero")
	}
	if !t.Amount.IsPositive() {
		return NewValidationError("amount", "must be positive")
	}
	if strings.TrimSpace(t.Category) == "" {
		return NewValidationError("category", "cannot be empty")
	}
	if len(t.Description) > 200 {
		return NewValidationError("description", "too long (max 200 characters)")
	}
	if t.Currency != "" {
		if _, err := ParseCurrencyCode(string(t.Currency)); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the whole rule. It is applied when a rule is created.
func (r RecurringRule) Validate() error {
	if !r.Amount.IsPositive() {
		return NewValidationError("amount", "must be positive")
	}
	if strings.TrimSpace(r.Category) == "" {
		return NewValidationError("category", "cannot be empty")
	}
	if len(r.Description) > 200 {
		return NewValidationError("description", "too long (max 200 characters)")
	}
	if r.Currency != "" {
		if _, err := ParseCurrencyCode(string(r.Currency)); err != nil {
			return err
		}
	}
	return r.ValidateSchedule()
}

// ValidateSchedule checks the date range and that exactly the anchor fields
// required by the frequency are present.
func (r RecurringRule) ValidateSchedule() error {
	if r.StartDate.IsZero() {
		return NewValidationError("start_date", "cannot be zero")
	}
	if r.EndDate != nil && r.EndDate.Before(r.StartDate) {
		return NewValidationError("end_date", "must not be before start date")
	}
	if !r.Frequency.IsValid() {
		return NewValidationError("frequency", "must be one of daily, weekly, monthly, yearly")
	}

	needWeek := r.Frequency == Weekly
	needDay := r.Frequency == Monthly || r.Frequency == Yearly
	needMonth := r.Frequency == Yearly

	if err := checkAnchor("day_of_week", r.DayOfWeek, needWeek, 0, 6); err != nil {
		return err
	}
	if err := checkAnchor("day_of_month", r.DayOfMonth, needDay, 1, 31); err != nil {
		return err
	}
	return checkAnchor("month_of_year", r.MonthOfYear, needMonth, 1, 12)
}

func checkAnchor(field string, v *int, required bool, lo, hi int) error {
	switch {
	case required && v == nil:
		return NewValidationError(field, "is required for this frequency")
	case !required && v != nil:
		return NewValidationError(field, "must be empty for this frequency")
	case v != nil && (*v < lo || *v > hi):
		return NewValidationError(field, "out of range")
	}
	return nil
}
