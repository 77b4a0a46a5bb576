package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

const ruleColumns = `id, amount, currency, category, description, is_income, start_date, end_date,
	frequency, day_of_week, day_of_month, month_of_year, last_generated, created_at`

func (r *SQLiteRepository) CreateRecurringRule(ctx context.Context, rule core.RecurringRule) (core.RecurringRule, error) {
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO recurring_transactions (`+ruleColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.ID, rule.Amount.String(), string(rule.Currency), rule.Category, rule.Description,
		boolInt(rule.IsIncome), rule.StartDate.String(), nullDate(rule.EndDate),
		string(rule.Frequency), nullInt(rule.DayOfWeek), nullInt(rule.DayOfMonth), nullInt(rule.MonthOfYear),
		nullDate(rule.LastGenerated), rule.CreatedAt,
	)
	if err != nil {
		return core.RecurringRule{}, mapWriteError("create recurring rule", err)
	}
	return rule, nil
}

func (r *SQLiteRepository) GetRecurringRule(ctx context.Context, id string) (core.RecurringRule, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+ruleColumns+` FROM recurring_transactions WHERE id = ?`, id)
	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.RecurringRule{}, fmt.Errorf("get recurring rule %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.RecurringRule{}, fmt.Errorf("get recurring rule %s: %w", id, err)
	}
	return rule, nil
}

func (r *SQLiteRepository) ListRecurringRules(ctx context.Context) ([]core.RecurringRule, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+ruleColumns+` FROM recurring_transactions ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list recurring rules: %w", err)
	}
	defer rows.Close()

	var out []core.RecurringRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recurring rule: %w", err)
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

// DeleteRecurringRule removes the rule. Transactions it generated stay and
// lose their link to it.
func (r *SQLiteRepository) DeleteRecurringRule(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM recurring_transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete recurring rule %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete recurring rule %s: %w", id, core.ErrNotFound)
	}
	return nil
}

// SetLastGenerated advances the rule's generation watermark. It never moves
// it backwards.
func (r *SQLiteRepository) SetLastGenerated(ctx context.Context, id string, day core.Date) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE recurring_transactions SET last_generated = ?
		 WHERE id = ? AND (last_generated IS NULL OR last_generated < ?)`,
		day.String(), id, day.String())
	if err != nil {
		return fmt.Errorf("set last generated %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetRecurringRule(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func scanRule(s rowScanner) (core.RecurringRule, error) {
	var (
		rule                 core.RecurringRule
		amount, currency     string
		isIncome             int
		startDate, frequency string
		endDate, lastGen     sql.NullString
		dow, dom, moy        sql.NullInt64
	)
	if err := s.Scan(&rule.ID, &amount, &currency, &rule.Category, &rule.Description, &isIncome,
		&startDate, &endDate, &frequency, &dow, &dom, &moy, &lastGen, &rule.CreatedAt); err != nil {
		return core.RecurringRule{}, err
	}

	var err error
	if rule.Amount, err = decimal.NewFromString(amount); err != nil {
		return core.RecurringRule{}, fmt.Errorf("amount %q: %w", amount, err)
	}
	if rule.StartDate, err = core.ParseDate(startDate); err != nil {
		return core.RecurringRule{}, err
	}
	if rule.EndDate, err = datePtrFrom(endDate); err != nil {
		return core.RecurringRule{}, err
	}
	if rule.LastGenerated, err = datePtrFrom(lastGen); err != nil {
		return core.RecurringRule{}, err
	}
	rule.Currency = core.CurrencyCode(currency)
	rule.IsIncome = isIncome != 0
	rule.Frequency = core.Frequency(frequency)
	rule.DayOfWeek = intPtrFrom(dow)
	rule.DayOfMonth = intPtrFrom(dom)
	rule.MonthOfYear = intPtrFrom(moy)
	return rule, nil
}
