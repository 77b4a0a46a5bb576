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

const budgetColumns = `id, category, amount, currency, period, created_at, updated_at`

// CreateBudget stores b. A second budget for the same category fails with
// core.ErrDuplicate.
func (r *SQLiteRepository) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO budgets (`+budgetColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Category, b.Amount.String(), string(b.Currency), string(b.Period), b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return core.Budget{}, mapWriteError("create budget", err)
	}
	return b, nil
}

func (r *SQLiteRepository) GetBudget(ctx context.Context, id string) (core.Budget, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE id = ?`, id)
	return getBudget(row, "get budget "+id)
}

func (r *SQLiteRepository) GetBudgetByCategory(ctx context.Context, category string) (core.Budget, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE category = ?`, category)
	return getBudget(row, "get budget for "+category)
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+budgetColumns+` FROM budgets ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	b.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE budgets SET category = ?, amount = ?, currency = ?, period = ?, updated_at = ? WHERE id = ?`,
		b.Category, b.Amount.String(), string(b.Currency), string(b.Period), b.UpdatedAt, b.ID,
	)
	if err != nil {
		return core.Budget{}, mapWriteError("update budget "+b.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Budget{}, fmt.Errorf("update budget %s: %w", b.ID, core.ErrNotFound)
	}
	return r.GetBudget(ctx, b.ID)
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete budget %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete budget %s: %w", id, core.ErrNotFound)
	}
	return nil
}

func getBudget(row *sql.Row, op string) (core.Budget, error) {
	b, err := scanBudget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("%s: %w", op, err)
	}
	return b, nil
}

func scanBudget(s rowScanner) (core.Budget, error) {
	var (
		b        core.Budget
		amount   string
		currency string
		period   string
	)
	if err := s.Scan(&b.ID, &b.Category, &amount, &currency, &period, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return core.Budget{}, err
	}
	var err error
	if b.Amount, err = decimal.NewFromString(amount); err != nil {
		return core.Budget{}, fmt.Errorf("amount %q: %w", amount, err)
	}
	b.Currency = core.CurrencyCode(currency)
	b.Period = core.BudgetPeriod(period)
	return b, nil
}
