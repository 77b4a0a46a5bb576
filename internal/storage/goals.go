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

const goalColumns = `id, name, target_amount, current_amount, currency, category, deadline, description,
	created_at, updated_at`

func (r *SQLiteRepository) CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if g.CreatedAt.IsZero() {
		g.CreatedAt = now
	}
	g.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO goals (`+goalColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.Name, g.TargetAmount.String(), g.CurrentAmount.String(), string(g.Currency),
		g.Category, nullDate(g.Deadline), g.Description, g.CreatedAt, g.UpdatedAt,
	)
	if err != nil {
		return core.Goal{}, mapWriteError("create goal", err)
	}
	return g, nil
}

func (r *SQLiteRepository) GetGoal(ctx context.Context, id string) (core.Goal, error) {
	return getGoal(ctx, r.db, id)
}

// ListGoals returns goals oldest first. A non-empty category narrows the list.
func (r *SQLiteRepository) ListGoals(ctx context.Context, category string) ([]core.Goal, error) {
	query := `SELECT ` + goalColumns + ` FROM goals`
	var args []any
	if category != "" {
		query += " WHERE category = ?"
		args = append(args, category)
	}
	query += " ORDER BY created_at, id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var out []core.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	g.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE goals SET name = ?, target_amount = ?, current_amount = ?, currency = ?, category = ?,
		 deadline = ?, description = ?, updated_at = ? WHERE id = ?`,
		g.Name, g.TargetAmount.String(), g.CurrentAmount.String(), string(g.Currency), g.Category,
		nullDate(g.Deadline), g.Description, g.UpdatedAt, g.ID,
	)
	if err != nil {
		return core.Goal{}, fmt.Errorf("update goal %s: %w", g.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Goal{}, fmt.Errorf("update goal %s: %w", g.ID, core.ErrNotFound)
	}
	return r.GetGoal(ctx, g.ID)
}

// AddToGoal adds amount to the goal's saved amount in one transaction.
func (r *SQLiteRepository) AddToGoal(ctx context.Context, id string, amount decimal.Decimal) (core.Goal, error) {
	var out core.Goal
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		g, err := getGoal(ctx, tx, id)
		if err != nil {
			return err
		}
		g.CurrentAmount = g.CurrentAmount.Add(amount)
		g.UpdatedAt = time.Now().UTC()
		if _, err := tx.ExecContext(ctx,
			`UPDATE goals SET current_amount = ?, updated_at = ? WHERE id = ?`,
			g.CurrentAmount.String(), g.UpdatedAt, id,
		); err != nil {
			return fmt.Errorf("contribute to goal %s: %w", id, err)
		}
		out = g
		return nil
	})
	return out, err
}

func (r *SQLiteRepository) DeleteGoal(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM goals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete goal %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete goal %s: %w", id, core.ErrNotFound)
	}
	return nil
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getGoal(ctx context.Context, q rowQuerier, id string) (core.Goal, error) {
	row := q.QueryRowContext(ctx, `SELECT `+goalColumns+` FROM goals WHERE id = ?`, id)
	g, err := scanGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Goal{}, fmt.Errorf("get goal %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Goal{}, fmt.Errorf("get goal %s: %w", id, err)
	}
	return g, nil
}

func scanGoal(s rowScanner) (core.Goal, error) {
	var (
		g        core.Goal
		target   string
		current  string
		currency string
		deadline sql.NullString
	)
	if err := s.Scan(&g.ID, &g.Name, &target, &current, &currency, &g.Category, &deadline,
		&g.Description, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return core.Goal{}, err
	}

	var err error
	if g.TargetAmount, err = decimal.NewFromString(target); err != nil {
		return core.Goal{}, fmt.Errorf("target amount %q: %w", target, err)
	}
	if g.CurrentAmount, err = decimal.NewFromString(current); err != nil {
		return core.Goal{}, fmt.Errorf("current amount %q: %w", current, err)
	}
	if g.Deadline, err = datePtrFrom(deadline); err != nil {
		return core.Goal{}, err
	}
	g.Currency = core.CurrencyCode(currency)
	return g, nil
}
