package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// TransactionFilter narrows ListTransactions. Zero values mean no limit.
type TransactionFilter struct {
	From        *core.Date
	To          *core.Date
	RecurringID string
	Limit       int
}

const transactionColumns = `id, amount, currency, category, description, is_income, date, recurring_id, created_at`

// CreateTransaction stores tx, assigning an ID and creation time. A second
// occurrence of the same rule on the same date fails with core.ErrDuplicate.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (`+transactionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.Amount.String(), string(tx.Currency), tx.Category, tx.Description,
		boolInt(tx.IsIncome), tx.Date.String(), nullString(tx.RecurringID), tx.CreatedAt,
	)
	if err != nil {
		return core.Transaction{}, mapWriteError("create transaction", err)
	}

	r.logger.DebugContext(ctx, "Transaction stored",
		"transaction_id", tx.ID, "date", tx.Date.String(), "rule_id", tx.RecurringID)
	return tx, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("get transaction %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return tx, nil
}

// ListTransactions returns transactions newest first.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, error) {
	var (
		where []string
		args  []any
	)
	if f.From != nil {
		where = append(where, "date >= ?")
		args = append(args, f.From.String())
	}
	if f.To != nil {
		where = append(where, "date <= ?")
		args = append(args, f.To.String())
	}
	if f.RecurringID != "" {
		where = append(where, "recurring_id = ?")
		args = append(args, f.RecurringID)
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date DESC, created_at DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

// UpdateTransaction rewrites the editable fields of tx. The rule link and
// creation time never change.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET amount = ?, currency = ?, category = ?, description = ?, is_income = ?, date = ?
		 WHERE id = ?`,
		tx.Amount.String(), string(tx.Currency), tx.Category, tx.Description,
		boolInt(tx.IsIncome), tx.Date.String(), tx.ID,
	)
	if err != nil {
		return core.Transaction{}, mapWriteError("update transaction "+tx.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Transaction{}, fmt.Errorf("update transaction %s: %w", tx.ID, core.ErrNotFound)
	}
	return r.GetTransaction(ctx, tx.ID)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete transaction %s: %w", id, core.ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s rowScanner) (core.Transaction, error) {
	var (
		tx          core.Transaction
		amount      string
		currency    string
		isIncome    int
		date        string
		recurringID sql.NullString
	)
	if err := s.Scan(&tx.ID, &amount, &currency, &tx.Category, &tx.Description,
		&isIncome, &date, &recurringID, &tx.CreatedAt); err != nil {
		return core.Transaction{}, err
	}

	var err error
	if tx.Amount, err = decimal.NewFromString(amount); err != nil {
		return core.Transaction{}, fmt.Errorf("amount %q: %w", amount, err)
	}
	if tx.Date, err = core.ParseDate(date); err != nil {
		return core.Transaction{}, err
	}
	tx.Currency = core.CurrencyCode(currency)
	tx.IsIncome = isIncome != 0
	tx.RecurringID = recurringID.String
	return tx, nil
}
