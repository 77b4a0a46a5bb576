package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

func (r *SQLiteRepository) ListCurrencies(ctx context.Context) ([]core.CurrencyInfo, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT code, name, symbol, is_default FROM currencies ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list currencies: %w", err)
	}
	defer rows.Close()

	var out []core.CurrencyInfo
	for rows.Next() {
		var (
			c         core.CurrencyInfo
			code      string
			isDefault int
		)
		if err := rows.Scan(&code, &c.Name, &c.Symbol, &isDefault); err != nil {
			return nil, fmt.Errorf("scan currency: %w", err)
		}
		c.Code = core.CurrencyCode(code)
		c.IsDefault = isDefault != 0
		out = append(out, c)
	}
	return out, rows.Err()
}

// InsertCurrencies adds currencies that are not stored yet and returns how
// many were added. Existing rows are left alone.
func (r *SQLiteRepository) InsertCurrencies(ctx context.Context, currencies []core.CurrencyInfo) (int, error) {
	added := 0
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		for _, c := range currencies {
			res, err := tx.ExecContext(ctx,
				`INSERT INTO currencies (code, name, symbol, is_default) VALUES (?, ?, ?, ?)
				 ON CONFLICT (code) DO NOTHING`,
				string(c.Code), c.Name, c.Symbol, boolInt(c.IsDefault))
			if err != nil {
				return fmt.Errorf("insert currency %s: %w", c.Code, err)
			}
			n, _ := res.RowsAffected()
			added += int(n)
		}
		return nil
	})
	return added, err
}

// SetDefaultCurrency flags code as the only default.
func (r *SQLiteRepository) SetDefaultCurrency(ctx context.Context, code core.CurrencyCode) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM currencies WHERE code = ?`, string(code)).Scan(&exists)
		if err != nil {
			return fmt.Errorf("lookup currency %s: %w", code, err)
		}
		if exists == 0 {
			return fmt.Errorf("currency %s: %w", code, core.ErrNotFound)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE currencies SET is_default = CASE WHEN code = ? THEN 1 ELSE 0 END`, string(code)); err != nil {
			return fmt.Errorf("set default currency %s: %w", code, err)
		}
		return nil
	})
}

// UpsertRates stores the latest rates from base.
func (r *SQLiteRepository) UpsertRates(ctx context.Context, base core.CurrencyCode, rates map[core.CurrencyCode]decimal.Decimal) error {
	now := time.Now().UTC()
	return r.withTx(ctx, func(tx *sql.Tx) error {
		for target, rate := range rates {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO exchange_rates (base_currency, target_currency, rate, updated_at) VALUES (?, ?, ?, ?)
				 ON CONFLICT (base_currency, target_currency) DO UPDATE SET rate = excluded.rate, updated_at = excluded.updated_at`,
				string(base), string(target), rate.String(), now); err != nil {
				return fmt.Errorf("upsert rate %s->%s: %w", base, target, err)
			}
		}
		return nil
	})
}

// RateTable returns every stored rate, or only those from base when it is set.
func (r *SQLiteRepository) RateTable(ctx context.Context, base core.CurrencyCode) (core.RateTable, error) {
	query := `SELECT base_currency, target_currency, rate FROM exchange_rates`
	var args []any
	if base != "" {
		query += ` WHERE base_currency = ?`
		args = append(args, string(base))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list rates: %w", err)
	}
	defer rows.Close()

	table := core.RateTable{}
	for rows.Next() {
		var from, to, raw string
		if err := rows.Scan(&from, &to, &raw); err != nil {
			return nil, fmt.Errorf("scan rate: %w", err)
		}
		rate, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("rate %s->%s %q: %w", from, to, raw, err)
		}
		table.Set(core.CurrencyCode(from), core.CurrencyCode(to), rate)
	}
	return table, rows.Err()
}
