package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/currency"
	"fintrack/internal/log"
)

const (
	rateCacheSize = 16
	rateCacheTTL  = 5 * time.Minute
	allRatesKey   = "*"
)

// CurrencyRepository is the storage the catalog needs.
type CurrencyRepository interface {
	ListCurrencies(ctx context.Context) ([]core.CurrencyInfo, error)
	InsertCurrencies(ctx context.Context, currencies []core.CurrencyInfo) (int, error)
	SetDefaultCurrency(ctx context.Context, code core.CurrencyCode) error
	UpsertRates(ctx context.Context, base core.CurrencyCode, rates map[core.CurrencyCode]decimal.Decimal) error
	RateTable(ctx context.Context, base core.CurrencyCode) (core.RateTable, error)
}

// InitResult reports what Initialize seeded.
type InitResult struct {
	CurrenciesAdded int  `json:"currencies_added"`
	RatesSeeded     bool `json:"rates_seeded"`
}

// CurrencyCatalog is the server side of currency handling: the set of known
// currencies, the default one, and the latest rate table.
type CurrencyCatalog struct {
	repo     CurrencyRepository
	rates    cache.Cache[core.RateTable]
	resolver currency.Resolver
	seed     core.RateTable
	logger   *log.Logger
}

// NewCurrencyCatalog returns a catalog over repo. seedRates is written by
// Initialize when no rates are stored; nil means the shipped table.
func NewCurrencyCatalog(repo CurrencyRepository, seedRates core.RateTable) *CurrencyCatalog {
	if seedRates == nil {
		seedRates = currency.DefaultRates()
	}
	return &CurrencyCatalog{
		repo:     repo,
		rates:    cache.NewLRUCache[core.RateTable](rateCacheSize, rateCacheTTL),
		resolver: currency.NewResolver(),
		seed:     seedRates,
		logger:   log.Default(log.ComponentCurrency),
	}
}

// RateCache exposes the rate cache so a cache.Manager can sweep it.
func (c *CurrencyCatalog) RateCache() cache.Cleaner {
	if cl, ok := c.rates.(cache.Cleaner); ok {
		return cl
	}
	return nil
}

// Initialize seeds the built-in currencies, a default and the rate table.
// Running it again changes nothing.
func (c *CurrencyCatalog) Initialize(ctx context.Context) (InitResult, error) {
	var res InitResult

	existing, err := c.repo.ListCurrencies(ctx)
	if err != nil {
		return res, err
	}
	hasDefault := false
	for _, cur := range existing {
		hasDefault = hasDefault || cur.IsDefault
	}

	seed := currency.DefaultCurrencies()
	if hasDefault {
		seed = core.MarkDefault(seed, "")
	}
	if res.CurrenciesAdded, err = c.repo.InsertCurrencies(ctx, seed); err != nil {
		return res, err
	}

	stored, err := c.repo.RateTable(ctx, "")
	if err != nil {
		return res, err
	}
	if len(stored) == 0 {
		for base, targets := range c.seed {
			if err := c.repo.UpsertRates(ctx, base, targets); err != nil {
				return res, err
			}
		}
		res.RatesSeeded = true
		c.rates.Clear()
	}

	c.logger.InfoContext(ctx, "Currency catalog initialized",
		"currencies_added", res.CurrenciesAdded,
		"rates_seeded", res.RatesSeeded)
	return res, nil
}

func (c *CurrencyCatalog) List(ctx context.Context) ([]core.CurrencyInfo, error) {
	return c.repo.ListCurrencies(ctx)
}

// Default returns the flagged default currency, or USD when none is flagged.
func (c *CurrencyCatalog) Default(ctx context.Context) (core.CurrencyInfo, error) {
	list, err := c.repo.ListCurrencies(ctx)
	if err != nil {
		return core.CurrencyInfo{}, err
	}
	var usd *core.CurrencyInfo
	for i, cur := range list {
		if cur.IsDefault {
			return cur, nil
		}
		if cur.Code == currency.HubCurrency {
			usd = &list[i]
		}
	}
	if usd != nil {
		return *usd, nil
	}
	for _, cur := range currency.DefaultCurrencies() {
		if cur.Code == currency.HubCurrency {
			return cur, nil
		}
	}
	return core.CurrencyInfo{Code: currency.HubCurrency}, nil
}

// resolveCode normalises code, or returns the default currency when code is empty.
func (c *CurrencyCatalog) resolveCode(ctx context.Context, code core.CurrencyCode) (core.CurrencyCode, error) {
	if code != "" {
		return core.ParseCurrencyCode(string(code))
	}
	def, err := c.Default(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve default currency: %w", err)
	}
	return def.Code, nil
}

// SetDefault makes raw the only default currency. Unknown codes yield
// core.ErrNotFound.
func (c *CurrencyCatalog) SetDefault(ctx context.Context, raw string) (core.CurrencyInfo, error) {
	code, err := core.ParseCurrencyCode(raw)
	if err != nil {
		return core.CurrencyInfo{}, err
	}
	if err := c.repo.SetDefaultCurrency(ctx, code); err != nil {
		return core.CurrencyInfo{}, err
	}
	c.logger.InfoContext(ctx, "Default currency changed", "currency", string(code))
	return c.Default(ctx)
}

// Rates returns the latest rate table, restricted to base when given.
func (c *CurrencyCatalog) Rates(ctx context.Context, base string) (core.RateTable, error) {
	var code core.CurrencyCode
	if base != "" {
		var err error
		if code, err = core.ParseCurrencyCode(base); err != nil {
			return nil, err
		}
	}

	key := string(code)
	if key == "" {
		key = allRatesKey
	}
	if table, ok := c.rates.Get(key); ok {
		return table.Clone(), nil
	}

	table, err := c.repo.RateTable(ctx, code)
	if err != nil {
		return nil, err
	}
	c.rates.Set(key, table)
	return table.Clone(), nil
}

// UpdateRates stores new rates from base and invalidates cached tables.
func (c *CurrencyCatalog) UpdateRates(ctx context.Context, base string, rates map[string]decimal.Decimal) error {
	from, err := core.ParseCurrencyCode(base)
	if err != nil {
		return err
	}
	parsed := make(map[core.CurrencyCode]decimal.Decimal, len(rates))
	for raw, rate := range rates {
		to, err := core.ParseCurrencyCode(raw)
		if err != nil {
			return err
		}
		if !rate.IsPositive() {
			return core.NewValidationError("rate", fmt.Sprintf("%s->%s must be positive", from, to))
		}
		parsed[to] = rate
	}

	if err := c.repo.UpsertRates(ctx, from, parsed); err != nil {
		return err
	}
	c.rates.Clear()
	return nil
}

// Convert resolves amount through the stored table, directly or via USD.
func (c *CurrencyCatalog) Convert(ctx context.Context, amount decimal.Decimal, fromRaw, toRaw string) (core.ConversionResult, error) {
	from, err := core.ParseCurrencyCode(fromRaw)
	if err != nil {
		return core.ConversionResult{}, err
	}
	to, err := core.ParseCurrencyCode(toRaw)
	if err != nil {
		return core.ConversionResult{}, err
	}

	table, err := c.Rates(ctx, "")
	if err != nil {
		return core.ConversionResult{}, fmt.Errorf("load rates: %w", err)
	}
	result, err := c.resolver.FromCache(table, amount, from, to)
	if err != nil {
		c.logger.WarnContext(ctx, "Conversion unavailable",
			log.NewFields().WithConversion(amount.String(), from, to).WithError(err).ToSlice()...)
		return core.ConversionResult{}, err
	}
	return result, nil
}
