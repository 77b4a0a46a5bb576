package currency

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"fintrack/internal/core"
)

// HubCurrency bridges conversions that have no direct rate.
const HubCurrency core.CurrencyCode = "USD"

// DefaultRates returns the rate table shipped with the application.
func DefaultRates() core.RateTable {
	return core.RateTable{
		"USD": {
			"EUR": decimal.RequireFromString("0.92"),
			"MKD": decimal.RequireFromString("56.80"),
		},
		"EUR": {
			"USD": decimal.RequireFromString("1.09"),
			"MKD": decimal.RequireFromString("61.50"),
		},
		"MKD": {
			"USD": decimal.RequireFromString("0.0176"),
			"EUR": decimal.RequireFromString("0.0163"),
		},
	}
}

// DefaultCurrencies returns the currency set seeded on first run.
func DefaultCurrencies() []core.CurrencyInfo {
	return []core.CurrencyInfo{
		{Code: "USD", Name: "US Dollar", Symbol: "$", IsDefault: true},
		{Code: "EUR", Name: "Euro", Symbol: "€"},
		{Code: "MKD", Name: "Macedonian Denar", Symbol: "ден"},
	}
}

// LoadRateTable reads a YAML rate table of the form
//
//	USD:
//	  EUR: 0.92
//	EUR:
//	  MKD: 61.5
func LoadRateTable(path string) (core.RateTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rate table: %w", err)
	}
	return ParseRateTable(data)
}

func ParseRateTable(data []byte) (core.RateTable, error) {
	var raw map[string]map[string]float64
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse rate table: %w", err)
	}

	table := make(core.RateTable, len(raw))
	for base, targets := range raw {
		from, err := core.ParseCurrencyCode(base)
		if err != nil {
			return nil, fmt.Errorf("rate table base %q: %w", base, err)
		}
		for target, rate := range targets {
			to, err := core.ParseCurrencyCode(target)
			if err != nil {
				return nil, fmt.Errorf("rate table %s target %q: %w", from, target, err)
			}
			if rate <= 0 {
				return nil, fmt.Errorf("rate table %s->%s: %w", from, to, core.NewValidationError("rate", "must be positive"))
			}
			table.Set(from, to, decimal.NewFromFloat(rate))
		}
	}
	return table, nil
}
