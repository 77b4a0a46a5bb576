package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type (
	// CurrencyCode is an upper-case three letter ISO 4217 style code.
	CurrencyCode string

	CurrencyInfo struct {
		Code      CurrencyCode `json:"code"`
		Name      string       `json:"name"`
		Symbol    string       `json:"symbol"`
		IsDefault bool         `json:"is_default"`
	}

	// RateTable maps base currency -> target currency -> rate.
	// It is neither symmetric nor transitively consistent.
	RateTable map[CurrencyCode]map[CurrencyCode]decimal.Decimal

	ConversionResult struct {
		OriginalAmount    decimal.Decimal `json:"original_amount"`
		OriginalCurrency  CurrencyCode    `json:"original_currency"`
		ConvertedAmount   decimal.Decimal `json:"converted_amount"`
		ConvertedCurrency CurrencyCode    `json:"converted_currency"`
		ExchangeRate      decimal.Decimal `json:"exchange_rate"`
		Timestamp         time.Time       `json:"timestamp"`
	}
)

// ParseCurrencyCode normalises s to upper case and checks it is three letters.
func ParseCurrencyCode(s string) (CurrencyCode, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) != 3 {
		return "", NewValidationError("currency", "code must be 3 letters")
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return "", NewValidationError("currency", "code must be 3 letters")
		}
	}
	return CurrencyCode(s), nil
}

// Rate returns the direct rate from -> to, if present.
func (t RateTable) Rate(from, to CurrencyCode) (decimal.Decimal, bool) {
	targets, ok := t[from]
	if !ok {
		return decimal.Decimal{}, false
	}
	r, ok := targets[to]
	return r, ok
}

// Set records a rate, allocating the inner map when needed.
func (t RateTable) Set(from, to CurrencyCode, rate decimal.Decimal) {
	if t[from] == nil {
		t[from] = make(map[CurrencyCode]decimal.Decimal)
	}
	t[from][to] = rate
}

func (t RateTable) Clone() RateTable {
	out := make(RateTable, len(t))
	for base, targets := range t {
		inner := make(map[CurrencyCode]decimal.Decimal, len(targets))
		for to, r := range targets {
			inner[to] = r
		}
		out[base] = inner
	}
	return out
}

// SameCurrency returns the identity conversion.
func SameCurrency(amount decimal.Decimal, code CurrencyCode) ConversionResult {
	return ConversionResult{
		OriginalAmount:    amount,
		OriginalCurrency:  code,
		ConvertedAmount:   amount,
		ConvertedCurrency: code,
		ExchangeRate:      decimal.NewFromInt(1),
		Timestamp:         time.Now().UTC(),
	}
}

// MarkDefault returns a copy of currencies with only code flagged as default.
func MarkDefault(currencies []CurrencyInfo, code CurrencyCode) []CurrencyInfo {
	out := make([]CurrencyInfo, len(currencies))
	for i, c := range currencies {
		c.IsDefault = c.Code == code
		out[i] = c
	}
	return out
}
