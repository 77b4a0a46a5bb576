package currency

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// LiveConverter performs a conversion against a remote rate source.
type LiveConverter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to core.CurrencyCode) (core.ConversionResult, error)
}

type Source string

const (
	SourceIdentity Source = "identity"
	SourceLive     Source = "live"
	SourceCache    Source = "cache"
)

// Resolution is the outcome of Resolve. LiveErr is set when a live attempt
// was made and failed, even if the cache then produced a result.
type Resolution struct {
	Result  core.ConversionResult
	Source  Source
	LiveErr *core.RemoteUnavailableError
}

// Resolver turns a conversion request into a result, trying a live source
// first and a rate table second. It holds no state besides its settings.
type Resolver struct {
	Hub core.CurrencyCode
	Now func() time.Time
}

func NewResolver() Resolver {
	return Resolver{Hub: HubCurrency, Now: time.Now}
}

func (r Resolver) now() time.Time {
	if r.Now == nil {
		return time.Now().UTC()
	}
	return r.Now().UTC()
}

// TryLive asks live for a conversion. Every failure is reported as a
// *core.RemoteUnavailableError.
func (r Resolver) TryLive(ctx context.Context, live LiveConverter, amount decimal.Decimal, from, to core.CurrencyCode) (core.ConversionResult, error) {
	res, err := live.Convert(ctx, amount, from, to)
	if err == nil {
		return res, nil
	}
	var unavailable *core.RemoteUnavailableError
	if errors.As(err, &unavailable) {
		return core.ConversionResult{}, unavailable
	}
	return core.ConversionResult{}, &core.RemoteUnavailableError{Op: "convert", Err: err}
}

// FromCache converts using rates: a direct rate if present, otherwise two
// multiplications through the hub. It fails with *core.NoRouteError when
// neither path exists.
func (r Resolver) FromCache(rates core.RateTable, amount decimal.Decimal, from, to core.CurrencyCode) (core.ConversionResult, error) {
	if from == to {
		return r.identity(amount, from), nil
	}
	if rate, ok := rates.Rate(from, to); ok {
		return r.result(amount, amount.Mul(rate), rate, from, to), nil
	}

	hub := r.Hub
	if hub == "" {
		hub = HubCurrency
	}
	if from != hub && to != hub {
		toHub, ok1 := rates.Rate(from, hub)
		fromHub, ok2 := rates.Rate(hub, to)
		if ok1 && ok2 {
			converted := amount.Mul(toHub).Mul(fromHub)
			return r.result(amount, converted, toHub.Mul(fromHub), from, to), nil
		}
	}
	return core.ConversionResult{}, &core.NoRouteError{From: from, To: to}
}

// Resolve composes TryLive and FromCache. A nil live skips the live attempt.
func (r Resolver) Resolve(ctx context.Context, live LiveConverter, rates core.RateTable, amount decimal.Decimal, from, to core.CurrencyCode) (Resolution, error) {
	if from == to {
		return Resolution{Result: r.identity(amount, from), Source: SourceIdentity}, nil
	}

	var out Resolution
	if live != nil {
		res, err := r.TryLive(ctx, live, amount, from, to)
		if err == nil {
			return Resolution{Result: res, Source: SourceLive}, nil
		}
		out.LiveErr = err.(*core.RemoteUnavailableError)
	}

	res, err := r.FromCache(rates, amount, from, to)
	if err != nil {
		return out, err
	}
	out.Result = res
	out.Source = SourceCache
	return out, nil
}

func (r Resolver) identity(amount decimal.Decimal, code core.CurrencyCode) core.ConversionResult {
	res := core.SameCurrency(amount, code)
	res.Timestamp = r.now()
	return res
}

func (r Resolver) result(amount, converted, rate decimal.Decimal, from, to core.CurrencyCode) core.ConversionResult {
	return core.ConversionResult{
		OriginalAmount:    amount,
		OriginalCurrency:  from,
		ConvertedAmount:   converted,
		ConvertedCurrency: to,
		ExchangeRate:      rate,
		Timestamp:         r.now(),
	}
}
