package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

func newTestClient(url string, opts ...Option) *Client {
	opts = append([]Option{WithLogger(log.Discard()), WithRetry(2, time.Millisecond)}, opts...)
	return New(url, opts...)
}

func TestClientHappyPath(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /currencies", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]core.CurrencyInfo{{Code: "USD", Name: "US Dollar", Symbol: "$", IsDefault: true}})
	})
	mux.HandleFunc("GET /currencies/default", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(core.CurrencyInfo{Code: "EUR"})
	})
	var defaultSet atomic.Value
	mux.HandleFunc("POST /currencies/default/{code}", func(w http.ResponseWriter, r *http.Request) {
		defaultSet.Store(r.PathValue("code"))
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /currencies/rates", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"USD":{"EUR":"0.92"},"EUR":{"MKD":61.5}}`))
	})
	mux.HandleFunc("POST /currencies/convert", func(w http.ResponseWriter, r *http.Request) {
		var req ConvertRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		rate := decimal.RequireFromString("61.5")
		json.NewEncoder(w).Encode(core.ConversionResult{
			OriginalAmount: req.Amount, OriginalCurrency: req.FromCurrency,
			ConvertedAmount: req.Amount.Mul(rate), ConvertedCurrency: req.ToCurrency,
			ExchangeRate: rate,
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(srv.URL + "/")
	ctx := context.Background()

	if err := c.Health(ctx); err != nil {
		t.Fatalf("Health: %v", err)
	}
	list, err := c.Currencies(ctx)
	if err != nil || len(list) != 1 || list[0].Code != "USD" {
		t.Fatalf("Currencies: %v %v", list, err)
	}
	def, err := c.DefaultCurrency(ctx)
	if err != nil || def.Code != "EUR" {
		t.Fatalf("DefaultCurrency: %v %v", def, err)
	}
	if err := c.SetDefaultCurrency(ctx, "MKD"); err != nil {
		t.Fatalf("SetDefaultCurrency: %v", err)
	}
	if defaultSet.Load() != "MKD" {
		t.Fatalf("server saw %v", defaultSet.Load())
	}
	rates, err := c.Rates(ctx)
	if err != nil {
		t.Fatalf("Rates: %v", err)
	}
	if r, _ := rates.Rate("EUR", "MKD"); !r.Equal(decimal.RequireFromString("61.5")) {
		t.Fatalf("unexpected rate %s", r)
	}
	res, err := c.Convert(ctx, decimal.NewFromInt(100), "EUR", "MKD")
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if !res.ConvertedAmount.Equal(decimal.NewFromInt(6150)) {
		t.Fatalf("converted = %s", res.ConvertedAmount)
	}
}

func TestClientErrorClassification(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		unavailable bool
	}{
		{"server error", http.StatusInternalServerError, true},
		{"bad gateway", http.StatusBadGateway, true},
		{"not found", http.StatusNotFound, false},
		{"unprocessable", http.StatusUnprocessableEntity, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"error":"nope"}`))
			}))
			defer srv.Close()

			_, err := newTestClient(srv.URL).Currencies(context.Background())
			if got := errors.Is(err, core.ErrRemoteUnavailable); got != tt.unavailable {
				t.Fatalf("unavailable = %v, want %v (err %v)", got, tt.unavailable, err)
			}
			if !tt.unavailable {
				var se *StatusError
				if !errors.As(err, &se) || se.StatusCode != tt.status || se.Message != "nope" {
					t.Fatalf("expected StatusError, got %v", err)
				}
			}
			if hits.Load() != 1 {
				t.Fatalf("HTTP answers must not be retried, got %d calls", hits.Load())
			}
		})
	}
}

func TestClientTransportErrorIsRetriedThenUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	var attempts atomic.Int32
	transport := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		attempts.Add(1)
		return http.DefaultTransport.RoundTrip(r)
	})
	c := newTestClient(url, WithHTTPClient(&http.Client{Transport: transport}), WithRetry(3, time.Millisecond))

	_, err := c.Rates(context.Background())
	var unavailable *core.RemoteUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected RemoteUnavailableError, got %v", err)
	}
	if unavailable.StatusCode != 0 || unavailable.Err == nil {
		t.Fatalf("expected transport failure, got %+v", unavailable)
	}
	if attempts.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts.Load())
	}
}

func TestClientDecodeFailureKeepsCause(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"USD":`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Rates(context.Background())
	if !errors.Is(err, core.ErrRemoteUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if !strings.Contains(err.Error(), "decode response") {
		t.Fatalf("decode cause missing from %q", err.Error())
	}
}

func TestClientHealthTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := newTestClient(srv.URL, WithHealthTimeout(20*time.Millisecond))
	start := time.Now()
	err := c.Health(context.Background())
	if !errors.Is(err, core.ErrRemoteUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatal("health probe should give up quickly")
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }
