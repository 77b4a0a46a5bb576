// Package remote is the HTTP client for the currency endpoints of the
// fintrack API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// StatusError is a 4xx answer. Unlike 5xx answers it does not mean the
// service is unavailable.
type StatusError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
}

// transportError marks failures that never produced an HTTP response.
// Only these are retried.
type transportError struct{ err error }

func (e *transportError) Error() string { return e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

type Client struct {
	baseURL        string
	httpClient     *http.Client
	requestTimeout time.Duration
	healthTimeout  time.Duration
	attempts       uint
	retryDelay     time.Duration
	logger         *log.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

func WithRequestTimeout(d time.Duration) Option {
	return func(cl *Client) { cl.requestTimeout = d }
}

func WithHealthTimeout(d time.Duration) Option {
	return func(cl *Client) { cl.healthTimeout = d }
}

// WithRetry sets how many times a call is attempted on transport errors.
func WithRetry(attempts uint, delay time.Duration) Option {
	return func(cl *Client) {
		if attempts == 0 {
			attempts = 1
		}
		cl.attempts = attempts
		cl.retryDelay = delay
	}
}

func WithLogger(l *log.Logger) Option {
	return func(cl *Client) { cl.logger = l.WithComponent(log.ComponentCurrency) }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		httpClient:     &http.Client{},
		requestTimeout: 10 * time.Second,
		healthTimeout:  2 * time.Second,
		attempts:       3,
		retryDelay:     200 * time.Millisecond,
		logger:         log.Default(log.ComponentCurrency),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Health probes GET /health with the short health timeout and no retries.
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()
	err := c.once(ctx, "health", http.MethodGet, "/health", nil, nil)
	return c.classify("health", err)
}

func (c *Client) Currencies(ctx context.Context) ([]core.CurrencyInfo, error) {
	var out []core.CurrencyInfo
	if err := c.do(ctx, "list currencies", http.MethodGet, "/currencies", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DefaultCurrency(ctx context.Context) (core.CurrencyInfo, error) {
	var out core.CurrencyInfo
	if err := c.do(ctx, "get default currency", http.MethodGet, "/currencies/default", nil, &out); err != nil {
		return core.CurrencyInfo{}, err
	}
	return out, nil
}

func (c *Client) SetDefaultCurrency(ctx context.Context, code core.CurrencyCode) error {
	return c.do(ctx, "set default currency", http.MethodPost, "/currencies/default/"+string(code), nil, nil)
}

func (c *Client) Rates(ctx context.Context) (core.RateTable, error) {
	var out core.RateTable
	if err := c.do(ctx, "get rates", http.MethodGet, "/currencies/rates", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ConvertRequest is the body of POST /currencies/convert.
type ConvertRequest struct {
	Amount       decimal.Decimal   `json:"amount"`
	FromCurrency core.CurrencyCode `json:"from_currency"`
	ToCurrency   core.CurrencyCode `json:"to_currency"`
}

func (c *Client) Convert(ctx context.Context, amount decimal.Decimal, from, to core.CurrencyCode) (core.ConversionResult, error) {
	var out core.ConversionResult
	body := ConvertRequest{Amount: amount, FromCurrency: from, ToCurrency: to}
	if err := c.do(ctx, "convert", http.MethodPost, "/currencies/convert", body, &out); err != nil {
		return core.ConversionResult{}, err
	}
	return out, nil
}

// Initialize asks the server to seed its default currency set.
func (c *Client) Initialize(ctx context.Context) error {
	return c.do(ctx, "initialize currencies", http.MethodPost, "/currencies/initialize", nil, nil)
}

// do runs one call with the request timeout, retrying transport errors.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	attempt := 0
	err := retry.Do(
		func() error {
			attempt++
			callCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
			defer cancel()
			err := c.once(callCtx, op, method, path, body, out)
			if err != nil && attempt > 1 {
				c.logger.DebugContext(ctx, "Remote call retry failed", log.FieldOperation, op, "attempt", attempt, log.FieldError, err)
			}
			return err
		},
		retry.RetryIf(func(err error) bool {
			var te *transportError
			return errors.As(err, &te)
		}),
		retry.Attempts(c.attempts),
		retry.Delay(c.retryDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
	return c.classify(op, err)
}

func (c *Client) once(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &transportError{err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return &core.RemoteUnavailableError{Op: op, StatusCode: resp.StatusCode}
	}
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&apiErr)
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Message: apiErr.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &core.RemoteUnavailableError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// classify maps transport failures to RemoteUnavailableError.
func (c *Client) classify(op string, err error) error {
	var te *transportError
	if errors.As(err, &te) {
		return &core.RemoteUnavailableError{Op: op, Err: te.err}
	}
	if err != nil && (errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)) {
		return &core.RemoteUnavailableError{Op: op, Err: err}
	}
	return err
}
