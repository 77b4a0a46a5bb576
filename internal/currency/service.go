// Package currency implements the client side of currency conversion: it
// talks to a remote currency service while it can and falls back to a
// locally cached rate table when it cannot.
package currency

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

type Mode int

const (
	Online Mode = iota
	Offline
)

func (m Mode) String() string {
	if m == Offline {
		return "offline"
	}
	return "online"
}

// ErrForcedOffline is returned by Refresh while the user keeps the service offline.
var ErrForcedOffline = errors.New("forced offline")

// Remote is the remote currency service.
type Remote interface {
	LiveConverter
	Health(ctx context.Context) error
	Currencies(ctx context.Context) ([]core.CurrencyInfo, error)
	DefaultCurrency(ctx context.Context) (core.CurrencyInfo, error)
	SetDefaultCurrency(ctx context.Context, code core.CurrencyCode) error
	Rates(ctx context.Context) (core.RateTable, error)
}

type Service struct {
	remote   Remote
	store    CacheStore
	resolver Resolver
	logger   *log.Logger

	fallbackRates      core.RateTable
	fallbackCurrencies []core.CurrencyInfo
	persistTimeout     time.Duration

	mu    sync.Mutex
	state CacheState

	wg sync.WaitGroup
}

type Option func(*Service)

func WithLogger(l *log.Logger) Option {
	return func(s *Service) { s.logger = l.WithComponent(log.ComponentCurrency) }
}

// WithFallbackRates replaces the shipped rate table used to seed an empty cache.
func WithFallbackRates(rates core.RateTable) Option {
	return func(s *Service) { s.fallbackRates = rates.Clone() }
}

func WithResolver(r Resolver) Option {
	return func(s *Service) { s.resolver = r }
}

// WithPersistTimeout bounds the background call made by SetDefaultCurrency.
func WithPersistTimeout(d time.Duration) Option {
	return func(s *Service) { s.persistTimeout = d }
}

func NewService(remote Remote, store CacheStore, opts ...Option) *Service {
	s := &Service{
		remote:             remote,
		store:              store,
		resolver:           NewResolver(),
		logger:             log.Default(log.ComponentCurrency),
		fallbackRates:      DefaultRates(),
		fallbackCurrencies: DefaultCurrencies(),
		persistTimeout:     10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state = s.seed(CacheState{})
	return s
}

// seed fills the parts of state that are missing with shipped defaults.
func (s *Service) seed(state CacheState) CacheState {
	if len(state.Currencies) == 0 {
		state.Currencies = append([]core.CurrencyInfo(nil), s.fallbackCurrencies...)
	}
	if len(state.Rates) == 0 {
		state.Rates = s.fallbackRates.Clone()
	}
	if state.DefaultCurrency == "" {
		state.DefaultCurrency = HubCurrency
		for _, c := range state.Currencies {
			if c.IsDefault {
				state.DefaultCurrency = c.Code
				break
			}
		}
	}
	state.Currencies = core.MarkDefault(state.Currencies, state.DefaultCurrency)
	return state
}

// Load reads the persisted state. The service starts online unless the user
// forced it offline.
func (s *Service) Load(ctx context.Context) error {
	state, found, err := s.store.Load(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if found {
		s.state = s.seed(state)
	}
	s.state.UsingFallback = s.state.ForceOffline
	s.logger.InfoContext(ctx, "Currency cache loaded",
		"found", found,
		log.FieldMode, s.modeLocked().String(),
		"default_currency", string(s.state.DefaultCurrency))
	return nil
}

func (s *Service) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modeLocked()
}

func (s *Service) modeLocked() Mode {
	if s.state.ForceOffline || s.state.UsingFallback {
		return Offline
	}
	return Online
}

// State returns a copy of the current cache state.
func (s *Service) State() CacheState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// DefaultCurrency returns the in-memory default. It never waits on the network.
func (s *Service) DefaultCurrency() core.CurrencyCode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.DefaultCurrency
}

// Currencies returns the live currency list when online, the cached one otherwise.
func (s *Service) Currencies(ctx context.Context) []core.CurrencyInfo {
	if s.Mode() == Online {
		live, err := s.remote.Currencies(ctx)
		if err != nil {
			s.goOffline(ctx, "currencies", err)
		} else if len(live) > 0 {
			s.update(ctx, func(st *CacheState) {
				st.Currencies = core.MarkDefault(live, st.DefaultCurrency)
			})
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.CurrencyInfo(nil), s.state.Currencies...)
}

// Rates returns the live rate table when online, the cached one otherwise.
func (s *Service) Rates(ctx context.Context) core.RateTable {
	if s.Mode() == Online {
		live, err := s.remote.Rates(ctx)
		if err != nil {
			s.goOffline(ctx, "rates", err)
		} else if len(live) > 0 {
			s.update(ctx, func(st *CacheState) { st.Rates = live.Clone() })
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Rates.Clone()
}

// SetDefaultCurrency switches the default immediately and persists it
// locally. When online the remote is updated in the background; if that
// fails with a server error the service goes offline and keeps the local
// choice.
func (s *Service) SetDefaultCurrency(ctx context.Context, raw string) error {
	code, err := core.ParseCurrencyCode(raw)
	if err != nil {
		return err
	}

	s.mu.Lock()
	known := false
	for _, c := range s.state.Currencies {
		if c.Code == code {
			known = true
			break
		}
	}
	if !known {
		s.mu.Unlock()
		return core.NewValidationError("currency", fmt.Sprintf("%s is not a known currency", code))
	}
	s.state.DefaultCurrency = code
	s.state.Currencies = core.MarkDefault(s.state.Currencies, code)
	s.state.PendingDefault = true
	online := s.modeLocked() == Online
	s.saveLocked(ctx)
	s.mu.Unlock()

	if online {
		s.wg.Add(1)
		go s.pushDefault(context.WithoutCancel(ctx), code)
	}
	return nil
}

func (s *Service) pushDefault(ctx context.Context, code core.CurrencyCode) {
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(ctx, s.persistTimeout)
	defer cancel()

	err := s.remote.SetDefaultCurrency(ctx, code)
	switch {
	case err == nil:
		s.update(ctx, func(st *CacheState) {
			if st.DefaultCurrency == code {
				st.PendingDefault = false
			}
		})
	case errors.Is(err, core.ErrRemoteUnavailable):
		s.goOffline(ctx, "set default currency", err)
	default:
		s.logger.WarnContext(ctx, "Remote rejected default currency",
			"currency", string(code), log.FieldError, err)
		s.update(ctx, func(st *CacheState) {
			if st.DefaultCurrency == code {
				st.PendingDefault = false
			}
		})
	}
}

// Wait blocks until background remote updates have finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Convert converts amount between two currencies. Remote failures are
// absorbed; only *core.ValidationError and *core.NoRouteError escape.
func (s *Service) Convert(ctx context.Context, amount decimal.Decimal, fromRaw, toRaw string) (core.ConversionResult, error) {
	from, err := core.ParseCurrencyCode(fromRaw)
	if err != nil {
		return core.ConversionResult{}, err
	}
	to, err := core.ParseCurrencyCode(toRaw)
	if err != nil {
		return core.ConversionResult{}, err
	}

	s.mu.Lock()
	var live LiveConverter
	if s.modeLocked() == Online && from != to {
		live = s.remote
	}
	rates := s.state.Rates
	s.mu.Unlock()

	res, err := s.resolver.Resolve(ctx, live, rates, amount, from, to)
	if res.LiveErr != nil {
		s.goOffline(ctx, "convert", res.LiveErr)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "Conversion unavailable",
			log.NewFields().WithConversion(amount.String(), from, to).WithError(err).ToSlice()...)
		return core.ConversionResult{}, err
	}
	return res.Result, nil
}

// Refresh retries the connection. On success the cached currencies and
// rates are replaced with live data and the service is online again. The
// returned error describes why the service stayed offline.
func (s *Service) Refresh(ctx context.Context) error {
	s.mu.Lock()
	forced := s.state.ForceOffline
	pending := s.state.PendingDefault
	localDefault := s.state.DefaultCurrency
	s.mu.Unlock()
	if forced {
		return ErrForcedOffline
	}

	if err := s.remote.Health(ctx); err != nil {
		s.goOffline(ctx, "health", err)
		return err
	}

	currencies, err := s.remote.Currencies(ctx)
	if err != nil {
		s.goOffline(ctx, "currencies", err)
		return err
	}
	s.update(ctx, func(st *CacheState) { st.Currencies = core.MarkDefault(currencies, st.DefaultCurrency) })

	rates, err := s.remote.Rates(ctx)
	if err != nil {
		s.goOffline(ctx, "rates", err)
		return err
	}
	s.update(ctx, func(st *CacheState) { st.Rates = rates.Clone() })

	defaultCode := localDefault
	adoptRemote := !pending
	if pending {
		err := s.remote.SetDefaultCurrency(ctx, localDefault)
		switch {
		case errors.Is(err, core.ErrRemoteUnavailable):
			s.goOffline(ctx, "set default currency", err)
			return err
		case err != nil:
			// the remote is up but refuses the code; resending it cannot succeed
			s.logger.WarnContext(ctx, "Remote rejected pending default currency, using the remote default",
				"currency", string(localDefault), log.FieldError, err)
			adoptRemote = true
		}
	}
	if adoptRemote {
		if def, err := s.remote.DefaultCurrency(ctx); err == nil && def.Code != "" {
			defaultCode = def.Code
		}
	}

	s.update(ctx, func(st *CacheState) {
		st.DefaultCurrency = defaultCode
		st.Currencies = core.MarkDefault(st.Currencies, defaultCode)
		st.PendingDefault = false
		st.UsingFallback = false
	})
	s.logger.InfoContext(ctx, "Currency service online",
		"currencies", len(currencies), "default_currency", string(defaultCode))
	return nil
}

// ForceOffline pins the service to the local cache, or releases it and
// retries the connection.
func (s *Service) ForceOffline(ctx context.Context, on bool) error {
	s.update(ctx, func(st *CacheState) {
		st.ForceOffline = on
		if on {
			st.UsingFallback = true
		}
	})
	if on {
		s.logger.InfoContext(ctx, "Currency service forced offline")
		return nil
	}
	return s.Refresh(ctx)
}

func (s *Service) goOffline(ctx context.Context, op string, cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.UsingFallback {
		s.logger.WarnContext(ctx, "Remote currency service unavailable, using local rates",
			log.FieldOperation, op, log.FieldError, cause)
	}
	s.state.UsingFallback = true
	s.saveLocked(ctx)
}

func (s *Service) update(ctx context.Context, fn func(*CacheState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
	s.saveLocked(ctx)
}

// saveLocked writes the whole state. Store failures are logged and the
// in-memory state stays authoritative.
func (s *Service) saveLocked(ctx context.Context) {
	if err := s.store.Save(ctx, s.state.clone()); err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist currency cache", log.FieldError, err)
	}
}
