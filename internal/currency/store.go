package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"fintrack/internal/core"
)

// Keys under which KVCacheStore persists the cache state.
const (
	KeyDefaultCurrency = "default_currency"
	KeyFallbackMode    = "fallback_mode"
	KeyCurrencies      = "currencies"
	KeyRates           = "rates"
	KeyForceOffline    = "force_offline"
	KeyPendingDefault  = "pending_default"
)

// CacheState is everything the conversion service needs to work offline.
// It is saved as a whole; the last writer wins.
type CacheState struct {
	DefaultCurrency core.CurrencyCode
	UsingFallback   bool
	Currencies      []core.CurrencyInfo
	Rates           core.RateTable
	ForceOffline    bool
	// PendingDefault is set when the default changed locally but the remote
	// has not acknowledged it yet.
	PendingDefault bool
}

func (s CacheState) clone() CacheState {
	out := s
	out.Currencies = append([]core.CurrencyInfo(nil), s.Currencies...)
	if s.Rates != nil {
		out.Rates = s.Rates.Clone()
	}
	return out
}

// CacheStore loads and saves CacheState. Load reports false when nothing
// has been saved yet.
type CacheStore interface {
	Load(ctx context.Context) (CacheState, bool, error)
	Save(ctx context.Context, state CacheState) error
}

// MemoryStore keeps the state in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	state *CacheState
	saves int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(context.Context) (CacheState, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return CacheState{}, false, nil
	}
	return m.state.clone(), true, nil
}

func (m *MemoryStore) Save(_ context.Context, state CacheState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := state.clone()
	m.state = &s
	m.saves++
	return nil
}

// Saves returns how many times Save was called.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// KV is a durable string key/value store.
type KV interface {
	GetAll(ctx context.Context, keys ...string) (map[string]string, error)
	SetAll(ctx context.Context, values map[string]string) error
}

// KVCacheStore persists each CacheState field as a JSON value under its own key.
type KVCacheStore struct {
	kv KV
}

func NewKVCacheStore(kv KV) *KVCacheStore {
	return &KVCacheStore{kv: kv}
}

func (s *KVCacheStore) Load(ctx context.Context) (CacheState, bool, error) {
	values, err := s.kv.GetAll(ctx, KeyDefaultCurrency, KeyFallbackMode, KeyCurrencies, KeyRates, KeyForceOffline, KeyPendingDefault)
	if err != nil {
		return CacheState{}, false, fmt.Errorf("load cache state: %w", err)
	}
	if len(values) == 0 {
		return CacheState{}, false, nil
	}

	var state CacheState
	fields := []struct {
		key string
		dst any
	}{
		{KeyDefaultCurrency, &state.DefaultCurrency},
		{KeyFallbackMode, &state.UsingFallback},
		{KeyCurrencies, &state.Currencies},
		{KeyRates, &state.Rates},
		{KeyForceOffline, &state.ForceOffline},
		{KeyPendingDefault, &state.PendingDefault},
	}
	for _, f := range fields {
		raw, ok := values[f.key]
		if !ok {
			continue
		}
		if err := json.Unmarshal([]byte(raw), f.dst); err != nil {
			return CacheState{}, false, fmt.Errorf("decode %s: %w", f.key, err)
		}
	}
	return state, true, nil
}

func (s *KVCacheStore) Save(ctx context.Context, state CacheState) error {
	fields := map[string]any{
		KeyDefaultCurrency: state.DefaultCurrency,
		KeyFallbackMode:    state.UsingFallback,
		KeyCurrencies:      state.Currencies,
		KeyRates:           state.Rates,
		KeyForceOffline:    state.ForceOffline,
		KeyPendingDefault:  state.PendingDefault,
	}
	values := make(map[string]string, len(fields))
	for key, v := range fields {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
		values[key] = string(b)
	}
	if err := s.kv.SetAll(ctx, values); err != nil {
		return fmt.Errorf("save cache state: %w", err)
	}
	return nil
}
