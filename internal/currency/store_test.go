package currency

import (
	"context"
	"errors"
	"testing"

	"fintrack/internal/core"
)

type mapKV struct {
	values map[string]string
	err    error
}

func (m *mapKV) GetAll(_ context.Context, keys ...string) (map[string]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := map[string]string{}
	for _, k := range keys {
		if v, ok := m.values[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (m *mapKV) SetAll(_ context.Context, values map[string]string) error {
	if m.err != nil {
		return m.err
	}
	for k, v := range values {
		m.values[k] = v
	}
	return nil
}

func TestKVCacheStore(t *testing.T) {
	ctx := context.Background()
	kv := &mapKV{values: map[string]string{}}
	store := NewKVCacheStore(kv)

	if _, found, err := store.Load(ctx); err != nil || found {
		t.Fatalf("empty store: found=%v err=%v", found, err)
	}

	state := CacheState{
		DefaultCurrency: "EUR",
		UsingFallback:   true,
		Currencies:      core.MarkDefault(DefaultCurrencies(), "EUR"),
		Rates:           DefaultRates(),
		ForceOffline:    true,
	}
	if err := store.Save(ctx, state); err != nil {
		t.Fatal(err)
	}

	for _, key := range []string{KeyDefaultCurrency, KeyFallbackMode, KeyCurrencies, KeyRates, KeyForceOffline} {
		if _, ok := kv.values[key]; !ok {
			t.Errorf("key %s not written", key)
		}
	}
	if kv.values[KeyDefaultCurrency] != `"EUR"` {
		t.Errorf("unexpected default encoding %s", kv.values[KeyDefaultCurrency])
	}

	got, found, err := store.Load(ctx)
	if err != nil || !found {
		t.Fatalf("found=%v err=%v", found, err)
	}
	if got.DefaultCurrency != "EUR" || !got.UsingFallback || !got.ForceOffline {
		t.Fatalf("unexpected state %+v", got)
	}
	if len(got.Currencies) != 3 || !got.Currencies[1].IsDefault {
		t.Fatalf("unexpected currencies %+v", got.Currencies)
	}
	if r, ok := got.Rates.Rate("MKD", "USD"); !ok || !r.Equal(dec("0.0176")) {
		t.Fatalf("unexpected rate %s", r)
	}
}

func TestKVCacheStorePartialAndCorrupt(t *testing.T) {
	ctx := context.Background()

	kv := &mapKV{values: map[string]string{KeyDefaultCurrency: `"MKD"`}}
	got, found, err := NewKVCacheStore(kv).Load(ctx)
	if err != nil || !found || got.DefaultCurrency != "MKD" || got.Rates != nil {
		t.Fatalf("partial load: %+v found=%v err=%v", got, found, err)
	}

	kv.values[KeyRates] = "{not json"
	if _, _, err := NewKVCacheStore(kv).Load(ctx); err == nil {
		t.Fatal("expected decode error")
	}

	broken := &mapKV{err: errors.New("disk full")}
	if err := NewKVCacheStore(broken).Save(ctx, CacheState{}); err == nil {
		t.Fatal("expected save error")
	}
}

func TestMemoryStoreIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	state := CacheState{Rates: DefaultRates()}
	_ = store.Save(ctx, state)

	state.Rates.Set("USD", "EUR", dec("5"))
	got, _, _ := store.Load(ctx)
	if r, _ := got.Rates.Rate("USD", "EUR"); !r.Equal(dec("0.92")) {
		t.Fatal("saved state must not alias the caller's maps")
	}
	if store.Saves() != 1 {
		t.Fatalf("expected 1 save, got %d", store.Saves())
	}
}
