package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(limit int) (*Limiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	l := New(limit, time.Minute)
	l.now = clock.now
	return l, clock
}

func TestAllowWindow(t *testing.T) {
	l, clock := newTestLimiter(2)

	for i := 0; i < 2; i++ {
		if ok, _ := l.Allow("10.0.0.1"); !ok {
			t.Fatalf("request %d should pass", i+1)
		}
	}
	ok, retry := l.Allow("10.0.0.1")
	if ok {
		t.Fatal("third request should be refused")
	}
	if retry != time.Minute {
		t.Fatalf("expected a full minute to wait, got %v", retry)
	}
	if ok, _ := l.Allow("10.0.0.2"); !ok {
		t.Fatal("other clients have their own window")
	}

	clock.advance(40 * time.Second)
	if _, retry := l.Allow("10.0.0.1"); retry != 20*time.Second {
		t.Fatalf("expected 20s left, got %v", retry)
	}

	clock.advance(20 * time.Second)
	if ok, _ := l.Allow("10.0.0.1"); !ok {
		t.Fatal("window should have reset")
	}
}

func TestDisabled(t *testing.T) {
	l, _ := newTestLimiter(0)
	for i := 0; i < 100; i++ {
		if ok, _ := l.Allow("x"); !ok {
			t.Fatal("a zero limit must not refuse anything")
		}
	}
	if l.Clients() != 0 {
		t.Fatal("disabled limiter should not track clients")
	}
}

func TestCleanExpired(t *testing.T) {
	l, clock := newTestLimiter(5)
	l.Allow("a")
	clock.advance(30 * time.Second)
	l.Allow("b")
	clock.advance(30 * time.Second)

	if removed := l.CleanExpired(); removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if l.Clients() != 1 {
		t.Fatalf("expected b to remain, got %d clients", l.Clients())
	}
}

func TestWritesMiddleware(t *testing.T) {
	l, _ := newTestLimiter(1)
	h := l.Writes(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		method string
		want   int
	}{
		{http.MethodPost, http.StatusNoContent},
		{http.MethodGet, http.StatusNoContent},
		{http.MethodDelete, http.StatusTooManyRequests},
		{http.MethodHead, http.StatusNoContent},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, "/transactions", nil)
		req.RemoteAddr = "192.0.2.7:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tt.want {
			t.Fatalf("%s: expected %d, got %d", tt.method, tt.want, rec.Code)
		}
		if tt.want == http.StatusTooManyRequests && rec.Header().Get("Retry-After") != "60" {
			t.Fatalf("expected Retry-After 60, got %q", rec.Header().Get("Retry-After"))
		}
	}
}
