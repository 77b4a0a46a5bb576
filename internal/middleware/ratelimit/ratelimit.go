// Package ratelimit throttles write requests per client address.
package ratelimit

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Limiter allows a fixed number of requests per client in each window.
// A limit of zero or less disables it.
type Limiter struct {
	mu      sync.Mutex
	clients map[string]*window
	limit   int
	period  time.Duration
	now     func() time.Time
}

type window struct {
	start    time.Time
	requests int
}

func New(limit int, period time.Duration) *Limiter {
	if period <= 0 {
		period = time.Minute
	}
	return &Limiter{
		clients: make(map[string]*window),
		limit:   limit,
		period:  period,
		now:     time.Now,
	}
}

// Allow records a request from key. When it is refused, retryAfter is the
// time left until the client's window resets.
func (l *Limiter) Allow(key string) (ok bool, retryAfter time.Duration) {
	if l.limit <= 0 {
		return true, 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, exists := l.clients[key]
	if !exists || now.Sub(w.start) >= l.period {
		l.clients[key] = &window{start: now, requests: 1}
		return true, 0
	}
	if w.requests >= l.limit {
		return false, w.start.Add(l.period).Sub(now)
	}
	w.requests++
	return true, 0
}

// CleanExpired forgets clients whose window has ended.
func (l *Limiter) CleanExpired() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key, w := range l.clients {
		if now.Sub(w.start) >= l.period {
			delete(l.clients, key)
			removed++
		}
	}
	return removed
}

func (l *Limiter) Clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// Writes limits every request that is not a GET, HEAD or OPTIONS.
// Refused requests get 429 with a Retry-After header in seconds.
func (l *Limiter) Writes(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}
		ok, retryAfter := l.Allow(clientKey(r))
		if !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"too many requests"}` + "\n"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientKey is the request's remote host, without the port.
func clientKey(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
