// Package ratelimit provides a fixed-window request limiter for the public
// endpoints. The guardian decision link is unauthenticated, so it gets a
// per-client budget to make token guessing impractical.
package ratelimit

import (
	"net"
	"net/http"
	"sync"
	"time"

	"outpass/internal/transport/http/shared"
)

type window struct {
	count   int
	startAt time.Time
}

// Limiter counts requests per key in fixed windows. In-memory and
// per-process; good enough for a single API instance.
type Limiter struct {
	mu      sync.Mutex
	limit   int
	period  time.Duration
	windows map[string]*window

	// now is swappable for tests.
	now func() time.Time
}

// NewLimiter allows limit requests per key per period.
func NewLimiter(limit int, period time.Duration) *Limiter {
	return &Limiter{
		limit:   limit,
		period:  period,
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Allow reports whether the key has budget left in the current window.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || now.Sub(w.startAt) >= l.period {
		l.prune(now)
		l.windows[key] = &window{count: 1, startAt: now}
		return true
	}
	if w.count >= l.limit {
		return false
	}
	w.count++
	return true
}

// prune drops expired windows. Called with the lock held, on window
// rotation, so the map stays bounded by the active client set.
func (l *Limiter) prune(now time.Time) {
	for key, w := range l.windows {
		if now.Sub(w.startAt) >= l.period {
			delete(l.windows, key)
		}
	}
}

// Middleware rejects requests over budget with 429, keyed by client IP.
func Middleware(limiter *Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(clientIP(r)) {
				shared.WriteJSON(w, http.StatusTooManyRequests, shared.ErrorResponse{
					Error:   "rate_limited",
					Message: "too many requests, slow down",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP prefers X-Forwarded-For so limits hold behind the usual reverse
// proxy, falling back to the socket address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
