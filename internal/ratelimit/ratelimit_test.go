package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiterAllow(t *testing.T) {
	now := time.Now()
	limiter := NewLimiter(3, time.Minute)
	limiter.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.Allow("1.2.3.4"), "request %d", i)
	}
	assert.False(t, limiter.Allow("1.2.3.4"))

	// A different client has its own budget.
	assert.True(t, limiter.Allow("5.6.7.8"))

	// The window rotates and the budget resets.
	now = now.Add(time.Minute)
	assert.True(t, limiter.Allow("1.2.3.4"))
}

func TestLimiterPrunesExpiredWindows(t *testing.T) {
	now := time.Now()
	limiter := NewLimiter(1, time.Minute)
	limiter.now = func() time.Time { return now }

	for _, key := range []string{"a", "b", "c"} {
		require.True(t, limiter.Allow(key))
	}
	require.Len(t, limiter.windows, 3)

	now = now.Add(2 * time.Minute)
	limiter.Allow("d")
	assert.Len(t, limiter.windows, 1)
}

func TestMiddleware(t *testing.T) {
	limiter := NewLimiter(2, time.Minute)
	handler := Middleware(limiter)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "9.9.9.9:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "9.9.9.9:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestMiddlewareHonorsForwardedFor(t *testing.T) {
	limiter := NewLimiter(1, time.Minute)
	handler := Middleware(limiter)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i, addr := range []string{"10.0.0.1", "10.0.0.2"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "127.0.0.1:1234"
		req.Header.Set("X-Forwarded-For", addr)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, "client %d", i)
	}
}
