package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiterBurstThenRefill(t *testing.T) {
	l := newLimiter(RateLimitConfig{Max: 3, Window: 3 * time.Second})
	now := time.Unix(1000, 0)

	// Burst up to Max.
	for i := range 3 {
		_, _, ok := l.take("a", now)
		require.True(t, ok, "request %d within burst must pass", i)
	}

	_, retryAfter, ok := l.take("a", now)
	require.False(t, ok)
	assert.Greater(t, retryAfter, time.Duration(0))

	// One token refills per second at this rate.
	_, _, ok = l.take("a", now.Add(time.Second))
	assert.True(t, ok)

	_, _, ok = l.take("a", now.Add(time.Second))
	assert.False(t, ok, "refilled token already spent")
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	l := newLimiter(RateLimitConfig{Max: 1, Window: time.Second})
	now := time.Unix(1000, 0)

	_, _, ok := l.take("a", now)
	require.True(t, ok)

	_, _, ok = l.take("a", now)
	require.False(t, ok)

	_, _, ok = l.take("b", now)
	assert.True(t, ok, "other clients keep their own bucket")
}

func TestLimiterRefillCapsAtMax(t *testing.T) {
	l := newLimiter(RateLimitConfig{Max: 2, Window: time.Second})
	now := time.Unix(1000, 0)

	_, _, ok := l.take("a", now)
	require.True(t, ok)

	// A long idle period must not accumulate more than Max tokens.
	later := now.Add(time.Hour)
	for range 2 {
		_, _, ok = l.take("a", later)
		require.True(t, ok)
	}
	_, _, ok = l.take("a", later)
	assert.False(t, ok)
}

func TestLimiterEvict(t *testing.T) {
	l := newLimiter(RateLimitConfig{Max: 1, Window: time.Second})
	now := time.Unix(1000, 0)

	l.take("a", now)
	l.take("b", now.Add(500*time.Millisecond))

	l.evict(now.Add(time.Second))

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.NotContains(t, l.buckets, "a")
	assert.Contains(t, l.buckets, "b")
}

func TestRateLimitMiddleware(t *testing.T) {
	mw := RateLimit(RateLimitConfig{
		Max:     2,
		Window:  time.Minute,
		KeyFunc: func(*http.Request) string { return "fixed" },
	})

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := range 2 {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error_kind":"rate_limited","message":"too many requests"}`, rec.Body.String())
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name     string
		forward  string
		realIP   string
		remote   string
		expected string
	}{
		{name: "forwarded single", forward: "203.0.113.7", remote: "10.0.0.1:1234", expected: "203.0.113.7"},
		{name: "forwarded chain", forward: "203.0.113.7, 10.0.0.2", remote: "10.0.0.1:1234", expected: "203.0.113.7"},
		{name: "real ip", realIP: "203.0.113.9", remote: "10.0.0.1:1234", expected: "203.0.113.9"},
		{name: "remote addr", remote: "10.0.0.1:1234", expected: "10.0.0.1"},
		{name: "remote addr no port", remote: "10.0.0.1", expected: "10.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			if tt.forward != "" {
				r.Header.Set("X-Forwarded-For", tt.forward)
			}
			if tt.realIP != "" {
				r.Header.Set("X-Real-IP", tt.realIP)
			}
			assert.Equal(t, tt.expected, clientIP(r))
		})
	}
}
