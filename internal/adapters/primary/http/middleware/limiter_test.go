package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/reviewhub-realtime/internal/auth"
	"github.com/lorrc/reviewhub-realtime/internal/core/domain"
)

func TestRateLimiter_Allow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := NewRateLimiter(ctx, RateLimiterConfig{RequestsPerSecond: 1, BurstSize: 2})

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"), "burst exhausted")
	assert.True(t, rl.Allow("b"), "buckets are per key")
}

func TestRateLimiter_Middleware(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := NewRateLimiter(ctx, RateLimiterConfig{RequestsPerSecond: 0.001, BurstSize: 1, Key: UserOrIPKey})
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	newReq := func(userID string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		if userID != "" {
			req = req.WithContext(WithClaims(req.Context(), &auth.Claims{UserID: userID, Role: domain.RoleReader}))
		}
		return req
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newReq("u1"))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, newReq("u1"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Equal(t, "RATE_LIMITED", decodeError(t, rec)["code"])

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, newReq("u2"))
	assert.Equal(t, http.StatusNoContent, rec.Code, "another user on the same IP has its own bucket")
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.10:5555"
	assert.Equal(t, "192.0.2.10", getClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", getClientIP(req))
}

func TestStreamLimiter(t *testing.T) {
	l := NewStreamLimiter(2)

	assert.True(t, l.Acquire("u1"))
	assert.True(t, l.Acquire("u1"))
	assert.False(t, l.Acquire("u1"))
	assert.True(t, l.Acquire("u2"))
	assert.Equal(t, 2, l.Open("u1"))

	l.Release("u1")
	assert.Equal(t, 1, l.Open("u1"))
	assert.True(t, l.Acquire("u1"))

	unlimited := NewStreamLimiter(0)
	for i := 0; i < 50; i++ {
		require.True(t, unlimited.Acquire("u1"))
	}
}

func TestStreamLimiter_Middleware(t *testing.T) {
	l := NewStreamLimiter(1)

	entered := make(chan struct{})
	release := make(chan struct{})
	handler := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
	}))

	newReq := func() *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/realtime/events", nil)
		return req.WithContext(WithClaims(req.Context(), &auth.Claims{UserID: "u1", Role: domain.RoleReader}))
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		handler.ServeHTTP(httptest.NewRecorder(), newReq())
	}()

	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("first stream was not admitted")
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newReq())
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "TOO_MANY_STREAMS", body["code"])
	assert.Equal(t, "At most 1 realtime streams may be open per user", body["error"])

	close(release)
	wg.Wait()
	assert.Zero(t, l.Open("u1"))
}

func TestStreamLimiter_MiddlewareRequiresClaims(t *testing.T) {
	l := NewStreamLimiter(1)
	handler := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("unauthenticated stream was admitted")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/realtime/events", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "UNAUTHORIZED", body["code"])
	assert.Equal(t, "Authentication required", body["error"])
}
