package middleware

import (
	"net/http"
	"sync"

	apperrors "github.com/lorrc/reviewhub-realtime/internal/core/errors"
)

// StreamLimiter caps the number of concurrent long-lived streams per user.
type StreamLimiter struct {
	mu     sync.Mutex
	open   map[string]int
	perKey int
}

// NewStreamLimiter creates a limiter. perUser <= 0 disables the cap.
func NewStreamLimiter(perUser int) *StreamLimiter {
	return &StreamLimiter{open: make(map[string]int), perKey: perUser}
}

// Acquire reserves a stream slot for userID.
func (l *StreamLimiter) Acquire(userID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.perKey > 0 && l.open[userID] >= l.perKey {
		return false
	}
	l.open[userID]++
	return true
}

// Release frees a slot taken by Acquire.
func (l *StreamLimiter) Release(userID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.open[userID] <= 1 {
		delete(l.open, userID)
		return
	}
	l.open[userID]--
}

// Open returns the number of streams userID currently holds.
func (l *StreamLimiter) Open(userID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.open[userID]
}

// Middleware holds a slot for the lifetime of the request. It must run
// after JWTMiddleware.
func (l *StreamLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := GetClaims(r.Context())
		if !ok {
			writeAppError(w, apperrors.NewUnauthorizedError("Authentication required"))
			return
		}
		if !l.Acquire(claims.UserID) {
			writeAppError(w, apperrors.NewTooManyStreamsError(l.perKey))
			return
		}
		defer l.Release(claims.UserID)

		next.ServeHTTP(w, r)
	})
}
