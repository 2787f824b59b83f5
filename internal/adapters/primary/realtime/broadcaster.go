// Package realtime is the fan-out point for all realtime traffic. Every
// transport (SSE, WebSocket) reads from a filtered stream opened here.
package realtime

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/lorrc/reviewhub-realtime/internal/core/domain"
	apperrors "github.com/lorrc/reviewhub-realtime/internal/core/errors"
	"github.com/lorrc/reviewhub-realtime/internal/core/ports"
	"github.com/lorrc/reviewhub-realtime/internal/infrastructure/metrics"
)

// OverflowPolicy decides what happens when a subscription's buffer is full.
type OverflowPolicy string

const (
	// OverflowDropOldest discards the oldest queued event to make room.
	OverflowDropOldest OverflowPolicy = "drop-oldest"
	// OverflowDisconnect ends the subscription with ErrSlowConsumer.
	OverflowDisconnect OverflowPolicy = "disconnect"

	DefaultBufferSize = 64
)

// ParseOverflowPolicy accepts the policy names used in configuration.
func ParseOverflowPolicy(s string) (OverflowPolicy, error) {
	switch p := OverflowPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return OverflowDropOldest, nil
	case OverflowDropOldest, OverflowDisconnect:
		return p, nil
	default:
		return "", fmt.Errorf("unknown overflow policy %q", s)
	}
}

// Options configures a Broadcaster.
type Options struct {
	BufferSize int
	Overflow   OverflowPolicy
}

// Broadcaster delivers every emitted event to the live subscriptions whose
// filter matches it. Emission is serialized so all subscribers observe the
// same relative order; a full subscriber buffer never blocks the emitter.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[*subscription]struct{}
	closed bool

	// emitMu serializes Emit so per-subscriber FIFO holds across producers.
	emitMu sync.Mutex

	opts   Options
	now    func() time.Time
	logger *slog.Logger
}

var (
	_ ports.RealtimeBroadcaster    = (*Broadcaster)(nil)
	_ ports.RealtimeStreamProvider = (*Broadcaster)(nil)
)

// NewBroadcaster creates a broadcaster with no subscribers.
func NewBroadcaster(opts Options, logger *slog.Logger) *Broadcaster {
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}
	if opts.Overflow == "" {
		opts.Overflow = OverflowDropOldest
	}
	return &Broadcaster{
		subs:   make(map[*subscription]struct{}),
		opts:   opts,
		now:    time.Now,
		logger: logger.With("component", "realtime_broadcaster"),
	}
}

// Emit stamps the event timestamp when absent and queues the event on every
// matching subscription. With no subscribers the event is dropped.
func (b *Broadcaster) Emit(event domain.RealtimeEvent) {
	b.emitMu.Lock()
	defer b.emitMu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = b.now().UTC()
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	targets := make([]*subscription, 0, len(b.subs))
	for sub := range b.subs {
		targets = append(targets, sub)
	}
	b.mu.RUnlock()

	metrics.RealtimeEmitted.WithLabelValues(string(event.Type)).Inc()

	for _, sub := range targets {
		if event.Matches(sub.userID, sub.role) {
			sub.deliver(event)
		}
	}
}

// FilteredStream opens a live view that yields only the events matching
// userID or role, plus global events.
func (b *Broadcaster) FilteredStream(userID string, role domain.Role) (ports.RealtimeStream, error) {
	sub := newSubscription(b, userID, role, b.opts.BufferSize, b.opts.Overflow)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, apperrors.ErrBroadcasterClosed
	}
	b.subs[sub] = struct{}{}
	count := len(b.subs)
	b.mu.Unlock()

	metrics.ActiveSubscriptions.Inc()
	b.logger.Debug("subscription opened",
		"user_id", userID,
		"role", role,
		"subscriptions", count,
	)
	return sub, nil
}

// Subscribers returns the number of live subscriptions.
func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close ends every subscription with ErrBroadcasterClosed. Later Emit calls
// are no-ops and FilteredStream fails.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := make([]*subscription, 0, len(b.subs))
	for sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		sub.end(apperrors.ErrBroadcasterClosed)
	}
	b.logger.Info("broadcaster closed", "subscriptions", len(subs))
}

func (b *Broadcaster) remove(sub *subscription) {
	b.mu.Lock()
	_, ok := b.subs[sub]
	delete(b.subs, sub)
	b.mu.Unlock()

	if ok {
		metrics.ActiveSubscriptions.Dec()
	}
}
