package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	mw "github.com/lorrc/reviewhub-realtime/internal/adapters/primary/http/middleware"
	"github.com/lorrc/reviewhub-realtime/internal/adapters/primary/realtime"
	"github.com/lorrc/reviewhub-realtime/internal/core/domain"
	apperrors "github.com/lorrc/reviewhub-realtime/internal/core/errors"
	"github.com/lorrc/reviewhub-realtime/internal/core/ports"
	"github.com/lorrc/reviewhub-realtime/internal/infrastructure/logging"
	"github.com/lorrc/reviewhub-realtime/internal/infrastructure/metrics"
)

const DefaultHeartbeatInterval = 30 * time.Second

// Ticker is the heartbeat timer. NewTicker adapts *time.Ticker.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory creates a heartbeat ticker for one connection.
type TickerFactory func(d time.Duration) Ticker

type timeTicker struct{ *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.Ticker.C }

// NewTicker wraps time.NewTicker.
func NewTicker(d time.Duration) Ticker {
	return timeTicker{time.NewTicker(d)}
}

// ConnectionState is the lifecycle of one stream connection.
type ConnectionState string

const (
	StateConnecting ConnectionState = "CONNECTING"
	StateOpen       ConnectionState = "OPEN"
	StateClosed     ConnectionState = "CLOSED"
)

// SSEHandler bridges one authenticated request to a filtered realtime stream.
type SSEHandler struct {
	streams      ports.RealtimeStreamProvider
	heartbeat    time.Duration
	newTicker    TickerFactory
	now          func() time.Time
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// SSEOption customizes an SSEHandler.
type SSEOption func(*SSEHandler)

// WithTickerFactory replaces the heartbeat ticker source.
func WithTickerFactory(f TickerFactory) SSEOption {
	return func(h *SSEHandler) { h.newTicker = f }
}

// NewSSEHandler creates the handler. A non-positive heartbeat falls back to 30s.
func NewSSEHandler(
	streams ports.RealtimeStreamProvider,
	heartbeat time.Duration,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
	opts ...SSEOption,
) *SSEHandler {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeatInterval
	}
	h := &SSEHandler{
		streams:      streams,
		heartbeat:    heartbeat,
		newTicker:    NewTicker,
		now:          time.Now,
		errorHandler: errorHandler,
		logger:       logger.With("component", "sse_handler"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleEvents serves GET /api/v1/realtime/events.
func (h *SSEHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	claims, ok := mw.GetClaims(r.Context())
	if !ok {
		h.errorHandler.Handle(w, r, apperrors.ErrUnauthorized)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.errorHandler.Handle(w, r, apperrors.ErrStreamingUnsupported)
		return
	}

	ctx := logging.WithConnectionID(r.Context(), uuid.NewString())
	logger := logging.LoggerFromContext(ctx, h.logger)
	logger.Debug("sse connection state", "state", StateConnecting)

	// Subscribe before anything is written so no event emitted after the
	// connected frame can be missed.
	stream, err := h.streams.FilteredStream(claims.UserID, claims.Role)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	ticker := h.newTicker(h.heartbeat)

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			stream.Unsubscribe()
			ticker.Stop()
			metrics.ActiveStreams.WithLabelValues("sse").Dec()
			logger.Info("sse connection state", "state", StateClosed)
		})
	}
	defer cleanup()
	metrics.ActiveStreams.WithLabelValues("sse").Inc()

	// Streams outlive the server's write timeout.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		logger.Warn("failed to clear write deadline", "error", err)
	}

	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	write := func(frame string) bool {
		if _, err := io.WriteString(w, frame); err != nil {
			logger.Debug("sse write failed", "error", err)
			return false
		}
		flusher.Flush()
		return true
	}

	if !write(realtime.ControlFrame(domain.RealtimeConnected, h.now())) {
		return
	}
	logger.Info("sse connection state", "state", StateOpen)

	for {
		select {
		case <-ctx.Done():
			return

		case <-stream.Done():
			if err := stream.Err(); err != nil {
				logger.Warn("realtime stream ended", "error", err)
			}
			return

		case event := <-stream.Events():
			frame, err := realtime.FormatForWire(event)
			if err != nil {
				logger.Error("failed to encode realtime event", "type", event.Type, "error", err)
				continue
			}
			if !write(frame) {
				return
			}

		case <-ticker.C():
			if !write(realtime.ControlFrame(domain.RealtimeHeartbeat, h.now())) {
				return
			}
		}
	}
}
