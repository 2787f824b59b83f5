package http

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	mw "github.com/lorrc/reviewhub-realtime/internal/adapters/primary/http/middleware"
	wsAdapter "github.com/lorrc/reviewhub-realtime/internal/adapters/primary/websocket"
	apperrors "github.com/lorrc/reviewhub-realtime/internal/core/errors"
	"github.com/lorrc/reviewhub-realtime/internal/core/ports"
	"github.com/lorrc/reviewhub-realtime/internal/infrastructure/metrics"
)

// WebSocketHandler upgrades authenticated requests and relays the same
// filtered stream the SSE endpoint serves.
type WebSocketHandler struct {
	streams      ports.RealtimeStreamProvider
	upgrader     websocket.Upgrader
	clientCfg    wsAdapter.Config
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// WebSocketConfig holds configuration for the WebSocket handler
type WebSocketConfig struct {
	AllowedOrigins  []string
	ReadBufferSize  int
	WriteBufferSize int
	Client          wsAdapter.Config
	IsDevelopment   bool
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(
	streams ports.RealtimeStreamProvider,
	cfg WebSocketConfig,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *WebSocketHandler {
	handler := &WebSocketHandler{
		streams:      streams,
		clientCfg:    cfg.Client,
		errorHandler: errorHandler,
		logger:       logger.With("component", "websocket_handler"),
	}

	handler.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin:     handler.makeOriginChecker(cfg),
	}

	return handler
}

// makeOriginChecker creates an origin checking function based on configuration
func (h *WebSocketHandler) makeOriginChecker(cfg WebSocketConfig) func(r *http.Request) bool {
	allowedOrigins := cfg.AllowedOrigins

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")

		// In development mode, allow all origins (but log a warning)
		if cfg.IsDevelopment {
			if origin != "" {
				h.logger.Warn("allowing websocket connection in development mode",
					"origin", origin,
					"remote_addr", r.RemoteAddr,
				)
			}
			return true
		}

		// No origin header (same-origin request or non-browser client)
		if origin == "" {
			return true
		}

		if originAllowed(origin, allowedOrigins) {
			return true
		}

		h.logger.Warn("websocket connection rejected due to origin",
			"origin", origin,
			"remote_addr", r.RemoteAddr,
			"allowed_origins", allowedOrigins,
		)
		return false
	}
}

// originAllowed matches the origin host against exact hosts and "*.suffix" entries.
func originAllowed(origin string, allowed []string) bool {
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}
	host := parsed.Host

	for _, entry := range allowed {
		if strings.HasPrefix(entry, "*.") {
			if strings.HasSuffix(host, entry[1:]) || host == entry[2:] {
				return true
			}
		} else if host == entry || origin == entry {
			return true
		}
	}
	return false
}

// ServeHTTP handles WebSocket connection requests. It blocks for the lifetime
// of the connection so per-user stream limits hold.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims, ok := mw.GetClaims(r.Context())
	if !ok {
		h.errorHandler.Handle(w, r, apperrors.ErrUnauthorized)
		return
	}

	stream, err := h.streams.FilteredStream(claims.UserID, claims.Role)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		stream.Unsubscribe()
		h.logger.WarnContext(r.Context(), "failed to upgrade websocket connection", "error", err)
		return
	}

	metrics.ActiveStreams.WithLabelValues("websocket").Inc()
	defer metrics.ActiveStreams.WithLabelValues("websocket").Dec()

	h.logger.InfoContext(r.Context(), "websocket connection established", "remote_addr", r.RemoteAddr)

	client := wsAdapter.NewClient(conn, stream, h.clientCfg, h.logger.With(
		"user_id", claims.UserID,
		"role", claims.Role,
	))
	client.Run()

	h.logger.InfoContext(r.Context(), "websocket connection closed")
}
