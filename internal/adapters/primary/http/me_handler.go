package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	mw "github.com/lorrc/reviewhub-realtime/internal/adapters/primary/http/middleware"
	"github.com/lorrc/reviewhub-realtime/internal/auth"
	"github.com/lorrc/reviewhub-realtime/internal/core/ports"
)

// StreamCounter reports how many realtime streams a user holds open.
type StreamCounter interface {
	Open(userID string) int
}

// MeResponse summarizes the caller's realtime session.
type MeResponse struct {
	UserID      string `json:"userId"`
	Role        string `json:"role"`
	OpenStreams int    `json:"openStreams"`
	UnreadCount int    `json:"unreadCount"`
}

// MeHandler handles HTTP requests for the authenticated user.
type MeHandler struct {
	notifications ports.NotificationService
	streams       StreamCounter
	errorHandler  *ErrorHandler
	logger        *slog.Logger
}

// NewMeHandler creates a new MeHandler. streams may be nil.
func NewMeHandler(
	notifications ports.NotificationService,
	streams StreamCounter,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *MeHandler {
	return &MeHandler{
		notifications: notifications,
		streams:       streams,
		errorHandler:  errorHandler,
		logger:        logger.With("handler", "me"),
	}
}

// RegisterRoutes registers the /me routes.
func (h *MeHandler) RegisterRoutes(r chi.Router) {
	r.Get("/me", h.HandleMe)
}

// HandleMe handles GET /me.
func (h *MeHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	unread, err := h.notifications.UnreadCount(r.Context(), claims.UserID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	open := 0
	if h.streams != nil {
		open = h.streams.Open(claims.UserID)
	}

	WriteSuccess(w, MeResponse{
		UserID:      claims.UserID,
		Role:        claims.Role.String(),
		OpenStreams: open,
		UnreadCount: unread,
	})
}

// getClaims extracts and validates user claims from the request context.
func (h *MeHandler) getClaims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims, ok := mw.GetClaims(r.Context())
	if !ok {
		WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error: "Not authorized",
			Code:  "UNAUTHORIZED",
		})
		return nil, false
	}
	return claims, true
}
