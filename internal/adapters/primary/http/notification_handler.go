package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	mw "github.com/lorrc/reviewhub-realtime/internal/adapters/primary/http/middleware"
	"github.com/lorrc/reviewhub-realtime/internal/adapters/primary/validation"
	"github.com/lorrc/reviewhub-realtime/internal/core/domain"
	apperrors "github.com/lorrc/reviewhub-realtime/internal/core/errors"
	"github.com/lorrc/reviewhub-realtime/internal/core/ports"
	"github.com/lorrc/reviewhub-realtime/internal/core/services"
)

// NotificationHandler serves the notification inbox API.
type NotificationHandler struct {
	svc          ports.NotificationService
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

func NewNotificationHandler(svc ports.NotificationService, errorHandler *ErrorHandler, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{
		svc:          svc,
		errorHandler: errorHandler,
		logger:       logger,
	}
}

// NotificationResponse is the JSON shape of one notification.
type NotificationResponse struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
	Read      bool           `json:"read"`
	CreatedAt string         `json:"createdAt"`
	ReadAt    *string        `json:"readAt,omitempty"`
}

func toNotificationResponse(n *domain.Notification) NotificationResponse {
	resp := NotificationResponse{
		ID:        n.ID.String(),
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		Data:      n.Data,
		Read:      n.Read,
		CreatedAt: n.CreatedAt.UTC().Format(time.RFC3339),
	}
	if n.ReadAt != nil {
		readAt := n.ReadAt.UTC().Format(time.RFC3339)
		resp.ReadAt = &readAt
	}
	return resp
}

// RegisterRoutes mounts the inbox routes. r must already be authenticated.
func (h *NotificationHandler) RegisterRoutes(r chi.Router) {
	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Get("/unread-count", h.HandleUnreadCount)
		r.Post("/read-all", h.HandleMarkAllRead)
		r.Post("/{notificationID}/read", h.HandleMarkRead)
	})
}

// HandleList serves GET /notifications?limit&offset&unread
func (h *NotificationHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	claims, ok := mw.GetClaims(r.Context())
	if !ok {
		h.errorHandler.Handle(w, r, apperrors.ErrUnauthorized)
		return
	}

	page := validation.ParsePagination(r, services.DefaultNotificationPageSize, services.MaxNotificationPageSize)
	unreadOnly := validation.ParseBoolQueryParam(r, "unread", false)

	notifications, err := h.svc.List(r.Context(), ports.ListNotificationsParams{
		UserID:     claims.UserID,
		Limit:      page.Limit,
		Offset:     page.Offset,
		UnreadOnly: unreadOnly,
	})
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	items := make([]NotificationResponse, 0, len(notifications))
	for _, n := range notifications {
		items = append(items, toNotificationResponse(n))
	}
	WritePage(w, items, page.Limit, page.Offset)
}

// HandleUnreadCount serves GET /notifications/unread-count
func (h *NotificationHandler) HandleUnreadCount(w http.ResponseWriter, r *http.Request) {
	claims, ok := mw.GetClaims(r.Context())
	if !ok {
		h.errorHandler.Handle(w, r, apperrors.ErrUnauthorized)
		return
	}

	count, err := h.svc.UnreadCount(r.Context(), claims.UserID)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	WriteSuccess(w, map[string]int{"unreadCount": count})
}

// HandleMarkRead serves POST /notifications/{notificationID}/read
func (h *NotificationHandler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	claims, ok := mw.GetClaims(r.Context())
	if !ok {
		h.errorHandler.Handle(w, r, apperrors.ErrUnauthorized)
		return
	}

	id, err := validation.ParseUUID("notification ID", chi.URLParam(r, "notificationID"))
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	if HandleError(w, r, h.svc.MarkRead(r.Context(), claims.UserID, id), h.errorHandler) {
		return
	}

	WriteSuccess(w, map[string]string{"id": id.String()})
}

// HandleMarkAllRead serves POST /notifications/read-all
func (h *NotificationHandler) HandleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	claims, ok := mw.GetClaims(r.Context())
	if !ok {
		h.errorHandler.Handle(w, r, apperrors.ErrUnauthorized)
		return
	}

	changed, err := h.svc.MarkAllRead(r.Context(), claims.UserID)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	WriteSuccess(w, map[string]int{"updated": changed})
}
