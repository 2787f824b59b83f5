package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/lorrc/reviewhub-realtime/internal/core/errors"
)

const (
	MaxNotificationTitleLength   = 200
	MaxNotificationMessageLength = 2000
)

// Notification is a user-visible inbox entry with read-state.
type Notification struct {
	ID        uuid.UUID
	UserID    string
	Type      string
	Title     string
	Message   string
	Data      map[string]any
	Read      bool
	CreatedAt time.Time
	ReadAt    *time.Time
}

// NotificationParams holds the input for a new notification.
type NotificationParams struct {
	UserID  string
	Type    string
	Title   string
	Message string
	Data    map[string]any
}

// NewNotification validates params and builds an unread notification.
func NewNotification(params NotificationParams) (*Notification, error) {
	errs := apperrors.NewValidationErrors()

	if strings.TrimSpace(params.UserID) == "" {
		errs.Add("userId", "User ID is required")
	}
	if strings.TrimSpace(params.Title) == "" {
		errs.Add("title", "Title is required")
	} else if len(params.Title) > MaxNotificationTitleLength {
		errs.Add("title", "Title must be 200 characters or less")
	}
	if len(params.Message) > MaxNotificationMessageLength {
		errs.Add("message", "Message must be 2000 characters or less")
	}
	if errs.HasErrors() {
		return nil, errs
	}

	kind := params.Type
	if kind == "" {
		kind = "general"
	}

	return &Notification{
		ID:        uuid.New(),
		UserID:    params.UserID,
		Type:      kind,
		Title:     params.Title,
		Message:   params.Message,
		Data:      params.Data,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// MarkRead flips the notification to read. It is a no-op when already read.
func (n *Notification) MarkRead(at time.Time) {
	if n.Read {
		return
	}
	readAt := at.UTC()
	n.Read = true
	n.ReadAt = &readAt
}

// IsOwnedBy reports whether the notification belongs to userID.
func (n *Notification) IsOwnedBy(userID string) bool {
	return n.UserID == userID
}
