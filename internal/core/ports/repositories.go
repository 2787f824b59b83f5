package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/lorrc/reviewhub-realtime/internal/core/domain"
)

// NotificationRepository stores notifications and their read-state.
type NotificationRepository interface {
	Create(ctx context.Context, notification *domain.Notification) (*domain.Notification, error)
	ListByUser(ctx context.Context, userID string, limit, offset int, unreadOnly bool) ([]*domain.Notification, error)
	// MarkRead returns ErrNotificationNotFound when id does not belong to userID.
	MarkRead(ctx context.Context, userID string, id uuid.UUID) error
	MarkAllRead(ctx context.Context, userID string) (int, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	Ping(ctx context.Context) error
}
