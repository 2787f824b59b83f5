package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/lorrc/reviewhub-realtime/internal/core/domain"
)

// EventHandler receives one domain event payload from the event bus.
type EventHandler func(ctx context.Context, payload any) error

// EventBus is the in-process publish/subscribe channel for domain events.
type EventBus interface {
	Emit(ctx context.Context, name domain.DomainEventName, payload any)
	On(name domain.DomainEventName, handler EventHandler)
}

// RealtimeBroadcaster fans realtime events out to live subscriptions.
type RealtimeBroadcaster interface {
	Emit(event domain.RealtimeEvent)
}

// RealtimeStream is one live, filtered view of the broadcast.
type RealtimeStream interface {
	// Events delivers matching events in emission order.
	Events() <-chan domain.RealtimeEvent
	// Done is closed once the stream has ended for any reason.
	Done() <-chan struct{}
	// Err reports why the stream ended; nil after a plain Unsubscribe.
	Err() error
	// Unsubscribe ends the stream. Safe to call more than once.
	Unsubscribe()
}

// RealtimeStreamProvider opens filtered streams for a connection identity.
type RealtimeStreamProvider interface {
	FilteredStream(userID string, role domain.Role) (RealtimeStream, error)
}

// ListNotificationsParams defines the input for listing a user's notifications.
type ListNotificationsParams struct {
	UserID     string
	Limit      int
	Offset     int
	UnreadOnly bool
}

// NotificationService defines the read-state operations behind the notification API.
type NotificationService interface {
	Record(ctx context.Context, params domain.NotificationParams) (*domain.Notification, error)
	List(ctx context.Context, params ListNotificationsParams) ([]*domain.Notification, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID string, id uuid.UUID) error
	MarkAllRead(ctx context.Context, userID string) (int, error)
}

// NotificationRecorder persists user-targeted notifications emitted by the gateway.
type NotificationRecorder interface {
	Record(ctx context.Context, params domain.NotificationParams) (*domain.Notification, error)
}

// TransactionManager defines the port for running atomic operations.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
