package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lorrc/reviewhub-realtime/internal/core/domain"
	apperrors "github.com/lorrc/reviewhub-realtime/internal/core/errors"
	"github.com/lorrc/reviewhub-realtime/internal/core/ports"
)

// DefaultCapacity is the per-user limit used when none is configured.
const DefaultCapacity = 200

// NotificationRepository keeps notifications in process memory. Each user
// holds at most capacity entries; the oldest is evicted first.
type NotificationRepository struct {
	mu       sync.RWMutex
	capacity int
	byUser   map[string][]*domain.Notification // oldest first
	now      func() time.Time
}

var _ ports.NotificationRepository = (*NotificationRepository)(nil)

func NewNotificationRepository(capacity int) *NotificationRepository {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &NotificationRepository{
		capacity: capacity,
		byUser:   make(map[string][]*domain.Notification),
		now:      time.Now,
	}
}

func (r *NotificationRepository) Create(_ context.Context, n *domain.Notification) (*domain.Notification, error) {
	stored := clone(n)

	r.mu.Lock()
	defer r.mu.Unlock()

	list := append(r.byUser[n.UserID], stored)
	if over := len(list) - r.capacity; over > 0 {
		list = append([]*domain.Notification(nil), list[over:]...)
	}
	r.byUser[n.UserID] = list

	return clone(stored), nil
}

func (r *NotificationRepository) ListByUser(_ context.Context, userID string, limit, offset int, unreadOnly bool) ([]*domain.Notification, error) {
	if limit <= 0 {
		return []*domain.Notification{}, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.byUser[userID]
	result := make([]*domain.Notification, 0, min(limit, len(list)))
	skipped := 0
	for i := len(list) - 1; i >= 0 && len(result) < limit; i-- {
		n := list[i]
		if unreadOnly && n.Read {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		result = append(result, clone(n))
	}
	return result, nil
}

func (r *NotificationRepository) MarkRead(_ context.Context, userID string, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, n := range r.byUser[userID] {
		if n.ID == id {
			n.MarkRead(r.now())
			return nil
		}
	}
	return apperrors.ErrNotificationNotFound
}

func (r *NotificationRepository) MarkAllRead(_ context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	at := r.now()
	changed := 0
	for _, n := range r.byUser[userID] {
		if !n.Read {
			n.MarkRead(at)
			changed++
		}
	}
	return changed, nil
}

func (r *NotificationRepository) CountUnread(_ context.Context, userID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, n := range r.byUser[userID] {
		if !n.Read {
			count++
		}
	}
	return count, nil
}

// Ping always succeeds.
func (r *NotificationRepository) Ping(context.Context) error {
	return nil
}

// clone copies the notification so callers never share state with the store.
// Data is copied one level deep.
func clone(n *domain.Notification) *domain.Notification {
	c := *n
	if n.Data != nil {
		c.Data = make(map[string]any, len(n.Data))
		for k, v := range n.Data {
			c.Data[k] = v
		}
	}
	if n.ReadAt != nil {
		readAt := *n.ReadAt
		c.ReadAt = &readAt
	}
	return &c
}
