package services

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/lorrc/reviewhub-realtime/internal/core/domain"
	"github.com/lorrc/reviewhub-realtime/internal/core/ports"
)

const (
	DefaultNotificationPageSize = 20
	MaxNotificationPageSize     = 100

	ReadStateChangedAction = "read_state_changed"
)

// NotificationService implements the notification inbox and its read-state.
type NotificationService struct {
	repo        ports.NotificationRepository
	broadcaster ports.RealtimeBroadcaster
	logger      *slog.Logger
}

var (
	_ ports.NotificationService  = (*NotificationService)(nil)
	_ ports.NotificationRecorder = (*NotificationService)(nil)
)

// NewNotificationService creates a notification service. broadcaster may be
// nil, in which case read-state changes are not pushed to clients.
func NewNotificationService(
	repo ports.NotificationRepository,
	broadcaster ports.RealtimeBroadcaster,
	logger *slog.Logger,
) *NotificationService {
	return &NotificationService{
		repo:        repo,
		broadcaster: broadcaster,
		logger:      logger.With("component", "notification_service"),
	}
}

// Record validates and stores a new unread notification.
func (s *NotificationService) Record(ctx context.Context, params domain.NotificationParams) (*domain.Notification, error) {
	notification, err := domain.NewNotification(params)
	if err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, notification)
}

// List returns a page of the user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, params ports.ListNotificationsParams) ([]*domain.Notification, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = DefaultNotificationPageSize
	}
	if limit > MaxNotificationPageSize {
		limit = MaxNotificationPageSize
	}
	offset := max(params.Offset, 0)

	return s.repo.ListByUser(ctx, params.UserID, limit, offset, params.UnreadOnly)
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

// MarkRead marks one of the user's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, userID string, id uuid.UUID) error {
	if err := s.repo.MarkRead(ctx, userID, id); err != nil {
		return err
	}
	s.publishReadState(ctx, userID)
	return nil
}

// MarkAllRead marks every unread notification of the user as read and
// returns how many changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int, error) {
	changed, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, err
	}
	if changed > 0 {
		s.publishReadState(ctx, userID)
	}
	return changed, nil
}

// publishReadState tells the user's open connections to refresh their badge.
func (s *NotificationService) publishReadState(ctx context.Context, userID string) {
	if s.broadcaster == nil {
		return
	}
	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to count unread notifications", "user_id", userID, "error", err)
		return
	}
	s.broadcaster.Emit(domain.RealtimeEvent{
		Type:   domain.RealtimeNotification,
		UserID: userID,
		Payload: map[string]any{
			"action":      ReadStateChangedAction,
			"unreadCount": unread,
		},
	})
}
