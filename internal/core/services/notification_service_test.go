package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/lorrc/reviewhub-realtime/internal/core/domain"
	apperrors "github.com/lorrc/reviewhub-realtime/internal/core/errors"
	"github.com/lorrc/reviewhub-realtime/internal/core/mocks"
	"github.com/lorrc/reviewhub-realtime/internal/core/ports"
	"github.com/lorrc/reviewhub-realtime/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestNotificationService_Record(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		repo := mocks.NewMockNotificationRepository()
		svc := services.NewNotificationService(repo, nil, discardLogger())

		stored := &domain.Notification{ID: uuid.New(), UserID: "u1"}
		var created *domain.Notification
		repo.On("Create", ctx, mock.AnythingOfType("*domain.Notification")).
			Run(func(args mock.Arguments) { created = args.Get(1).(*domain.Notification) }).
			Return(stored, nil)

		n, err := svc.Record(ctx, domain.NotificationParams{UserID: "u1", Title: "Hello"})

		require.NoError(t, err)
		assert.Same(t, stored, n)
		require.NotNil(t, created)
		assert.Equal(t, "u1", created.UserID)
		assert.Equal(t, "general", created.Type)
		assert.False(t, created.Read)
		assert.NotEqual(t, uuid.Nil, created.ID)
		repo.AssertExpectations(t)
	})

	t.Run("validation error", func(t *testing.T) {
		repo := mocks.NewMockNotificationRepository()
		svc := services.NewNotificationService(repo, nil, discardLogger())

		_, err := svc.Record(ctx, domain.NotificationParams{UserID: "", Title: ""})

		var validationErr *apperrors.ValidationErrors
		require.ErrorAs(t, err, &validationErr)
		assert.Contains(t, validationErr.Errors, "userId")
		assert.Contains(t, validationErr.Errors, "title")
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestNotificationService_List(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		params     ports.ListNotificationsParams
		wantLimit  int
		wantOffset int
	}{
		{"defaults", ports.ListNotificationsParams{UserID: "u1"}, 20, 0},
		{"capped", ports.ListNotificationsParams{UserID: "u1", Limit: 500, Offset: 10}, 100, 10},
		{"negative offset", ports.ListNotificationsParams{UserID: "u1", Limit: 5, Offset: -3}, 5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := mocks.NewMockNotificationRepository()
			svc := services.NewNotificationService(repo, nil, discardLogger())
			repo.On("ListByUser", ctx, "u1", tt.wantLimit, tt.wantOffset, false).
				Return([]*domain.Notification{}, nil)

			_, err := svc.List(ctx, tt.params)

			require.NoError(t, err)
			repo.AssertExpectations(t)
		})
	}
}

func TestNotificationService_MarkRead(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	t.Run("publishes read state", func(t *testing.T) {
		repo := mocks.NewMockNotificationRepository()
		broadcaster := &mocks.RecordingBroadcaster{}
		svc := services.NewNotificationService(repo, broadcaster, discardLogger())

		repo.On("MarkRead", ctx, "u1", id).Return(nil)
		repo.On("CountUnread", ctx, "u1").Return(3, nil)

		require.NoError(t, svc.MarkRead(ctx, "u1", id))

		events := broadcaster.Events()
		require.Len(t, events, 1)
		assert.Equal(t, domain.RealtimeNotification, events[0].Type)
		assert.Equal(t, "u1", events[0].UserID)
		assert.Equal(t, map[string]any{"action": "read_state_changed", "unreadCount": 3}, events[0].Payload)
	})

	t.Run("not found", func(t *testing.T) {
		repo := mocks.NewMockNotificationRepository()
		broadcaster := &mocks.RecordingBroadcaster{}
		svc := services.NewNotificationService(repo, broadcaster, discardLogger())

		repo.On("MarkRead", ctx, "u1", id).Return(apperrors.ErrNotificationNotFound)

		err := svc.MarkRead(ctx, "u1", id)

		assert.ErrorIs(t, err, apperrors.ErrNotificationNotFound)
		assert.Empty(t, broadcaster.Events())
	})
}

func TestNotificationService_MarkAllRead(t *testing.T) {
	ctx := context.Background()

	t.Run("changes publish", func(t *testing.T) {
		repo := mocks.NewMockNotificationRepository()
		broadcaster := &mocks.RecordingBroadcaster{}
		svc := services.NewNotificationService(repo, broadcaster, discardLogger())

		repo.On("MarkAllRead", ctx, "u1").Return(4, nil)
		repo.On("CountUnread", ctx, "u1").Return(0, nil)

		changed, err := svc.MarkAllRead(ctx, "u1")

		require.NoError(t, err)
		assert.Equal(t, 4, changed)
		require.Len(t, broadcaster.Events(), 1)
	})

	t.Run("nothing to mark stays quiet", func(t *testing.T) {
		repo := mocks.NewMockNotificationRepository()
		broadcaster := &mocks.RecordingBroadcaster{}
		svc := services.NewNotificationService(repo, broadcaster, discardLogger())

		repo.On("MarkAllRead", ctx, "u1").Return(0, nil)

		changed, err := svc.MarkAllRead(ctx, "u1")

		require.NoError(t, err)
		assert.Zero(t, changed)
		assert.Empty(t, broadcaster.Events())
	})

	t.Run("repository error", func(t *testing.T) {
		repo := mocks.NewMockNotificationRepository()
		svc := services.NewNotificationService(repo, nil, discardLogger())

		repo.On("MarkAllRead", ctx, "u1").Return(0, errors.New("boom"))

		_, err := svc.MarkAllRead(ctx, "u1")

		assert.Error(t, err)
	})
}
