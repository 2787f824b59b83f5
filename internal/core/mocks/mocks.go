package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/lorrc/reviewhub-realtime/internal/core/domain"
	"github.com/lorrc/reviewhub-realtime/internal/core/ports"
	"github.com/stretchr/testify/mock"
)

// MockNotificationRepository is a mock implementation of ports.NotificationRepository
type MockNotificationRepository struct {
	mock.Mock
}

var _ ports.NotificationRepository = (*MockNotificationRepository)(nil)

func NewMockNotificationRepository() *MockNotificationRepository {
	return &MockNotificationRepository{}
}

func (m *MockNotificationRepository) Create(ctx context.Context, notification *domain.Notification) (*domain.Notification, error) {
	args := m.Called(ctx, notification)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Notification), args.Error(1)
}

func (m *MockNotificationRepository) ListByUser(ctx context.Context, userID string, limit, offset int, unreadOnly bool) ([]*domain.Notification, error) {
	args := m.Called(ctx, userID, limit, offset, unreadOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Notification), args.Error(1)
}

func (m *MockNotificationRepository) MarkRead(ctx context.Context, userID string, id uuid.UUID) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

func (m *MockNotificationRepository) MarkAllRead(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockNotificationRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockNotificationRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockNotificationService is a mock implementation of ports.NotificationService
type MockNotificationService struct {
	mock.Mock
}

var _ ports.NotificationService = (*MockNotificationService)(nil)

func NewMockNotificationService() *MockNotificationService {
	return &MockNotificationService{}
}

func (m *MockNotificationService) Record(ctx context.Context, params domain.NotificationParams) (*domain.Notification, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Notification), args.Error(1)
}

func (m *MockNotificationService) List(ctx context.Context, params ports.ListNotificationsParams) ([]*domain.Notification, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Notification), args.Error(1)
}

func (m *MockNotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockNotificationService) MarkRead(ctx context.Context, userID string, id uuid.UUID) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

func (m *MockNotificationService) MarkAllRead(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

// MockNotificationRecorder is a mock implementation of ports.NotificationRecorder
type MockNotificationRecorder struct {
	mock.Mock
}

var _ ports.NotificationRecorder = (*MockNotificationRecorder)(nil)

func (m *MockNotificationRecorder) Record(ctx context.Context, params domain.NotificationParams) (*domain.Notification, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Notification), args.Error(1)
}

// MockEventBus is a mock implementation of ports.EventBus. Its On method
// shadows mock.Mock.On, so set expectations through bus.Mock.On.
type MockEventBus struct {
	mock.Mock
}

var _ ports.EventBus = (*MockEventBus)(nil)

func (m *MockEventBus) Emit(ctx context.Context, name domain.DomainEventName, payload any) {
	m.Called(ctx, name, payload)
}

func (m *MockEventBus) On(name domain.DomainEventName, handler ports.EventHandler) {
	m.Called(name, handler)
}

// RecordingBroadcaster captures emitted realtime events.
type RecordingBroadcaster struct {
	mu     sync.Mutex
	events []domain.RealtimeEvent
}

var _ ports.RealtimeBroadcaster = (*RecordingBroadcaster)(nil)

func (r *RecordingBroadcaster) Emit(event domain.RealtimeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of everything emitted so far.
func (r *RecordingBroadcaster) Events() []domain.RealtimeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.RealtimeEvent, len(r.events))
	copy(out, r.events)
	return out
}
