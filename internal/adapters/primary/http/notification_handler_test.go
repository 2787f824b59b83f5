package http

import (
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	mw "github.com/lorrc/reviewhub-realtime/internal/adapters/primary/http/middleware"
	"github.com/lorrc/reviewhub-realtime/internal/auth"
	"github.com/lorrc/reviewhub-realtime/internal/core/domain"
	apperrors "github.com/lorrc/reviewhub-realtime/internal/core/errors"
	"github.com/lorrc/reviewhub-realtime/internal/core/mocks"
	"github.com/lorrc/reviewhub-realtime/internal/core/ports"
)

// withClaims authenticates every request as userID/role.
func withClaims(userID string, role domain.Role) func(stdhttp.Handler) stdhttp.Handler {
	return func(next stdhttp.Handler) stdhttp.Handler {
		return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
			ctx := mw.WithClaims(r.Context(), &auth.Claims{UserID: userID, Role: role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newNotificationRouter(svc ports.NotificationService) chi.Router {
	r := chi.NewRouter()
	r.Use(withClaims("reader-1", domain.RoleReader))
	NewNotificationHandler(svc, NewErrorHandler(testLogger()), testLogger()).RegisterRoutes(r)
	return r
}

func TestNotificationHandler_List(t *testing.T) {
	svc := mocks.NewMockNotificationService()
	readAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	notifications := []*domain.Notification{
		{ID: uuid.New(), UserID: "reader-1", Type: "payout_update", Title: "Payout update", Message: "done", CreatedAt: readAt},
		{ID: uuid.New(), UserID: "reader-1", Type: "general", Title: "Hello", Read: true, ReadAt: &readAt, CreatedAt: readAt},
	}
	svc.On("List", mock.Anything, ports.ListNotificationsParams{
		UserID:     "reader-1",
		Limit:      2,
		Offset:     4,
		UnreadOnly: true,
	}).Return(notifications, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(stdhttp.MethodGet, "/notifications?limit=2&offset=4&unread=true", nil)
	newNotificationRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, stdhttp.StatusOK, rec.Code)

	var body PageResponse[NotificationResponse]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 2)
	assert.Equal(t, "Payout update", body.Data[0].Title)
	assert.Nil(t, body.Data[0].ReadAt)
	require.NotNil(t, body.Data[1].ReadAt)
	assert.Equal(t, "2024-05-01T12:00:00Z", *body.Data[1].ReadAt)
	assert.Equal(t, PaginationMetadata{Limit: 2, Offset: 4, HasMore: true}, body.Pagination)
	svc.AssertExpectations(t)
}

func TestNotificationHandler_List_DefaultsAndCap(t *testing.T) {
	svc := mocks.NewMockNotificationService()
	svc.On("List", mock.Anything, ports.ListNotificationsParams{UserID: "reader-1", Limit: 100}).
		Return([]*domain.Notification{}, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(stdhttp.MethodGet, "/notifications?limit=500", nil)
	newNotificationRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, stdhttp.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"data":[]`)
	assert.Contains(t, rec.Body.String(), `"hasMore":false`)
	svc.AssertExpectations(t)
}

func TestNotificationHandler_UnreadCount(t *testing.T) {
	svc := mocks.NewMockNotificationService()
	svc.On("UnreadCount", mock.Anything, "reader-1").Return(3, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(stdhttp.MethodGet, "/notifications/unread-count", nil)
	newNotificationRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, stdhttp.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"unreadCount":3}}`, rec.Body.String())
}

func TestNotificationHandler_MarkRead(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name       string
		path       string
		serviceErr error
		callsSvc   bool
		wantStatus int
		wantCode   string
	}{
		{name: "marks read", path: "/notifications/" + id.String() + "/read", callsSvc: true, wantStatus: stdhttp.StatusOK},
		{name: "not found", path: "/notifications/" + id.String() + "/read", callsSvc: true, serviceErr: apperrors.ErrNotificationNotFound, wantStatus: stdhttp.StatusNotFound, wantCode: "NOTIFICATION_NOT_FOUND"},
		{name: "invalid id", path: "/notifications/not-a-uuid/read", wantStatus: stdhttp.StatusBadRequest, wantCode: "BAD_REQUEST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := mocks.NewMockNotificationService()
			if tt.callsSvc {
				svc.On("MarkRead", mock.Anything, "reader-1", id).Return(tt.serviceErr)
			}

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(stdhttp.MethodPost, tt.path, nil)
			newNotificationRouter(svc).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantCode != "" {
				assert.Contains(t, rec.Body.String(), tt.wantCode)
			}
			if !tt.callsSvc {
				svc.AssertNotCalled(t, "MarkRead", mock.Anything, mock.Anything, mock.Anything)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestNotificationHandler_MarkAllRead(t *testing.T) {
	svc := mocks.NewMockNotificationService()
	svc.On("MarkAllRead", mock.Anything, "reader-1").Return(4, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(stdhttp.MethodPost, "/notifications/read-all", nil)
	newNotificationRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, stdhttp.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"updated":4}}`, rec.Body.String())
}

func TestNotificationHandler_RequiresClaims(t *testing.T) {
	svc := mocks.NewMockNotificationService()
	r := chi.NewRouter()
	NewNotificationHandler(svc, NewErrorHandler(testLogger()), testLogger()).RegisterRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(stdhttp.MethodGet, "/notifications/unread-count", nil))

	assert.Equal(t, stdhttp.StatusUnauthorized, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "UNAUTHORIZED"))
	svc.AssertNotCalled(t, "UnreadCount", mock.Anything, mock.Anything)
}
