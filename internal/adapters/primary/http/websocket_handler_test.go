package http

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/reviewhub-realtime/internal/adapters/primary/realtime"
	"github.com/lorrc/reviewhub-realtime/internal/core/domain"
)

func TestOriginAllowed(t *testing.T) {
	allowed := []string{"dashboard.example.com", "*.reviewhub.io", "http://localhost:3000"}

	tests := []struct {
		origin string
		want   bool
	}{
		{"https://dashboard.example.com", true},
		{"https://app.reviewhub.io", true},
		{"https://reviewhub.io", true},
		{"http://localhost:3000", true},
		{"https://evil.com", false},
		{"https://reviewhub.io.evil.com", false},
		{"not a url", false},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			assert.Equal(t, tt.want, originAllowed(tt.origin, allowed))
		})
	}
}

func TestWebSocketHandler_RelaysFilteredStream(t *testing.T) {
	b := realtime.NewBroadcaster(realtime.Options{}, testLogger())
	handler := NewWebSocketHandler(b, WebSocketConfig{IsDevelopment: true}, NewErrorHandler(testLogger()), testLogger())

	srv := httptest.NewServer(withClaims("reader-1", domain.RoleReader)(handler))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	readMessage := func() realtime.WireMessage {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var msg realtime.WireMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	}

	assert.Equal(t, domain.RealtimeConnected, readMessage().Type)
	require.Equal(t, 1, b.Subscribers())

	b.NotifyUser("someone-else", map[string]any{"title": "not for you"})
	b.NotifyUser("reader-1", map[string]any{"title": "Materials released"})

	msg := readMessage()
	assert.Equal(t, domain.RealtimeNotification, msg.Type)
	assert.Equal(t, map[string]any{"title": "Materials released"}, msg.Payload)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))
	assert.Equal(t, domain.RealtimeHeartbeat, readMessage().Type)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return b.Subscribers() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocketHandler_BroadcasterCloseEndsConnection(t *testing.T) {
	b := realtime.NewBroadcaster(realtime.Options{}, testLogger())
	handler := NewWebSocketHandler(b, WebSocketConfig{IsDevelopment: true}, NewErrorHandler(testLogger()), testLogger())

	srv := httptest.NewServer(withClaims("admin-1", domain.RoleAdmin)(handler))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	require.NoError(t, err)

	b.Close()

	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway))
}
