package realtime_test

import (
	"testing"
	"time"

	"github.com/lorrc/reviewhub-realtime/internal/adapters/primary/realtime"
	"github.com/lorrc/reviewhub-realtime/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatForWire(t *testing.T) {
	ts := time.Date(2026, 5, 17, 9, 30, 1, 123_456_789, time.UTC)

	frame, err := realtime.FormatForWire(domain.RealtimeEvent{
		Type:      domain.RealtimeNotification,
		Payload:   map[string]any{"title": "x"},
		Timestamp: ts,
	})

	require.NoError(t, err)
	assert.Equal(t,
		`data: {"type":"notification","payload":{"title":"x"},"timestamp":"2026-05-17T09:30:01.123Z"}`+"\n\n",
		frame)
}

func TestFormatForWire_ConvertsToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	ts := time.Date(2026, 5, 17, 11, 0, 0, 0, loc)

	frame, err := realtime.FormatForWire(domain.RealtimeEvent{Type: domain.RealtimeQueueUpdated, Timestamp: ts})

	require.NoError(t, err)
	assert.Equal(t, `data: {"type":"queue.updated","payload":{},"timestamp":"2026-05-17T09:00:00.000Z"}`+"\n\n", frame)
}

func TestFormatForWire_DoesNotEscapeHTML(t *testing.T) {
	frame, err := realtime.FormatForWire(domain.RealtimeEvent{
		Type:      domain.RealtimeAdminAlert,
		Payload:   map[string]any{"message": "<b>a & b</b>"},
		Timestamp: time.Unix(0, 0),
	})

	require.NoError(t, err)
	assert.Contains(t, frame, `"message":"<b>a & b</b>"`)
}

func TestFormatForWire_UnencodablePayload(t *testing.T) {
	_, err := realtime.FormatForWire(domain.RealtimeEvent{
		Type:    domain.RealtimeNotification,
		Payload: make(chan int),
	})

	assert.Error(t, err)
}

func TestControlFrame(t *testing.T) {
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t,
		`data: {"type":"heartbeat","payload":{},"timestamp":"2026-01-01T00:00:00.000Z"}`+"\n\n",
		realtime.ControlFrame(domain.RealtimeHeartbeat, ts))
	assert.Equal(t,
		`data: {"type":"connected","payload":{},"timestamp":"2026-01-01T00:00:00.000Z"}`+"\n\n",
		realtime.ControlFrame(domain.RealtimeConnected, ts))
}
