package realtime_test

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/lorrc/reviewhub-realtime/internal/adapters/primary/realtime"
	"github.com/lorrc/reviewhub-realtime/internal/core/domain"
	apperrors "github.com/lorrc/reviewhub-realtime/internal/core/errors"
	"github.com/lorrc/reviewhub-realtime/internal/core/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBroadcaster(opts realtime.Options) *realtime.Broadcaster {
	return realtime.NewBroadcaster(opts, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func subscribe(t *testing.T, b *realtime.Broadcaster, userID string, role domain.Role) ports.RealtimeStream {
	t.Helper()
	stream, err := b.FilteredStream(userID, role)
	require.NoError(t, err)
	t.Cleanup(stream.Unsubscribe)
	return stream
}

// drain returns whatever is currently buffered on the stream.
func drain(stream ports.RealtimeStream) []domain.RealtimeEvent {
	var out []domain.RealtimeEvent
	for {
		select {
		case e := <-stream.Events():
			out = append(out, e)
		default:
			return out
		}
	}
}

func TestBroadcaster_UserTargeting(t *testing.T) {
	b := newBroadcaster(realtime.Options{})
	target := subscribe(t, b, "u1", domain.RoleReader)
	sameRole := subscribe(t, b, "u2", domain.RoleReader)
	admin := subscribe(t, b, "a1", domain.RoleAdmin)

	b.Emit(domain.RealtimeEvent{Type: domain.RealtimeNotification, Payload: map[string]any{"title": "hi"}, UserID: "u1"})

	got := drain(target)
	require.Len(t, got, 1)
	assert.Equal(t, map[string]any{"title": "hi"}, got[0].Payload)
	assert.Empty(t, drain(sameRole))
	assert.Empty(t, drain(admin))
}

func TestBroadcaster_CampaignProgress(t *testing.T) {
	b := newBroadcaster(realtime.Options{})
	owner := subscribe(t, b, "u1", domain.RoleReader)
	other := subscribe(t, b, "u2", domain.RoleReader)

	b.EmitCampaignProgress("u1", map[string]any{"campaignId": "c1", "percent": 50})

	got := drain(owner)
	require.Len(t, got, 1)
	assert.Equal(t, domain.RealtimeCampaignProgress, got[0].Type)
	assert.Equal(t, "u1", got[0].UserID)
	assert.Equal(t, map[string]any{"campaignId": "c1", "percent": 50}, got[0].Payload)
	assert.Empty(t, drain(other))
}

func TestBroadcaster_RoleBroadcast(t *testing.T) {
	b := newBroadcaster(realtime.Options{})
	admin1 := subscribe(t, b, "a1", domain.RoleAdmin)
	admin2 := subscribe(t, b, "a2", domain.RoleAdmin)
	reader := subscribe(t, b, "r1", domain.RoleReader)

	b.EmitAdminAlert(map[string]any{"message": "disk"})

	assert.Len(t, drain(admin1), 1)
	assert.Len(t, drain(admin2), 1)
	assert.Empty(t, drain(reader))
}

func TestBroadcaster_GlobalBroadcast(t *testing.T) {
	b := newBroadcaster(realtime.Options{})
	streams := []ports.RealtimeStream{
		subscribe(t, b, "a1", domain.RoleAdmin),
		subscribe(t, b, "r1", domain.RoleReader),
		subscribe(t, b, "", ""),
	}

	b.Emit(domain.RealtimeEvent{Type: domain.RealtimeCampaignUpdated, Payload: map[string]any{"campaignId": "c1"}})

	for _, s := range streams {
		assert.Len(t, drain(s), 1)
	}
}

func TestBroadcaster_UserAndRoleAreIndependent(t *testing.T) {
	b := newBroadcaster(realtime.Options{})
	byUser := subscribe(t, b, "u1", domain.RoleReader)
	byRole := subscribe(t, b, "a1", domain.RoleAdmin)
	neither := subscribe(t, b, "u3", domain.RoleAuthor)

	b.Emit(domain.RealtimeEvent{Type: domain.RealtimeNotification, UserID: "u1", Role: domain.RoleAdmin})

	assert.Len(t, drain(byUser), 1)
	assert.Len(t, drain(byRole), 1)
	assert.Empty(t, drain(neither))
}

func TestBroadcaster_PreservesOrder(t *testing.T) {
	b := newBroadcaster(realtime.Options{BufferSize: 128})
	stream := subscribe(t, b, "u1", domain.RoleAuthor)

	for i := 0; i < 100; i++ {
		b.EmitDashboardUpdate("u1", i)
	}

	got := drain(stream)
	require.Len(t, got, 100)
	for i, e := range got {
		assert.Equal(t, i, e.Payload)
	}
}

func TestBroadcaster_ConcurrentProducersSameOrderForAllSubscribers(t *testing.T) {
	b := newBroadcaster(realtime.Options{BufferSize: 1000})
	s1 := subscribe(t, b, "x", "")
	s2 := subscribe(t, b, "y", "")

	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				b.Emit(domain.RealtimeEvent{Type: domain.RealtimeQueueUpdated, Payload: p*1000 + i})
			}
		}(p)
	}
	wg.Wait()

	got1, got2 := drain(s1), drain(s2)
	require.Len(t, got1, 400)
	require.Len(t, got2, 400)
	for i := range got1 {
		assert.Equal(t, got1[i].Payload, got2[i].Payload)
	}
}

func TestBroadcaster_StampsTimestamp(t *testing.T) {
	b := newBroadcaster(realtime.Options{})
	stream := subscribe(t, b, "u1", "")
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	b.NotifyUser("u1", nil)
	b.Emit(domain.RealtimeEvent{Type: domain.RealtimeNotification, UserID: "u1", Timestamp: fixed})

	got := drain(stream)
	require.Len(t, got, 2)
	assert.False(t, got[0].Timestamp.IsZero())
	assert.Equal(t, time.UTC, got[0].Timestamp.Location())
	assert.Equal(t, fixed, got[1].Timestamp)
}

func TestBroadcaster_EmitWithoutSubscribers(t *testing.T) {
	b := newBroadcaster(realtime.Options{})

	assert.NotPanics(t, func() { b.EmitQueueUpdate(map[string]any{"pending": 3}) })

	late := subscribe(t, b, "a1", domain.RoleAdmin)
	assert.Empty(t, drain(late))
}

func TestBroadcaster_Unsubscribe(t *testing.T) {
	b := newBroadcaster(realtime.Options{})
	stream, err := b.FilteredStream("u1", domain.RoleReader)
	require.NoError(t, err)
	require.Equal(t, 1, b.Subscribers())

	stream.Unsubscribe()
	stream.Unsubscribe()

	assert.Zero(t, b.Subscribers())
	assert.NoError(t, stream.Err())
	select {
	case <-stream.Done():
	default:
		t.Fatal("done channel not closed")
	}

	assert.NotPanics(t, func() { b.NotifyUser("u1", "after") })
	assert.Empty(t, drain(stream))
}

func TestBroadcaster_DropOldestOverflow(t *testing.T) {
	b := newBroadcaster(realtime.Options{BufferSize: 3, Overflow: realtime.OverflowDropOldest})
	stream := subscribe(t, b, "u1", "")

	for i := 0; i < 5; i++ {
		b.NotifyUser("u1", i)
	}

	got := drain(stream)
	require.Len(t, got, 3)
	assert.Equal(t, 2, got[0].Payload)
	assert.Equal(t, 4, got[2].Payload)
	assert.NoError(t, stream.Err())
}

func TestBroadcaster_DisconnectOverflow(t *testing.T) {
	b := newBroadcaster(realtime.Options{BufferSize: 2, Overflow: realtime.OverflowDisconnect})
	slow, err := b.FilteredStream("u1", "")
	require.NoError(t, err)
	healthy := subscribe(t, b, "u2", "")

	b.Emit(domain.RealtimeEvent{Type: domain.RealtimeQueueUpdated, Payload: 1})
	b.Emit(domain.RealtimeEvent{Type: domain.RealtimeQueueUpdated, Payload: 2})
	drain(healthy)
	b.Emit(domain.RealtimeEvent{Type: domain.RealtimeQueueUpdated, Payload: 3})

	<-slow.Done()
	assert.ErrorIs(t, slow.Err(), apperrors.ErrSlowConsumer)
	assert.Equal(t, 1, b.Subscribers())
	assert.Len(t, drain(healthy), 1)
}

func TestBroadcaster_Close(t *testing.T) {
	b := newBroadcaster(realtime.Options{})
	stream, err := b.FilteredStream("u1", "")
	require.NoError(t, err)

	b.Close()
	b.Close()

	<-stream.Done()
	assert.ErrorIs(t, stream.Err(), apperrors.ErrBroadcasterClosed)
	assert.Zero(t, b.Subscribers())

	_, err = b.FilteredStream("u2", "")
	assert.ErrorIs(t, err, apperrors.ErrBroadcasterClosed)
	assert.NotPanics(t, func() { b.NotifyUser("u1", "late") })
}

func TestBroadcaster_ConcurrentSubscribeAndEmit(t *testing.T) {
	b := newBroadcaster(realtime.Options{BufferSize: 4})
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s, err := b.FilteredStream("u", domain.RoleReader)
			if err == nil {
				s.Unsubscribe()
			}
		}()
		go func() {
			defer wg.Done()
			b.Emit(domain.RealtimeEvent{Type: domain.RealtimeQueueUpdated})
		}()
	}
	wg.Wait()

	assert.Zero(t, b.Subscribers())
}

func TestParseOverflowPolicy(t *testing.T) {
	p, err := realtime.ParseOverflowPolicy("")
	require.NoError(t, err)
	assert.Equal(t, realtime.OverflowDropOldest, p)

	p, err = realtime.ParseOverflowPolicy(" Disconnect ")
	require.NoError(t, err)
	assert.Equal(t, realtime.OverflowDisconnect, p)

	_, err = realtime.ParseOverflowPolicy("block")
	assert.Error(t, err)
}
