package realtime

import (
	"sync"

	"github.com/lorrc/reviewhub-realtime/internal/core/domain"
	apperrors "github.com/lorrc/reviewhub-realtime/internal/core/errors"
	"github.com/lorrc/reviewhub-realtime/internal/infrastructure/metrics"
)

// subscription is one filtered view. The events channel is never closed;
// consumers watch Done to learn the stream has ended.
type subscription struct {
	owner  *Broadcaster
	userID string
	role   domain.Role
	policy OverflowPolicy

	events chan domain.RealtimeEvent
	done   chan struct{}

	once sync.Once
	mu   sync.Mutex
	err  error
}

func newSubscription(owner *Broadcaster, userID string, role domain.Role, size int, policy OverflowPolicy) *subscription {
	return &subscription{
		owner:  owner,
		userID: userID,
		role:   role,
		policy: policy,
		events: make(chan domain.RealtimeEvent, size),
		done:   make(chan struct{}),
	}
}

func (s *subscription) Events() <-chan domain.RealtimeEvent { return s.events }

func (s *subscription) Done() <-chan struct{} { return s.done }

func (s *subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *subscription) Unsubscribe() {
	s.end(nil)
}

func (s *subscription) end(err error) {
	s.once.Do(func() {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		close(s.done)
		s.owner.remove(s)
	})
}

// deliver runs under the broadcaster's emit lock, so it is the only sender.
func (s *subscription) deliver(event domain.RealtimeEvent) {
	select {
	case <-s.done:
		return
	default:
	}

	select {
	case s.events <- event:
		metrics.RealtimeDelivered.Inc()
		return
	default:
	}

	if s.policy == OverflowDisconnect {
		metrics.RealtimeDropped.WithLabelValues("disconnect").Inc()
		s.owner.logger.Warn("slow subscriber disconnected",
			"user_id", s.userID,
			"role", s.role,
			"buffer", cap(s.events),
		)
		s.end(apperrors.ErrSlowConsumer)
		return
	}

	select {
	case <-s.events:
		metrics.RealtimeDropped.WithLabelValues("drop_oldest").Inc()
	default:
	}
	select {
	case s.events <- event:
		metrics.RealtimeDelivered.Inc()
	default:
		metrics.RealtimeDropped.WithLabelValues("drop_oldest").Inc()
	}
}
