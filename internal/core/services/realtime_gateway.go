package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"

	"github.com/lorrc/reviewhub-realtime/internal/core/domain"
	apperrors "github.com/lorrc/reviewhub-realtime/internal/core/errors"
	"github.com/lorrc/reviewhub-realtime/internal/core/ports"
	"github.com/lorrc/reviewhub-realtime/internal/infrastructure/metrics"
)

const (
	notificationMaterialsReleased = "materials_released"
	notificationDeadlineReminder  = "deadline_reminder"
	notificationPayoutUpdate      = "payout_update"
)

// RealtimeGateway translates domain events from the bus into realtime events.
type RealtimeGateway struct {
	broadcaster ports.RealtimeBroadcaster
	recorder    ports.NotificationRecorder
	logger      *slog.Logger
}

// NewRealtimeGateway creates a gateway. recorder may be nil, in which case
// notifications are broadcast without being stored.
func NewRealtimeGateway(
	broadcaster ports.RealtimeBroadcaster,
	recorder ports.NotificationRecorder,
	logger *slog.Logger,
) *RealtimeGateway {
	return &RealtimeGateway{
		broadcaster: broadcaster,
		recorder:    recorder,
		logger:      logger.With("component", "realtime_gateway"),
	}
}

// Register installs one handler per gateway event name on bus.
func (g *RealtimeGateway) Register(bus ports.EventBus) {
	for _, name := range domain.GatewayEventNames {
		bus.On(name, g.handlerFor(name))
	}
}

func (g *RealtimeGateway) handlerFor(name domain.DomainEventName) ports.EventHandler {
	return func(ctx context.Context, payload any) error {
		g.Handle(ctx, name, payload)
		return nil
	}
}

// Handle decodes, translates and broadcasts a single domain event. Malformed
// payloads are logged and dropped.
func (g *RealtimeGateway) Handle(ctx context.Context, name domain.DomainEventName, payload any) {
	decoded, err := domain.DecodeDomainEvent(name, payload)
	if err != nil {
		if errors.Is(err, apperrors.ErrMalformedPayload) {
			metrics.MalformedDomainEvents.WithLabelValues(string(name)).Inc()
		}
		g.logger.WarnContext(ctx, "dropping domain event", "event", name, "error", err)
		return
	}

	event, note, err := Translate(decoded)
	if err != nil {
		g.logger.ErrorContext(ctx, "cannot translate domain event", "event", name, "error", err)
		return
	}

	if note != nil && g.recorder != nil {
		stored, err := g.recorder.Record(ctx, domain.NotificationParams{
			UserID:  event.UserID,
			Type:    note.Kind,
			Title:   note.Title,
			Message: note.Message,
			Data:    note.Data,
		})
		if err != nil {
			g.logger.ErrorContext(ctx, "failed to record notification",
				"event", name,
				"user_id", event.UserID,
				"error", err,
			)
		} else {
			body := note.Payload()
			body["id"] = stored.ID.String()
			event.Payload = body
		}
	}

	g.broadcaster.Emit(event)
}

// NotificationContent describes the inbox entry behind a notification event.
type NotificationContent struct {
	Kind    string
	Title   string
	Message string
	Data    map[string]any
}

// Payload is the client-facing body of the notification event.
func (n NotificationContent) Payload() map[string]any {
	body := make(map[string]any, len(n.Data)+3)
	maps.Copy(body, n.Data)
	body["category"] = n.Kind
	body["title"] = n.Title
	body["message"] = n.Message
	return body
}

// Translate maps a decoded domain event to its realtime event. For events that
// become user notifications the inbox content is returned as well.
func Translate(event domain.DomainEvent) (domain.RealtimeEvent, *NotificationContent, error) {
	switch e := event.(type) {
	case *domain.ReviewSubmitted:
		return domain.RealtimeEvent{
			Type: domain.RealtimeReviewSubmitted,
			Role: domain.RoleAdmin,
			Payload: compact(map[string]any{
				"reviewId":        e.ReviewID,
				"campaignId":      e.CampaignID,
				"bookTitle":       e.BookTitle,
				"readerProfileId": e.ReaderProfileID,
			}),
		}, nil, nil

	case *domain.ReviewValidated:
		return domain.RealtimeEvent{
			Type:   domain.RealtimeReviewValidated,
			UserID: e.ReaderProfileID,
			Payload: compact(map[string]any{
				"reviewId":   e.ReviewID,
				"status":     e.Status,
				"campaignId": e.CampaignID,
				"feedback":   e.Feedback,
			}),
		}, nil, nil

	case *domain.AssignmentStatusChanged:
		return domain.RealtimeEvent{
			Type:   domain.RealtimeAssignmentStatusChange,
			UserID: e.ReaderProfileID,
			Payload: compact(map[string]any{
				"assignmentId": e.AssignmentID,
				"oldStatus":    e.OldStatus,
				"newStatus":    e.NewStatus,
				"campaignId":   e.CampaignID,
			}),
		}, nil, nil

	case *domain.CampaignStatusChanged:
		return domain.RealtimeEvent{
			Type:   domain.RealtimeCampaignUpdated,
			UserID: e.AuthorID,
			Payload: compact(map[string]any{
				"campaignId": e.CampaignID,
				"oldStatus":  e.OldStatus,
				"newStatus":  e.NewStatus,
			}),
		}, nil, nil

	case *domain.MaterialsReleased:
		subject := "your assignment"
		if e.BookTitle != "" {
			subject = fmt.Sprintf("%q", e.BookTitle)
		}
		note := &NotificationContent{
			Kind:    notificationMaterialsReleased,
			Title:   "Materials released",
			Message: fmt.Sprintf("Reading materials for %s are now available.", subject),
			Data: compact(map[string]any{
				"assignmentId": e.AssignmentID,
				"campaignId":   e.CampaignID,
			}),
		}
		return notificationEvent(e.ReaderProfileID, note), note, nil

	case *domain.DeadlineReminder:
		subject := "your assignment"
		if e.BookTitle != "" {
			subject = fmt.Sprintf("%q", e.BookTitle)
		}
		deadline := e.Deadline.UTC().Format("Jan 2, 2006 15:04 MST")
		data := map[string]any{
			"assignmentId": e.AssignmentID,
			"deadline":     e.Deadline.UTC().Format("2006-01-02T15:04:05.000Z"),
		}
		if e.HoursRemaining > 0 {
			data["hoursRemaining"] = e.HoursRemaining
		}
		note := &NotificationContent{
			Kind:    notificationDeadlineReminder,
			Title:   "Deadline reminder",
			Message: fmt.Sprintf("Your review for %s is due by %s.", subject, deadline),
			Data:    data,
		}
		return notificationEvent(e.ReaderProfileID, note), note, nil

	case *domain.CreditsUpdated:
		return domain.RealtimeEvent{
			Type:   domain.RealtimeDashboardUpdated,
			UserID: e.AuthorID,
			Payload: compact(map[string]any{
				"type":    "credits",
				"balance": *e.Balance,
				"change":  e.Change,
				"reason":  e.Reason,
			}),
		}, nil, nil

	case *domain.PayoutStatusChanged:
		note := &NotificationContent{
			Kind:    notificationPayoutUpdate,
			Title:   "Payout update",
			Message: PayoutMessage(e.NewStatus, *e.Amount),
			Data: compact(map[string]any{
				"payoutId":  e.PayoutID,
				"oldStatus": e.OldStatus,
				"newStatus": e.NewStatus,
				"amount":    *e.Amount,
			}),
		}
		return notificationEvent(e.ReaderProfileID, note), note, nil

	case *domain.AdminAlert:
		severity := e.Severity
		if severity == "" {
			severity = "info"
		}
		return domain.RealtimeEvent{
			Type: domain.RealtimeAdminAlert,
			Role: domain.RoleAdmin,
			Payload: compact(map[string]any{
				"severity": severity,
				"title":    e.Title,
				"message":  e.Message,
				"context":  e.Context,
			}),
		}, nil, nil
	}

	return domain.RealtimeEvent{}, nil, fmt.Errorf("%w: %s has no realtime mapping", apperrors.ErrUnknownDomainEvent, event.EventName())
}

func notificationEvent(userID string, note *NotificationContent) domain.RealtimeEvent {
	return domain.RealtimeEvent{
		Type:    domain.RealtimeNotification,
		UserID:  userID,
		Payload: note.Payload(),
	}
}

// compact drops empty strings and nil maps so optional fields stay off the wire.
func compact(fields map[string]any) map[string]any {
	for k, v := range fields {
		switch val := v.(type) {
		case string:
			if val == "" {
				delete(fields, k)
			}
		case map[string]any:
			if len(val) == 0 {
				delete(fields, k)
			}
		case nil:
			delete(fields, k)
		}
	}
	return fields
}
