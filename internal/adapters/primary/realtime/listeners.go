package realtime

import (
	"context"

	"github.com/lorrc/reviewhub-realtime/internal/core/domain"
	"github.com/lorrc/reviewhub-realtime/internal/core/ports"
	"github.com/lorrc/reviewhub-realtime/internal/infrastructure/metrics"
)

// RegisterListeners subscribes the broadcaster to the domain events it
// translates itself. Malformed payloads are logged and dropped.
func (b *Broadcaster) RegisterListeners(bus ports.EventBus) {
	bus.On(domain.EventPaymentSuccess, b.onPaymentSuccess)
	bus.On(domain.EventCampaignUpdated, b.onCampaignUpdated)
}

func (b *Broadcaster) onPaymentSuccess(ctx context.Context, payload any) error {
	decoded, err := domain.DecodeDomainEvent(domain.EventPaymentSuccess, payload)
	if err != nil {
		b.dropMalformed(ctx, domain.EventPaymentSuccess, err)
		return nil
	}
	event := decoded.(*domain.PaymentSucceeded)

	b.EmitDashboardUpdate(event.UserID, map[string]any{
		"type":      "payment",
		"paymentId": event.PaymentID,
		"amount":    event.Amount,
		"credits":   event.Credits,
	})
	return nil
}

func (b *Broadcaster) onCampaignUpdated(ctx context.Context, payload any) error {
	decoded, err := domain.DecodeDomainEvent(domain.EventCampaignUpdated, payload)
	if err != nil {
		b.dropMalformed(ctx, domain.EventCampaignUpdated, err)
		return nil
	}
	event := decoded.(*domain.CampaignUpdated)

	body := map[string]any{"campaignId": event.CampaignID}
	if event.Status != "" {
		body["status"] = event.Status
	}
	if len(event.Changes) > 0 {
		body["changes"] = event.Changes
	}

	// Without an author the update goes to every connection.
	b.Emit(domain.RealtimeEvent{
		Type:    domain.RealtimeCampaignUpdated,
		Payload: body,
		UserID:  event.AuthorID,
	})
	return nil
}

func (b *Broadcaster) dropMalformed(ctx context.Context, name domain.DomainEventName, err error) {
	metrics.MalformedDomainEvents.WithLabelValues(string(name)).Inc()
	b.logger.WarnContext(ctx, "dropping malformed domain event", "event", name, "error", err)
}
