package realtime

import "github.com/lorrc/reviewhub-realtime/internal/core/domain"

// EmitDashboardUpdate reaches only userID's connections.
func (b *Broadcaster) EmitDashboardUpdate(userID string, payload any) {
	b.Emit(domain.RealtimeEvent{Type: domain.RealtimeDashboardUpdated, Payload: payload, UserID: userID})
}

// EmitCampaignProgress reports campaign progress to its owner, userID.
func (b *Broadcaster) EmitCampaignProgress(userID string, payload any) {
	b.Emit(domain.RealtimeEvent{Type: domain.RealtimeCampaignProgress, Payload: payload, UserID: userID})
}

// EmitQueueUpdate reaches every admin connection.
func (b *Broadcaster) EmitQueueUpdate(payload any) {
	b.Emit(domain.RealtimeEvent{Type: domain.RealtimeQueueUpdated, Payload: payload, Role: domain.RoleAdmin})
}

// NotifyUser pushes a notification to userID's connections.
func (b *Broadcaster) NotifyUser(userID string, payload any) {
	b.Emit(domain.RealtimeEvent{Type: domain.RealtimeNotification, Payload: payload, UserID: userID})
}

// EmitAdminAlert reaches every admin connection.
func (b *Broadcaster) EmitAdminAlert(payload any) {
	b.Emit(domain.RealtimeEvent{Type: domain.RealtimeAdminAlert, Payload: payload, Role: domain.RoleAdmin})
}
