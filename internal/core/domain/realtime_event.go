package domain

import "time"

// RealtimeEventType identifies a client-facing realtime event.
type RealtimeEventType string

const (
	RealtimeDashboardUpdated       RealtimeEventType = "dashboard.updated"
	RealtimeCampaignUpdated        RealtimeEventType = "campaign.updated"
	RealtimeCampaignProgress       RealtimeEventType = "campaign.progress"
	RealtimeQueueUpdated           RealtimeEventType = "queue.updated"
	RealtimeAssignmentStatusChange RealtimeEventType = "assignment.status_changed"
	RealtimeReviewSubmitted        RealtimeEventType = "review.submitted"
	RealtimeReviewValidated        RealtimeEventType = "review.validated"
	RealtimeNotification           RealtimeEventType = "notification"
	RealtimeAdminAlert             RealtimeEventType = "admin.alert"

	// Control frames written by the transports themselves. They never pass
	// through the broadcaster.
	RealtimeConnected RealtimeEventType = "connected"
	RealtimeHeartbeat RealtimeEventType = "heartbeat"
)

// RealtimeEventTypes is the closed catalogue of broadcastable event types.
var RealtimeEventTypes = []RealtimeEventType{
	RealtimeDashboardUpdated,
	RealtimeCampaignUpdated,
	RealtimeCampaignProgress,
	RealtimeQueueUpdated,
	RealtimeAssignmentStatusChange,
	RealtimeReviewSubmitted,
	RealtimeReviewValidated,
	RealtimeNotification,
	RealtimeAdminAlert,
}

// IsValid reports whether t belongs to the broadcastable catalogue.
func (t RealtimeEventType) IsValid() bool {
	for _, known := range RealtimeEventTypes {
		if t == known {
			return true
		}
	}
	return false
}

// RealtimeEvent is the normalized shape the broadcaster fans out. It is never
// persisted and must not be mutated after it has been emitted.
type RealtimeEvent struct {
	Type      RealtimeEventType
	Payload   any
	UserID    string
	Role      Role
	Timestamp time.Time
}

// IsGlobal reports whether the event carries no targeting at all.
func (e RealtimeEvent) IsGlobal() bool {
	return e.UserID == "" && e.Role == ""
}

// Matches reports whether a connection authenticated as userID/role should see
// the event. User and role are independent predicates: a user-targeted event
// reaches that user whatever their role, a role-targeted event reaches every
// connection with that role.
func (e RealtimeEvent) Matches(userID string, role Role) bool {
	if e.IsGlobal() {
		return true
	}
	if e.UserID != "" && e.UserID == userID {
		return true
	}
	return e.Role != "" && e.Role == role
}
