package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/lorrc/reviewhub-realtime/internal/core/errors"
)

// DomainEventName is the name business services publish on the event bus.
type DomainEventName string

const (
	EventReviewSubmitted         DomainEventName = "review.submitted"
	EventReviewValidated         DomainEventName = "review.validated"
	EventAssignmentStatusChanged DomainEventName = "assignment.status_changed"
	EventCampaignStatusChanged   DomainEventName = "campaign.status_changed"
	EventMaterialsReleased       DomainEventName = "materials.released"
	EventDeadlineReminder        DomainEventName = "deadline.reminder"
	EventCreditsUpdated          DomainEventName = "credits.updated"
	EventPayoutStatusChanged     DomainEventName = "payout.status_changed"
	EventAdminAlert              DomainEventName = "admin.alert"
	EventPaymentSuccess          DomainEventName = "payment.success"
	EventCampaignUpdated         DomainEventName = "campaign.updated"
)

// GatewayEventNames are translated by the realtime gateway.
var GatewayEventNames = []DomainEventName{
	EventReviewSubmitted,
	EventReviewValidated,
	EventAssignmentStatusChanged,
	EventCampaignStatusChanged,
	EventMaterialsReleased,
	EventDeadlineReminder,
	EventCreditsUpdated,
	EventPayoutStatusChanged,
	EventAdminAlert,
}

// BroadcasterEventNames are consumed directly by the broadcaster's own listeners.
var BroadcasterEventNames = []DomainEventName{
	EventPaymentSuccess,
	EventCampaignUpdated,
}

// IsKnownDomainEvent reports whether name is part of either catalogue.
func IsKnownDomainEvent(name DomainEventName) bool {
	_, ok := domainEventFactories[name]
	return ok
}

// DomainEvent is implemented by every typed domain event payload.
type DomainEvent interface {
	EventName() DomainEventName
	Validate() error
}

type ReviewSubmitted struct {
	ReviewID        string `json:"reviewId"`
	CampaignID      string `json:"campaignId,omitempty"`
	BookTitle       string `json:"bookTitle,omitempty"`
	ReaderProfileID string `json:"readerProfileId,omitempty"`
}

func (ReviewSubmitted) EventName() DomainEventName { return EventReviewSubmitted }

func (e ReviewSubmitted) Validate() error {
	return requireFields(e.EventName(), "reviewId", e.ReviewID)
}

type ReviewValidated struct {
	ReviewID        string `json:"reviewId"`
	ReaderProfileID string `json:"readerProfileId"`
	Status          string `json:"status"`
	CampaignID      string `json:"campaignId,omitempty"`
	Feedback        string `json:"feedback,omitempty"`
}

func (ReviewValidated) EventName() DomainEventName { return EventReviewValidated }

func (e ReviewValidated) Validate() error {
	return requireFields(e.EventName(),
		"reviewId", e.ReviewID,
		"readerProfileId", e.ReaderProfileID,
		"status", e.Status,
	)
}

type AssignmentStatusChanged struct {
	AssignmentID    string `json:"assignmentId"`
	ReaderProfileID string `json:"readerProfileId"`
	OldStatus       string `json:"oldStatus,omitempty"`
	NewStatus       string `json:"newStatus"`
	CampaignID      string `json:"campaignId,omitempty"`
}

func (AssignmentStatusChanged) EventName() DomainEventName { return EventAssignmentStatusChanged }

func (e AssignmentStatusChanged) Validate() error {
	return requireFields(e.EventName(),
		"assignmentId", e.AssignmentID,
		"readerProfileId", e.ReaderProfileID,
		"newStatus", e.NewStatus,
	)
}

type CampaignStatusChanged struct {
	CampaignID string `json:"campaignId"`
	AuthorID   string `json:"authorId"`
	OldStatus  string `json:"oldStatus,omitempty"`
	NewStatus  string `json:"newStatus"`
}

func (CampaignStatusChanged) EventName() DomainEventName { return EventCampaignStatusChanged }

func (e CampaignStatusChanged) Validate() error {
	return requireFields(e.EventName(),
		"campaignId", e.CampaignID,
		"authorId", e.AuthorID,
		"newStatus", e.NewStatus,
	)
}

type MaterialsReleased struct {
	AssignmentID    string `json:"assignmentId"`
	ReaderProfileID string `json:"readerProfileId"`
	CampaignID      string `json:"campaignId,omitempty"`
	BookTitle       string `json:"bookTitle,omitempty"`
}

func (MaterialsReleased) EventName() DomainEventName { return EventMaterialsReleased }

func (e MaterialsReleased) Validate() error {
	return requireFields(e.EventName(),
		"assignmentId", e.AssignmentID,
		"readerProfileId", e.ReaderProfileID,
	)
}

type DeadlineReminder struct {
	AssignmentID    string    `json:"assignmentId"`
	ReaderProfileID string    `json:"readerProfileId"`
	Deadline        time.Time `json:"deadline"`
	HoursRemaining  int       `json:"hoursRemaining,omitempty"`
	BookTitle       string    `json:"bookTitle,omitempty"`
}

func (DeadlineReminder) EventName() DomainEventName { return EventDeadlineReminder }

func (e DeadlineReminder) Validate() error {
	if err := requireFields(e.EventName(),
		"assignmentId", e.AssignmentID,
		"readerProfileId", e.ReaderProfileID,
	); err != nil {
		return err
	}
	if e.Deadline.IsZero() {
		return missingField(e.EventName(), "deadline")
	}
	return nil
}

type CreditsUpdated struct {
	AuthorID string   `json:"authorId"`
	Balance  *float64 `json:"balance"`
	Change   float64  `json:"change,omitempty"`
	Reason   string   `json:"reason,omitempty"`
}

func (CreditsUpdated) EventName() DomainEventName { return EventCreditsUpdated }

func (e CreditsUpdated) Validate() error {
	if err := requireFields(e.EventName(), "authorId", e.AuthorID); err != nil {
		return err
	}
	if e.Balance == nil {
		return missingField(e.EventName(), "balance")
	}
	return nil
}

type PayoutStatusChanged struct {
	PayoutID        string   `json:"payoutId,omitempty"`
	ReaderProfileID string   `json:"readerProfileId"`
	OldStatus       string   `json:"oldStatus,omitempty"`
	NewStatus       string   `json:"newStatus"`
	Amount          *float64 `json:"amount"`
}

func (PayoutStatusChanged) EventName() DomainEventName { return EventPayoutStatusChanged }

func (e PayoutStatusChanged) Validate() error {
	if err := requireFields(e.EventName(),
		"readerProfileId", e.ReaderProfileID,
		"newStatus", e.NewStatus,
	); err != nil {
		return err
	}
	if e.Amount == nil {
		return missingField(e.EventName(), "amount")
	}
	return nil
}

type AdminAlert struct {
	Severity string         `json:"severity,omitempty"`
	Title    string         `json:"title,omitempty"`
	Message  string         `json:"message"`
	Context  map[string]any `json:"context,omitempty"`
}

func (AdminAlert) EventName() DomainEventName { return EventAdminAlert }

func (e AdminAlert) Validate() error {
	return requireFields(e.EventName(), "message", e.Message)
}

type PaymentSucceeded struct {
	PaymentID string   `json:"paymentId,omitempty"`
	UserID    string   `json:"userId"`
	Amount    *float64 `json:"amount,omitempty"`
	Credits   int      `json:"credits,omitempty"`
}

func (PaymentSucceeded) EventName() DomainEventName { return EventPaymentSuccess }

func (e PaymentSucceeded) Validate() error {
	return requireFields(e.EventName(), "userId", e.UserID)
}

type CampaignUpdated struct {
	CampaignID string         `json:"campaignId"`
	AuthorID   string         `json:"authorId,omitempty"`
	Status     string         `json:"status,omitempty"`
	Changes    map[string]any `json:"changes,omitempty"`
}

func (CampaignUpdated) EventName() DomainEventName { return EventCampaignUpdated }

func (e CampaignUpdated) Validate() error {
	return requireFields(e.EventName(), "campaignId", e.CampaignID)
}

var domainEventFactories = map[DomainEventName]func() DomainEvent{
	EventReviewSubmitted:         func() DomainEvent { return &ReviewSubmitted{} },
	EventReviewValidated:         func() DomainEvent { return &ReviewValidated{} },
	EventAssignmentStatusChanged: func() DomainEvent { return &AssignmentStatusChanged{} },
	EventCampaignStatusChanged:   func() DomainEvent { return &CampaignStatusChanged{} },
	EventMaterialsReleased:       func() DomainEvent { return &MaterialsReleased{} },
	EventDeadlineReminder:        func() DomainEvent { return &DeadlineReminder{} },
	EventCreditsUpdated:          func() DomainEvent { return &CreditsUpdated{} },
	EventPayoutStatusChanged:     func() DomainEvent { return &PayoutStatusChanged{} },
	EventAdminAlert:              func() DomainEvent { return &AdminAlert{} },
	EventPaymentSuccess:          func() DomainEvent { return &PaymentSucceeded{} },
	EventCampaignUpdated:         func() DomainEvent { return &CampaignUpdated{} },
}

// DecodeDomainEvent turns a raw bus payload into the typed payload registered
// for name and validates it. Producers may publish the typed struct itself,
// a pointer to it, raw JSON, or any value that marshals to the expected shape.
// The returned value is always a pointer to the typed struct.
func DecodeDomainEvent(name DomainEventName, payload any) (DomainEvent, error) {
	factory, ok := domainEventFactories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownDomainEvent, name)
	}
	if payload == nil {
		return nil, fmt.Errorf("%w: %s: empty payload", apperrors.ErrMalformedPayload, name)
	}

	var raw []byte
	switch v := payload.(type) {
	case json.RawMessage:
		raw = v
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrMalformedPayload, name, err)
		}
		raw = encoded
	}

	event := factory()
	if err := json.Unmarshal(raw, event); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrMalformedPayload, name, err)
	}
	if err := event.Validate(); err != nil {
		return nil, err
	}
	return event, nil
}

// requireFields takes alternating field name / value pairs.
func requireFields(name DomainEventName, pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			return missingField(name, pairs[i])
		}
	}
	return nil
}

func missingField(name DomainEventName, field string) error {
	return fmt.Errorf("%w: %s: missing %s", apperrors.ErrMalformedPayload, name, field)
}
