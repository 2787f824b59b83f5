package realtime

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lorrc/reviewhub-realtime/internal/core/domain"
)

// WireTimeFormat is ISO-8601 in UTC with millisecond precision.
const WireTimeFormat = "2006-01-02T15:04:05.000Z"

// WireMessage is the JSON object carried by every frame.
type WireMessage struct {
	Type      domain.RealtimeEventType `json:"type"`
	Payload   any                      `json:"payload"`
	Timestamp string                   `json:"timestamp"`
}

// NewWireMessage normalizes an event for the wire. A nil payload becomes {}.
func NewWireMessage(event domain.RealtimeEvent) WireMessage {
	payload := event.Payload
	if payload == nil {
		payload = struct{}{}
	}
	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return WireMessage{
		Type:      event.Type,
		Payload:   payload,
		Timestamp: ts.UTC().Format(WireTimeFormat),
	}
}

// EncodeJSON renders the message as compact JSON without HTML escaping.
func (m WireMessage) EncodeJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("encode %s event: %w", m.Type, err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// FormatForWire produces one SSE frame: "data: <json>\n\n".
func FormatForWire(event domain.RealtimeEvent) (string, error) {
	body, err := NewWireMessage(event).EncodeJSON()
	if err != nil {
		return "", err
	}
	return "data: " + string(body) + "\n\n", nil
}

// ControlFrame builds a connected or heartbeat frame stamped with at.
func ControlFrame(kind domain.RealtimeEventType, at time.Time) string {
	frame, err := FormatForWire(domain.RealtimeEvent{Type: kind, Timestamp: at})
	if err != nil {
		// an empty payload always encodes
		panic(err)
	}
	return frame
}
