package outbox

import (
	"encoding/json"
	"time"
)

// SourceRef identifies the webhook delivery that led to the event.
type SourceRef struct {
	Platform   string `json:"platform,omitempty"`
	Topic      string `json:"topic,omitempty"`
	DeliveryID string `json:"deliveryId,omitempty"`
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Source     *SourceRef      `json:"source,omitempty"`
	Data       json.RawMessage `json:"data"`
}
