package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/printbridge-backend/pkg/config"
	"github.com/angelmondragon/printbridge-backend/pkg/db/models"
	"github.com/angelmondragon/printbridge-backend/pkg/enums"
	"github.com/angelmondragon/printbridge-backend/pkg/outbox"
	"github.com/angelmondragon/printbridge-backend/pkg/outbox/payloads"
)

func TestEventRegistryResolveWalletDebited(t *testing.T) {
	reg := newTestEventRegistry(t)

	orderID := uuid.New()
	payloadBytes := mustMarshal(t, payloads.WalletDebitedEvent{
		VendorID:         7,
		OrderID:          orderID,
		ExternalOrderID:  "1042",
		AmountDebited:    decimal.RequireFromString("450"),
		ResultingBalance: decimal.RequireFromString("50"),
	})

	event := models.OutboxEvent{
		EventType:     enums.EventWalletDebited,
		AggregateType: enums.AggregateWallet,
		AggregateID:   "7",
		Payload:       mustEnvelope(t, payloadBytes),
	}

	resolved, err := reg.Resolve(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Descriptor.Topic != "wallet-topic" {
		t.Fatalf("unexpected topic %q", resolved.Descriptor.Topic)
	}
	if resolved.Descriptor.Alert {
		t.Fatalf("debits are not operator alerts")
	}
	payload, ok := resolved.Payload.(*payloads.WalletDebitedEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", resolved.Payload)
	}
	if payload.OrderID != orderID || !payload.AmountDebited.Equal(decimal.NewFromInt(450)) {
		t.Fatalf("payload mismatch %+v", payload)
	}
	if resolved.Envelope.EventID == "" || resolved.Envelope.OccurredAt.IsZero() {
		t.Fatalf("envelope metadata missing")
	}
}

func TestEventRegistryRoutesOrderAlertsToOrdersTopic(t *testing.T) {
	reg := newTestEventRegistry(t)

	event := models.OutboxEvent{
		EventType:     enums.EventOrderOnhold,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.NewString(),
		Payload:       mustEnvelope(t, mustMarshal(t, payloads.OrderOnholdEvent{VendorID: 3})),
	}
	resolved, err := reg.Resolve(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Descriptor.Topic != "orders-topic" {
		t.Fatalf("unexpected topic %q", resolved.Descriptor.Topic)
	}
	if !resolved.Descriptor.Alert {
		t.Fatalf("onhold should be flagged as an alert")
	}
	refs := resolved.Payload.(payloads.Referencer).Refs()
	if refs.VendorID != 3 {
		t.Fatalf("unexpected refs %+v", refs)
	}
}

func TestEventRegistryResolveNonRetryableFailures(t *testing.T) {
	reg := newTestEventRegistry(t)

	cases := map[string]models.OutboxEvent{
		"unknown event": {
			EventType:     enums.OutboxEventType("something_else"),
			AggregateType: enums.AggregateOrder,
			AggregateID:   "x",
			Payload:       mustEnvelope(t, []byte(`{}`)),
		},
		"aggregate mismatch": {
			EventType:     enums.EventWalletDebited,
			AggregateType: enums.AggregateOrder,
			AggregateID:   "x",
			Payload:       mustEnvelope(t, []byte(`{}`)),
		},
		"missing aggregate id": {
			EventType:     enums.EventWalletMissing,
			AggregateType: enums.AggregateWallet,
			Payload:       mustEnvelope(t, []byte(`{}`)),
		},
		"null payload": {
			EventType:     enums.EventWalletMissing,
			AggregateType: enums.AggregateWallet,
			AggregateID:   "9",
			Payload:       mustEnvelope(t, []byte(`null`)),
		},
		"broken envelope": {
			EventType:     enums.EventWalletMissing,
			AggregateType: enums.AggregateWallet,
			AggregateID:   "9",
			Payload:       json.RawMessage(`{"data":`),
		},
	}

	for name, event := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := reg.Resolve(event)
			var nonRetry NonRetryableError
			if !errors.As(err, &nonRetry) {
				t.Fatalf("expected non-retryable error, got %v", err)
			}
		})
	}
}

func TestNewEventRegistryRequiresTopics(t *testing.T) {
	if _, err := NewEventRegistry(config.PubSubConfig{OrdersTopic: "o"}); err == nil {
		t.Fatalf("expected missing wallet topic error")
	}
	if _, err := NewEventRegistry(config.PubSubConfig{WalletTopic: "w"}); err == nil {
		t.Fatalf("expected missing orders topic error")
	}
}

func newTestEventRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(config.PubSubConfig{
		WalletTopic: "wallet-topic",
		OrdersTopic: "orders-topic",
	})
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	return reg
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func mustEnvelope(t *testing.T, data []byte) json.RawMessage {
	t.Helper()
	return mustMarshal(t, outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       data,
	})
}
