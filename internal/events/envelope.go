package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventEnvelope represents the shared envelope for v1 contracts.
type EventEnvelope struct {
	EventName     string    `json:"eventName"`
	EventVersion  int       `json:"eventVersion"`
	EventID       string    `json:"eventId"`
	CorrelationID string    `json:"correlationId,omitempty"`
	CausationID   string    `json:"causationId,omitempty"`
	Producer      string    `json:"producer"`
	PartitionKey  string    `json:"partitionKey"`
	Sequence      int64     `json:"sequence,omitempty"`
	OccurredAt    time.Time `json:"occurredAt"`
	Schema        string    `json:"schema"`
}

func (e EventEnvelope) Validate(expectedName string, expectedVersion int) error {
	if e.EventName != expectedName {
		return fmt.Errorf("unexpected eventName %q", e.EventName)
	}
	if e.EventVersion != expectedVersion {
		return fmt.Errorf("unexpected eventVersion %d", e.EventVersion)
	}
	if e.PartitionKey == "" {
		return fmt.Errorf("missing partitionKey")
	}
	if e.EventID == "" {
		return fmt.Errorf("missing eventId")
	}
	if e.Sequence <= 0 {
		return fmt.Errorf("missing sequence")
	}
	return nil
}

// DecodeSaleCompleted parses and validates a published SaleCompleted body.
func DecodeSaleCompleted(body []byte) (SaleCompletedEvent, error) {
	var ev SaleCompletedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return SaleCompletedEvent{}, err
	}
	if err := ev.Validate(EventTypeSaleCompleted, 1); err != nil {
		return SaleCompletedEvent{}, err
	}
	if ev.Payload.TransactionID == "" {
		return SaleCompletedEvent{}, fmt.Errorf("missing transactionId")
	}
	return ev, nil
}
