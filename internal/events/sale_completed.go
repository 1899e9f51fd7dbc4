package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/services/pos-service-go/internal/checkout"
)

const (
	EventTypeSaleCompleted = "SaleCompleted"
	saleCompletedSchema    = "pos.sale.completed.v1"
)

type SaleLine struct {
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
}

type SaleCompletedPayload struct {
	TransactionID string          `json:"transactionId"`
	Terminal      string          `json:"terminal"`
	Operator      string          `json:"operator,omitempty"`
	Items         []SaleLine      `json:"items"`
	TaxRate       decimal.Decimal `json:"taxRate"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Tax           decimal.Decimal `json:"tax"`
	Total         decimal.Decimal `json:"total"`
	Timestamp     time.Time       `json:"timestamp"`
}

type SaleCompletedEvent struct {
	EventEnvelope
	Payload SaleCompletedPayload `json:"payload"`
}

type EventMeta struct {
	CorrelationID string
	CausationID   string
	PartitionKey  string
}

func newSaleCompletedPayload(tx checkout.Transaction) SaleCompletedPayload {
	p := SaleCompletedPayload{
		TransactionID: tx.ID,
		Terminal:      tx.Terminal,
		Operator:      tx.Operator,
		Items:         make([]SaleLine, 0, len(tx.Lines)),
		TaxRate:       tx.TaxRate,
		Subtotal:      tx.Subtotal,
		Tax:           tx.Tax,
		Total:         tx.Total,
		Timestamp:     tx.Timestamp,
	}
	for _, l := range tx.Lines {
		p.Items = append(p.Items, SaleLine{
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			LineTotal:   l.LineTotal,
		})
	}
	return p
}

func newSaleCompletedEvent(meta EventMeta, seq int64, producer string, payload SaleCompletedPayload, occurredAt time.Time) SaleCompletedEvent {
	return SaleCompletedEvent{
		EventEnvelope: EventEnvelope{
			EventName:     EventTypeSaleCompleted,
			EventVersion:  1,
			EventID:       uuid.NewString(),
			CorrelationID: meta.CorrelationID,
			CausationID:   meta.CausationID,
			Producer:      producer,
			PartitionKey:  meta.PartitionKey,
			Sequence:      seq,
			OccurredAt:    occurredAt,
			Schema:        saleCompletedSchema,
		},
		Payload: payload,
	}
}
