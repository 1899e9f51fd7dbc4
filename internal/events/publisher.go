package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/services/pos-service-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/services/pos-service-go/internal/sequence"
)

// channel is the part of *amqp.Channel the publisher needs.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type Publisher struct {
	ch       channel
	seq      sequence.Sequencer
	producer string
	timeout  time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

type PublisherOptions struct {
	Producer string
	Timeout  time.Duration
}

func NewPublisher(conn *amqp.Connection, seq sequence.Sequencer, logger *zap.Logger, opts PublisherOptions) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declareEventsExchange(ch); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare events exchange: %w", err)
	}

	return newPublisher(ch, seq, logger, opts), nil
}

func newPublisher(ch channel, seq sequence.Sequencer, logger *zap.Logger, opts PublisherOptions) *Publisher {
	if opts.Producer == "" {
		opts.Producer = defaultProducer
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 3 * time.Second
	}
	return &Publisher{
		ch:       ch,
		seq:      seq,
		producer: opts.Producer,
		timeout:  opts.Timeout,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger,
	}
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

// PublishSaleCompleted emits one SaleCompleted envelope. Events are
// partitioned by terminal so consumers see each till's sales in order.
func (p *Publisher) PublishSaleCompleted(ctx context.Context, meta EventMeta, tx checkout.Transaction) error {
	if meta.PartitionKey == "" {
		meta.PartitionKey = tx.Terminal
	}
	if meta.PartitionKey == "" {
		return fmt.Errorf("publish SaleCompleted %s: missing partition key", tx.ID)
	}

	seq, err := p.seq.Next(ctx, meta.PartitionKey)
	if err != nil {
		return fmt.Errorf("reserve sequence: %w", err)
	}

	env := newSaleCompletedEvent(meta, seq, p.producer, newSaleCompletedPayload(tx), p.now())
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal SaleCompleted envelope: %w", err)
	}

	if err := p.publishJSON(ctx, SaleCompletedRoutingKey, env.EventID, body); err != nil {
		return fmt.Errorf("publish SaleCompleted %s: %w", tx.ID, err)
	}
	p.logger.Debug("event published",
		zap.String("event", EventTypeSaleCompleted),
		zap.String("transaction_id", tx.ID),
		zap.String("partition", meta.PartitionKey),
		zap.Int64("sequence", seq),
	)
	return nil
}

func (p *Publisher) publishJSON(ctx context.Context, routingKey, messageID string, body []byte) error {
	pubCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	return p.ch.PublishWithContext(
		pubCtx,
		EventsExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    messageID,
			Timestamp:    p.now(),
			Body:         body,
		},
	)
}

// NopPublisher is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishSaleCompleted(context.Context, EventMeta, checkout.Transaction) error {
	return nil
}
