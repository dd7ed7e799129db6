// Package events carries the Kafka plumbing: the producer the sync pipeline
// publishes through and the consumer loop that feeds order status changes
// into it.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Envelope is the event schema shared across topics. Keep it small and
// stable.
type Envelope struct {
	EventType    string          `json:"eventType"`
	EventVersion string          `json:"eventVersion"`
	OccurredAt   time.Time       `json:"occurredAt"`
	AggregateID  string          `json:"aggregateId"` // orderId
	Data         json.RawMessage `json:"data"`
}

// StatusEvent is the payload of orders.status.v1 messages, emitted by the
// shop whenever an order changes status.
type StatusEvent struct {
	OrderID   string `json:"orderId"`
	OldStatus string `json:"oldStatus"`
	NewStatus string `json:"newStatus"`
}

// InvoiceSyncedEvent is the payload published after an invoice reaches the
// external system.
type InvoiceSyncedEvent struct {
	OrderID   string `json:"orderId"`
	InvoiceID string `json:"invoiceId"`
}

type Producer struct {
	w     *kafka.Writer
	topic string
}

// NewProducer builds the producer for the invoice topic. Messages are keyed
// by order id to keep per-order ordering.
func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		topic: topic,
		w: kafka.NewWriter(kafka.WriterConfig{
			Brokers:  brokers,
			Balancer: &kafka.Hash{},
		}),
	}
}

func (p *Producer) Close() error { return p.w.Close() }

// PublishInvoiceSynced emits an invoice.synced event for the order.
func (p *Producer) PublishInvoiceSynced(ctx context.Context, orderID, invoiceID string) error {
	data, err := json.Marshal(InvoiceSyncedEvent{OrderID: orderID, InvoiceID: invoiceID})
	if err != nil {
		return fmt.Errorf("encode invoice synced event: %w", err)
	}
	return p.publish(ctx, orderID, Envelope{
		EventType:    "InvoiceSynced",
		EventVersion: "v1",
		AggregateID:  orderID,
		Data:         data,
	})
}

func (p *Producer) publish(ctx context.Context, key string, evt Envelope) error {
	evt.OccurredAt = time.Now().UTC()
	val, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode event envelope: %w", err)
	}
	if err := p.w.WriteMessages(ctx, kafka.Message{
		Topic: p.topic,
		Key:   []byte(key),
		Value: val,
	}); err != nil {
		return fmt.Errorf("publish %s: %w", evt.EventType, err)
	}
	return nil
}

// StatusHandler is called once per decoded status event.
type StatusHandler func(ctx context.Context, evt StatusEvent) error

// StatusConsumer reads orders.status.v1 and hands each event to the
// handler. A handler error is logged and the message is committed anyway:
// the failed order stays visible via its failure note and can be
// resubmitted by hand, which beats blocking the partition.
type StatusConsumer struct {
	r       *kafka.Reader
	handler StatusHandler
	log     *zap.SugaredLogger
}

func NewStatusConsumer(brokers []string, topic, group string, handler StatusHandler, log *zap.SugaredLogger) *StatusConsumer {
	return &StatusConsumer{
		r: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  group,
			MinBytes: 1,
			MaxBytes: 10e6,
		}),
		handler: handler,
		log:     log,
	}
}

// Run consumes until the context is cancelled.
func (c *StatusConsumer) Run(ctx context.Context) error {
	for {
		msg, err := c.r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read status message: %w", err)
		}

		var env Envelope
		if err := json.Unmarshal(msg.Value, &env); err != nil {
			c.log.Warnw("skipping malformed envelope", "offset", msg.Offset, "error", err)
			continue
		}

		var evt StatusEvent
		if err := json.Unmarshal(env.Data, &evt); err != nil {
			c.log.Warnw("skipping malformed status event", "offset", msg.Offset, "error", err)
			continue
		}

		if err := c.handler(ctx, evt); err != nil {
			c.log.Errorw("status event handling failed",
				"order_id", evt.OrderID,
				"new_status", evt.NewStatus,
				"error", err,
			)
		}
	}
}

func (c *StatusConsumer) Close() error { return c.r.Close() }
