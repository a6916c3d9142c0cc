// Package events delivers order lifecycle events to Kafka. Publishing is
// fire-and-forget from the request path: messages go through a buffered
// inbox drained by a single writer goroutine, and the remaining backlog is
// flushed on shutdown.
package events

import (
	"context"
	"encoding/json"
	"sync"

	kafka "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/xenking/order-inventory-service/internal/domain/order"
)

var _ order.Publisher = (*KafkaPublisher)(nil)

// KafkaPublisher writes order events to a single topic, partitioned by
// order id so events for one order keep their relative ordering.
type KafkaPublisher struct {
	w     *kafka.Writer
	inbox chan kafka.Message
	done  chan struct{}
	lg    *zap.Logger

	// mu guards closed and the inbox send so a Publish racing Close cannot
	// hit a closed channel.
	mu     sync.Mutex
	closed bool
}

// NewKafkaPublisher creates a publisher for the given brokers and topic.
// Call Start before publishing and Close on shutdown.
func NewKafkaPublisher(brokers []string, topic string, buffer int, lg *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
		inbox: make(chan kafka.Message, buffer),
		done:  make(chan struct{}),
		lg:    lg,
	}
}

// Start launches the writer goroutine. It runs until Close is called, then
// flushes whatever is left in the inbox.
func (p *KafkaPublisher) Start() {
	go func() {
		defer close(p.done)
		for msg := range p.inbox {
			if err := p.w.WriteMessages(context.Background(), msg); err != nil {
				p.lg.Error("publish order event",
					zap.String("key", string(msg.Key)),
					zap.Error(err),
				)
			}
		}
		if err := p.w.Close(); err != nil {
			p.lg.Error("close kafka writer", zap.Error(err))
		}
	}()
}

// Publish enqueues an event. When the inbox is full the event is dropped
// with a log line rather than blocking an order mutation on the broker.
// Publishing after Close also drops the event.
func (p *KafkaPublisher) Publish(_ context.Context, ev order.Event) {
	value, err := json.Marshal(ev)
	if err != nil {
		p.lg.Error("marshal order event", zap.String("event_id", ev.ID), zap.Error(err))
		return
	}

	msg := kafka.Message{
		Key:     []byte(ev.Order.ID),
		Value:   value,
		Time:    ev.OccurredAt,
		Headers: []kafka.Header{{Key: "x-event-type", Value: []byte(ev.Type)}},
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		p.lg.Warn("publisher closed, dropping event",
			zap.String("event_id", ev.ID),
			zap.String("order_id", ev.Order.ID),
		)
		return
	}

	select {
	case p.inbox <- msg:
	default:
		p.lg.Warn("event inbox full, dropping event",
			zap.String("event_id", ev.ID),
			zap.String("order_id", ev.Order.ID),
		)
	}
}

// Close stops intake and waits for the backlog to flush. Safe to call more
// than once.
func (p *KafkaPublisher) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.inbox)
	}
	p.mu.Unlock()
	<-p.done
}
