package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/xenking/storefront-api/internal/domain/order"
)

// KafkaPublisher writes order events to a single topic through a buffered
// inbox drained by one background goroutine. Publish never blocks the
// request path: when the inbox is full the event is dropped and counted in
// the logs.
type KafkaPublisher struct {
	w       *kafka.Writer
	lg      *zap.Logger
	service string

	inbox  chan kafka.Message
	closed chan struct{}
}

// NewKafkaPublisher creates a publisher for the given brokers and topic.
// Call Start before publishing and WaitClosed on shutdown.
func NewKafkaPublisher(brokers []string, topic, service string, lg *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
		},
		lg:      lg,
		service: service,
		inbox:   make(chan kafka.Message, 256),
		closed:  make(chan struct{}),
	}
}

// Start launches the delivery goroutine. It drains the inbox on ctx
// cancellation before closing the writer.
func (p *KafkaPublisher) Start(ctx context.Context) {
	go func() {
		defer close(p.closed)
		for {
			select {
			case <-ctx.Done():
				p.drain()
				return
			case m := <-p.inbox:
				p.write(m)
			}
		}
	}()
}

func (p *KafkaPublisher) drain() {
	for {
		select {
		case m := <-p.inbox:
			p.write(m)
		default:
			if err := p.w.Close(); err != nil {
				p.lg.Warn("close kafka writer", zap.Error(err))
			}
			return
		}
	}
}

func (p *KafkaPublisher) write(m kafka.Message) {
	// Delivery happens off the request path; a short deadline keeps a dead
	// broker from wedging the drain loop.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.w.WriteMessages(ctx, m); err != nil {
		p.lg.Warn("publish event", zap.String("key", string(m.Key)), zap.Error(err))
	}
}

// WaitClosed blocks until the delivery goroutine has exited.
func (p *KafkaPublisher) WaitClosed() { <-p.closed }

func (p *KafkaPublisher) publish(eventType, orderID string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		p.lg.Warn("marshal event payload", zap.Error(err))
		return
	}
	env := Envelope{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      p.service,
		CorrelationID: orderID,
		Payload:       body,
	}
	value, err := json.Marshal(env)
	if err != nil {
		p.lg.Warn("marshal event envelope", zap.Error(err))
		return
	}

	m := kafka.Message{
		// Partition key = order id so one order's events keep their order.
		Key:   []byte(orderID),
		Value: value,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "x-event-type", Value: []byte(eventType)},
			{Key: "x-event-version", Value: []byte("1")},
		},
	}
	select {
	case p.inbox <- m:
	default:
		p.lg.Warn("event inbox full, dropping", zap.String("order_id", orderID), zap.String("type", eventType))
	}
}

// OrderCreated emits one event per order produced by a checkout.
func (p *KafkaPublisher) OrderCreated(o order.Order) {
	p.publish(TypeOrderCreated, o.ID, OrderCreatedPayload{
		OrderID:   o.ID,
		ProductID: o.ProductID,
		Customer:  o.Customer,
		Seller:    o.Seller,
		Quantity:  o.Quantity,
		UnitPrice: o.UnitPrice.String(),
	})
}

// OrderStatusChanged emits a lifecycle transition event.
func (p *KafkaPublisher) OrderStatusChanged(o order.Order, from order.Status, actor string) {
	p.publish(TypeOrderStatusChanged, o.ID, OrderStatusChangedPayload{
		OrderID: o.ID,
		From:    string(from),
		To:      string(o.Status),
		Actor:   actor,
	})
}
