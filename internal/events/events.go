// Package events publishes order lifecycle events for downstream
// consumers (notification fan-out, analytics). Publishing is
// fire-and-forget: a broker outage never fails a storefront request.
package events

import (
	"encoding/json"
	"time"

	"github.com/xenking/storefront-api/internal/domain/order"
)

const (
	TypeOrderCreated       = "OrderCreated"
	TypeOrderStatusChanged = "OrderStatusChanged"
)

// Envelope wraps every event with routing and tracing metadata. The
// correlation id is the order id, which is also the partition key so all
// events of one order stay ordered.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id"`
	Payload       json.RawMessage `json:"payload"`
}

// OrderCreatedPayload describes one order produced by a checkout.
type OrderCreatedPayload struct {
	OrderID   string `json:"order_id"`
	ProductID string `json:"product_id"`
	Customer  string `json:"customer"`
	Seller    string `json:"seller"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

// OrderStatusChangedPayload describes a completed lifecycle transition.
type OrderStatusChangedPayload struct {
	OrderID string `json:"order_id"`
	From    string `json:"from"`
	To      string `json:"to"`
	Actor   string `json:"actor"`
}

// Publisher emits order lifecycle events. Implementations must not block
// the caller.
type Publisher interface {
	OrderCreated(o order.Order)
	OrderStatusChanged(o order.Order, from order.Status, actor string)
}

// Noop discards all events. Used when no brokers are configured.
type Noop struct{}

func (Noop) OrderCreated(order.Order)                            {}
func (Noop) OrderStatusChanged(order.Order, order.Status, string) {}
