package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/arojasjg/milicon/shared-domain/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EventType string

const (
	// Order Events
	OrderCreatedEvent       EventType = "order.created"
	OrderCancelledEvent     EventType = "order.cancelled"
	OrderStatusChangedEvent EventType = "order.status_changed"
	OrderPaymentFailedEvent EventType = "order.payment_failed"

	// Product Events
	ProductStockReducedEvent EventType = "product.stock_reduced"
)

type Event struct {
	ID            uuid.UUID   `json:"id"`
	OrderID       uuid.UUID   `json:"order_id,omitempty"`
	EventType     EventType   `json:"event_type"`
	Payload       interface{} `json:"payload"`
	Timestamp     time.Time   `json:"timestamp"`
	Service       string      `json:"service"`
	CorrelationID uuid.UUID   `json:"correlation_id"`
}

// RoutingKey is "<service>.<event type>", e.g. "order-service.order.created".
func (e Event) RoutingKey() string {
	return fmt.Sprintf("%s.%s", e.Service, string(e.EventType))
}

// DecodePayload re-reads a payload that arrived as generic JSON into v.
func (e Event) DecodePayload(v interface{}) error {
	raw, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("payload serialization error: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("payload deserialization error: %w", err)
	}
	return nil
}

type OrderCreatedPayload struct {
	Order types.Order `json:"order"`
}

type OrderCancelledPayload struct {
	OrderID         uuid.UUID           `json:"order_id"`
	UserID          uuid.UUID           `json:"user_id"`
	UserEmail       string              `json:"user_email"`
	TotalAmount     decimal.Decimal     `json:"total_amount"`
	PaymentStatus   types.PaymentStatus `json:"payment_status,omitempty"`
	PaymentRefunded bool                `json:"payment_refunded"`
}

type OrderStatusChangedPayload struct {
	OrderID        uuid.UUID         `json:"order_id"`
	UserID         uuid.UUID         `json:"user_id"`
	UserEmail      string            `json:"user_email"`
	PreviousStatus types.OrderStatus `json:"previous_status"`
	Status         types.OrderStatus `json:"status"`
	TrackingNumber string            `json:"tracking_number,omitempty"`
}

type OrderPaymentFailedPayload struct {
	OrderID   uuid.UUID       `json:"order_id"`
	UserID    uuid.UUID       `json:"user_id"`
	UserEmail string          `json:"user_email"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
}

type ProductStockReducedPayload struct {
	ProductID      uuid.UUID `json:"product_id"`
	Quantity       int       `json:"quantity"`
	RemainingStock int       `json:"remaining_stock"`
}
