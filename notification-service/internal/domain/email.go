package domain

import (
	"fmt"
	"strings"

	"github.com/arojasjg/milicon/shared-domain/events"
	"github.com/arojasjg/milicon/shared-domain/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Email is what a Sender delivers. Body is plain text.
type Email struct {
	To      string
	Subject string
	Body    string
}

// NotificationFromEvent renders the email for an order event. ok is false for
// event types that do not notify the customer.
func NotificationFromEvent(event events.Event) (notification *NotificationAggregate, ok bool, err error) {
	var (
		orderID   uuid.UUID
		userID    uuid.UUID
		recipient string
		subject   string
		body      strings.Builder
	)

	switch event.EventType {
	case events.OrderCreatedEvent:
		var payload events.OrderCreatedPayload
		if err := event.DecodePayload(&payload); err != nil {
			return nil, true, err
		}
		order := payload.Order
		orderID, userID, recipient = order.ID, order.UserID, order.UserEmail
		subject = fmt.Sprintf("Order %s confirmed", shortID(order.ID))

		fmt.Fprintf(&body, "Thank you for your order.\n\n")
		for _, item := range order.Items {
			fmt.Fprintf(&body, "%d x %s  %s\n", item.Quantity, item.ProductName, item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))).StringFixed(2))
		}
		fmt.Fprintf(&body, "\nTotal: %s\n", order.TotalAmount.StringFixed(2))
		if order.Payment != nil {
			fmt.Fprintf(&body, "Payment: %s (%s)\n", order.Payment.Status, order.Payment.TransactionID)
		}
		if addr := order.ShippingAddress; addr != nil {
			fmt.Fprintf(&body, "Ship to: %s, %s, %s %s, %s\n", addr.RecipientName, addr.StreetAddress, addr.City, addr.PostalCode, addr.Country)
		}

	case events.OrderPaymentFailedEvent:
		var payload events.OrderPaymentFailedPayload
		if err := event.DecodePayload(&payload); err != nil {
			return nil, true, err
		}
		orderID, userID, recipient = payload.OrderID, payload.UserID, payload.UserEmail
		subject = fmt.Sprintf("Payment for order %s was declined", shortID(payload.OrderID))
		fmt.Fprintf(&body, "We could not charge %s for your order.\nReason: %s\n\nYour cart has been kept so you can try again.\n",
			payload.Amount.StringFixed(2), payload.Reason)

	case events.OrderCancelledEvent:
		var payload events.OrderCancelledPayload
		if err := event.DecodePayload(&payload); err != nil {
			return nil, true, err
		}
		orderID, userID, recipient = payload.OrderID, payload.UserID, payload.UserEmail
		subject = fmt.Sprintf("Order %s cancelled", shortID(payload.OrderID))
		fmt.Fprintf(&body, "Your order has been cancelled.\n")
		if payload.PaymentRefunded {
			fmt.Fprintf(&body, "A refund of %s has been issued.\n", payload.TotalAmount.StringFixed(2))
		}

	case events.OrderStatusChangedEvent:
		var payload events.OrderStatusChangedPayload
		if err := event.DecodePayload(&payload); err != nil {
			return nil, true, err
		}
		orderID, userID, recipient = payload.OrderID, payload.UserID, payload.UserEmail
		subject = fmt.Sprintf("Order %s is now %s", shortID(payload.OrderID), payload.Status)
		fmt.Fprintf(&body, "Your order moved from %s to %s.\n", payload.PreviousStatus, payload.Status)
		if payload.Status == types.OrderStatusShipped && payload.TrackingNumber != "" {
			fmt.Fprintf(&body, "Tracking number: %s\n", payload.TrackingNumber)
		}

	default:
		return nil, false, nil
	}

	notification, err = NewEmailNotification(orderID, userID, recipient, subject, body.String())
	return notification, true, err
}

func (n *NotificationAggregate) Email() Email {
	return Email{To: n.Recipient, Subject: n.Subject, Body: n.Message}
}

func shortID(id uuid.UUID) string {
	return strings.ToUpper(id.String()[:8])
}
