package domain

import (
	"time"

	"github.com/arojasjg/milicon/shared-domain/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderAggregate struct {
	*types.Order
}

// NewOrderFromCart snapshots every cart line into an order item. The total is
// fixed here and never recomputed.
func NewOrderFromCart(cart *CartAggregate, userEmail string, address types.ShippingAddress, notes string) *OrderAggregate {
	items := make([]types.OrderItem, len(cart.Items))
	for i, line := range cart.Items {
		items[i] = types.OrderItem{
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Price:       line.Price,
			Quantity:    line.Quantity,
			ImageURL:    line.ImageURL,
		}
	}

	now := time.Now().UTC()
	return &OrderAggregate{
		Order: &types.Order{
			ID:              uuid.New(),
			UserID:          cart.UserID,
			UserEmail:       userEmail,
			Items:           items,
			TotalAmount:     cart.Total(),
			Status:          types.OrderStatusPending,
			ShippingAddress: &address,
			Notes:           notes,
			CreatedAt:       now,
			UpdatedAt:       now,
		},
	}
}

func (o *OrderAggregate) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

func (o *OrderAggregate) UpdateStatus(status types.OrderStatus) {
	o.Status = status
	o.touch()
}

func (o *OrderAggregate) AttachPayment(payment *types.Payment) {
	o.Payment = payment
	o.touch()
}

func (o *OrderAggregate) IsOwnedBy(userID uuid.UUID) bool {
	return o.UserID == userID
}

// CanCancel is true only before the order leaves the warehouse.
func (o *OrderAggregate) CanCancel() bool {
	return o.Status == types.OrderStatusPending || o.Status == types.OrderStatusProcessing
}

func (o *OrderAggregate) Cancel() error {
	if !o.CanCancel() {
		return ErrInvalidOrderState
	}
	o.UpdateStatus(types.OrderStatusCancelled)
	return nil
}

func (o *OrderAggregate) HasCompletedPayment() bool {
	return o.Payment != nil && o.Payment.Status == types.PaymentStatusCompleted
}

// ApplyStatusUpdate overwrites the status unconditionally. Nil tracking number
// or notes leave the current values untouched.
func (o *OrderAggregate) ApplyStatusUpdate(request OrderStatusUpdateRequest) {
	o.Status = request.Status
	if request.TrackingNumber != nil {
		o.TrackingNumber = *request.TrackingNumber
	}
	if request.Notes != nil {
		o.Notes = *request.Notes
	}
	o.touch()
}

func (o *OrderAggregate) touch() {
	o.UpdatedAt = time.Now().UTC()
}
