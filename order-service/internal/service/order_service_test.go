package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/arojasjg/milicon/order-service/internal/domain"
	"github.com/arojasjg/milicon/order-service/internal/repository"
	"github.com/arojasjg/milicon/shared-domain/events"
	"github.com/arojasjg/milicon/shared-domain/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateOrderFromCart(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	userID := uuid.New()

	a := f.products.add("Pencil case", "10.00", true)
	b := f.products.add("Backpack", "25.00", true)
	_, err := f.carts.AddItemToCart(ctx, userID, domain.CartItemRequest{ProductID: a.ID, Quantity: 2})
	require.NoError(t, err)
	_, err = f.carts.AddItemToCart(ctx, userID, domain.CartItemRequest{ProductID: b.ID, Quantity: 1})
	require.NoError(t, err)

	order, err := f.orders.CreateOrder(ctx, userID, "buyer@example.com", validOrderRequest())
	require.NoError(t, err)

	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("45.00")))
	assert.Equal(t, types.OrderStatusPending, order.Status)
	assert.Equal(t, "buyer@example.com", order.UserEmail)
	assert.Equal(t, "leave at reception", order.Notes)
	assert.Equal(t, "Lima", order.ShippingAddress.City)
	require.Len(t, order.Items, 2)

	require.NotNil(t, order.Payment)
	assert.Equal(t, types.PaymentStatusCompleted, order.Payment.Status)
	assert.True(t, order.Payment.Amount.Equal(order.TotalAmount))
	assert.Regexp(t, regexp.MustCompile(`^TRX-[0-9A-F]{8}$`), order.Payment.TransactionID)

	assert.ElementsMatch(t, []stockCall{
		{ProductID: a.ID, Quantity: 2},
		{ProductID: b.ID, Quantity: 1},
	}, f.products.calls())

	cart, err := f.carts.GetCart(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	stored, err := f.orders.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, types.PaymentStatusCompleted, stored.Payment.Status)

	assert.Equal(t, []events.EventType{events.OrderCreatedEvent}, f.publisher.eventTypes())
}

func TestCreateOrderTotalMatchesItems(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	userID := uuid.New()

	prices := []string{"0.10", "0.20", "3.33", "99.99"}
	for i, price := range prices {
		p := f.products.add("item", price, true)
		_, err := f.carts.AddItemToCart(ctx, userID, domain.CartItemRequest{ProductID: p.ID, Quantity: i + 1})
		require.NoError(t, err)
	}

	order, err := f.orders.CreateOrder(ctx, userID, "buyer@example.com", validOrderRequest())
	require.NoError(t, err)

	sum := decimal.Zero
	for _, item := range order.Items {
		sum = sum.Add(item.Subtotal())
	}
	assert.True(t, sum.Equal(order.TotalAmount), "total %s, items %s", order.TotalAmount, sum)
	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("410.45")))
}

func TestCreateOrderWithoutCart(t *testing.T) {
	f := newFixture(t, 0)

	_, err := f.orders.CreateOrder(context.Background(), uuid.New(), "buyer@example.com", validOrderRequest())
	assert.ErrorIs(t, err, domain.ErrCartNotFound)
	assert.Empty(t, f.products.calls())
}

func TestCreateOrderOnEmptyCartHasNoSideEffects(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	userID := uuid.New()

	_, err := f.store.Carts().GetOrCreate(ctx, userID)
	require.NoError(t, err)
	writes := f.store.Writes()

	_, err = f.orders.CreateOrder(ctx, userID, "buyer@example.com", validOrderRequest())
	assert.ErrorIs(t, err, domain.ErrEmptyCart)

	assert.Equal(t, writes, f.store.Writes())
	assert.Empty(t, f.products.calls())
	assert.Empty(t, f.publisher.eventTypes())
}

func TestCreateOrderValidatesRequest(t *testing.T) {
	f := newFixture(t, 0)

	request := validOrderRequest()
	request.ShippingAddress = nil
	_, err := f.orders.CreateOrder(context.Background(), uuid.New(), "buyer@example.com", request)

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "shipping_address")
}

func TestCreateOrderSurvivesStockFailures(t *testing.T) {
	for _, reduceErr := range []error{domain.ErrRemoteUnavailable, domain.ErrInsufficientStock} {
		t.Run(reduceErr.Error(), func(t *testing.T) {
			f := newFixture(t, 0)
			f.products.reduceErr = reduceErr
			userID := uuid.New()

			order := f.placeOrder(t, userID)
			assert.Equal(t, types.OrderStatusPending, order.Status)
			assert.Len(t, f.products.calls(), 1)

			_, err := f.orders.GetOrderByID(context.Background(), order.ID)
			assert.NoError(t, err)
		})
	}
}

func TestCreateOrderWithDeclinedPaymentKeepsCart(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	userID := uuid.New()

	order := f.placeOrder(t, userID)
	assert.Equal(t, types.OrderStatusPending, order.Status)
	require.NotNil(t, order.Payment)
	assert.Equal(t, types.PaymentStatusFailed, order.Payment.Status)
	assert.NotEmpty(t, order.Payment.FailureReason)

	cart, err := f.carts.GetCart(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)

	assert.Equal(t, []events.EventType{events.OrderPaymentFailedEvent}, f.publisher.eventTypes())
}

func TestCancelOrderRefundsCompletedPayment(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	userID := uuid.New()
	order := f.placeOrder(t, userID)

	require.NoError(t, f.orders.CancelOrder(ctx, order.ID, userID))

	stored, err := f.orders.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, types.OrderStatusCancelled, stored.Status)
	require.NotNil(t, stored.Payment)
	assert.Equal(t, types.PaymentStatusRefunded, stored.Payment.Status)

	published := f.publisher.eventTypes()
	assert.Equal(t, events.OrderCancelledEvent, published[len(published)-1])
}

func TestCancelOrderWithoutCompletedPayment(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	userID := uuid.New()
	order := f.placeOrder(t, userID)

	require.NoError(t, f.orders.CancelOrder(ctx, order.ID, userID))

	stored, err := f.orders.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, types.OrderStatusCancelled, stored.Status)
	assert.Equal(t, types.PaymentStatusFailed, stored.Payment.Status)
}

func TestCancelOrderRejectsLateStatuses(t *testing.T) {
	for _, status := range []types.OrderStatus{
		types.OrderStatusShipped,
		types.OrderStatusDelivered,
		types.OrderStatusCancelled,
	} {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture(t, 0)
			ctx := context.Background()
			userID := uuid.New()
			order := f.placeOrder(t, userID)

			_, err := f.orders.UpdateOrderStatus(ctx, order.ID, domain.OrderStatusUpdateRequest{Status: status})
			require.NoError(t, err)

			err = f.orders.CancelOrder(ctx, order.ID, userID)
			assert.ErrorIs(t, err, domain.ErrInvalidOrderState)

			stored, err := f.orders.GetOrderByID(ctx, order.ID)
			require.NoError(t, err)
			assert.Equal(t, status, stored.Status)
			assert.Equal(t, types.PaymentStatusCompleted, stored.Payment.Status)
		})
	}
}

func TestCancelOrderByAnotherUser(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	order := f.placeOrder(t, uuid.New())
	writes := f.store.Writes()
	published := len(f.publisher.eventTypes())

	err := f.orders.CancelOrder(ctx, order.ID, uuid.New())
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	assert.Equal(t, writes, f.store.Writes())
	assert.Len(t, f.publisher.eventTypes(), published)

	stored, err := f.orders.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, types.OrderStatusPending, stored.Status)
}

func TestCancelMissingOrder(t *testing.T) {
	f := newFixture(t, 0)
	err := f.orders.CancelOrder(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestUpdateOrderStatus(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	order := f.placeOrder(t, uuid.New())

	tracking := "TRK-1001"
	updated, err := f.orders.UpdateOrderStatus(ctx, order.ID, domain.OrderStatusUpdateRequest{
		Status:         types.OrderStatusShipped,
		TrackingNumber: &tracking,
	})
	require.NoError(t, err)
	assert.Equal(t, types.OrderStatusShipped, updated.Status)
	assert.Equal(t, tracking, updated.TrackingNumber)
	assert.Equal(t, "leave at reception", updated.Notes)

	updated, err = f.orders.UpdateOrderStatus(ctx, order.ID, domain.OrderStatusUpdateRequest{Status: types.OrderStatusPending})
	require.NoError(t, err)
	assert.Equal(t, types.OrderStatusPending, updated.Status)
	assert.Equal(t, tracking, updated.TrackingNumber)

	_, err = f.orders.UpdateOrderStatus(ctx, uuid.New(), domain.OrderStatusUpdateRequest{Status: types.OrderStatusShipped})
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	_, err = f.orders.UpdateOrderStatus(ctx, order.ID, domain.OrderStatusUpdateRequest{Status: "LOST"})
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)

	last := f.publisher.events[len(f.publisher.events)-1]
	assert.Equal(t, events.OrderStatusChangedEvent, last.EventType)
	payload, ok := last.Payload.(events.OrderStatusChangedPayload)
	require.True(t, ok)
	assert.Equal(t, types.OrderStatusShipped, payload.PreviousStatus)
	assert.Equal(t, types.OrderStatusPending, payload.Status)
}

func TestOrderQueries(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	for i := 0; i < 3; i++ {
		f.placeOrder(t, alice)
	}
	bobOrder := f.placeOrder(t, bob)
	_, err := f.orders.UpdateOrderStatus(ctx, bobOrder.ID, domain.OrderStatusUpdateRequest{Status: types.OrderStatusDelivered})
	require.NoError(t, err)

	page, err := f.orders.GetOrdersByUserID(ctx, alice, repository.Pagination{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Orders, 2)
	assert.True(t, page.HasMore())

	recent, err := f.orders.GetRecentOrdersByUserID(ctx, alice)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	for i := 1; i < len(recent); i++ {
		assert.False(t, recent[i].CreatedAt.After(recent[i-1].CreatedAt))
	}

	page, err = f.orders.GetOrdersByStatus(ctx, types.OrderStatusDelivered, repository.Pagination{})
	require.NoError(t, err)
	require.Len(t, page.Orders, 1)
	assert.Equal(t, bobOrder.ID, page.Orders[0].ID)
	assert.Equal(t, DefaultPageLimit, page.Limit)

	page, err = f.orders.GetOrdersByUserIDAndStatus(ctx, alice, types.OrderStatusDelivered, repository.Pagination{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, page.Total)

	_, err = f.orders.GetOrdersByStatus(ctx, "LOST", repository.Pagination{})
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)

	from, to := dayRange(time.Now())
	page, err = f.orders.GetOrdersByDateRange(ctx, from, to, repository.Pagination{Page: 1, Limit: 100})
	require.NoError(t, err)
	assert.Equal(t, 4, page.Total)

	_, err = f.orders.GetOrdersByDateRange(ctx, to, from, repository.Pagination{})
	assert.ErrorAs(t, err, &verr)

	_, err = f.orders.GetOrderByID(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestUpdatePaymentStatus(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	order := f.placeOrder(t, uuid.New())

	payment, err := f.payments.UpdatePaymentStatus(ctx, order.Payment.ID, domain.PaymentStatusUpdateRequest{Status: types.PaymentStatusRefunded})
	require.NoError(t, err)
	assert.Equal(t, types.PaymentStatusRefunded, payment.Status)
	assert.Equal(t, order.Payment.TransactionID, payment.TransactionID)

	_, err = f.payments.UpdatePaymentStatus(ctx, uuid.New(), domain.PaymentStatusUpdateRequest{Status: types.PaymentStatusCompleted})
	assert.True(t, errors.Is(err, domain.ErrPaymentNotFound))

	_, err = f.payments.UpdatePaymentStatus(ctx, order.Payment.ID, domain.PaymentStatusUpdateRequest{Status: "PENDING"})
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestNormalizePagination(t *testing.T) {
	assert.Equal(t, repository.Pagination{Page: 1, Limit: DefaultPageLimit}, NormalizePagination(repository.Pagination{}))
	assert.Equal(t, repository.Pagination{Page: 2, Limit: MaxPageLimit}, NormalizePagination(repository.Pagination{Page: 2, Limit: 500}))
	assert.Equal(t, repository.Pagination{Page: 3, Limit: 25}, NormalizePagination(repository.Pagination{Page: 3, Limit: 25}))
}
