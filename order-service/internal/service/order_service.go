package service

import (
	"context"
	"errors"
	"time"

	"github.com/arojasjg/milicon/order-service/internal/client"
	"github.com/arojasjg/milicon/order-service/internal/domain"
	"github.com/arojasjg/milicon/order-service/internal/repository"
	"github.com/arojasjg/milicon/shared-domain/events"
	"github.com/arojasjg/milicon/shared-domain/messaging"
	"github.com/arojasjg/milicon/shared-domain/metrics"
	"github.com/arojasjg/milicon/shared-domain/tracing"
	"github.com/arojasjg/milicon/shared-domain/types"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	serviceName = "order-service"

	DefaultPageLimit = 10
	MaxPageLimit     = 100
	MaxPage          = 100000

	publishTimeout = 5 * time.Second
)

type OrderService struct {
	store     repository.Store
	products  client.ProductDirectory
	payments  *PaymentService
	publisher messaging.EventPublisher
	logger    *zap.Logger
	tracer    *tracing.Tracer

	ordersCreated   *prometheus.CounterVec
	ordersCancelled *prometheus.CounterVec
	stockFailures   *prometheus.CounterVec
}

func NewOrderService(
	store repository.Store,
	products client.ProductDirectory,
	payments *PaymentService,
	publisher messaging.EventPublisher,
	logger *zap.Logger,
	registry *metrics.Registry,
) *OrderService {
	return &OrderService{
		store:     store,
		products:  products,
		payments:  payments,
		publisher: publisher,
		logger:    logger,
		tracer:    tracing.New("order-service/order"),

		ordersCreated:   registry.Counter("orders_created_total", "Orders placed, by payment outcome.", "payment_status"),
		ordersCancelled: registry.Counter("orders_cancelled_total", "Orders cancelled, by whether the payment was refunded.", "refunded"),
		stockFailures:   registry.Counter("stock_decrement_failures_total", "Stock decrements that failed during checkout.", "reason"),
	}
}

// CreateOrder turns the user's cart into a PENDING order in one transaction.
//
// Stock is decremented line by line on the product directory. Those calls are
// not rolled back if anything later fails, and a failed decrement does not
// stop the checkout. When the charge is declined the order is still stored
// with its FAILED payment and the cart is left intact for a retry.
func (s *OrderService) CreateOrder(ctx context.Context, userID uuid.UUID, userEmail string, request domain.CreateOrderRequest) (order *types.Order, err error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.CreateOrder", attribute.String("user.id", userID.String()))
	defer func() { tracing.End(span, err) }()

	if err := request.Validate(); err != nil {
		return nil, err
	}

	var created *domain.OrderAggregate
	err = s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		cart, err := repos.Carts().GetByUserID(ctx, userID)
		if err != nil {
			return err
		}
		if cart.IsEmpty() {
			return domain.ErrEmptyCart
		}

		aggregate := domain.NewOrderFromCart(cart, userEmail, request.ToShippingAddress(), request.Notes)
		for _, item := range aggregate.Items {
			s.reduceStock(ctx, aggregate.ID, item)
		}

		if err := repos.Orders().Create(ctx, aggregate); err != nil {
			return err
		}

		payment, err := s.payments.ProcessPayment(ctx, repos.Payments(), *request.Payment, aggregate.TotalAmount, aggregate.ID)
		if err != nil {
			return err
		}
		aggregate.AttachPayment(payment.Payment)
		if err := repos.Orders().Update(ctx, aggregate); err != nil {
			return err
		}

		if aggregate.HasCompletedPayment() {
			if err := repos.Carts().ClearItems(ctx, cart.ID); err != nil {
				return err
			}
		}

		created = aggregate
		return nil
	})
	if err != nil {
		return nil, err
	}

	paymentStatus := created.Payment.Status
	s.ordersCreated.WithLabelValues(string(paymentStatus)).Inc()
	s.logger.Info("Order created",
		zap.String("order_id", created.ID.String()),
		zap.String("user_id", userID.String()),
		zap.String("total_amount", created.TotalAmount.StringFixed(2)),
		zap.String("payment_status", string(paymentStatus)),
	)

	if created.HasCompletedPayment() {
		s.publish(ctx, events.OrderCreatedEvent, created.ID, events.OrderCreatedPayload{Order: *created.Order})
	} else {
		s.publish(ctx, events.OrderPaymentFailedEvent, created.ID, events.OrderPaymentFailedPayload{
			OrderID:   created.ID,
			UserID:    created.UserID,
			UserEmail: created.UserEmail,
			Amount:    created.TotalAmount,
			Reason:    created.Payment.FailureReason,
		})
	}

	return created.Order, nil
}

func (s *OrderService) reduceStock(ctx context.Context, orderID uuid.UUID, item types.OrderItem) {
	err := s.products.ReduceStock(ctx, item.ProductID, item.Quantity)
	if err == nil {
		return
	}

	reason := "unavailable"
	switch {
	case errors.Is(err, domain.ErrInsufficientStock):
		reason = "insufficient_stock"
	case errors.Is(err, domain.ErrProductNotFound):
		reason = "not_found"
	}
	s.stockFailures.WithLabelValues(reason).Inc()

	s.logger.Warn("Stock decrement failed, continuing checkout",
		zap.String("order_id", orderID.String()),
		zap.String("product_id", item.ProductID.String()),
		zap.Int("quantity", item.Quantity),
		zap.Error(err),
	)
}

// CancelOrder cancels a PENDING or PROCESSING order owned by userID. A
// completed payment is flipped to REFUNDED; no money moves.
func (s *OrderService) CancelOrder(ctx context.Context, orderID, userID uuid.UUID) (err error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.CancelOrder", attribute.String("order.id", orderID.String()))
	defer func() { tracing.End(span, err) }()

	var cancelled *domain.OrderAggregate
	refunded := false

	err = s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		order, err := repos.Orders().GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if !order.IsOwnedBy(userID) {
			return domain.ErrUnauthorized
		}
		if err := order.Cancel(); err != nil {
			return err
		}
		if err := repos.Orders().Update(ctx, order); err != nil {
			return err
		}

		if order.HasCompletedPayment() {
			payment, err := s.payments.updatePaymentStatus(ctx, repos.Payments(), order.Payment.ID, types.PaymentStatusRefunded)
			if err != nil {
				return err
			}
			order.Payment = payment.Payment
			refunded = true
		}

		cancelled = order
		return nil
	})
	if err != nil {
		return err
	}

	s.ordersCancelled.WithLabelValues(boolLabel(refunded)).Inc()
	s.logger.Info("Order cancelled",
		zap.String("order_id", orderID.String()),
		zap.Bool("payment_refunded", refunded),
	)

	payload := events.OrderCancelledPayload{
		OrderID:         cancelled.ID,
		UserID:          cancelled.UserID,
		UserEmail:       cancelled.UserEmail,
		TotalAmount:     cancelled.TotalAmount,
		PaymentRefunded: refunded,
	}
	if cancelled.Payment != nil {
		payload.PaymentStatus = cancelled.Payment.Status
	}
	s.publish(ctx, events.OrderCancelledEvent, cancelled.ID, payload)

	return nil
}

// UpdateOrderStatus overwrites the status without checking the transition.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, request domain.OrderStatusUpdateRequest) (*types.Order, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}

	var updated *domain.OrderAggregate
	var previous types.OrderStatus

	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		order, err := repos.Orders().GetByID(ctx, orderID)
		if err != nil {
			return err
		}

		previous = order.Status
		order.ApplyStatusUpdate(request)
		if err := repos.Orders().Update(ctx, order); err != nil {
			return err
		}

		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Order status updated",
		zap.String("order_id", orderID.String()),
		zap.String("previous_status", string(previous)),
		zap.String("status", string(updated.Status)),
	)

	s.publish(ctx, events.OrderStatusChangedEvent, updated.ID, events.OrderStatusChangedPayload{
		OrderID:        updated.ID,
		UserID:         updated.UserID,
		UserEmail:      updated.UserEmail,
		PreviousStatus: previous,
		Status:         updated.Status,
		TrackingNumber: updated.TrackingNumber,
	})

	return updated.Order, nil
}

func (s *OrderService) GetOrderByID(ctx context.Context, orderID uuid.UUID) (*types.Order, error) {
	order, err := s.store.Orders().GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return order.Order, nil
}

func (s *OrderService) GetOrdersByUserID(ctx context.Context, userID uuid.UUID, page repository.Pagination) (*repository.OrderPage, error) {
	return s.store.Orders().List(ctx, repository.OrderFilter{UserID: &userID}, NormalizePagination(page))
}

// GetRecentOrdersByUserID returns every order of the user, newest first.
func (s *OrderService) GetRecentOrdersByUserID(ctx context.Context, userID uuid.UUID) ([]*types.Order, error) {
	page, err := s.store.Orders().List(ctx, repository.OrderFilter{UserID: &userID}, repository.Pagination{})
	if err != nil {
		return nil, err
	}

	orders := make([]*types.Order, len(page.Orders))
	for i, order := range page.Orders {
		orders[i] = order.Order
	}
	return orders, nil
}

func (s *OrderService) GetOrdersByStatus(ctx context.Context, status types.OrderStatus, page repository.Pagination) (*repository.OrderPage, error) {
	if err := validateStatus(status); err != nil {
		return nil, err
	}
	return s.store.Orders().List(ctx, repository.OrderFilter{Status: &status}, NormalizePagination(page))
}

func (s *OrderService) GetOrdersByUserIDAndStatus(ctx context.Context, userID uuid.UUID, status types.OrderStatus, page repository.Pagination) (*repository.OrderPage, error) {
	if err := validateStatus(status); err != nil {
		return nil, err
	}
	return s.store.Orders().List(ctx, repository.OrderFilter{UserID: &userID, Status: &status}, NormalizePagination(page))
}

// GetOrdersByDateRange matches orders created within [from, to].
func (s *OrderService) GetOrdersByDateRange(ctx context.Context, from, to time.Time, page repository.Pagination) (*repository.OrderPage, error) {
	if to.Before(from) {
		return nil, &domain.ValidationError{Fields: map[string]string{
			"end_date": "end date must not be before start date",
		}}
	}
	return s.store.Orders().List(ctx, repository.OrderFilter{From: &from, To: &to}, NormalizePagination(page))
}

// NormalizePagination applies the default page size and caps it.
func NormalizePagination(page repository.Pagination) repository.Pagination {
	if page.Page < 1 {
		page.Page = 1
	}
	if page.Limit < 1 {
		page.Limit = DefaultPageLimit
	}
	if page.Limit > MaxPageLimit {
		page.Limit = MaxPageLimit
	}
	return page
}

func validateStatus(status types.OrderStatus) error {
	if !status.IsValid() {
		return &domain.ValidationError{Fields: map[string]string{"status": "unknown order status"}}
	}
	return nil
}

// publish never fails the caller; the order is already committed.
func (s *OrderService) publish(ctx context.Context, eventType events.EventType, orderID uuid.UUID, payload interface{}) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	event := events.Event{
		ID:        uuid.New(),
		OrderID:   orderID,
		EventType: eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
		Service:   serviceName,
	}

	if err := s.publisher.PublishEvent(ctx, event); err != nil {
		s.logger.Error("Event publish failed",
			zap.String("event_type", string(eventType)),
			zap.String("order_id", orderID.String()),
			zap.Error(err),
		)
	}
}

func boolLabel(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
