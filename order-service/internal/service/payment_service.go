package service

import (
	"context"
	"fmt"

	"github.com/arojasjg/milicon/order-service/internal/domain"
	"github.com/arojasjg/milicon/order-service/internal/gateway"
	"github.com/arojasjg/milicon/order-service/internal/repository"
	"github.com/arojasjg/milicon/shared-domain/metrics"
	"github.com/arojasjg/milicon/shared-domain/types"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type PaymentService struct {
	store    repository.Store
	gateway  gateway.PaymentGateway
	logger   *zap.Logger
	outcomes *prometheus.CounterVec
}

func NewPaymentService(store repository.Store, paymentGateway gateway.PaymentGateway, logger *zap.Logger, registry *metrics.Registry) *PaymentService {
	return &PaymentService{
		store:    store,
		gateway:  paymentGateway,
		logger:   logger,
		outcomes: registry.Counter("payments_total", "Payments processed by outcome.", "status"),
	}
}

// ProcessPayment charges the gateway and records the outcome through payments,
// which is usually bound to the caller's transaction. A declined charge is not
// an error: the FAILED payment is returned like any other.
func (s *PaymentService) ProcessPayment(
	ctx context.Context,
	payments repository.PaymentRepository,
	request domain.PaymentRequest,
	amount decimal.Decimal,
	orderID uuid.UUID,
) (*domain.PaymentAggregate, error) {
	result, err := s.gateway.Charge(ctx, gateway.ChargeRequest{
		OrderID: orderID,
		Amount:  amount,
		Method:  request.PaymentMethod,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: payment gateway: %v", domain.ErrRemoteUnavailable, err)
	}

	payment := domain.NewPaymentAggregate(orderID, amount, request.PaymentMethod)
	if result.Status == types.PaymentStatusCompleted {
		payment.Complete(result.TransactionID)
	} else {
		payment.Fail(result.TransactionID, result.FailureReason)
	}

	if err := payments.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("payment persistence error: %w", err)
	}

	s.outcomes.WithLabelValues(string(payment.Status)).Inc()
	s.logger.Info("Payment processed",
		zap.String("payment_id", payment.ID.String()),
		zap.String("order_id", orderID.String()),
		zap.String("status", string(payment.Status)),
		zap.String("transaction_id", payment.TransactionID),
	)

	return payment, nil
}

// UpdatePaymentStatus overwrites the status of a stored payment.
func (s *PaymentService) UpdatePaymentStatus(ctx context.Context, paymentID uuid.UUID, request domain.PaymentStatusUpdateRequest) (*types.Payment, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}

	var updated *domain.PaymentAggregate
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		payment, err := s.updatePaymentStatus(ctx, repos.Payments(), paymentID, request.Status)
		updated = payment
		return err
	})
	if err != nil {
		return nil, err
	}

	return updated.Payment, nil
}

func (s *PaymentService) updatePaymentStatus(
	ctx context.Context,
	payments repository.PaymentRepository,
	paymentID uuid.UUID,
	status types.PaymentStatus,
) (*domain.PaymentAggregate, error) {
	payment, err := payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	previous := payment.Status
	payment.UpdateStatus(status)
	if err := payments.Update(ctx, payment); err != nil {
		return nil, err
	}

	s.outcomes.WithLabelValues(string(status)).Inc()
	s.logger.Info("Payment status updated",
		zap.String("payment_id", paymentID.String()),
		zap.String("previous_status", string(previous)),
		zap.String("status", string(status)),
	)

	return payment, nil
}
