package gateway

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"github.com/arojasjg/milicon/shared-domain/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaymentGateway is the payment provider seen by the order workflow.
type PaymentGateway interface {
	Charge(ctx context.Context, request ChargeRequest) (*ChargeResult, error)
}

type ChargeRequest struct {
	OrderID uuid.UUID
	Amount  decimal.Decimal
	Method  types.PaymentMethod
}

type ChargeResult struct {
	Status        types.PaymentStatus
	TransactionID string
	FailureReason string
	ProcessedAt   time.Time
}

// SimulatedGateway never moves money. Every charge completes unless the
// configured failure rate says otherwise.
type SimulatedGateway struct {
	failureRate float64
	delay       time.Duration
	logger      *zap.Logger
	roll        func() float64
}

func NewSimulatedGateway(failureRate float64, delay time.Duration, logger *zap.Logger) *SimulatedGateway {
	if failureRate < 0 {
		failureRate = 0
	}
	if failureRate > 1 {
		failureRate = 1
	}
	return &SimulatedGateway{
		failureRate: failureRate,
		delay:       delay,
		logger:      logger,
		roll:        rand.Float64,
	}
}

func (g *SimulatedGateway) Charge(ctx context.Context, request ChargeRequest) (*ChargeResult, error) {
	g.logger.Info("Simulated gateway charging",
		zap.String("order_id", request.OrderID.String()),
		zap.String("amount", request.Amount.StringFixed(2)),
		zap.String("method", string(request.Method)),
	)

	if g.delay > 0 {
		select {
		case <-time.After(g.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	result := &ChargeResult{
		Status:        types.PaymentStatusCompleted,
		TransactionID: NewTransactionID(),
		ProcessedAt:   time.Now().UTC(),
	}

	if g.failureRate > 0 && g.roll() < g.failureRate {
		result.Status = types.PaymentStatusFailed
		result.FailureReason = "Insufficient funds"
		g.logger.Warn("Simulated gateway declined charge",
			zap.String("order_id", request.OrderID.String()),
			zap.String("transaction_id", result.TransactionID),
		)
	}

	return result, nil
}

// NewTransactionID returns "TRX-" followed by eight upper-case hex characters.
func NewTransactionID() string {
	return "TRX-" + strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
}
