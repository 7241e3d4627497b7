package domain

import (
	"time"

	"github.com/arojasjg/milicon/shared-domain/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentAggregate struct {
	*types.Payment
}

func NewPaymentAggregate(orderID uuid.UUID, amount decimal.Decimal, method types.PaymentMethod) *PaymentAggregate {
	now := time.Now().UTC()
	return &PaymentAggregate{
		Payment: &types.Payment{
			ID:            uuid.New(),
			OrderID:       orderID,
			Amount:        amount,
			PaymentMethod: method,
			CreatedAt:     now,
			UpdatedAt:     now,
		},
	}
}

func (p *PaymentAggregate) Complete(transactionID string) {
	p.Status = types.PaymentStatusCompleted
	p.TransactionID = transactionID
	p.FailureReason = ""
	p.UpdatedAt = time.Now().UTC()
}

func (p *PaymentAggregate) Fail(transactionID, reason string) {
	p.Status = types.PaymentStatusFailed
	p.TransactionID = transactionID
	p.FailureReason = reason
	p.UpdatedAt = time.Now().UTC()
}

// UpdateStatus is an unconditional overwrite; refunds move no money.
func (p *PaymentAggregate) UpdateStatus(status types.PaymentStatus) {
	p.Status = status
	p.UpdatedAt = time.Now().UTC()
}
