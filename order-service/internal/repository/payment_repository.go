package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/arojasjg/milicon/order-service/internal/domain"
	"github.com/arojasjg/milicon/shared-domain/database"
	"github.com/arojasjg/milicon/shared-domain/types"
	"github.com/google/uuid"
)

type PostgresPaymentRepository struct {
	db database.DBTX
}

func (r *PostgresPaymentRepository) Create(ctx context.Context, payment *domain.PaymentAggregate) error {
	query := `
		INSERT INTO payments (
			id, order_id, amount, payment_method, status,
			transaction_id, failure_reason, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		payment.ID,
		payment.OrderID,
		payment.Amount,
		payment.PaymentMethod,
		payment.Status,
		payment.TransactionID,
		payment.FailureReason,
		payment.CreatedAt,
		payment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("payment creation error: %w", err)
	}

	return nil
}

func (r *PostgresPaymentRepository) Update(ctx context.Context, payment *domain.PaymentAggregate) error {
	query := `
		UPDATE payments
		SET status = $2, transaction_id = $3, failure_reason = $4, updated_at = $5
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		payment.ID,
		payment.Status,
		payment.TransactionID,
		payment.FailureReason,
		payment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("payment update error: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return domain.ErrPaymentNotFound
	}

	return nil
}

func (r *PostgresPaymentRepository) GetByID(ctx context.Context, paymentID uuid.UUID) (*domain.PaymentAggregate, error) {
	query := `
		SELECT id, order_id, amount, payment_method, status,
			   transaction_id, failure_reason, created_at, updated_at
		FROM payments
		WHERE id = $1
	`

	payment := &domain.PaymentAggregate{Payment: &types.Payment{}}
	err := r.db.QueryRowContext(ctx, query, paymentID).Scan(
		&payment.ID,
		&payment.OrderID,
		&payment.Amount,
		&payment.PaymentMethod,
		&payment.Status,
		&payment.TransactionID,
		&payment.FailureReason,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("payment receive error: %w", err)
	}

	return payment, nil
}
