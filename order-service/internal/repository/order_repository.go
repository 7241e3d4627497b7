package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/arojasjg/milicon/order-service/internal/domain"
	"github.com/arojasjg/milicon/shared-domain/database"
	"github.com/arojasjg/milicon/shared-domain/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const orderColumns = `
	o.id, o.user_id, o.user_email, o.items, o.total_amount, o.status,
	o.shipping_address, o.tracking_number, o.notes, o.created_at, o.updated_at,
	p.id, p.amount, p.payment_method, p.status, p.transaction_id,
	p.failure_reason, p.created_at, p.updated_at
`

type PostgresOrderRepository struct {
	db       database.DBTX
	lockRows bool
}

func (r *PostgresOrderRepository) Create(ctx context.Context, order *domain.OrderAggregate) error {
	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("items serialization error: %w", err)
	}

	addressJSON, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return fmt.Errorf("shipping address serialization error: %w", err)
	}

	query := `
		INSERT INTO orders (
			id, user_id, user_email, items, total_amount, status,
			shipping_address, tracking_number, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = r.db.ExecContext(ctx, query,
		order.ID,
		order.UserID,
		order.UserEmail,
		itemsJSON,
		order.TotalAmount,
		order.Status,
		addressJSON,
		order.TrackingNumber,
		order.Notes,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("order creation error: %w", err)
	}

	return nil
}

// Update persists the mutable order fields. Items, total and address are
// frozen at checkout and never rewritten.
func (r *PostgresOrderRepository) Update(ctx context.Context, order *domain.OrderAggregate) error {
	query := `
		UPDATE orders
		SET status = $2, tracking_number = $3, notes = $4, updated_at = $5
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		order.ID,
		order.Status,
		order.TrackingNumber,
		order.Notes,
		order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("order update error: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return domain.ErrOrderNotFound
	}

	return nil
}

func (r *PostgresOrderRepository) GetByID(ctx context.Context, orderID uuid.UUID) (*domain.OrderAggregate, error) {
	query := `SELECT ` + orderColumns + `
		FROM orders o
		LEFT JOIN payments p ON p.order_id = o.id
		WHERE o.id = $1
	`
	if r.lockRows {
		query += " FOR UPDATE OF o"
	}

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, orderID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("order receive error: %w", err)
	}

	return order, nil
}

func (r *PostgresOrderRepository) List(ctx context.Context, filter OrderFilter, page Pagination) (*OrderPage, error) {
	where, args := buildOrderWhere(filter)

	var total int
	countQuery := `SELECT COUNT(*) FROM orders o` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("orders count error: %w", err)
	}

	query := `SELECT ` + orderColumns + `
		FROM orders o
		LEFT JOIN payments p ON p.order_id = o.id` + where + `
		ORDER BY o.created_at DESC, o.id`
	if page.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		args = append(args, page.Limit, page.Offset())
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("orders retrieval error: %w", err)
	}
	defer rows.Close()

	orders := []*domain.OrderAggregate{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("order scan error: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("orders iteration error: %w", err)
	}

	return &OrderPage{Orders: orders, Page: page.Page, Limit: page.Limit, Total: total}, nil
}

func buildOrderWhere(filter OrderFilter) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	add := func(clause string, arg interface{}) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if filter.UserID != nil {
		add("o.user_id = $%d", *filter.UserID)
	}
	if filter.Status != nil {
		add("o.status = $%d", *filter.Status)
	}
	if filter.From != nil {
		add("o.created_at >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("o.created_at <= $%d", *filter.To)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*domain.OrderAggregate, error) {
	order := &domain.OrderAggregate{Order: &types.Order{}}
	var itemsJSON, addressJSON []byte

	var (
		paymentID        uuid.NullUUID
		paymentAmount    decimal.NullDecimal
		paymentMethod    sql.NullString
		paymentStatus    sql.NullString
		paymentTxID      sql.NullString
		paymentReason    sql.NullString
		paymentCreatedAt sql.NullTime
		paymentUpdatedAt sql.NullTime
	)

	err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.UserEmail,
		&itemsJSON,
		&order.TotalAmount,
		&order.Status,
		&addressJSON,
		&order.TrackingNumber,
		&order.Notes,
		&order.CreatedAt,
		&order.UpdatedAt,
		&paymentID,
		&paymentAmount,
		&paymentMethod,
		&paymentStatus,
		&paymentTxID,
		&paymentReason,
		&paymentCreatedAt,
		&paymentUpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
		return nil, fmt.Errorf("items deserialization error: %w", err)
	}

	if err := json.Unmarshal(addressJSON, &order.ShippingAddress); err != nil {
		return nil, fmt.Errorf("shipping address deserialization error: %w", err)
	}

	if paymentID.Valid {
		order.Payment = &types.Payment{
			ID:            paymentID.UUID,
			OrderID:       order.ID,
			Amount:        paymentAmount.Decimal,
			PaymentMethod: types.PaymentMethod(paymentMethod.String),
			Status:        types.PaymentStatus(paymentStatus.String),
			TransactionID: paymentTxID.String,
			FailureReason: paymentReason.String,
			CreatedAt:     paymentCreatedAt.Time,
			UpdatedAt:     paymentUpdatedAt.Time,
		}
	}

	return order, nil
}
