package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/arojasjg/milicon/order-service/internal/domain"
	"github.com/arojasjg/milicon/shared-domain/database"
	"github.com/arojasjg/milicon/shared-domain/types"
	"github.com/google/uuid"
)

type PostgresCartRepository struct {
	db       database.DBTX
	lockRows bool
}

func (r *PostgresCartRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.CartAggregate, error) {
	query := `
		SELECT id, user_id, created_at, updated_at
		FROM carts
		WHERE user_id = $1
	`
	if r.lockRows {
		query += " FOR UPDATE"
	}

	cart := &domain.CartAggregate{Cart: &types.Cart{}}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&cart.ID,
		&cart.UserID,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCartNotFound
		}
		return nil, fmt.Errorf("cart receive error: %w", err)
	}

	items, err := r.loadItems(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	cart.Items = items

	return cart, nil
}

func (r *PostgresCartRepository) GetOrCreate(ctx context.Context, userID uuid.UUID) (*domain.CartAggregate, error) {
	query := `
		INSERT INTO carts (id, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (user_id) DO NOTHING
	`

	if _, err := r.db.ExecContext(ctx, query, uuid.New(), userID, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("cart creation error: %w", err)
	}

	return r.GetByUserID(ctx, userID)
}

func (r *PostgresCartRepository) SaveItem(ctx context.Context, cartID uuid.UUID, item types.CartItem) error {
	query := `
		INSERT INTO cart_items (
			id, cart_id, product_id, product_name, price, image_url, quantity
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (cart_id, product_id) DO UPDATE SET quantity = EXCLUDED.quantity
	`

	_, err := r.db.ExecContext(ctx, query,
		item.ID,
		cartID,
		item.ProductID,
		item.ProductName,
		item.Price,
		item.ImageURL,
		item.Quantity,
	)
	if err != nil {
		return fmt.Errorf("cart item save error: %w", err)
	}

	return r.touch(ctx, cartID)
}

func (r *PostgresCartRepository) DeleteItem(ctx context.Context, cartID, productID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2`,
		cartID, productID,
	)
	if err != nil {
		return fmt.Errorf("cart item delete error: %w", err)
	}

	return r.touch(ctx, cartID)
}

func (r *PostgresCartRepository) ClearItems(ctx context.Context, cartID uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return fmt.Errorf("cart clear error: %w", err)
	}

	return r.touch(ctx, cartID)
}

func (r *PostgresCartRepository) loadItems(ctx context.Context, cartID uuid.UUID) ([]types.CartItem, error) {
	query := `
		SELECT id, product_id, product_name, price, image_url, quantity
		FROM cart_items
		WHERE cart_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.db.QueryContext(ctx, query, cartID)
	if err != nil {
		return nil, fmt.Errorf("cart items retrieval error: %w", err)
	}
	defer rows.Close()

	items := []types.CartItem{}
	for rows.Next() {
		var item types.CartItem
		if err := rows.Scan(
			&item.ID,
			&item.ProductID,
			&item.ProductName,
			&item.Price,
			&item.ImageURL,
			&item.Quantity,
		); err != nil {
			return nil, fmt.Errorf("cart item scan error: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cart items iteration error: %w", err)
	}

	return items, nil
}

func (r *PostgresCartRepository) touch(ctx context.Context, cartID uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE carts SET updated_at = $2 WHERE id = $1`,
		cartID, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("cart update error: %w", err)
	}
	return nil
}
