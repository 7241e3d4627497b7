package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/arojasjg/milicon/product-service/internal/domain"
	"github.com/arojasjg/milicon/shared-domain/database"
	"github.com/arojasjg/milicon/shared-domain/types"
	"github.com/google/uuid"
)

type ProductRepository interface {
	Create(ctx context.Context, product *domain.ProductAggregate) error
	GetByID(ctx context.Context, productID uuid.UUID) (*domain.ProductAggregate, error)
	List(ctx context.Context, filter ProductFilter) ([]*domain.ProductAggregate, int, error)
	// ReduceStock decrements atomically and returns the product as stored
	// afterwards. It never drives stock below zero.
	ReduceStock(ctx context.Context, productID uuid.UUID, quantity int) (*domain.ProductAggregate, error)
}

// ProductFilter selects a page of products; ActiveOnly hides inactive ones.
type ProductFilter struct {
	ActiveOnly bool
	Page       int
	Limit      int
}

func (f ProductFilter) offset() int {
	if f.Page <= 1 || f.Limit <= 0 {
		return 0
	}
	if f.Page-1 > math.MaxInt32/f.Limit {
		return math.MaxInt32
	}
	return (f.Page - 1) * f.Limit
}

var Schema = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id UUID PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		price NUMERIC(12,2) NOT NULL CHECK (price > 0),
		image_url TEXT NOT NULL DEFAULT '',
		stock INT NOT NULL CHECK (stock >= 0),
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_products_active_name ON products (active, name)`,
}

const productColumns = `id, name, description, price, image_url, stock, active, created_at, updated_at`

type PostgresProductRepository struct {
	db database.DBTX
}

func NewPostgresProductRepository(db database.DBTX) *PostgresProductRepository {
	return &PostgresProductRepository{db: db}
}

func (r *PostgresProductRepository) Create(ctx context.Context, product *domain.ProductAggregate) error {
	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		product.ID,
		product.Name,
		product.Description,
		product.Price,
		product.ImageURL,
		product.Stock,
		product.Active,
		product.CreatedAt,
		product.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return domain.ErrDuplicateProduct
		}
		return fmt.Errorf("product creation error: %w", err)
	}

	return nil
}

func (r *PostgresProductRepository) GetByID(ctx context.Context, productID uuid.UUID) (*domain.ProductAggregate, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, productID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProductNotFound
		}
		return nil, fmt.Errorf("product receive error: %w", err)
	}

	return product, nil
}

func (r *PostgresProductRepository) List(ctx context.Context, filter ProductFilter) ([]*domain.ProductAggregate, int, error) {
	where := ""
	if filter.ActiveOnly {
		where = " WHERE active = TRUE"
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`+where).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("products count error: %w", err)
	}

	query := `SELECT ` + productColumns + ` FROM products` + where + `
		ORDER BY name, id
		LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryContext(ctx, query, filter.Limit, filter.offset())
	if err != nil {
		return nil, 0, fmt.Errorf("products retrieval error: %w", err)
	}
	defer rows.Close()

	products := []*domain.ProductAggregate{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("product scan error: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("products iteration error: %w", err)
	}

	return products, total, nil
}

func (r *PostgresProductRepository) ReduceStock(ctx context.Context, productID uuid.UUID, quantity int) (*domain.ProductAggregate, error) {
	query := `
		UPDATE products
		SET stock = stock - $1, updated_at = NOW()
		WHERE id = $2 AND stock >= $1
		RETURNING ` + productColumns

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, quantity, productID))
	if err == nil {
		return product, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("stock update error: %w", err)
	}

	// no row updated: either the product is unknown or the guard failed
	if _, err := r.GetByID(ctx, productID); err != nil {
		return nil, err
	}
	return nil, domain.ErrInsufficientStock
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (*domain.ProductAggregate, error) {
	product := &domain.ProductAggregate{Product: &types.Product{}}
	err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.ImageURL,
		&product.Stock,
		&product.Active,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return product, nil
}
