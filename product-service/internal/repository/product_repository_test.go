package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/arojasjg/milicon/product-service/internal/domain"
	"github.com/arojasjg/milicon/shared-domain/types"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var productRowFields = []string{
	"id", "name", "description", "price", "image_url", "stock", "active", "created_at", "updated_at",
}

const reduceStockQuery = `UPDATE products\s+SET stock = stock - \$1, updated_at = NOW\(\)\s+WHERE id = \$2 AND stock >= \$1\s+RETURNING`

func newMockRepository(t *testing.T) (*PostgresProductRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresProductRepository(db), mock
}

func TestPostgresReduceStockReturnsUpdatedRow(t *testing.T) {
	repo, mock := newMockRepository(t)
	id := uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery(reduceStockQuery).
		WithArgs(2, id).
		WillReturnRows(sqlmock.NewRows(productRowFields).
			AddRow(id.String(), "Lamp", "", "19.99", "", 3, true, now, now))

	product, err := repo.ReduceStock(context.Background(), id, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, product.Stock)
	assert.Equal(t, "19.99", product.Price.String())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresReduceStockGuardFailed(t *testing.T) {
	repo, mock := newMockRepository(t)
	id := uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery(reduceStockQuery).
		WithArgs(5, id).
		WillReturnRows(sqlmock.NewRows(productRowFields))
	mock.ExpectQuery(`FROM products WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(productRowFields).
			AddRow(id.String(), "Lamp", "", "19.99", "", 1, true, now, now))

	_, err := repo.ReduceStock(context.Background(), id, 5)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresReduceStockUnknownProduct(t *testing.T) {
	repo, mock := newMockRepository(t)
	id := uuid.New()

	mock.ExpectQuery(reduceStockQuery).
		WithArgs(1, id).
		WillReturnRows(sqlmock.NewRows(productRowFields))
	mock.ExpectQuery(`FROM products WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(productRowFields))

	_, err := repo.ReduceStock(context.Background(), id, 1)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreateDuplicateID(t *testing.T) {
	repo, mock := newMockRepository(t)
	product := &domain.ProductAggregate{Product: &types.Product{
		ID:     uuid.New(),
		Name:   "Lamp",
		Price:  decimal.RequireFromString("19.99"),
		Stock:  4,
		Active: true,
	}}

	mock.ExpectExec(`INSERT INTO products \(id, name, description, price, image_url, stock, active, created_at, updated_at\)`).
		WithArgs(product.ID, "Lamp", "", "19.99", "", 4, true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), product)
	assert.ErrorIs(t, err, domain.ErrDuplicateProduct)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListAppliesActiveFilterAndPage(t *testing.T) {
	repo, mock := newMockRepository(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM products WHERE active = TRUE`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(41))
	mock.ExpectQuery(`FROM products WHERE active = TRUE\s+ORDER BY name, id\s+LIMIT \$1 OFFSET \$2`).
		WithArgs(20, 40).
		WillReturnRows(sqlmock.NewRows(productRowFields).
			AddRow(uuid.NewString(), "Zebra mug", "", "7.50", "", 9, true, now, now))

	products, total, err := repo.List(context.Background(), ProductFilter{ActiveOnly: true, Page: 3, Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, 41, total)
	require.Len(t, products, 1)
	assert.Equal(t, "Zebra mug", products[0].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}
