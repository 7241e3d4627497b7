package repository

import (
	"context"
	"math"
	"testing"

	"github.com/arojasjg/milicon/product-service/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func seed(t *testing.T, repo *MemoryProductRepository, name string, stock int, active bool) *domain.ProductAggregate {
	t.Helper()
	product := domain.NewProductAggregate(domain.CreateProductRequest{
		Name:   name,
		Price:  decimal.NewFromInt(10),
		Stock:  stock,
		Active: &active,
	})
	require.NoError(t, repo.Create(context.Background(), product))
	return product
}

func TestMemoryReduceStockNeverGoesNegative(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryProductRepository()
	product := seed(t, repo, "Chair", 10, true)

	var g errgroup.Group
	var successes int32
	results := make(chan error, 25)
	for i := 0; i < 25; i++ {
		g.Go(func() error {
			_, err := repo.ReduceStock(ctx, product.ID, 1)
			results <- err
			return nil
		})
	}
	require.NoError(t, g.Wait())
	close(results)

	for err := range results {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, domain.ErrInsufficientStock)
		}
	}
	assert.EqualValues(t, 10, successes)

	stored, err := repo.GetByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.Stock)
}

func TestMemoryReduceStockUnknownProduct(t *testing.T) {
	_, err := NewMemoryProductRepository().ReduceStock(context.Background(), uuid.New(), 1)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestMemoryListFiltersAndPages(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryProductRepository()
	seed(t, repo, "Bravo", 1, true)
	seed(t, repo, "Alpha", 1, true)
	seed(t, repo, "Charlie", 1, false)

	all, total, err := repo.List(ctx, ProductFilter{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, "Alpha", all[0].Name)

	active, total, err := repo.List(ctx, ProductFilter{ActiveOnly: true, Page: 2, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, active, 1)
	assert.Equal(t, "Bravo", active[0].Name)
}

func TestMemoryListFarPastTheEnd(t *testing.T) {
	repo := NewMemoryProductRepository()
	seed(t, repo, "Alpha", 1, true)

	products, total, err := repo.List(context.Background(), ProductFilter{Page: 1000000000000000000, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, products)
	assert.Equal(t, 1, total)
	assert.Equal(t, math.MaxInt32, ProductFilter{Page: 1000000000000000000, Limit: 10}.offset())
}

func TestMemoryCreateRejectsDuplicateID(t *testing.T) {
	repo := NewMemoryProductRepository()
	product := seed(t, repo, "Alpha", 1, true)

	err := repo.Create(context.Background(), product)
	assert.ErrorIs(t, err, domain.ErrDuplicateProduct)
}
