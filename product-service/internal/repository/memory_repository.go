package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/arojasjg/milicon/product-service/internal/domain"
	"github.com/google/uuid"
)

type MemoryProductRepository struct {
	mu       sync.RWMutex
	products map[uuid.UUID]domain.ProductAggregate
}

func NewMemoryProductRepository() *MemoryProductRepository {
	return &MemoryProductRepository{products: make(map[uuid.UUID]domain.ProductAggregate)}
}

func (r *MemoryProductRepository) Create(ctx context.Context, product *domain.ProductAggregate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.products[product.ID]; exists {
		return domain.ErrDuplicateProduct
	}
	r.products[product.ID] = cloneProduct(product)
	return nil
}

func (r *MemoryProductRepository) GetByID(ctx context.Context, productID uuid.UUID) (*domain.ProductAggregate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.products[productID]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	clone := cloneProduct(&product)
	return &clone, nil
}

func (r *MemoryProductRepository) List(ctx context.Context, filter ProductFilter) ([]*domain.ProductAggregate, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := []*domain.ProductAggregate{}
	for _, product := range r.products {
		if filter.ActiveOnly && !product.Active {
			continue
		}
		clone := cloneProduct(&product)
		matched = append(matched, &clone)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Name == matched[j].Name {
			return matched[i].ID.String() < matched[j].ID.String()
		}
		return matched[i].Name < matched[j].Name
	})

	total := len(matched)
	start := filter.offset()
	if start > total {
		start = total
	}
	end := start + filter.Limit
	if filter.Limit <= 0 || end > total {
		end = total
	}

	return matched[start:end], total, nil
}

func (r *MemoryProductRepository) ReduceStock(ctx context.Context, productID uuid.UUID, quantity int) (*domain.ProductAggregate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.products[productID]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	stored := cloneProduct(&product)
	if err := stored.ReduceStock(quantity); err != nil {
		return nil, err
	}
	r.products[productID] = stored

	result := cloneProduct(&stored)
	return &result, nil
}

func cloneProduct(product *domain.ProductAggregate) domain.ProductAggregate {
	p := *product.Product
	return domain.ProductAggregate{Product: &p}
}
