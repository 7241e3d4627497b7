package repository

import (
	"context"
	"math"
	"time"

	"github.com/arojasjg/milicon/order-service/internal/domain"
	"github.com/arojasjg/milicon/shared-domain/types"
	"github.com/google/uuid"
)

type CartRepository interface {
	// GetByUserID fails with domain.ErrCartNotFound. Inside a transaction the
	// cart row stays locked until commit.
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.CartAggregate, error)
	// GetOrCreate inserts the cart if the user has none; concurrent callers
	// end up with the same row.
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*domain.CartAggregate, error)
	SaveItem(ctx context.Context, cartID uuid.UUID, item types.CartItem) error
	DeleteItem(ctx context.Context, cartID, productID uuid.UUID) error
	ClearItems(ctx context.Context, cartID uuid.UUID) error
}

type OrderRepository interface {
	Create(ctx context.Context, order *domain.OrderAggregate) error
	Update(ctx context.Context, order *domain.OrderAggregate) error
	GetByID(ctx context.Context, orderID uuid.UUID) (*domain.OrderAggregate, error)
	List(ctx context.Context, filter OrderFilter, page Pagination) (*OrderPage, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.PaymentAggregate) error
	Update(ctx context.Context, payment *domain.PaymentAggregate) error
	GetByID(ctx context.Context, paymentID uuid.UUID) (*domain.PaymentAggregate, error)
}

type Repositories interface {
	Carts() CartRepository
	Orders() OrderRepository
	Payments() PaymentRepository
}

// Store hands out repositories and runs units of work. fn's repositories
// share one transaction; returning an error rolls everything back.
type Store interface {
	Repositories
	WithinTx(ctx context.Context, fn func(repos Repositories) error) error
}

// OrderFilter fields are ANDed; nil means "any". Date bounds are inclusive.
type OrderFilter struct {
	UserID *uuid.UUID
	Status *types.OrderStatus
	From   *time.Time
	To     *time.Time
}

// Pagination is 1-based. A zero Limit returns every match.
type Pagination struct {
	Page  int
	Limit int
}

func (p Pagination) Offset() int {
	if p.Page <= 1 || p.Limit <= 0 {
		return 0
	}
	if p.Page-1 > math.MaxInt32/p.Limit {
		return math.MaxInt32
	}
	return (p.Page - 1) * p.Limit
}

type OrderPage struct {
	Orders []*domain.OrderAggregate
	Page   int
	Limit  int
	Total  int
}

func (p *OrderPage) HasMore() bool {
	if p.Limit <= 0 {
		return false
	}
	return p.Page*p.Limit < p.Total
}
