package service

import (
	"context"
	"errors"

	"github.com/arojasjg/milicon/order-service/internal/client"
	"github.com/arojasjg/milicon/order-service/internal/domain"
	"github.com/arojasjg/milicon/order-service/internal/repository"
	"github.com/arojasjg/milicon/shared-domain/tracing"
	"github.com/arojasjg/milicon/shared-domain/types"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type CartService struct {
	store    repository.Store
	products client.ProductDirectory
	logger   *zap.Logger
	tracer   *tracing.Tracer
}

func NewCartService(store repository.Store, products client.ProductDirectory, logger *zap.Logger) *CartService {
	return &CartService{
		store:    store,
		products: products,
		logger:   logger,
		tracer:   tracing.New("order-service/cart"),
	}
}

func (s *CartService) GetCart(ctx context.Context, userID uuid.UUID) (*types.Cart, error) {
	cart, err := s.store.Carts().GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return cart.Cart, nil
}

// AddItemToCart creates the user's cart on first use. The product's current
// name, price and image are copied into a new line; adding a product that is
// already in the cart only raises that line's quantity.
func (s *CartService) AddItemToCart(ctx context.Context, userID uuid.UUID, request domain.CartItemRequest) (cart *types.Cart, err error) {
	ctx, span := s.tracer.Start(ctx, "CartService.AddItemToCart",
		attribute.String("user.id", userID.String()),
		attribute.String("product.id", request.ProductID.String()),
	)
	defer func() { tracing.End(span, err) }()

	if err := request.Validate(); err != nil {
		return nil, err
	}

	product, err := s.products.GetProduct(ctx, request.ProductID)
	if err != nil {
		return nil, err
	}
	if !product.Active {
		return nil, domain.ErrProductUnavailable
	}

	err = s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		aggregate, err := repos.Carts().GetOrCreate(ctx, userID)
		if err != nil {
			return err
		}

		if err := aggregate.CheckAdd(product.ID, request.Quantity); err != nil {
			return err
		}

		item := aggregate.AddItem(domain.ProductSnapshot{
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price,
			ImageURL:  product.ImageURL,
		}, request.Quantity)

		if err := repos.Carts().SaveItem(ctx, aggregate.ID, item); err != nil {
			return err
		}

		cart = aggregate.Cart
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Cart item added",
		zap.String("user_id", userID.String()),
		zap.String("product_id", request.ProductID.String()),
		zap.Int("quantity", request.Quantity),
	)

	return cart, nil
}

func (s *CartService) UpdateCartItem(ctx context.Context, userID, productID uuid.UUID, request domain.CartItemRequest) (*types.Cart, error) {
	request.ProductID = productID
	if err := request.Validate(); err != nil {
		return nil, err
	}

	var cart *types.Cart
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		aggregate, err := repos.Carts().GetByUserID(ctx, userID)
		if err != nil {
			return err
		}

		item, err := aggregate.UpdateItemQuantity(productID, request.Quantity)
		if err != nil {
			return err
		}

		if err := repos.Carts().SaveItem(ctx, aggregate.ID, item); err != nil {
			return err
		}

		cart = aggregate.Cart
		return nil
	})
	if err != nil {
		return nil, err
	}

	return cart, nil
}

// RemoveItemFromCart succeeds even when the product is not in the cart.
func (s *CartService) RemoveItemFromCart(ctx context.Context, userID, productID uuid.UUID) (*types.Cart, error) {
	var cart *types.Cart
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		aggregate, err := repos.Carts().GetByUserID(ctx, userID)
		if err != nil {
			return err
		}

		if aggregate.RemoveItem(productID) {
			if err := repos.Carts().DeleteItem(ctx, aggregate.ID, productID); err != nil {
				return err
			}
		}

		cart = aggregate.Cart
		return nil
	})
	if err != nil {
		return nil, err
	}

	return cart, nil
}

// ClearCart is a no-op for users without a cart or with an empty one.
func (s *CartService) ClearCart(ctx context.Context, userID uuid.UUID) error {
	return s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		aggregate, err := repos.Carts().GetByUserID(ctx, userID)
		if errors.Is(err, domain.ErrCartNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if aggregate.IsEmpty() {
			return nil
		}

		aggregate.Clear()
		return repos.Carts().ClearItems(ctx, aggregate.ID)
	})
}
