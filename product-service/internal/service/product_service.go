package service

import (
	"context"
	"errors"
	"time"

	"github.com/arojasjg/milicon/product-service/internal/cache"
	"github.com/arojasjg/milicon/product-service/internal/domain"
	"github.com/arojasjg/milicon/product-service/internal/repository"
	"github.com/arojasjg/milicon/shared-domain/events"
	"github.com/arojasjg/milicon/shared-domain/messaging"
	"github.com/arojasjg/milicon/shared-domain/metrics"
	"github.com/arojasjg/milicon/shared-domain/tracing"
	"github.com/arojasjg/milicon/shared-domain/types"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	serviceName = "product-service"

	DefaultPageLimit = 20
	MaxPageLimit     = 100
	MaxPage          = 100000

	publishTimeout = 5 * time.Second
)

type ProductService struct {
	products  repository.ProductRepository
	cache     cache.ProductCache
	publisher messaging.EventPublisher
	logger    *zap.Logger
	tracer    *tracing.Tracer

	cacheLookups *prometheus.CounterVec
	stockChanges *prometheus.CounterVec
}

func NewProductService(
	products repository.ProductRepository,
	productCache cache.ProductCache,
	publisher messaging.EventPublisher,
	logger *zap.Logger,
	registry *metrics.Registry,
) *ProductService {
	return &ProductService{
		products:  products,
		cache:     productCache,
		publisher: publisher,
		logger:    logger,
		tracer:    tracing.New("product-service/product"),

		cacheLookups: registry.Counter("product_cache_lookups_total", "Product cache lookups, by result.", "result"),
		stockChanges: registry.Counter("stock_reductions_total", "Stock reduction attempts, by outcome.", "outcome"),
	}
}

type ProductPage struct {
	Products []*types.Product
	Page     int
	Limit    int
	Total    int
}

func (s *ProductService) GetProduct(ctx context.Context, productID uuid.UUID) (*types.Product, error) {
	if product, ok := s.cache.Get(ctx, productID); ok {
		s.cacheLookups.WithLabelValues("hit").Inc()
		return product, nil
	}
	s.cacheLookups.WithLabelValues("miss").Inc()

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	s.cache.Set(ctx, product.Product)
	return product.Product, nil
}

func (s *ProductService) ListProducts(ctx context.Context, activeOnly bool, page, limit int) (*ProductPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	aggregates, total, err := s.products.List(ctx, repository.ProductFilter{
		ActiveOnly: activeOnly,
		Page:       page,
		Limit:      limit,
	})
	if err != nil {
		return nil, err
	}

	products := make([]*types.Product, 0, len(aggregates))
	for _, aggregate := range aggregates {
		products = append(products, aggregate.Product)
	}

	return &ProductPage{Products: products, Page: page, Limit: limit, Total: total}, nil
}

func (s *ProductService) CreateProduct(ctx context.Context, request domain.CreateProductRequest) (*types.Product, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}

	product := domain.NewProductAggregate(request)
	if err := s.products.Create(ctx, product); err != nil {
		return nil, err
	}

	s.logger.Info("Product created",
		zap.String("product_id", product.ID.String()),
		zap.String("name", product.Name),
		zap.Int("stock", product.Stock),
	)
	return product.Product, nil
}

// ReduceStock decrements stock atomically. Quantity must be positive.
func (s *ProductService) ReduceStock(ctx context.Context, productID uuid.UUID, quantity int) (product *types.Product, err error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.ReduceStock",
		attribute.String("product.id", productID.String()),
		attribute.Int("quantity", quantity),
	)
	defer func() { tracing.End(span, err) }()

	if quantity < 1 {
		return nil, &domain.ValidationError{Fields: map[string]string{"quantity": "must be at least 1"}}
	}

	updated, err := s.products.ReduceStock(ctx, productID, quantity)
	if err != nil {
		s.stockChanges.WithLabelValues(outcome(err)).Inc()
		return nil, err
	}
	s.stockChanges.WithLabelValues("reduced").Inc()

	s.cache.Invalidate(ctx, productID)
	s.publish(ctx, events.ProductStockReducedEvent, events.ProductStockReducedPayload{
		ProductID:      productID,
		Quantity:       quantity,
		RemainingStock: updated.Stock,
	})

	return updated.Product, nil
}

func (s *ProductService) publish(ctx context.Context, eventType events.EventType, payload interface{}) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	event := events.Event{
		ID:        uuid.New(),
		EventType: eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
		Service:   serviceName,
	}

	if err := s.publisher.PublishEvent(ctx, event); err != nil {
		s.logger.Error("Event publish failed", zap.String("event_type", string(eventType)), zap.Error(err))
	}
}

func outcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrProductNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	default:
		return "error"
	}
}
