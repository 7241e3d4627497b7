package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/arojasjg/milicon/order-service/internal/domain"
	"github.com/arojasjg/milicon/order-service/internal/gateway"
	"github.com/arojasjg/milicon/order-service/internal/repository"
	"github.com/arojasjg/milicon/shared-domain/events"
	"github.com/arojasjg/milicon/shared-domain/metrics"
	"github.com/arojasjg/milicon/shared-domain/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stockCall struct {
	ProductID uuid.UUID
	Quantity  int
}

type fakeProducts struct {
	mu         sync.Mutex
	products   map[uuid.UUID]types.Product
	stockCalls []stockCall
	reduceErr  error
	getErr     error
}

func newFakeProducts() *fakeProducts {
	return &fakeProducts{products: make(map[uuid.UUID]types.Product)}
}

func (f *fakeProducts) add(name, price string, active bool) types.Product {
	f.mu.Lock()
	defer f.mu.Unlock()

	product := types.Product{
		ID:     uuid.New(),
		Name:   name,
		Price:  decimal.RequireFromString(price),
		Stock:  100,
		Active: active,
	}
	f.products[product.ID] = product
	return product
}

func (f *fakeProducts) GetProduct(ctx context.Context, productID uuid.UUID) (*types.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getErr != nil {
		return nil, f.getErr
	}
	product, ok := f.products[productID]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return &product, nil
}

func (f *fakeProducts) ReduceStock(ctx context.Context, productID uuid.UUID, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.stockCalls = append(f.stockCalls, stockCall{ProductID: productID, Quantity: quantity})
	return f.reduceErr
}

func (f *fakeProducts) calls() []stockCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]stockCall{}, f.stockCalls...)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) PublishEvent(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) eventTypes() []events.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]events.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType
	}
	return out
}

type fixture struct {
	store     *repository.MemoryStore
	products  *fakeProducts
	publisher *recordingPublisher
	carts     *CartService
	orders    *OrderService
	payments  *PaymentService
}

func newFixture(t *testing.T, paymentFailureRate float64) *fixture {
	t.Helper()

	logger := zap.NewNop()
	registry := metrics.New("milicon", "order_service_test")
	store := repository.NewMemoryStore()
	products := newFakeProducts()
	publisher := &recordingPublisher{}

	payments := NewPaymentService(store, gateway.NewSimulatedGateway(paymentFailureRate, 0, logger), logger, registry)

	return &fixture{
		store:     store,
		products:  products,
		publisher: publisher,
		carts:     NewCartService(store, products, logger),
		orders:    NewOrderService(store, products, payments, publisher, logger, registry),
		payments:  payments,
	}
}

func validOrderRequest() domain.CreateOrderRequest {
	return domain.CreateOrderRequest{
		ShippingAddress: &domain.ShippingAddressRequest{
			RecipientName: "Ana Torres",
			StreetAddress: "Av. Arequipa 1234",
			City:          "Lima",
			State:         "Lima",
			PostalCode:    "15046",
			Country:       "PE",
		},
		Payment: &domain.PaymentRequest{PaymentMethod: types.PaymentMethodCreditCard},
		Notes:   "leave at reception",
	}
}

// placeOrder fills a cart with one product and checks it out.
func (f *fixture) placeOrder(t *testing.T, userID uuid.UUID) *types.Order {
	t.Helper()
	ctx := context.Background()

	product := f.products.add("Notebook", "12.50", true)
	_, err := f.carts.AddItemToCart(ctx, userID, domain.CartItemRequest{ProductID: product.ID, Quantity: 2})
	require.NoError(t, err)

	order, err := f.orders.CreateOrder(ctx, userID, "buyer@example.com", validOrderRequest())
	require.NoError(t, err)
	return order
}

func dayRange(t time.Time) (time.Time, time.Time) {
	return t.Add(-24 * time.Hour), t.Add(24 * time.Hour)
}
