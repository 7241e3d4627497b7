package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/arojasjg/milicon/order-service/internal/domain"
	"github.com/arojasjg/milicon/shared-domain/types"
	"github.com/google/uuid"
)

// MemoryStore keeps everything in process. Transactions are serialized and
// rolled back by restoring a snapshot taken when they began.
type MemoryStore struct {
	mu     sync.RWMutex
	state  memoryState
	writes int
}

type memoryState struct {
	carts    map[uuid.UUID]*types.Cart
	orders   map[uuid.UUID]*types.Order
	payments map[uuid.UUID]*types.Payment
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		state: memoryState{
			carts:    make(map[uuid.UUID]*types.Cart),
			orders:   make(map[uuid.UUID]*types.Order),
			payments: make(map[uuid.UUID]*types.Payment),
		},
	}
}

// Writes counts committed mutations; tests use it to prove an operation left
// storage untouched.
func (s *MemoryStore) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

func (s *MemoryStore) Carts() CartRepository {
	return &memoryCartRepository{store: s}
}

func (s *MemoryStore) Orders() OrderRepository {
	return &memoryOrderRepository{store: s}
}

func (s *MemoryStore) Payments() PaymentRepository {
	return &memoryPaymentRepository{store: s}
}

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(repos Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	writes := s.writes

	if err := fn(&memoryTx{store: s}); err != nil {
		s.state = snapshot
		s.writes = writes
		return err
	}
	return nil
}

type memoryTx struct {
	store *MemoryStore
}

func (t *memoryTx) Carts() CartRepository {
	return &memoryCartRepository{store: t.store, inTx: true}
}

func (t *memoryTx) Orders() OrderRepository {
	return &memoryOrderRepository{store: t.store, inTx: true}
}

func (t *memoryTx) Payments() PaymentRepository {
	return &memoryPaymentRepository{store: t.store, inTx: true}
}

// read and write take the store lock unless the caller already holds it
// through WithinTx.
func (s *MemoryStore) read(inTx bool, fn func(st *memoryState) error) error {
	if !inTx {
		s.mu.RLock()
		defer s.mu.RUnlock()
	}
	return fn(&s.state)
}

func (s *MemoryStore) write(inTx bool, fn func(st *memoryState) error) error {
	if !inTx {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	if err := fn(&s.state); err != nil {
		if errors.Is(err, errUnchanged) {
			return nil
		}
		return err
	}
	s.writes++
	return nil
}

// errUnchanged lets a write callback finish without counting as a mutation.
var errUnchanged = errors.New("unchanged")

type memoryCartRepository struct {
	store *MemoryStore
	inTx  bool
}

func (r *memoryCartRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.CartAggregate, error) {
	var cart *domain.CartAggregate
	err := r.store.read(r.inTx, func(st *memoryState) error {
		c, ok := st.carts[userID]
		if !ok {
			return domain.ErrCartNotFound
		}
		cart = &domain.CartAggregate{Cart: cloneCart(c)}
		return nil
	})
	return cart, err
}

func (r *memoryCartRepository) GetOrCreate(ctx context.Context, userID uuid.UUID) (*domain.CartAggregate, error) {
	if cart, err := r.GetByUserID(ctx, userID); err == nil {
		return cart, nil
	}

	var cart *domain.CartAggregate
	err := r.store.write(r.inTx, func(st *memoryState) error {
		if c, ok := st.carts[userID]; ok {
			cart = &domain.CartAggregate{Cart: cloneCart(c)}
			return errUnchanged
		}
		c := domain.NewCartAggregate(userID).Cart
		st.carts[userID] = c
		cart = &domain.CartAggregate{Cart: cloneCart(c)}
		return nil
	})
	return cart, err
}

func (r *memoryCartRepository) SaveItem(ctx context.Context, cartID uuid.UUID, item types.CartItem) error {
	return r.store.write(r.inTx, func(st *memoryState) error {
		cart := st.cartByID(cartID)
		if cart == nil {
			return domain.ErrCartNotFound
		}
		for i := range cart.Items {
			if cart.Items[i].ProductID == item.ProductID {
				cart.Items[i].Quantity = item.Quantity
				cart.UpdatedAt = time.Now().UTC()
				return nil
			}
		}
		cart.Items = append(cart.Items, item)
		cart.UpdatedAt = time.Now().UTC()
		return nil
	})
}

func (r *memoryCartRepository) DeleteItem(ctx context.Context, cartID, productID uuid.UUID) error {
	return r.store.write(r.inTx, func(st *memoryState) error {
		cart := st.cartByID(cartID)
		if cart == nil {
			return domain.ErrCartNotFound
		}
		kept := cart.Items[:0]
		for _, item := range cart.Items {
			if item.ProductID != productID {
				kept = append(kept, item)
			}
		}
		cart.Items = kept
		cart.UpdatedAt = time.Now().UTC()
		return nil
	})
}

func (r *memoryCartRepository) ClearItems(ctx context.Context, cartID uuid.UUID) error {
	return r.store.write(r.inTx, func(st *memoryState) error {
		cart := st.cartByID(cartID)
		if cart == nil {
			return domain.ErrCartNotFound
		}
		cart.Items = []types.CartItem{}
		cart.UpdatedAt = time.Now().UTC()
		return nil
	})
}

type memoryOrderRepository struct {
	store *MemoryStore
	inTx  bool
}

func (r *memoryOrderRepository) Create(ctx context.Context, order *domain.OrderAggregate) error {
	return r.store.write(r.inTx, func(st *memoryState) error {
		stored := cloneOrder(order.Order)
		stored.Payment = nil
		st.orders[order.ID] = stored
		return nil
	})
}

func (r *memoryOrderRepository) Update(ctx context.Context, order *domain.OrderAggregate) error {
	return r.store.write(r.inTx, func(st *memoryState) error {
		stored, ok := st.orders[order.ID]
		if !ok {
			return domain.ErrOrderNotFound
		}
		stored.Status = order.Status
		stored.TrackingNumber = order.TrackingNumber
		stored.Notes = order.Notes
		stored.UpdatedAt = order.UpdatedAt
		return nil
	})
}

func (r *memoryOrderRepository) GetByID(ctx context.Context, orderID uuid.UUID) (*domain.OrderAggregate, error) {
	var order *domain.OrderAggregate
	err := r.store.read(r.inTx, func(st *memoryState) error {
		o, ok := st.orders[orderID]
		if !ok {
			return domain.ErrOrderNotFound
		}
		order = st.withPayment(o)
		return nil
	})
	return order, err
}

func (r *memoryOrderRepository) List(ctx context.Context, filter OrderFilter, page Pagination) (*OrderPage, error) {
	result := &OrderPage{Orders: []*domain.OrderAggregate{}, Page: page.Page, Limit: page.Limit}
	err := r.store.read(r.inTx, func(st *memoryState) error {
		var matched []*types.Order
		for _, o := range st.orders {
			if filter.matches(o) {
				matched = append(matched, o)
			}
		}
		sort.Slice(matched, func(i, j int) bool {
			if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
				return matched[i].ID.String() < matched[j].ID.String()
			}
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		})

		result.Total = len(matched)
		if page.Limit > 0 {
			start := page.Offset()
			if start > len(matched) {
				start = len(matched)
			}
			end := start + page.Limit
			if end > len(matched) {
				end = len(matched)
			}
			matched = matched[start:end]
		}

		for _, o := range matched {
			result.Orders = append(result.Orders, st.withPayment(o))
		}
		return nil
	})
	return result, err
}

type memoryPaymentRepository struct {
	store *MemoryStore
	inTx  bool
}

func (r *memoryPaymentRepository) Create(ctx context.Context, payment *domain.PaymentAggregate) error {
	return r.store.write(r.inTx, func(st *memoryState) error {
		p := *payment.Payment
		st.payments[p.ID] = &p
		return nil
	})
}

func (r *memoryPaymentRepository) Update(ctx context.Context, payment *domain.PaymentAggregate) error {
	return r.store.write(r.inTx, func(st *memoryState) error {
		stored, ok := st.payments[payment.ID]
		if !ok {
			return domain.ErrPaymentNotFound
		}
		stored.Status = payment.Status
		stored.TransactionID = payment.TransactionID
		stored.FailureReason = payment.FailureReason
		stored.UpdatedAt = payment.UpdatedAt
		return nil
	})
}

func (r *memoryPaymentRepository) GetByID(ctx context.Context, paymentID uuid.UUID) (*domain.PaymentAggregate, error) {
	var payment *domain.PaymentAggregate
	err := r.store.read(r.inTx, func(st *memoryState) error {
		p, ok := st.payments[paymentID]
		if !ok {
			return domain.ErrPaymentNotFound
		}
		cp := *p
		payment = &domain.PaymentAggregate{Payment: &cp}
		return nil
	})
	return payment, err
}

func (f OrderFilter) matches(o *types.Order) bool {
	if f.UserID != nil && o.UserID != *f.UserID {
		return false
	}
	if f.Status != nil && o.Status != *f.Status {
		return false
	}
	if f.From != nil && o.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && o.CreatedAt.After(*f.To) {
		return false
	}
	return true
}

func (st *memoryState) cartByID(cartID uuid.UUID) *types.Cart {
	for _, c := range st.carts {
		if c.ID == cartID {
			return c
		}
	}
	return nil
}

func (st *memoryState) withPayment(o *types.Order) *domain.OrderAggregate {
	order := cloneOrder(o)
	for _, p := range st.payments {
		if p.OrderID == o.ID {
			cp := *p
			order.Payment = &cp
			break
		}
	}
	return &domain.OrderAggregate{Order: order}
}

func (st memoryState) clone() memoryState {
	out := memoryState{
		carts:    make(map[uuid.UUID]*types.Cart, len(st.carts)),
		orders:   make(map[uuid.UUID]*types.Order, len(st.orders)),
		payments: make(map[uuid.UUID]*types.Payment, len(st.payments)),
	}
	for k, v := range st.carts {
		out.carts[k] = cloneCart(v)
	}
	for k, v := range st.orders {
		out.orders[k] = cloneOrder(v)
	}
	for k, v := range st.payments {
		cp := *v
		out.payments[k] = &cp
	}
	return out
}

func cloneCart(c *types.Cart) *types.Cart {
	cp := *c
	cp.Items = append([]types.CartItem{}, c.Items...)
	return &cp
}

func cloneOrder(o *types.Order) *types.Order {
	cp := *o
	cp.Items = append([]types.OrderItem{}, o.Items...)
	if o.ShippingAddress != nil {
		addr := *o.ShippingAddress
		cp.ShippingAddress = &addr
	}
	if o.Payment != nil {
		p := *o.Payment
		cp.Payment = &p
	}
	return &cp
}
