package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ashendes/storefront/internal/models"
	"github.com/shopspring/decimal"
)

// MemoryStore keeps everything in process. Transactions are serialised and
// rolled back by restoring a snapshot taken when they start. Writes made
// outside a transaction wait for the running one to finish, so a rollback
// never discards them.
type MemoryStore struct {
	mu       sync.RWMutex
	txMu     sync.Mutex
	products map[string]*models.Product
	carts    map[string]*models.Cart // user id -> cart
	orders   map[string]*models.Order
	orderSeq []string // insertion order
	now      func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products: make(map[string]*models.Product),
		carts:    make(map[string]*models.Cart),
		orders:   make(map[string]*models.Order),
		now:      time.Now,
	}
}

func (s *MemoryStore) Products() ProductRepository { return memoryProducts{s} }
func (s *MemoryStore) Carts() CartRepository       { return memoryCarts{s} }
func (s *MemoryStore) Orders() OrderRepository     { return memoryOrders{s} }

func (s *MemoryStore) Close(context.Context) error { return nil }

type memorySnapshot struct {
	products map[string]*models.Product
	carts    map[string]*models.Cart
	orders   map[string]*models.Order
	orderSeq []string
}

type txKey struct{}

// RunInTx runs fn and restores the pre-transaction state if it fails.
// A call made with a transaction context joins that transaction.
func (s *MemoryStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *MemoryStore) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*MemoryStore)
	return owner == s
}

// writeLock holds off transactions for the length of a write made outside one
func (s *MemoryStore) writeLock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.txMu.Lock()
	return s.txMu.Unlock
}

func (s *MemoryStore) snapshot() memorySnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := memorySnapshot{
		products: make(map[string]*models.Product, len(s.products)),
		carts:    make(map[string]*models.Cart, len(s.carts)),
		orders:   make(map[string]*models.Order, len(s.orders)),
		orderSeq: append([]string(nil), s.orderSeq...),
	}
	for id, p := range s.products {
		snap.products[id] = cloneProduct(p)
	}
	for id, c := range s.carts {
		snap.carts[id] = cloneCart(c)
	}
	for id, o := range s.orders {
		snap.orders[id] = cloneOrder(o)
	}
	return snap
}

func (s *MemoryStore) restore(snap memorySnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.products = snap.products
	s.carts = snap.carts
	s.orders = snap.orders
	s.orderSeq = snap.orderSeq
}

type memoryProducts struct{ s *MemoryStore }

func (r memoryProducts) Get(_ context.Context, id string) (*models.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.products[id]
	if !ok {
		return nil, fmt.Errorf("product %s: %w", id, models.ErrNotFound)
	}
	return cloneProduct(p), nil
}

func (r memoryProducts) List(_ context.Context, filter models.ProductFilter) ([]*models.Product, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	matched := make([]*models.Product, 0, len(r.s.products))
	for _, p := range r.s.products {
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		matched = append(matched, p)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Name == matched[j].Name {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].Name < matched[j].Name
	})

	total := int64(len(matched))
	start, end := pageBounds(len(matched), filter.Page, filter.Limit)

	out := make([]*models.Product, 0, end-start)
	for _, p := range matched[start:end] {
		out = append(out, cloneProduct(p))
	}
	return out, total, nil
}

func (r memoryProducts) Insert(ctx context.Context, product *models.Product) error {
	defer r.s.writeLock(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.products[product.ID]; exists {
		return fmt.Errorf("product %s already exists", product.ID)
	}
	r.s.products[product.ID] = cloneProduct(product)
	return nil
}

func (r memoryProducts) SetStock(ctx context.Context, id string, stock int) (int, error) {
	defer r.s.writeLock(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.products[id]
	if !ok {
		return 0, fmt.Errorf("product %s: %w", id, models.ErrNotFound)
	}
	previous := p.CountInStock
	p.CountInStock = stock
	p.UpdatedAt = r.s.now()
	return previous, nil
}

func (r memoryProducts) AdjustStock(ctx context.Context, adj models.StockAdjustment) (*models.Product, error) {
	defer r.s.writeLock(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.products[adj.ProductID]
	if !ok {
		return nil, fmt.Errorf("product %s: %w", adj.ProductID, models.ErrNotFound)
	}
	if p.CountInStock+adj.Delta < 0 {
		return nil, fmt.Errorf("product %s has %d, needs %d: %w", p.ID, p.CountInStock, -adj.Delta, models.ErrInsufficientStock)
	}

	p.CountInStock += adj.Delta
	p.SoldCount -= adj.Delta
	p.UpdatedAt = r.s.now()
	return cloneProduct(p), nil
}

func (r memoryProducts) LowStock(_ context.Context) ([]*models.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var low []*models.Product
	for _, p := range r.s.products {
		if p.IsActive && p.IsLowStock() {
			low = append(low, cloneProduct(p))
		}
	}
	sort.Slice(low, func(i, j int) bool { return low[i].CountInStock < low[j].CountInStock })
	return low, nil
}

type memoryCarts struct{ s *MemoryStore }

func (r memoryCarts) GetByUser(_ context.Context, userID string) (*models.Cart, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.carts[userID]
	if !ok {
		return nil, fmt.Errorf("cart for user %s: %w", userID, models.ErrNotFound)
	}
	return cloneCart(c), nil
}

func (r memoryCarts) Save(ctx context.Context, cart *models.Cart) error {
	defer r.s.writeLock(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.carts[cart.UserID] = cloneCart(cart)
	return nil
}

type memoryOrders struct{ s *MemoryStore }

func (r memoryOrders) Insert(ctx context.Context, order *models.Order) error {
	defer r.s.writeLock(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.orders[order.ID]; exists {
		return fmt.Errorf("order %s already exists", order.ID)
	}
	r.s.orders[order.ID] = cloneOrder(order)
	r.s.orderSeq = append(r.s.orderSeq, order.ID)
	return nil
}

func (r memoryOrders) Get(_ context.Context, id string) (*models.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	o, ok := r.s.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id, models.ErrNotFound)
	}
	return cloneOrder(o), nil
}

func (r memoryOrders) ListByUser(_ context.Context, userID string) ([]*models.Order, error) {
	return r.newestFirst(func(o *models.Order) bool { return o.UserID == userID }), nil
}

func (r memoryOrders) List(_ context.Context, status models.OrderStatus) ([]*models.Order, error) {
	return r.newestFirst(func(o *models.Order) bool {
		return status == "" || o.OrderStatus == status
	}), nil
}

func (r memoryOrders) newestFirst(keep func(*models.Order) bool) []*models.Order {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*models.Order{}
	for i := len(r.s.orderSeq) - 1; i >= 0; i-- {
		o := r.s.orders[r.s.orderSeq[i]]
		if keep(o) {
			out = append(out, cloneOrder(o))
		}
	}
	return out
}

func (r memoryOrders) Update(ctx context.Context, order *models.Order) error {
	defer r.s.writeLock(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.orders[order.ID]; !ok {
		return fmt.Errorf("order %s: %w", order.ID, models.ErrNotFound)
	}
	r.s.orders[order.ID] = cloneOrder(order)
	return nil
}

func (r memoryOrders) Stats(_ context.Context) (models.OrderStats, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	stats := models.OrderStats{OrdersByStatus: make(map[models.OrderStatus]int64)}
	revenue := decimal.Zero
	for _, o := range r.s.orders {
		stats.TotalOrders++
		stats.OrdersByStatus[o.OrderStatus]++
		if o.IsPaid() {
			stats.PaidOrders++
			revenue = revenue.Add(decimal.NewFromFloat(o.TotalPrice))
		}
	}
	stats.Revenue = revenue.Round(2).InexactFloat64()
	return stats, nil
}

func pageBounds(n, page, limit int) (int, int) {
	if limit <= 0 {
		return 0, n
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * limit
	if start > n {
		start = n
	}
	end := start + limit
	if end > n {
		end = n
	}
	return start, end
}

func cloneProduct(p *models.Product) *models.Product {
	c := *p
	c.Images = append([]string(nil), p.Images...)
	c.Colors = append([]string(nil), p.Colors...)
	c.Sizes = append([]string(nil), p.Sizes...)
	return &c
}

func cloneCart(cart *models.Cart) *models.Cart {
	c := *cart
	c.Items = make([]models.CartItem, len(cart.Items))
	copy(c.Items, cart.Items)
	for i := range c.Items {
		c.Items[i].Product = nil
	}
	return &c
}

func cloneOrder(order *models.Order) *models.Order {
	o := *order
	o.OrderItems = append([]models.OrderItem(nil), order.OrderItems...)
	o.StatusHistory = append([]models.StatusEntry(nil), order.StatusHistory...)
	if order.PaymentInfo.PaidAt != nil {
		paidAt := *order.PaymentInfo.PaidAt
		o.PaymentInfo.PaidAt = &paidAt
	}
	if order.DeliveredAt != nil {
		deliveredAt := *order.DeliveredAt
		o.DeliveredAt = &deliveredAt
	}
	return &o
}
