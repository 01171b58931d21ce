// Package store persists products, carts and orders. Every repository call
// takes the context handed to RunInTx so it joins the surrounding transaction.
package store

import (
	"context"

	"github.com/ashendes/storefront/internal/models"
)

// ProductRepository persists catalogue items and their stock counters
type ProductRepository interface {
	Get(ctx context.Context, id string) (*models.Product, error)
	List(ctx context.Context, filter models.ProductFilter) ([]*models.Product, int64, error)
	Insert(ctx context.Context, product *models.Product) error
	// SetStock overwrites the stock counter and returns the previous value.
	SetStock(ctx context.Context, id string, stock int) (int, error)
	// AdjustStock adds Delta to stock and subtracts it from the sold counter.
	// A negative resulting stock fails with models.ErrInsufficientStock.
	AdjustStock(ctx context.Context, adj models.StockAdjustment) (*models.Product, error)
	LowStock(ctx context.Context) ([]*models.Product, error)
}

// CartRepository persists one cart per user
type CartRepository interface {
	GetByUser(ctx context.Context, userID string) (*models.Cart, error)
	Save(ctx context.Context, cart *models.Cart) error
}

// OrderRepository persists orders
type OrderRepository interface {
	Insert(ctx context.Context, order *models.Order) error
	Get(ctx context.Context, id string) (*models.Order, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Order, error)
	// List returns all orders newest first; an empty status returns every status.
	List(ctx context.Context, status models.OrderStatus) ([]*models.Order, error)
	Update(ctx context.Context, order *models.Order) error
	Stats(ctx context.Context) (models.OrderStats, error)
}

// Store groups the repositories with a transaction boundary
type Store interface {
	Products() ProductRepository
	Carts() CartRepository
	Orders() OrderRepository
	// RunInTx runs fn atomically; if fn returns an error nothing it wrote is kept.
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
	Close(ctx context.Context) error
}
