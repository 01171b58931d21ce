// Package inventory owns the product catalogue and its stock counters.
// Reserve and Release are meant to run inside a store transaction.
package inventory

import (
	"context"
	"fmt"

	"github.com/ashendes/storefront/internal/metrics"
	"github.com/ashendes/storefront/internal/models"
	"github.com/ashendes/storefront/internal/store"
	log "github.com/sirupsen/logrus"
)

const (
	defaultPageSize = 12
	maxPageSize     = 100
)

// Service manages inventory operations
type Service struct {
	products store.ProductRepository
}

// NewService creates an inventory service over the product repository
func NewService(products store.ProductRepository) *Service {
	return &Service{products: products}
}

// List returns one page of the catalogue
func (s *Service) List(ctx context.Context, filter models.ProductFilter) (models.ProductListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultPageSize
	}
	if filter.Limit > maxPageSize {
		filter.Limit = maxPageSize
	}

	products, total, err := s.products.List(ctx, filter)
	if err != nil {
		return models.ProductListResponse{}, fmt.Errorf("failed to list products: %w", err)
	}

	pages := int((total + int64(filter.Limit) - 1) / int64(filter.Limit))
	return models.ProductListResponse{
		Success:  true,
		Products: products,
		Total:    total,
		Page:     filter.Page,
		Pages:    pages,
	}, nil
}

// Get returns one product
func (s *Service) Get(ctx context.Context, id string) (*models.Product, error) {
	return s.products.Get(ctx, id)
}

// SetStock overwrites a product's stock counter
func (s *Service) SetStock(ctx context.Context, id string, stock int) (models.SetStockResponse, error) {
	if stock < 0 {
		return models.SetStockResponse{}, fmt.Errorf("%w: stock cannot be negative", models.ErrValidation)
	}

	previous, err := s.products.SetStock(ctx, id, stock)
	if err != nil {
		return models.SetStockResponse{}, err
	}

	metrics.InventoryLevel.WithLabelValues(id).Set(float64(stock))
	log.WithFields(log.Fields{
		"product_id": id,
		"old_stock":  previous,
		"new_stock":  stock,
	}).Info("Stock updated")

	return models.SetStockResponse{
		Success:  true,
		Message:  "Stock updated",
		OldStock: previous,
		NewStock: stock,
	}, nil
}

// Reserve decrements stock for every line. The first line that cannot be
// covered fails with models.ErrInsufficientStock; callers roll back by
// aborting the surrounding transaction.
func (s *Service) Reserve(ctx context.Context, items []models.OrderItem) ([]*models.Product, error) {
	updated := make([]*models.Product, 0, len(items))
	for _, item := range items {
		product, err := s.products.AdjustStock(ctx, models.StockAdjustment{
			ProductID: item.ProductID,
			Delta:     -item.Quantity,
		})
		if err != nil {
			return nil, fmt.Errorf("reserve %s x%d: %w", item.ProductID, item.Quantity, err)
		}
		updated = append(updated, product)
	}
	return updated, nil
}

// Release returns the stock of every line
func (s *Service) Release(ctx context.Context, items []models.OrderItem) ([]*models.Product, error) {
	updated := make([]*models.Product, 0, len(items))
	for _, item := range items {
		product, err := s.products.AdjustStock(ctx, models.StockAdjustment{
			ProductID: item.ProductID,
			Delta:     item.Quantity,
		})
		if err != nil {
			return nil, fmt.Errorf("release %s x%d: %w", item.ProductID, item.Quantity, err)
		}
		updated = append(updated, product)
	}
	return updated, nil
}

// LowStock lists active products at or under their threshold
func (s *Service) LowStock(ctx context.Context) ([]*models.Product, error) {
	return s.products.LowStock(ctx)
}

// RecordLevels sets the inventory gauge for the given products
func RecordLevels(products []*models.Product) {
	for _, p := range products {
		metrics.InventoryLevel.WithLabelValues(p.ID).Set(float64(p.CountInStock))
	}
}

// RecordCatalogue sets the inventory gauge for the whole catalogue
func (s *Service) RecordCatalogue(ctx context.Context) error {
	products, _, err := s.products.List(ctx, models.ProductFilter{})
	if err != nil {
		return fmt.Errorf("failed to list products: %w", err)
	}
	RecordLevels(products)
	return nil
}
