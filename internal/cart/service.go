// Package cart implements the per-user shopping cart.
package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ashendes/storefront/internal/metrics"
	"github.com/ashendes/storefront/internal/models"
	"github.com/ashendes/storefront/internal/store"
	log "github.com/sirupsen/logrus"
)

// Service manages cart operations
type Service struct {
	store store.Store
	now   func() time.Time
}

// NewService creates a cart service backed by s
func NewService(s store.Store) *Service {
	return &Service{store: s, now: time.Now}
}

// Get returns the user's cart, creating an empty one on first access
func (s *Service) Get(ctx context.Context, userID string) (*models.Cart, error) {
	cart, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.attachProducts(ctx, cart)
	return cart, nil
}

// Add puts quantity units of a product variant into the cart
func (s *Service) Add(ctx context.Context, userID string, req models.AddToCartRequest) (*models.Cart, error) {
	if req.Quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", models.ErrValidation)
	}

	product, err := s.store.Products().Get(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, fmt.Errorf("product %s: %w", req.ProductID, models.ErrNotFound)
	}
	if product.CountInStock < req.Quantity {
		return nil, fmt.Errorf("%w: only %d of %s available", models.ErrNotEnoughStock, product.CountInStock, product.Name)
	}

	cart, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	item := cart.AddItem(req.ProductID, req.Quantity, req.SelectedColor, req.SelectedSize, product.Price, s.now())
	if err := s.store.Carts().Save(ctx, cart); err != nil {
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}

	metrics.CartOperations.WithLabelValues("add").Inc()
	log.WithFields(log.Fields{
		"user_id":    userID,
		"product_id": req.ProductID,
		"item_id":    item.ID,
		"quantity":   item.Quantity,
	}).Info("Item added to cart")

	s.attachProducts(ctx, cart)
	return cart, nil
}

// UpdateQuantity sets the quantity of one cart line
func (s *Service) UpdateQuantity(ctx context.Context, userID, itemID string, quantity int) (*models.Cart, error) {
	return s.mutate(ctx, userID, "update", func(cart *models.Cart, now time.Time) error {
		return cart.UpdateItemQuantity(itemID, quantity, now)
	})
}

// Remove drops one cart line
func (s *Service) Remove(ctx context.Context, userID, itemID string) (*models.Cart, error) {
	return s.mutate(ctx, userID, "remove", func(cart *models.Cart, now time.Time) error {
		return cart.RemoveItem(itemID, now)
	})
}

// Clear empties the cart
func (s *Service) Clear(ctx context.Context, userID string) (*models.Cart, error) {
	return s.mutate(ctx, userID, "clear", func(cart *models.Cart, now time.Time) error {
		cart.Clear(now)
		return nil
	})
}

// mutate applies fn to an existing cart and saves it; there is no lazy creation here
func (s *Service) mutate(ctx context.Context, userID, operation string, fn func(*models.Cart, time.Time) error) (*models.Cart, error) {
	cart, err := s.store.Carts().GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := fn(cart, s.now()); err != nil {
		return nil, err
	}

	if err := s.store.Carts().Save(ctx, cart); err != nil {
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}

	metrics.CartOperations.WithLabelValues(operation).Inc()
	log.WithFields(log.Fields{
		"user_id":     userID,
		"operation":   operation,
		"total_items": cart.TotalItems,
	}).Info("Cart updated")

	s.attachProducts(ctx, cart)
	return cart, nil
}

func (s *Service) loadOrCreate(ctx context.Context, userID string) (*models.Cart, error) {
	cart, err := s.store.Carts().GetByUser(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	cart = models.NewCart(userID, s.now())
	if err := s.store.Carts().Save(ctx, cart); err != nil {
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}
	log.WithField("user_id", userID).Debug("Created empty cart")
	return cart, nil
}

// attachProducts fills the product summary of every line; lines whose
// product has disappeared are left without one.
func (s *Service) attachProducts(ctx context.Context, cart *models.Cart) {
	for i := range cart.Items {
		product, err := s.store.Products().Get(ctx, cart.Items[i].ProductID)
		if err != nil {
			log.WithFields(log.Fields{
				"product_id": cart.Items[i].ProductID,
				"error":      err.Error(),
			}).Debug("Cart line product unavailable")
			continue
		}
		cart.Items[i].Product = product.Summary()
	}
}
