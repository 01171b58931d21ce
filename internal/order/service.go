// Package order turns carts into orders and drives the fulfilment workflow.
package order

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ashendes/storefront/internal/events"
	"github.com/ashendes/storefront/internal/inventory"
	"github.com/ashendes/storefront/internal/lock"
	"github.com/ashendes/storefront/internal/metrics"
	"github.com/ashendes/storefront/internal/models"
	"github.com/ashendes/storefront/internal/store"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// priceTolerance is the largest itemsPrice drift accepted without a warning
const priceTolerance = 0.005

// Service manages order operations
type Service struct {
	store     store.Store
	inventory *inventory.Service
	publisher events.Publisher
	locker    lock.Locker
	lockTTL   time.Duration
	now       func() time.Time
}

// NewService creates an order service. locker must be the one the payment
// service uses so a manual payment never races a gateway charge.
func NewService(s store.Store, inv *inventory.Service, publisher events.Publisher, locker lock.Locker, lockTTL time.Duration) *Service {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if lockTTL <= 0 {
		lockTTL = lock.DefaultTTL
	}
	return &Service{
		store:     s,
		inventory: inv,
		publisher: publisher,
		locker:    locker,
		lockTTL:   lockTTL,
		now:       time.Now,
	}
}

// Create places an order from the user's cart. Order insert, stock
// reservation and cart clearing commit together or not at all.
func (s *Service) Create(ctx context.Context, userID string, req models.CreateOrderRequest) (*models.Order, error) {
	if !req.PaymentMethod.Valid() {
		metrics.OrdersTotal.WithLabelValues("validation_failed").Inc()
		return nil, fmt.Errorf("%w: unsupported payment method %q", models.ErrValidation, req.PaymentMethod)
	}

	var (
		order    *models.Order
		reserved []*models.Product
	)

	err := s.store.RunInTx(ctx, func(ctx context.Context) error {
		cart, err := s.store.Carts().GetByUser(ctx, userID)
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrEmptyCart
		}
		if err != nil {
			return err
		}
		if cart.IsEmpty() {
			return models.ErrEmptyCart
		}

		now := s.now()
		items, err := s.snapshot(ctx, cart)
		if err != nil {
			return err
		}

		order = newOrder(userID, items, req, now)

		reserved, err = s.inventory.Reserve(ctx, order.OrderItems)
		if err != nil {
			return err
		}

		if err := s.store.Orders().Insert(ctx, order); err != nil {
			return fmt.Errorf("failed to insert order: %w", err)
		}

		cart.Clear(now)
		if err := s.store.Carts().Save(ctx, cart); err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}
		return nil
	})
	if err != nil {
		metrics.OrdersTotal.WithLabelValues(createOutcome(err)).Inc()
		log.WithFields(log.Fields{
			"user_id": userID,
			"error":   err.Error(),
		}).Warn("Order creation failed")
		return nil, err
	}

	metrics.OrdersTotal.WithLabelValues("created").Inc()
	inventory.RecordLevels(reserved)

	log.WithFields(log.Fields{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"user_id":      userID,
		"items":        len(order.OrderItems),
		"total":        order.TotalPrice,
	}).Info("Order placed")

	events.PublishAndLog(ctx, s.publisher, events.OrderPlacedRoutingKey, events.NewOrderPlaced(order))
	return order, nil
}

// snapshot copies each cart line with the product's current name and image
func (s *Service) snapshot(ctx context.Context, cart *models.Cart) ([]models.OrderItem, error) {
	items := make([]models.OrderItem, 0, len(cart.Items))
	for _, line := range cart.Items {
		product, err := s.store.Products().Get(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}
		items = append(items, models.OrderItem{
			ProductID:     line.ProductID,
			Name:          product.Name,
			Image:         product.PrimaryImage(),
			Price:         line.Price,
			Quantity:      line.Quantity,
			SelectedColor: line.SelectedColor,
			SelectedSize:  line.SelectedSize,
		})
	}
	return items, nil
}

func newOrder(userID string, items []models.OrderItem, req models.CreateOrderRequest, now time.Time) *models.Order {
	order := &models.Order{
		ID:              uuid.New().String(),
		OrderNumber:     models.NewOrderNumber(now),
		UserID:          userID,
		OrderItems:      items,
		ShippingAddress: req.ShippingAddress,
		PaymentInfo: models.PaymentInfo{
			Method: req.PaymentMethod,
			Status: models.PaymentStatusPending,
		},
		ItemsPrice:    req.ItemsPrice,
		TaxPrice:      req.TaxPrice,
		ShippingPrice: req.ShippingPrice,
		Discount:      req.Discount,
		TotalPrice:    req.TotalPrice,
		CouponCode:    req.CouponCode,
		OrderNotes:    req.OrderNotes,
		OrderStatus:   models.OrderStatusPending,
		StatusHistory: []models.StatusEntry{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	computed := order.ComputedItemsPrice()
	switch {
	case order.ItemsPrice == 0:
		order.ItemsPrice = computed
	case math.Abs(order.ItemsPrice-computed) > priceTolerance:
		log.WithFields(log.Fields{
			"user_id":  userID,
			"supplied": order.ItemsPrice,
			"computed": computed,
		}).Warn("Supplied itemsPrice differs from cart contents")
	}
	if order.TotalPrice == 0 {
		order.TotalPrice = order.ComputedTotalPrice()
	}

	order.AppendHistory(string(models.OrderStatusPending), "Order placed", now)
	return order
}

func createOutcome(err error) string {
	switch {
	case errors.Is(err, models.ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, models.ErrInsufficientStock):
		return "insufficient_stock"
	default:
		return "failed"
	}
}

// Get returns an order visible to the caller
func (s *Service) Get(ctx context.Context, caller models.Caller, id string) (*models.Order, error) {
	order, err := s.store.Orders().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.CanAccess(order.UserID) {
		return nil, fmt.Errorf("order %s: %w", id, models.ErrAccessDenied)
	}
	return order, nil
}

// ListMine returns the caller's orders, newest first
func (s *Service) ListMine(ctx context.Context, userID string) ([]*models.Order, error) {
	return s.store.Orders().ListByUser(ctx, userID)
}

// ListAll returns every order, optionally narrowed to one status
func (s *Service) ListAll(ctx context.Context, rawStatus string) ([]*models.Order, error) {
	var status models.OrderStatus
	if rawStatus != "" {
		parsed, err := models.ParseOrderStatus(rawStatus)
		if err != nil {
			return nil, err
		}
		status = parsed
	}
	return s.store.Orders().List(ctx, status)
}

// MarkPaid records an externally completed payment on the caller's order
func (s *Service) MarkPaid(ctx context.Context, userID, id string, req models.MarkPaidRequest) (*models.Order, error) {
	release, err := s.locker.Acquire(ctx, lock.PaymentKey(id), s.lockTTL)
	if err != nil {
		if errors.Is(err, lock.ErrLocked) {
			return nil, fmt.Errorf("order %s: %w", id, models.ErrPaymentInProgress)
		}
		return nil, fmt.Errorf("failed to lock order %s: %w", id, err)
	}
	defer release()

	txID := req.TransactionID
	if txID == "" {
		txID = "manual_" + uuid.New().String()
	}

	var order *models.Order
	err = s.store.RunInTx(ctx, func(ctx context.Context) error {
		order, err = s.store.Orders().Get(ctx, id)
		if err != nil {
			return err
		}
		if order.UserID != userID {
			return fmt.Errorf("order %s: %w", id, models.ErrAccessDenied)
		}
		if err := order.CheckPayable(); err != nil {
			return err
		}

		now := s.now()
		order.MarkPaid("", txID, now)
		order.AppendHistory(models.HistoryPaymentCompleted, "Payment recorded by customer", now)
		return s.store.Orders().Update(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"order_id":       id,
		"user_id":        userID,
		"transaction_id": txID,
	}).Info("Order marked as paid")

	events.PublishAndLog(ctx, s.publisher, events.PaymentCompletedRoutingKey, events.NewPaymentCompleted(order))
	return order, nil
}

// UpdateStatus moves an order along the fulfilment workflow. Cancelling
// returns the reserved stock in the same transaction.
func (s *Service) UpdateStatus(ctx context.Context, id string, req models.UpdateStatusRequest) (*models.Order, error) {
	next, err := models.ParseOrderStatus(req.Status)
	if err != nil {
		return nil, err
	}

	var (
		order    *models.Order
		from     models.OrderStatus
		released []*models.Product
	)

	err = s.store.RunInTx(ctx, func(ctx context.Context) error {
		order, err = s.store.Orders().Get(ctx, id)
		if err != nil {
			return err
		}

		from = order.OrderStatus
		if err := order.ApplyStatus(next, req.Note, s.now()); err != nil {
			return err
		}

		if next == models.OrderStatusCancelled {
			released, err = s.inventory.Release(ctx, order.OrderItems)
			if err != nil {
				return err
			}
		}

		return s.store.Orders().Update(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	metrics.OrderStatusTransitions.WithLabelValues(string(from), string(next)).Inc()
	inventory.RecordLevels(released)

	log.WithFields(log.Fields{
		"order_id": id,
		"from":     from,
		"to":       next,
	}).Info("Order status updated")

	events.PublishAndLog(ctx, s.publisher, events.OrderStatusRoutingKey, events.OrderStatusChanged{
		OrderID:   order.ID,
		UserID:    order.UserID,
		From:      string(from),
		To:        string(next),
		Note:      req.Note,
		ChangedAt: order.UpdatedAt.Format(time.RFC3339),
	})
	return order, nil
}

// Stats summarises orders and low stock for the admin dashboard
func (s *Service) Stats(ctx context.Context) (models.OrderStats, error) {
	stats, err := s.store.Orders().Stats(ctx)
	if err != nil {
		return models.OrderStats{}, fmt.Errorf("failed to compute order stats: %w", err)
	}

	low, err := s.inventory.LowStock(ctx)
	if err != nil {
		return models.OrderStats{}, fmt.Errorf("failed to list low stock: %w", err)
	}
	stats.LowStockProducts = low
	return stats, nil
}
