package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ashendes/storefront/internal/events"
	"github.com/ashendes/storefront/internal/lock"
	"github.com/ashendes/storefront/internal/metrics"
	"github.com/ashendes/storefront/internal/models"
	"github.com/ashendes/storefront/internal/store"
	log "github.com/sirupsen/logrus"
)

// Service processes payments for orders
type Service struct {
	store     store.Store
	gateway   Gateway
	locker    lock.Locker
	publisher events.Publisher
	lockTTL   time.Duration
	now       func() time.Time
}

// NewService creates a payment service
func NewService(st store.Store, gateway Gateway, locker lock.Locker, publisher events.Publisher, lockTTL time.Duration) *Service {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if lockTTL <= 0 {
		lockTTL = lock.DefaultTTL
	}
	return &Service{
		store:     st,
		gateway:   gateway,
		locker:    locker,
		publisher: publisher,
		lockTTL:   lockTTL,
		now:       time.Now,
	}
}

// Process charges the caller's order. Only one attempt per order runs at a time.
func (s *Service) Process(ctx context.Context, userID string, req models.ProcessPaymentRequest) (*models.Order, error) {
	if !req.PaymentMethod.Valid() {
		return nil, fmt.Errorf("%w: unsupported payment method %q", models.ErrValidation, req.PaymentMethod)
	}

	release, err := s.locker.Acquire(ctx, lock.PaymentKey(req.OrderID), s.lockTTL)
	if err != nil {
		if errors.Is(err, lock.ErrLocked) {
			return nil, fmt.Errorf("order %s: %w", req.OrderID, models.ErrPaymentInProgress)
		}
		return nil, fmt.Errorf("failed to lock order %s: %w", req.OrderID, err)
	}
	defer release()

	order, err := s.store.Orders().Get(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, fmt.Errorf("order %s: %w", req.OrderID, models.ErrAccessDenied)
	}
	if err := order.CheckPayable(); err != nil {
		return nil, err
	}

	logger := log.WithFields(log.Fields{
		"order_id": order.ID,
		"user_id":  userID,
		"amount":   order.TotalPrice,
		"method":   req.PaymentMethod,
	})

	receipt, err := s.gateway.Charge(ctx, Charge{
		OrderID: order.ID,
		Amount:  order.TotalPrice,
		Method:  req.PaymentMethod,
	})
	switch {
	case errors.Is(err, models.ErrPaymentDeclined):
		metrics.PaymentsTotal.WithLabelValues("declined").Inc()
		_, recordErr := s.record(ctx, order.ID, func(o *models.Order) {
			o.MarkPaymentFailed(s.now())
		})
		if recordErr != nil && !settled(recordErr) {
			return nil, fmt.Errorf("failed to record declined payment: %w", recordErr)
		}
		logger.Warn("Payment declined")
		return nil, err

	case err != nil:
		metrics.PaymentsTotal.WithLabelValues("unavailable").Inc()
		logger.WithFields(log.Fields{
			"error":        err.Error(),
			"circuit_open": IsCircuitOpen(err),
		}).Error("Payment gateway unavailable")
		return nil, err
	}

	paid, err := s.record(ctx, order.ID, func(o *models.Order) {
		now := s.now()
		o.MarkPaid(req.PaymentMethod, receipt.TransactionID, now)
		o.AppendHistory(models.HistoryPaymentCompleted, fmt.Sprintf("Payment completed via %s", req.PaymentMethod), now)
	})
	if err != nil {
		// the charge went through but was not recorded
		logger.WithFields(log.Fields{
			"transaction_id": receipt.TransactionID,
			"error":          err.Error(),
		}).Error("Failed to record completed payment")
		if settled(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}

	metrics.PaymentsTotal.WithLabelValues("completed").Inc()
	metrics.PaymentAmount.Observe(paid.TotalPrice)
	logger.WithField("transaction_id", receipt.TransactionID).Info("Payment processed successfully")

	events.PublishAndLog(ctx, s.publisher, events.PaymentCompletedRoutingKey, events.NewPaymentCompleted(paid))
	return paid, nil
}

// record re-reads the order in a transaction and applies change to its
// payment state, unless it was cancelled or paid in the meantime
func (s *Service) record(ctx context.Context, orderID string, change func(*models.Order)) (*models.Order, error) {
	var current *models.Order
	err := s.store.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		current, err = s.store.Orders().Get(ctx, orderID)
		if err != nil {
			return err
		}
		if err := current.CheckPayable(); err != nil {
			return err
		}
		change(current)
		return s.store.Orders().Update(ctx, current)
	})
	if err != nil {
		return nil, err
	}
	return current, nil
}

// settled reports an order that can no longer take a payment
func settled(err error) bool {
	return errors.Is(err, models.ErrInvalidTransition) || errors.Is(err, models.ErrAlreadyPaid)
}

// Circuit exposes the gateway's breaker when it has one
func (s *Service) Circuit() (CircuitReporter, bool) {
	reporter, ok := s.gateway.(CircuitReporter)
	return reporter, ok
}

// Status returns the payment state of the caller's order
func (s *Service) Status(ctx context.Context, userID, orderID string) (models.PaymentStatusResponse, error) {
	order, err := s.store.Orders().Get(ctx, orderID)
	if err != nil {
		return models.PaymentStatusResponse{}, err
	}
	if order.UserID != userID {
		return models.PaymentStatusResponse{}, fmt.Errorf("order %s: %w", orderID, models.ErrAccessDenied)
	}

	return models.PaymentStatusResponse{
		Success:       true,
		PaymentStatus: order.PaymentInfo.Status,
		TransactionID: order.PaymentInfo.TransactionID,
		PaidAt:        order.PaymentInfo.PaidAt,
	}, nil
}
