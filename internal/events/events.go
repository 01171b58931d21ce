// Package events publishes order domain events after their transaction commits.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/ashendes/storefront/internal/models"
	log "github.com/sirupsen/logrus"
)

// Routing keys
const (
	OrderPlacedRoutingKey      = "order.placed"
	OrderStatusRoutingKey      = "order.status"
	PaymentCompletedRoutingKey = "payment.completed"
)

// Publisher delivers an event payload under a routing key
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload interface{}) error
	Close() error
}

// OrderPlaced is emitted once checkout commits
type OrderPlaced struct {
	OrderID     string             `json:"order_id"`
	OrderNumber string             `json:"order_number"`
	UserID      string             `json:"user_id"`
	Items       []models.OrderItem `json:"items"`
	TotalPrice  float64            `json:"total_price"`
	CreatedAt   string             `json:"created_at"`
}

// OrderStatusChanged is emitted after an admin status transition
type OrderStatusChanged struct {
	OrderID   string `json:"order_id"`
	UserID    string `json:"user_id"`
	From      string `json:"from"`
	To        string `json:"to"`
	Note      string `json:"note,omitempty"`
	ChangedAt string `json:"changed_at"`
}

// PaymentCompleted is emitted when an order is marked paid
type PaymentCompleted struct {
	OrderID       string  `json:"order_id"`
	UserID        string  `json:"user_id"`
	TransactionID string  `json:"transaction_id"`
	Method        string  `json:"method"`
	Amount        float64 `json:"amount"`
	PaidAt        string  `json:"paid_at"`
}

// NewOrderPlaced builds the event for a freshly created order
func NewOrderPlaced(o *models.Order) OrderPlaced {
	return OrderPlaced{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		UserID:      o.UserID,
		Items:       o.OrderItems,
		TotalPrice:  o.TotalPrice,
		CreatedAt:   o.CreatedAt.Format(time.RFC3339),
	}
}

// NewPaymentCompleted builds the event for a paid order
func NewPaymentCompleted(o *models.Order) PaymentCompleted {
	paidAt := ""
	if o.PaymentInfo.PaidAt != nil {
		paidAt = o.PaymentInfo.PaidAt.Format(time.RFC3339)
	}
	return PaymentCompleted{
		OrderID:       o.ID,
		UserID:        o.UserID,
		TransactionID: o.PaymentInfo.TransactionID,
		Method:        string(o.PaymentInfo.Method),
		Amount:        o.TotalPrice,
		PaidAt:        paidAt,
	}
}

// PublishAndLog publishes and only logs a failure; events never fail a request
func PublishAndLog(ctx context.Context, p Publisher, routingKey string, payload interface{}) {
	if err := p.Publish(ctx, routingKey, payload); err != nil {
		log.WithFields(log.Fields{
			"routing_key": routingKey,
			"error":       err.Error(),
		}).Warn("Failed to publish event")
	}
}

// NoopPublisher drops every event
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, interface{}) error { return nil }
func (NoopPublisher) Close() error                                       { return nil }

// Message is an event captured by MemoryPublisher
type Message struct {
	RoutingKey string
	Payload    interface{}
}

// MemoryPublisher records events in order
type MemoryPublisher struct {
	mu       sync.Mutex
	messages []Message
}

func (p *MemoryPublisher) Publish(_ context.Context, routingKey string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, Message{RoutingKey: routingKey, Payload: payload})
	return nil
}

func (p *MemoryPublisher) Close() error { return nil }

// Messages returns a copy of everything published so far
func (p *MemoryPublisher) Messages() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Message(nil), p.messages...)
}
