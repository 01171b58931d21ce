package models

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the fulfilment state of an order
type OrderStatus string

// OrderStatus constants
const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// HistoryPaymentCompleted is the history marker appended when payment succeeds
const HistoryPaymentCompleted = "payment_completed"

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusDelivered:  {},
	OrderStatusCancelled:  {},
}

// ParseOrderStatus validates a raw status value
func ParseOrderStatus(raw string) (OrderStatus, error) {
	status := OrderStatus(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := orderTransitions[status]; !ok {
		return "", fmt.Errorf("%w: unknown order status %q", ErrValidation, raw)
	}
	return status, nil
}

// IsTerminal reports whether no further transitions are allowed
func (s OrderStatus) IsTerminal() bool {
	return len(orderTransitions[s]) == 0
}

// CanTransitionTo reports whether next is reachable from s in one step
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// PaymentMethod is the way the customer pays
type PaymentMethod string

// PaymentMethod constants
const (
	PaymentMethodCreditCard PaymentMethod = "credit_card"
	PaymentMethodDebitCard  PaymentMethod = "debit_card"
	PaymentMethodPayPal     PaymentMethod = "paypal"
	PaymentMethodStripe     PaymentMethod = "stripe"
	PaymentMethodCOD        PaymentMethod = "cod"
)

// Valid reports whether m is a supported payment method
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCreditCard, PaymentMethodDebitCard, PaymentMethodPayPal, PaymentMethodStripe, PaymentMethodCOD:
		return true
	}
	return false
}

// PaymentStatus is the settlement state of an order payment
type PaymentStatus string

// PaymentStatus constants
const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// OrderItem is a denormalised copy of a cart line taken at checkout
type OrderItem struct {
	ProductID     string  `json:"product" bson:"product"`
	Name          string  `json:"name" bson:"name"`
	Image         string  `json:"image" bson:"image"`
	Price         float64 `json:"price" bson:"price"`
	Quantity      int     `json:"quantity" bson:"quantity"`
	SelectedColor string  `json:"selectedColor" bson:"selectedColor"`
	SelectedSize  string  `json:"selectedSize" bson:"selectedSize"`
}

// Subtotal returns price × quantity
func (i OrderItem) Subtotal() decimal.Decimal {
	return decimal.NewFromFloat(i.Price).Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ShippingAddress is where the order is delivered
type ShippingAddress struct {
	FullName string `json:"fullName" bson:"fullName" binding:"required"`
	Address  string `json:"address" bson:"address" binding:"required"`
	City     string `json:"city" bson:"city" binding:"required"`
	State    string `json:"state" bson:"state" binding:"required"`
	ZipCode  string `json:"zipCode" bson:"zipCode" binding:"required"`
	Country  string `json:"country" bson:"country" binding:"required"`
	Phone    string `json:"phone" bson:"phone" binding:"required"`
}

// PaymentInfo records how and whether an order was paid
type PaymentInfo struct {
	Method        PaymentMethod `json:"method" bson:"method"`
	Status        PaymentStatus `json:"status" bson:"status"`
	TransactionID string        `json:"transactionId" bson:"transactionId"`
	PaidAt        *time.Time    `json:"paidAt,omitempty" bson:"paidAt,omitempty"`
}

// StatusEntry is one line of the append-only status history
type StatusEntry struct {
	Status    string    `json:"status" bson:"status"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
	Note      string    `json:"note" bson:"note"`
}

// Order represents a placed customer order
type Order struct {
	ID              string          `json:"id" bson:"_id"`
	OrderNumber     string          `json:"orderNumber" bson:"orderNumber"`
	UserID          string          `json:"user" bson:"user"`
	OrderItems      []OrderItem     `json:"orderItems" bson:"orderItems"`
	ShippingAddress ShippingAddress `json:"shippingAddress" bson:"shippingAddress"`
	PaymentInfo     PaymentInfo     `json:"paymentInfo" bson:"paymentInfo"`
	ItemsPrice      float64         `json:"itemsPrice" bson:"itemsPrice"`
	TaxPrice        float64         `json:"taxPrice" bson:"taxPrice"`
	ShippingPrice   float64         `json:"shippingPrice" bson:"shippingPrice"`
	Discount        float64         `json:"discount" bson:"discount"`
	TotalPrice      float64         `json:"totalPrice" bson:"totalPrice"`
	CouponCode      string          `json:"couponCode" bson:"couponCode"`
	OrderNotes      string          `json:"orderNotes" bson:"orderNotes"`
	OrderStatus     OrderStatus     `json:"orderStatus" bson:"orderStatus"`
	StatusHistory   []StatusEntry   `json:"statusHistory" bson:"statusHistory"`
	TrackingNumber  string          `json:"trackingNumber" bson:"trackingNumber"`
	DeliveredAt     *time.Time      `json:"deliveredAt,omitempty" bson:"deliveredAt,omitempty"`
	CreatedAt       time.Time       `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt" bson:"updatedAt"`
}

// ComputedItemsPrice sums the line subtotals
func (o *Order) ComputedItemsPrice() float64 {
	total := decimal.Zero
	for _, item := range o.OrderItems {
		total = total.Add(item.Subtotal())
	}
	return total.Round(2).InexactFloat64()
}

// ComputedTotalPrice returns items + tax + shipping - discount
func (o *Order) ComputedTotalPrice() float64 {
	return decimal.NewFromFloat(o.ItemsPrice).
		Add(decimal.NewFromFloat(o.TaxPrice)).
		Add(decimal.NewFromFloat(o.ShippingPrice)).
		Sub(decimal.NewFromFloat(o.Discount)).
		Round(2).
		InexactFloat64()
}

// IsPaid reports whether payment has completed
func (o *Order) IsPaid() bool {
	return o.PaymentInfo.Status == PaymentStatusCompleted
}

// AppendHistory adds a status history entry
func (o *Order) AppendHistory(status, note string, now time.Time) {
	o.StatusHistory = append(o.StatusHistory, StatusEntry{
		Status:    status,
		Timestamp: now,
		Note:      note,
	})
	o.UpdatedAt = now
}

// ApplyStatus moves the order to next if the transition table allows it
func (o *Order) ApplyStatus(next OrderStatus, note string, now time.Time) error {
	if !o.OrderStatus.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.OrderStatus, next)
	}

	o.OrderStatus = next
	o.AppendHistory(string(next), note, now)
	if next == OrderStatusDelivered {
		delivered := now
		o.DeliveredAt = &delivered
	}
	return nil
}

// CheckPayable refuses payment on cancelled or already paid orders
func (o *Order) CheckPayable() error {
	switch {
	case o.OrderStatus == OrderStatusCancelled:
		return fmt.Errorf("%w: order %s is cancelled", ErrInvalidTransition, o.ID)
	case o.IsPaid():
		return fmt.Errorf("order %s: %w", o.ID, ErrAlreadyPaid)
	}
	return nil
}

// MarkPaid records a completed payment
func (o *Order) MarkPaid(method PaymentMethod, transactionID string, now time.Time) {
	paidAt := now
	if method != "" {
		o.PaymentInfo.Method = method
	}
	o.PaymentInfo.Status = PaymentStatusCompleted
	o.PaymentInfo.TransactionID = transactionID
	o.PaymentInfo.PaidAt = &paidAt
	o.UpdatedAt = now
}

// MarkPaymentFailed records a declined payment
func (o *Order) MarkPaymentFailed(now time.Time) {
	o.PaymentInfo.Status = PaymentStatusFailed
	o.UpdatedAt = now
}

const orderNumberAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewOrderNumber returns ORD-<unix millis>-<9 uppercase alphanumerics>
func NewOrderNumber(now time.Time) string {
	suffix := make([]byte, 9)
	for i := range suffix {
		suffix[i] = orderNumberAlphabet[rand.Intn(len(orderNumberAlphabet))]
	}
	return fmt.Sprintf("ORD-%d-%s", now.UnixMilli(), suffix)
}

// CreateOrderRequest represents the checkout request
type CreateOrderRequest struct {
	ShippingAddress ShippingAddress `json:"shippingAddress" binding:"required"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod" binding:"required"`
	ItemsPrice      float64         `json:"itemsPrice" binding:"gte=0"`
	TaxPrice        float64         `json:"taxPrice" binding:"gte=0"`
	ShippingPrice   float64         `json:"shippingPrice" binding:"gte=0"`
	Discount        float64         `json:"discount" binding:"gte=0"`
	TotalPrice      float64         `json:"totalPrice" binding:"gte=0"`
	CouponCode      string          `json:"couponCode"`
	OrderNotes      string          `json:"orderNotes"`
}

// UpdateStatusRequest represents an admin status change
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note"`
}

// MarkPaidRequest represents the owner marking an order paid
type MarkPaidRequest struct {
	TransactionID string `json:"transactionId"`
}

// OrderResponse wraps an order in the response envelope
type OrderResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Order   *Order `json:"order"`
}

// OrderListResponse wraps a list of orders in the response envelope
type OrderListResponse struct {
	Success bool     `json:"success"`
	Orders  []*Order `json:"orders"`
}

// OrderStats summarises orders and stock for the admin dashboard
type OrderStats struct {
	TotalOrders      int64                 `json:"totalOrders"`
	Revenue          float64               `json:"revenue"`
	PaidOrders       int64                 `json:"paidOrders"`
	OrdersByStatus   map[OrderStatus]int64 `json:"ordersByStatus"`
	LowStockProducts []*Product            `json:"lowStockProducts"`
}
