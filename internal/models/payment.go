package models

import "time"

// Transaction represents a charge recorded by the payment provider
type Transaction struct {
	ID        string        `json:"id"`
	OrderID   string        `json:"order_id"`
	Amount    float64       `json:"amount"`
	Method    PaymentMethod `json:"method"`
	Status    string        `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
}

// TransactionStatus constants
const (
	TransactionStatusPending   = "pending"
	TransactionStatusCompleted = "completed"
	TransactionStatusFailed    = "failed"
)

// ChargeRequest represents a payment charge request
type ChargeRequest struct {
	OrderID string        `json:"order_id" binding:"required"`
	Amount  float64       `json:"amount" binding:"gte=0"`
	Method  PaymentMethod `json:"method" binding:"required"`
}

// ChargeResponse represents a payment charge response
type ChargeResponse struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	Message       string `json:"message,omitempty"`
}

// ProcessPaymentRequest represents the storefront payment call
type ProcessPaymentRequest struct {
	OrderID        string                 `json:"orderId" binding:"required"`
	PaymentMethod  PaymentMethod          `json:"paymentMethod" binding:"required"`
	PaymentDetails map[string]interface{} `json:"paymentDetails"`
}

// ProcessPaymentResponse represents the result of a successful payment
type ProcessPaymentResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	TransactionID string `json:"transactionId"`
	Order         *Order `json:"order"`
}

// PaymentStatusResponse represents the payment state of an order
type PaymentStatusResponse struct {
	Success       bool          `json:"success"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	TransactionID string        `json:"transactionId"`
	PaidAt        *time.Time    `json:"paidAt,omitempty"`
}
