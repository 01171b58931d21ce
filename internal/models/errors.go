package models

import "errors"

// Error taxonomy shared by services and handlers
var (
	ErrNotFound           = errors.New("not found")
	ErrAccessDenied       = errors.New("access denied")
	ErrValidation         = errors.New("validation failed")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrNotEnoughStock     = errors.New("not enough stock")
	ErrAlreadyPaid        = errors.New("order is already paid")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrPaymentDeclined    = errors.New("payment declined")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrPaymentInProgress  = errors.New("payment already in progress")
)
