package models

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderStatus_TransitionTable(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		allowed  bool
	}{
		{OrderStatusPending, OrderStatusProcessing, true},
		{OrderStatusProcessing, OrderStatusShipped, true},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusProcessing, OrderStatusCancelled, true},
		{OrderStatusShipped, OrderStatusCancelled, true},
		{OrderStatusPending, OrderStatusDelivered, false},
		{OrderStatusPending, OrderStatusShipped, false},
		{OrderStatusDelivered, OrderStatusCancelled, false},
		{OrderStatusCancelled, OrderStatusPending, false},
		{OrderStatusShipped, OrderStatusProcessing, false},
		{OrderStatusPending, OrderStatusPending, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}

	assert.True(t, OrderStatusDelivered.IsTerminal())
	assert.True(t, OrderStatusCancelled.IsTerminal())
	assert.False(t, OrderStatusShipped.IsTerminal())
}

func TestParseOrderStatus(t *testing.T) {
	s, err := ParseOrderStatus(" Shipped ")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusShipped, s)

	_, err = ParseOrderStatus("lost-in-mail")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestOrder_ApplyStatus_AppendsHistoryAndStampsDelivery(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	o := &Order{OrderStatus: OrderStatusPending}

	require.NoError(t, o.ApplyStatus(OrderStatusProcessing, "", now))
	require.NoError(t, o.ApplyStatus(OrderStatusShipped, "via courier", now.Add(time.Hour)))
	assert.Nil(t, o.DeliveredAt)

	require.NoError(t, o.ApplyStatus(OrderStatusDelivered, "", now.Add(2*time.Hour)))
	require.NotNil(t, o.DeliveredAt)
	assert.Equal(t, now.Add(2*time.Hour), *o.DeliveredAt)

	require.Len(t, o.StatusHistory, 3)
	assert.Equal(t, "shipped", o.StatusHistory[1].Status)
	assert.Equal(t, "via courier", o.StatusHistory[1].Note)
}

func TestOrder_ApplyStatus_RejectsIllegalJump(t *testing.T) {
	o := &Order{OrderStatus: OrderStatusPending}

	err := o.ApplyStatus(OrderStatusDelivered, "", time.Now())

	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, OrderStatusPending, o.OrderStatus)
	assert.Empty(t, o.StatusHistory)
	assert.Nil(t, o.DeliveredAt)
}

func TestOrder_Prices(t *testing.T) {
	o := &Order{
		OrderItems: []OrderItem{
			{Price: 10, Quantity: 2},
			{Price: 0.1, Quantity: 3},
		},
		TaxPrice:      1.5,
		ShippingPrice: 4,
		Discount:      2,
	}

	o.ItemsPrice = o.ComputedItemsPrice()
	assert.InDelta(t, 20.3, o.ItemsPrice, 1e-9)
	assert.InDelta(t, 23.8, o.ComputedTotalPrice(), 1e-9)
}

func TestOrder_MarkPaidAndFailed(t *testing.T) {
	now := time.Now()
	o := &Order{PaymentInfo: PaymentInfo{Method: PaymentMethodCOD, Status: PaymentStatusPending}}

	o.MarkPaymentFailed(now)
	assert.Equal(t, PaymentStatusFailed, o.PaymentInfo.Status)
	assert.False(t, o.IsPaid())

	o.MarkPaid(PaymentMethodPayPal, "tx-1", now)
	assert.True(t, o.IsPaid())
	assert.Equal(t, PaymentMethodPayPal, o.PaymentInfo.Method)
	assert.Equal(t, "tx-1", o.PaymentInfo.TransactionID)
	require.NotNil(t, o.PaymentInfo.PaidAt)
}

func TestOrder_CheckPayable(t *testing.T) {
	o := &Order{ID: "o-1", OrderStatus: OrderStatusPending, PaymentInfo: PaymentInfo{Status: PaymentStatusFailed}}
	assert.NoError(t, o.CheckPayable())

	o.MarkPaid(PaymentMethodCOD, "tx-1", time.Now())
	assert.ErrorIs(t, o.CheckPayable(), ErrAlreadyPaid)

	cancelled := &Order{ID: "o-2", OrderStatus: OrderStatusCancelled}
	assert.ErrorIs(t, cancelled.CheckPayable(), ErrInvalidTransition)
}

func TestNewOrderNumber(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	n := NewOrderNumber(now)

	assert.Regexp(t, regexp.MustCompile(`^ORD-1700000000123-[A-Z0-9]{9}$`), n)
}

func TestPaymentMethod_Valid(t *testing.T) {
	assert.True(t, PaymentMethodStripe.Valid())
	assert.False(t, PaymentMethod("barter").Valid())
}
