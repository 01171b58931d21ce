package payment

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ashendes/storefront/internal/events"
	"github.com/ashendes/storefront/internal/inventory"
	"github.com/ashendes/storefront/internal/lock"
	"github.com/ashendes/storefront/internal/models"
	ordersvc "github.com/ashendes/storefront/internal/order"
	"github.com/ashendes/storefront/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGateway struct {
	err     error
	txID    string
	charges []Charge
}

func (g *stubGateway) Charge(_ context.Context, charge Charge) (Receipt, error) {
	g.charges = append(g.charges, charge)
	if g.err != nil {
		return Receipt{}, g.err
	}
	return Receipt{TransactionID: g.txID}, nil
}

// blockingGateway holds the charge open until proceed is closed
type blockingGateway struct {
	entered chan struct{}
	proceed chan struct{}
}

func (g *blockingGateway) Charge(context.Context, Charge) (Receipt, error) {
	close(g.entered)
	<-g.proceed
	return Receipt{TransactionID: "tx-late"}, nil
}

type fixture struct {
	store     *store.MemoryStore
	gateway   *stubGateway
	locker    *lock.LocalLocker
	publisher *events.MemoryPublisher
	svc       *Service
	order     *models.Order
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

	s := store.NewMemoryStore()
	order := &models.Order{
		ID:          "order-1",
		OrderNumber: "ORD-1-AAAAAAAAA",
		UserID:      "user-1",
		OrderItems:  []models.OrderItem{{ProductID: "P1", Price: 10, Quantity: 2}},
		PaymentInfo: models.PaymentInfo{Method: models.PaymentMethodCreditCard, Status: models.PaymentStatusPending},
		TotalPrice:  20,
		OrderStatus: models.OrderStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, s.Orders().Insert(context.Background(), order))

	gw := &stubGateway{txID: "tx-42"}
	locker := lock.NewLocalLocker()
	pub := &events.MemoryPublisher{}
	svc := NewService(s, gw, locker, pub, time.Minute)
	svc.now = func() time.Time { return now }

	return &fixture{store: s, gateway: gw, locker: locker, publisher: pub, svc: svc, order: order}
}

func request(orderID string) models.ProcessPaymentRequest {
	return models.ProcessPaymentRequest{OrderID: orderID, PaymentMethod: models.PaymentMethodStripe}
}

func TestProcess_Success(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	order, err := f.svc.Process(ctx, "user-1", request("order-1"))
	require.NoError(t, err)

	assert.True(t, order.IsPaid())
	assert.Equal(t, "tx-42", order.PaymentInfo.TransactionID)
	assert.Equal(t, models.PaymentMethodStripe, order.PaymentInfo.Method)
	require.NotNil(t, order.PaymentInfo.PaidAt)

	last := order.StatusHistory[len(order.StatusHistory)-1]
	assert.Equal(t, models.HistoryPaymentCompleted, last.Status)
	assert.Equal(t, "Payment completed via stripe", last.Note)
	assert.Equal(t, models.OrderStatusPending, order.OrderStatus)

	require.Len(t, f.gateway.charges, 1)
	assert.Equal(t, 20.0, f.gateway.charges[0].Amount)

	stored, err := f.store.Orders().Get(ctx, "order-1")
	require.NoError(t, err)
	assert.True(t, stored.IsPaid())

	msgs := f.publisher.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, events.PaymentCompletedRoutingKey, msgs[0].RoutingKey)
}

func TestProcess_AlreadyPaid(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Process(ctx, "user-1", request("order-1"))
	require.NoError(t, err)

	_, err = f.svc.Process(ctx, "user-1", request("order-1"))
	assert.ErrorIs(t, err, models.ErrAlreadyPaid)
	assert.Len(t, f.gateway.charges, 1)
}

func TestProcess_Declined(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.gateway.err = fmt.Errorf("order-1: %w", models.ErrPaymentDeclined)

	_, err := f.svc.Process(ctx, "user-1", request("order-1"))
	assert.ErrorIs(t, err, models.ErrPaymentDeclined)

	stored, err := f.store.Orders().Get(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusFailed, stored.PaymentInfo.Status)
	assert.Nil(t, stored.PaymentInfo.PaidAt)
	assert.Empty(t, f.publisher.Messages())
}

func TestProcess_GatewayUnavailableLeavesOrderUntouched(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.gateway.err = fmt.Errorf("%w: connection refused", models.ErrGatewayUnavailable)

	_, err := f.svc.Process(ctx, "user-1", request("order-1"))
	assert.ErrorIs(t, err, models.ErrGatewayUnavailable)

	stored, err := f.store.Orders().Get(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, stored.PaymentInfo.Status)
}

func TestProcess_Rejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Process(ctx, "user-2", request("order-1"))
	assert.ErrorIs(t, err, models.ErrAccessDenied)

	_, err = f.svc.Process(ctx, "user-1", request("missing"))
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = f.svc.Process(ctx, "user-1", models.ProcessPaymentRequest{OrderID: "order-1", PaymentMethod: "gold"})
	assert.ErrorIs(t, err, models.ErrValidation)

	assert.Empty(t, f.gateway.charges)
}

func TestProcess_CancelledOrderIsNotCharged(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	cancelled := *f.order
	cancelled.OrderStatus = models.OrderStatusCancelled
	require.NoError(t, f.store.Orders().Update(ctx, &cancelled))

	_, err := f.svc.Process(ctx, "user-1", request("order-1"))
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
	assert.Empty(t, f.gateway.charges)
}

func TestProcess_CancellationDuringChargeWins(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.store.Products().Insert(ctx, &models.Product{
		ID: "P1", Name: "Widget", Price: 10, CountInStock: 8, SoldCount: 2, IsActive: true,
	}))

	gw := &blockingGateway{entered: make(chan struct{}), proceed: make(chan struct{})}
	f.svc.gateway = gw
	orders := ordersvc.NewService(f.store, inventory.NewService(f.store.Products()), f.publisher, f.locker, time.Minute)

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.Process(ctx, "user-1", request("order-1"))
		done <- err
	}()
	<-gw.entered

	_, err := orders.UpdateStatus(ctx, "order-1", models.UpdateStatusRequest{Status: "cancelled"})
	require.NoError(t, err)
	close(gw.proceed)

	assert.ErrorIs(t, <-done, models.ErrInvalidTransition)

	stored, err := f.store.Orders().Get(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, stored.OrderStatus)
	assert.False(t, stored.IsPaid())
	assert.Empty(t, stored.PaymentInfo.TransactionID)

	p1, err := f.store.Products().Get(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, 10, p1.CountInStock)
	assert.Equal(t, 0, p1.SoldCount)

	for _, msg := range f.publisher.Messages() {
		assert.NotEqual(t, events.PaymentCompletedRoutingKey, msg.RoutingKey)
	}
}

func TestProcess_ConcurrentAttemptIsRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	release, err := f.locker.Acquire(ctx, lock.PaymentKey("order-1"), time.Minute)
	require.NoError(t, err)

	_, err = f.svc.Process(ctx, "user-1", request("order-1"))
	assert.ErrorIs(t, err, models.ErrPaymentInProgress)

	release()
	_, err = f.svc.Process(ctx, "user-1", request("order-1"))
	assert.NoError(t, err)
}

func TestStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	status, err := f.svc.Status(ctx, "user-1", "order-1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, status.PaymentStatus)

	_, err = f.svc.Process(ctx, "user-1", request("order-1"))
	require.NoError(t, err)

	status, err = f.svc.Status(ctx, "user-1", "order-1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, status.PaymentStatus)
	assert.Equal(t, "tx-42", status.TransactionID)
	assert.NotNil(t, status.PaidAt)

	_, err = f.svc.Status(ctx, "user-2", "order-1")
	assert.ErrorIs(t, err, models.ErrAccessDenied)
}
