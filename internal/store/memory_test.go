package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ashendes/storefront/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSeededStore(t *testing.T) *MemoryStore {
	t.Helper()
	s := NewMemoryStore()
	require.NoError(t, Seed(context.Background(), s))
	return s
}

func TestSeed_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newSeededStore(t)

	require.NoError(t, Seed(ctx, s))

	_, total, err := s.Products().List(ctx, models.ProductFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, len(SampleProducts(time.Now())), total)
}

func TestAdjustStock_DecrementMovesSoldCount(t *testing.T) {
	ctx := context.Background()
	s := newSeededStore(t)

	p, err := s.Products().AdjustStock(ctx, models.StockAdjustment{ProductID: "prod-go-book", Delta: -3})
	require.NoError(t, err)
	assert.Equal(t, 97, p.CountInStock)
	assert.Equal(t, 3, p.SoldCount)
}

func TestAdjustStock_RefusesNegativeStock(t *testing.T) {
	ctx := context.Background()
	s := newSeededStore(t)

	_, err := s.Products().AdjustStock(ctx, models.StockAdjustment{ProductID: "prod-airpods-pro", Delta: -9})
	assert.ErrorIs(t, err, models.ErrInsufficientStock)

	p, err := s.Products().Get(ctx, "prod-airpods-pro")
	require.NoError(t, err)
	assert.Equal(t, 8, p.CountInStock)
}

func TestAdjustStock_UnknownProduct(t *testing.T) {
	_, err := NewMemoryStore().Products().AdjustStock(context.Background(), models.StockAdjustment{ProductID: "nope", Delta: -1})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestRunInTx_RollsBackEveryWriteOnError(t *testing.T) {
	ctx := context.Background()
	s := newSeededStore(t)
	now := time.Now()

	cart := models.NewCart("user-1", now)
	cart.AddItem("prod-go-book", 1, "", "", 39.99, now)
	require.NoError(t, s.Carts().Save(ctx, cart))

	boom := errors.New("boom")
	err := s.RunInTx(ctx, func(ctx context.Context) error {
		require.NoError(t, s.Orders().Insert(ctx, &models.Order{ID: "order-1", UserID: "user-1", OrderStatus: models.OrderStatusPending}))
		_, err := s.Products().AdjustStock(ctx, models.StockAdjustment{ProductID: "prod-go-book", Delta: -1})
		require.NoError(t, err)

		cart.Clear(now)
		require.NoError(t, s.Carts().Save(ctx, cart))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.Orders().Get(ctx, "order-1")
	assert.ErrorIs(t, err, models.ErrNotFound)

	p, err := s.Products().Get(ctx, "prod-go-book")
	require.NoError(t, err)
	assert.Equal(t, 100, p.CountInStock)
	assert.Equal(t, 0, p.SoldCount)

	stored, err := s.Carts().GetByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, stored.Items, 1)
}

func TestRunInTx_RollbackKeepsWritesMadeOutsideIt(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Orders().Insert(ctx, &models.Order{ID: "bob-order", UserID: "bob", OrderStatus: models.OrderStatusPending}))

	inTx := make(chan struct{})
	fail := make(chan struct{})
	txDone := make(chan error, 1)
	go func() {
		txDone <- s.RunInTx(ctx, func(ctx context.Context) error {
			if err := s.Orders().Insert(ctx, &models.Order{ID: "alice-order", UserID: "alice"}); err != nil {
				return err
			}
			close(inTx)
			<-fail
			return errors.New("boom")
		})
	}()
	<-inTx

	paidDone := make(chan error, 1)
	go func() {
		o, err := s.Orders().Get(ctx, "bob-order")
		if err != nil {
			paidDone <- err
			return
		}
		o.MarkPaid(models.PaymentMethodCOD, "tx-bob", time.Now())
		paidDone <- s.Orders().Update(ctx, o)
	}()

	time.Sleep(20 * time.Millisecond)
	close(fail)
	require.Error(t, <-txDone)
	require.NoError(t, <-paidDone)

	bob, err := s.Orders().Get(ctx, "bob-order")
	require.NoError(t, err)
	assert.True(t, bob.IsPaid())
	assert.Equal(t, "tx-bob", bob.PaymentInfo.TransactionID)

	_, err = s.Orders().Get(ctx, "alice-order")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestRunInTx_NestedCallJoinsOuter(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	boom := errors.New("boom")
	err := s.RunInTx(ctx, func(ctx context.Context) error {
		require.NoError(t, s.RunInTx(ctx, func(ctx context.Context) error {
			return s.Orders().Insert(ctx, &models.Order{ID: "inner", UserID: "user-1"})
		}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.Orders().Get(ctx, "inner")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestRunInTx_CommitsOnSuccess(t *testing.T) {
	ctx := context.Background()
	s := newSeededStore(t)

	err := s.RunInTx(ctx, func(ctx context.Context) error {
		return s.Orders().Insert(ctx, &models.Order{ID: "order-1", UserID: "user-1"})
	})
	require.NoError(t, err)

	_, err = s.Orders().Get(ctx, "order-1")
	assert.NoError(t, err)
}

func TestOrders_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Orders().Insert(ctx, &models.Order{ID: id, UserID: "user-1", OrderStatus: models.OrderStatusPending}))
	}
	require.NoError(t, s.Orders().Insert(ctx, &models.Order{ID: "d", UserID: "user-2", OrderStatus: models.OrderStatusShipped}))

	mine, err := s.Orders().ListByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, mine, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{mine[0].ID, mine[1].ID, mine[2].ID})

	shipped, err := s.Orders().List(ctx, models.OrderStatusShipped)
	require.NoError(t, err)
	require.Len(t, shipped, 1)
	assert.Equal(t, "d", shipped[0].ID)

	all, err := s.Orders().List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestOrders_ReturnedCopiesAreIsolated(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Orders().Insert(ctx, &models.Order{ID: "a", OrderStatus: models.OrderStatusPending}))

	o, err := s.Orders().Get(ctx, "a")
	require.NoError(t, err)
	o.OrderStatus = models.OrderStatusCancelled
	o.AppendHistory("cancelled", "", time.Now())

	again, err := s.Orders().Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, again.OrderStatus)
	assert.Empty(t, again.StatusHistory)
}

func TestOrders_Stats(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now()

	paid := &models.Order{ID: "a", OrderStatus: models.OrderStatusShipped, TotalPrice: 10.10}
	paid.MarkPaid(models.PaymentMethodCOD, "tx", now)
	require.NoError(t, s.Orders().Insert(ctx, paid))
	require.NoError(t, s.Orders().Insert(ctx, &models.Order{ID: "b", OrderStatus: models.OrderStatusPending, TotalPrice: 99}))

	stats, err := s.Orders().Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.TotalOrders)
	assert.EqualValues(t, 1, stats.PaidOrders)
	assert.InDelta(t, 10.10, stats.Revenue, 1e-9)
	assert.EqualValues(t, 1, stats.OrdersByStatus[models.OrderStatusPending])
}

func TestProducts_ListPaginatesAndFilters(t *testing.T) {
	ctx := context.Background()
	s := newSeededStore(t)

	page, total, err := s.Products().List(ctx, models.ProductFilter{Category: "electronics", Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, page, 2)

	page, _, err = s.Products().List(ctx, models.ProductFilter{Category: "electronics", Page: 5, Limit: 2})
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestProducts_LowStock(t *testing.T) {
	ctx := context.Background()
	s := newSeededStore(t)

	low, err := s.Products().LowStock(ctx)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "prod-airpods-pro", low[0].ID)
}
