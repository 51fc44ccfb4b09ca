package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	domain "github.com/aq2208/gorder-shop/internal/entity"
	"github.com/aq2208/gorder-shop/internal/usecase"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceOrder_ReservesStockAndFreezesPrice(t *testing.T) {
	ctx := context.Background()
	s := newShop(t)
	s.seedProduct(t, "p1", "10.00", 5)
	s.seedProduct(t, "p2", "2.50", 3)

	o := s.order(t, "u1", item("p1", 2), item("p2", 1))
	assert.Equal(t, domain.StatusPending, o.Status)
	assert.Equal(t, "22.5", o.TotalAmount.String())
	assert.Equal(t, 3, s.stock(t, "p1"))
	assert.Equal(t, 2, s.stock(t, "p2"))
	assert.Equal(t, []string{usecase.RoutingOrderPlaced}, s.events.keys())

	p, err := s.store.Products().GetByID(ctx, "p1")
	require.NoError(t, err)
	p.Price = decimal.RequireFromString("99.00")
	require.NoError(t, s.store.Products().Update(ctx, p))

	got, err := s.queries.Get(ctx, customer("u1"), o.ID)
	require.NoError(t, err)
	assert.True(t, got.Items[0].Price.Equal(decimal.RequireFromString("10.00")), "line price is frozen")
	assert.True(t, got.TotalAmount.Equal(decimal.RequireFromString("22.50")))
	assert.Equal(t, "99", got.Items[0].Product.Price.String(), "display view shows the current price")
}

func TestPlaceOrder_InsufficientStockLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	s := newShop(t)
	s.seedProduct(t, "p1", "10.00", 1)

	_, err := s.place.Execute(ctx, placeInput("u1", item("p1", 2)))
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.EqualError(t, err, "Insufficient stock for Product p1")
	assert.Equal(t, 1, s.stock(t, "p1"))

	mine, err := s.queries.Mine(ctx, customer("u1"))
	require.NoError(t, err)
	assert.Empty(t, mine)
	assert.Empty(t, s.events.keys())
}

func TestPlaceOrder_AllOrNothing(t *testing.T) {
	ctx := context.Background()
	s := newShop(t)
	s.seedProduct(t, "p1", "1.00", 5)
	s.seedProduct(t, "p2", "1.00", 1)

	_, err := s.place.Execute(ctx, placeInput("u1", item("p1", 2), item("p2", 2)))
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, 5, s.stock(t, "p1"), "earlier items are not left reserved")
	assert.Equal(t, 1, s.stock(t, "p2"))

	_, err = s.place.Execute(ctx, placeInput("u1", item("p1", 1), item("ghost", 1)))
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.EqualError(t, err, "Product not found: ghost")
	assert.Equal(t, 5, s.stock(t, "p1"))
}

func TestPlaceOrder_InvalidItems(t *testing.T) {
	ctx := context.Background()
	s := newShop(t)
	s.seedProduct(t, "p1", "1.00", 5)

	cases := []struct {
		name  string
		items []usecase.ReserveItem
	}{
		{"empty", nil},
		{"zero quantity", []usecase.ReserveItem{item("p1", 0)}},
		{"negative quantity", []usecase.ReserveItem{item("p1", -1)}},
		{"missing product id", []usecase.ReserveItem{item("", 1)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.place.Execute(ctx, placeInput("u1", tc.items...))
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.Equal(t, 5, s.stock(t, "p1"))
		})
	}
}

func TestPlaceOrder_NoOversellUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	s := newShop(t)
	s.seedProduct(t, "p1", "3.00", 7)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.place.Execute(ctx, placeInput("u1", item("p1", 1)))
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, domain.ErrInsufficientStock)
		}()
	}
	wg.Wait()

	assert.Equal(t, 7, succeeded)
	assert.Equal(t, 0, s.stock(t, "p1"))

	mine, err := s.queries.Mine(ctx, customer("u1"))
	require.NoError(t, err)
	reserved := 0
	for _, o := range mine {
		for _, it := range o.Items {
			reserved += it.Quantity
		}
	}
	assert.Equal(t, 7, reserved+s.stock(t, "p1"), "initial stock == remaining + held by active orders")
}

func TestPlaceOrder_IdempotencyKey(t *testing.T) {
	ctx := context.Background()
	s := newShop(t)
	s.seedProduct(t, "p1", "5.00", 10)

	in := placeInput("u1", item("p1", 2))
	in.IdempotencyKey = "k-1"

	first, err := s.place.Execute(ctx, in)
	require.NoError(t, err)
	replay, err := s.place.Execute(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, first.ID, replay.ID)
	assert.Equal(t, 8, s.stock(t, "p1"), "replay reserves nothing")

	// another request with the same key still in flight
	locked, err := s.idem.TryLock(ctx, "u1", "k-2")
	require.NoError(t, err)
	require.True(t, locked)
	in.IdempotencyKey = "k-2"
	_, err = s.place.Execute(ctx, in)
	assert.True(t, errors.Is(err, usecase.ErrDuplicate))
	assert.Equal(t, 8, s.stock(t, "p1"))
}

func TestPlaceOrder_FailedAttemptReleasesIdempotencyKey(t *testing.T) {
	ctx := context.Background()
	s := newShop(t)
	s.seedProduct(t, "p1", "5.00", 1)

	in := placeInput("u1", item("p1", 2))
	in.IdempotencyKey = "k-retry"
	_, err := s.place.Execute(ctx, in)
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	in.Items = []usecase.ReserveItem{item("p1", 1)}
	o, err := s.place.Execute(ctx, in)
	require.NoError(t, err, "retry after a failure is not a duplicate")
	assert.Len(t, o.Items, 1)
}
