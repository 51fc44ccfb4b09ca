package usecase_test

import (
	"context"
	"testing"

	domain "github.com/aq2208/gorder-shop/internal/entity"
	"github.com/aq2208/gorder-shop/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetOrderStatus(t *testing.T) {
	ctx := context.Background()
	s := newShop(t)
	s.seedProduct(t, "p1", "1.00", 5)
	o := s.order(t, "u1", item("p1", 1))

	_, err := s.status.Execute(ctx, customer("u1"), o.ID, domain.StatusShipped)
	assert.ErrorIs(t, err, domain.ErrAccessDenied)

	_, err = s.status.Execute(ctx, admin, o.ID, domain.StatusCancelled)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = s.status.Execute(ctx, admin, o.ID, domain.Status("lost"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = s.status.Execute(ctx, admin, "nope", domain.StatusShipped)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err := s.status.Execute(ctx, admin, o.ID, domain.StatusShipped)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusShipped, got.Status)
	assert.Equal(t, 4, s.stock(t, "p1"), "status changes do not touch stock")

	got, err = s.status.Execute(ctx, admin, o.ID, domain.StatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDelivered, got.Status)

	_, err = s.status.Execute(ctx, admin, o.ID, domain.StatusConfirmed)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	assert.Equal(t, []string{
		usecase.RoutingOrderPlaced, usecase.RoutingOrderStatusChanged, usecase.RoutingOrderStatusChanged,
	}, s.events.keys())
}

func TestOrderQueries(t *testing.T) {
	ctx := context.Background()
	s := newShop(t)
	s.seedUser(t, "u1")
	s.seedProduct(t, "p1", "1.00", 5)
	first := s.order(t, "u1", item("p1", 1))
	second := s.order(t, "u1", item("p1", 1))
	s.order(t, "u2", item("p1", 1))

	mine, err := s.queries.Mine(ctx, customer("u1"))
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].ID, "newest first")
	assert.Equal(t, first.ID, mine[1].ID)

	_, err = s.queries.All(ctx, customer("u1"))
	assert.ErrorIs(t, err, domain.ErrAccessDenied)

	all, err := s.queries.All(ctx, admin)
	require.NoError(t, err)
	require.Len(t, all, 3)
	var owner *domain.Owner
	for _, o := range all {
		if o.ID == first.ID {
			owner = o.Owner
		}
	}
	require.NotNil(t, owner)
	assert.Equal(t, "User u1", owner.Name)
}
