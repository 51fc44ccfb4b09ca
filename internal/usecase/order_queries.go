package usecase

import (
	"context"

	domain "github.com/aq2208/gorder-shop/internal/entity"
	"github.com/aq2208/gorder-shop/internal/security"
)

type OrderQueries struct {
	orders OrderRepo
}

func NewOrderQueries(orders OrderRepo) *OrderQueries {
	return &OrderQueries{orders: orders}
}

// Mine lists the caller's orders, newest first.
func (q *OrderQueries) Mine(ctx context.Context, caller security.Identity) ([]domain.Order, error) {
	return q.orders.ListByUser(ctx, caller.UserID)
}

// Get returns one order to its owner or an admin.
func (q *OrderQueries) Get(ctx context.Context, caller security.Identity, id string) (*domain.Order, error) {
	o, err := getOrder(ctx, q.orders, id)
	if err != nil {
		return nil, err
	}
	if !caller.CanAccess(o.UserID) {
		return nil, domain.AccessDenied("Access denied")
	}
	return o, nil
}

// All lists every order with its owner's name and email, newest first.
func (q *OrderQueries) All(ctx context.Context, caller security.Identity) ([]domain.Order, error) {
	if !caller.IsAdmin() {
		return nil, domain.AccessDenied("Admin access required")
	}
	return q.orders.ListAll(ctx)
}
