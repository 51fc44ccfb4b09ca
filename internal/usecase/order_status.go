package usecase

import (
	"context"

	domain "github.com/aq2208/gorder-shop/internal/entity"
	"github.com/aq2208/gorder-shop/internal/logging"
	"github.com/aq2208/gorder-shop/internal/security"
)

// SetOrderStatus is the admin-driven forward move (confirmed, shipped, delivered).
// Any active order may be set to any forward status; terminal orders never change.
type SetOrderStatus struct {
	orders OrderRepo
	events EventPublisher // optional
}

func NewSetOrderStatus(orders OrderRepo, events EventPublisher) *SetOrderStatus {
	return &SetOrderStatus{orders: orders, events: events}
}

func (uc *SetOrderStatus) Execute(ctx context.Context, caller security.Identity, id string, to domain.Status) (*domain.Order, error) {
	if !caller.IsAdmin() {
		return nil, domain.AccessDenied("Admin access required")
	}
	if to == domain.StatusCancelled {
		return nil, domain.Invalid("Use the cancel endpoint to cancel an order")
	}
	if !to.Forward() {
		return nil, domain.Invalid("Invalid status: %s", to)
	}

	ok, err := uc.orders.UpdateStatusIf(ctx, id, domain.ActiveStatuses, to)
	if err != nil {
		return nil, err
	}
	o, err := getOrder(ctx, uc.orders, id)
	if err != nil {
		return nil, err
	}
	if !ok && o.Status != to {
		return nil, domain.InvalidTransition("Cannot change status of %s order", o.Status)
	}

	logging.FromCtx(ctx).Info("order status set", "order_id", id, "status", to, "by", caller.UserID)
	publish(ctx, uc.events, RoutingOrderStatusChanged, o, "")
	return o, nil
}
