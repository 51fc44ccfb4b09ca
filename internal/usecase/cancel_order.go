package usecase

import (
	"context"
	"errors"
	"time"

	domain "github.com/aq2208/gorder-shop/internal/entity"
	"github.com/aq2208/gorder-shop/internal/logging"
	"github.com/aq2208/gorder-shop/internal/security"
)

const (
	defaultUserReason    = "No reason provided"
	defaultAdminReason   = "Cancelled by admin"
	accountDeletedReason = "User account deleted"
)

type CancelOrderInput struct {
	OrderID string
	Caller  security.Identity
	Reason  string
}

type CancelOrder struct {
	tx      TxRunner
	orders  OrderRepo
	inv     *Inventory
	events  EventPublisher // optional
	metrics OrderMetrics   // optional
}

func NewCancelOrder(tx TxRunner, orders OrderRepo, inv *Inventory, events EventPublisher, metrics OrderMetrics) *CancelOrder {
	return &CancelOrder{tx: tx, orders: orders, inv: inv, events: events, metrics: metrics}
}

func (uc *CancelOrder) Execute(ctx context.Context, in CancelOrderInput) (*domain.Order, error) {
	c := domain.Cancellation{
		At:     time.Now().UTC(),
		By:     in.Caller.Actor(),
		Reason: in.Reason,
	}
	if c.Reason == "" {
		c.Reason = defaultUserReason
		if c.By == domain.ActorAdmin {
			c.Reason = defaultAdminReason
		}
	}

	var order *domain.Order
	err := uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		o, err := getOrder(ctx, uc.orders, in.OrderID)
		if err != nil {
			return err
		}
		if !in.Caller.CanAccess(o.UserID) {
			return domain.AccessDenied("Access denied")
		}
		if err := cancel(ctx, uc.orders, uc.inv, o, c); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.inv.Forget(ctx, order.Items)
	if uc.metrics != nil {
		uc.metrics.OrderCancelled(c.By)
	}
	logging.FromCtx(ctx).Info("order cancelled", "order_id", order.ID, "by", c.By, "reason", c.Reason)

	if cur, err := uc.orders.GetByID(ctx, order.ID); err == nil {
		order = cur
	}
	publish(ctx, uc.events, RoutingOrderCancelled, order, c.Reason)
	return order, nil
}

// cancel performs the → cancelled transition and releases the order's stock. Winning the
// guarded status update is what entitles the caller to release, so stock comes back once.
func cancel(ctx context.Context, orders OrderRepo, inv *Inventory, o *domain.Order, c domain.Cancellation) error {
	if o.Status.Terminal() {
		return domain.InvalidTransition("Cannot cancel %s order", o.Status)
	}
	ok, err := orders.MarkCancelled(ctx, o.ID, c)
	if err != nil {
		return err
	}
	if !ok {
		cur, err := getOrder(ctx, orders, o.ID)
		if err != nil {
			return err
		}
		return domain.InvalidTransition("Cannot cancel %s order", cur.Status)
	}
	if err := inv.Release(ctx, o); err != nil {
		return err
	}
	o.Status = domain.StatusCancelled
	o.Cancellation = &c
	return nil
}

func getOrder(ctx context.Context, orders OrderRepo, id string) (*domain.Order, error) {
	o, err := orders.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NotFound("Order not found")
	}
	return o, err
}
