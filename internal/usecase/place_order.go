package usecase

import (
	"context"
	"errors"
	"time"

	domain "github.com/aq2208/gorder-shop/internal/entity"
	"github.com/aq2208/gorder-shop/internal/logging"
	"github.com/google/uuid"
)

var ErrDuplicate = errors.New("duplicate idempotency key")

type PlaceOrderInput struct {
	UserID, IdempotencyKey, PaymentMode string
	Items                               []ReserveItem
	Customer                            domain.CustomerDetails
}

type PlaceOrder struct {
	tx      TxRunner
	orders  OrderRepo
	inv     *Inventory
	idem    IdempotencyStore // optional
	events  EventPublisher   // optional
	metrics OrderMetrics     // optional
}

func NewPlaceOrder(tx TxRunner, orders OrderRepo, inv *Inventory, idem IdempotencyStore, events EventPublisher, metrics OrderMetrics) *PlaceOrder {
	return &PlaceOrder{tx: tx, orders: orders, inv: inv, idem: idem, events: events, metrics: metrics}
}

func (uc *PlaceOrder) Execute(ctx context.Context, in PlaceOrderInput) (*domain.Order, error) {
	useIdem := uc.idem != nil && in.IdempotencyKey != ""
	if useIdem {
		// Fast path: idempotency recall
		if id, ok, _ := uc.idem.Recall(ctx, in.UserID, in.IdempotencyKey); ok {
			return uc.orders.GetByID(ctx, id)
		}
		ok, err := uc.idem.TryLock(ctx, in.UserID, in.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrDuplicate
		}
	}

	order, err := uc.place(ctx, in)
	if err != nil {
		if useIdem {
			_ = uc.idem.Unlock(ctx, in.UserID, in.IdempotencyKey)
		}
		return nil, err
	}

	if useIdem {
		_ = uc.idem.Remember(ctx, in.UserID, in.IdempotencyKey, order.ID)
	}
	return order, nil
}

func (uc *PlaceOrder) place(ctx context.Context, in PlaceOrderInput) (*domain.Order, error) {
	now := time.Now().UTC()
	order := &domain.Order{
		ID:          uuid.NewString(),
		UserID:      in.UserID,
		Customer:    in.Customer,
		PaymentMode: in.PaymentMode,
		Status:      domain.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		lines, total, err := uc.inv.Reserve(ctx, in.Items)
		if err != nil {
			return err
		}
		order.Items = lines
		order.TotalAmount = total
		return uc.orders.Create(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	uc.inv.Forget(ctx, order.Items)
	if uc.metrics != nil {
		uc.metrics.OrderPlaced(order.TotalAmount)
	}
	logging.FromCtx(ctx).Info("order placed",
		"order_id", order.ID, "user_id", order.UserID, "items", len(order.Items), "total", order.TotalAmount.String())

	placed, err := uc.orders.GetByID(ctx, order.ID)
	if err != nil {
		// committed; fall back to the unresolved snapshot
		placed = order
	}
	publish(ctx, uc.events, RoutingOrderPlaced, placed, "")
	return placed, nil
}

// publish is best-effort: the state change is already committed.
func publish(ctx context.Context, events EventPublisher, routingKey string, o *domain.Order, reason string) {
	if events == nil {
		return
	}
	msg := OrderEventMsg{
		OrderID:     o.ID,
		UserID:      o.UserID,
		Status:      string(o.Status),
		TotalAmount: o.TotalAmount.StringFixed(2),
		Email:       o.Customer.Email,
		Name:        o.Customer.Name,
		Reason:      reason,
		At:          time.Now().UTC(),
	}
	if err := events.Publish(ctx, routingKey, msg); err != nil {
		logging.FromCtx(ctx).Warn("publish order event failed", "routing_key", routingKey, "order_id", o.ID, "err", err)
	}
}
