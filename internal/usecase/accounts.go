package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/aq2208/gorder-shop/internal/entity"
	"github.com/aq2208/gorder-shop/internal/logging"
	"github.com/aq2208/gorder-shop/internal/security"
)

type Accounts struct {
	tx      TxRunner
	users   UserRepo
	orders  OrderRepo
	inv     *Inventory
	metrics OrderMetrics // optional
}

func NewAccounts(tx TxRunner, users UserRepo, orders OrderRepo, inv *Inventory, metrics OrderMetrics) *Accounts {
	return &Accounts{tx: tx, users: users, orders: orders, inv: inv, metrics: metrics}
}

func (a *Accounts) List(ctx context.Context, caller security.Identity) ([]domain.User, error) {
	if !caller.IsAdmin() {
		return nil, domain.AccessDenied("Admin access required")
	}
	return a.users.List(ctx)
}

func (a *Accounts) Update(ctx context.Context, caller security.Identity, id, name, email string) (*domain.User, error) {
	if !caller.IsAdmin() {
		return nil, domain.AccessDenied("Admin access required")
	}
	u, err := a.getUser(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Name = strings.TrimSpace(name)
	u.Email = strings.TrimSpace(email)
	if u.Name == "" || u.Email == "" {
		return nil, domain.Invalid("name and email are required")
	}
	if err := a.users.Update(ctx, u); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFound("User not found")
		}
		return nil, err
	}
	return u, nil
}

type DeleteUserResult struct {
	CancelledOrders int
	DeletedOrders   int64
}

// Delete removes a user and all their orders. Orders that still hold stock are cancelled
// first so their reservation goes back on the shelf; delivered and already cancelled
// orders are removed as they are.
func (a *Accounts) Delete(ctx context.Context, caller security.Identity, id string) (DeleteUserResult, error) {
	if !caller.IsAdmin() {
		return DeleteUserResult{}, domain.AccessDenied("Admin access required")
	}

	var (
		res      DeleteUserResult
		released []domain.LineItem
	)
	err := a.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := a.getUser(ctx, id); err != nil {
			return err
		}
		orders, err := a.orders.ListByUser(ctx, id)
		if err != nil {
			return err
		}

		c := domain.Cancellation{At: time.Now().UTC(), By: domain.ActorAdmin, Reason: accountDeletedReason}
		for i := range orders {
			o := &orders[i]
			if o.Status.Terminal() {
				continue
			}
			if err := cancel(ctx, a.orders, a.inv, o, c); err != nil {
				return err
			}
			res.CancelledOrders++
			released = append(released, o.Items...)
		}

		if res.DeletedOrders, err = a.orders.DeleteByUser(ctx, id); err != nil {
			return err
		}
		if err := a.users.Delete(ctx, id); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.NotFound("User not found")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return DeleteUserResult{}, err
	}

	a.inv.Forget(ctx, released)
	if a.metrics != nil {
		for i := 0; i < res.CancelledOrders; i++ {
			a.metrics.OrderCancelled(domain.ActorAdmin)
		}
	}
	logging.FromCtx(ctx).Info("user deleted",
		"user_id", id, "cancelled_orders", res.CancelledOrders, "deleted_orders", res.DeletedOrders)
	return res, nil
}

func (a *Accounts) getUser(ctx context.Context, id string) (*domain.User, error) {
	u, err := a.users.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NotFound("User not found")
	}
	return u, err
}
