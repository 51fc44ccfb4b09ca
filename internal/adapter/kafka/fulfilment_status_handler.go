package kafka

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain "github.com/aq2208/gorder-shop/internal/entity"
	"github.com/aq2208/gorder-shop/internal/security"
	"github.com/aq2208/gorder-shop/internal/usecase"
)

// StatusSetter is the admin status use case as seen by the consumer.
type StatusSetter interface {
	Execute(ctx context.Context, caller security.Identity, id string, to domain.Status) (*domain.Order, error)
}

// FulfilmentStatusHandler applies warehouse progress (confirmed, shipped, delivered)
// to orders, acting as the back-office.
type FulfilmentStatusHandler struct {
	Orders StatusSetter
}

func NewFulfilmentStatusHandler(orders StatusSetter) *FulfilmentStatusHandler {
	return &FulfilmentStatusHandler{Orders: orders}
}

func (h *FulfilmentStatusHandler) Handle(ctx context.Context, ev usecase.FulfilmentStatusMsg) error {
	// Map external status -> internal
	var to domain.Status
	switch strings.ToUpper(ev.Status) {
	case "CONFIRMED":
		to = domain.StatusConfirmed
	case "SHIPPED":
		to = domain.StatusShipped
	case "DELIVERED":
		to = domain.StatusDelivered
	default:
		return fmt.Errorf("%w: unknown fulfilment status %q", ErrPermanent, ev.Status)
	}

	_, err := h.Orders.Execute(ctx, security.System, ev.OrderID, to)
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrInvalidInput):
		return fmt.Errorf("%w: %v", ErrPermanent, err)
	default:
		return err
	}
}
