package queue

import (
	"context"

	"github.com/aq2208/gorder-shop/internal/logging"
	"github.com/aq2208/gorder-shop/internal/usecase"
)

// Notifier delivers a customer-facing message about an order. Email delivery lives
// outside this service.
type Notifier interface {
	Notify(ctx context.Context, to, subject, body string) error
}

// LogNotifier records notifications in the service log.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, to, subject, body string) error {
	logging.FromCtx(ctx).Info("notification", "to", to, "subject", subject, "body", body)
	return nil
}

// OrderNotificationHandler turns order events into customer notifications.
type OrderNotificationHandler struct {
	N Notifier
}

func NewOrderNotificationHandler(n Notifier) *OrderNotificationHandler {
	return &OrderNotificationHandler{N: n}
}

// HandleEvent is intended to be used with the JSON adapter (queue.JSONHandler[usecase.OrderEventMsg]).
func (h *OrderNotificationHandler) HandleEvent(ctx context.Context, msg usecase.OrderEventMsg) error {
	if msg.Email == "" {
		// nothing to address; ack and move on
		return nil
	}
	subject, body := render(msg)
	return h.N.Notify(ctx, msg.Email, subject, body)
}

func render(msg usecase.OrderEventMsg) (subject, body string) {
	name := msg.Name
	if name == "" {
		name = "customer"
	}
	switch msg.Status {
	case "pending":
		return "Order received", "Hi " + name + ", we received your order " + msg.OrderID + " totalling " + msg.TotalAmount + "."
	case "cancelled":
		return "Order cancelled", "Hi " + name + ", your order " + msg.OrderID + " was cancelled: " + msg.Reason + "."
	default:
		return "Order " + msg.Status, "Hi " + name + ", your order " + msg.OrderID + " is now " + msg.Status + "."
	}
}
