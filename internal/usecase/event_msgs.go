package usecase

import "time"

const (
	RoutingOrderPlaced        = "order.placed"
	RoutingOrderCancelled     = "order.cancelled"
	RoutingOrderStatusChanged = "order.status_changed"
)

// Published on the order events exchange after the change is committed.
type OrderEventMsg struct {
	OrderID     string    `json:"orderId"`
	UserID      string    `json:"userId"`
	Status      string    `json:"status"`
	TotalAmount string    `json:"totalAmount"`
	Email       string    `json:"email,omitempty"`
	Name        string    `json:"name,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	At          time.Time `json:"at"`
}

// Sent by the fulfilment system on Kafka
type FulfilmentStatusMsg struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"` // CONFIRMED | SHIPPED | DELIVERED
}
