package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// ActiveStatuses are the non-terminal states; an order in one of them still holds reserved stock.
var ActiveStatuses = []Status{StatusPending, StatusConfirmed, StatusShipped}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed out of s.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Forward reports whether s can be set directly by an admin.
func (s Status) Forward() bool {
	return s == StatusConfirmed || s == StatusShipped || s == StatusDelivered
}

type Actor string

const (
	ActorUser  Actor = "user"
	ActorAdmin Actor = "admin"
)

type CustomerDetails struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// ProductSummary is the display view of a line item's product, resolved at read time.
type ProductSummary struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category"`
	Image    string          `json:"image"`
}

// LineItem holds a weak product reference; Product is nil once the product is gone.
type LineItem struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Product   *ProductSummary `json:"product"`
}

func (li LineItem) Subtotal() decimal.Decimal {
	return li.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Available reports whether the referenced product still resolved when the order was read.
func (li LineItem) Available() bool { return li.Product != nil }

type Cancellation struct {
	At     time.Time `json:"cancelledAt"`
	By     Actor     `json:"cancelledBy"`
	Reason string    `json:"cancellationReason"`
}

type Owner struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

type Order struct {
	ID           string          `json:"id"`
	UserID       string          `json:"userId"`
	Owner        *Owner          `json:"user,omitempty"`
	Items        []LineItem      `json:"items"`
	TotalAmount  decimal.Decimal `json:"totalAmount"`
	Customer     CustomerDetails `json:"customerDetails"`
	PaymentMode  string          `json:"paymentMode"`
	Status       Status          `json:"status"`
	Cancellation *Cancellation   `json:"cancellation,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// OwnedBy reports whether userID placed the order.
func (o *Order) OwnedBy(userID string) bool { return o.UserID == userID }

// References reports whether any line item points at productID.
func (o *Order) References(productID string) bool {
	for _, it := range o.Items {
		if it.ProductID == productID {
			return true
		}
	}
	return false
}

// Total sums the frozen line prices. Only used at creation time.
func Total(items []LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.Subtotal())
	}
	return sum
}
