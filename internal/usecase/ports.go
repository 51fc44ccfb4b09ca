package usecase

import (
	"context"
	"io"

	domain "github.com/aq2208/gorder-shop/internal/entity"
	"github.com/shopspring/decimal"
)

// TxRunner runs fn inside one all-or-nothing unit of work. Repositories called with the
// ctx handed to fn take part in that unit.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ProductRepo is the catalog store. Missing rows are reported as domain.ErrNotFound.
type ProductRepo interface {
	Create(ctx context.Context, p *domain.Product) error
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	// Lock reads the product and holds it against concurrent stock changes until the unit of work ends.
	Lock(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context, f domain.ProductFilter) ([]domain.Product, error)
	Update(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, id string) error

	// DecrementStock subtracts qty in one conditional step and returns the product after the change.
	// Fails with domain.ErrNotFound or domain.ErrInsufficientStock and then changes nothing.
	DecrementStock(ctx context.Context, id string, qty int) (*domain.Product, error)
	// IncrementStock adds qty back; false when the product no longer exists.
	IncrementStock(ctx context.Context, id string, qty int) (bool, error)
}

// OrderRepo is the order ledger. Reads resolve each line item's product when it still exists.
type OrderRepo interface {
	Create(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	ListAll(ctx context.Context) ([]domain.Order, error)
	UpdateStatusIf(ctx context.Context, id string, from []domain.Status, to domain.Status) (bool, error)
	// MarkCancelled moves an active order to cancelled; false when it was no longer active.
	MarkCancelled(ctx context.Context, id string, c domain.Cancellation) (bool, error)
	CountActiveByProduct(ctx context.Context, productID string) (int, error)
	DeleteByUser(ctx context.Context, userID string) (int64, error)
}

type UserRepo interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	Update(ctx context.Context, u *domain.User) error
	Delete(ctx context.Context, id string) error
}

type IdempotencyStore interface {
	TryLock(ctx context.Context, scope, key string) (bool, error)
	Unlock(ctx context.Context, scope, key string) error
	Remember(ctx context.Context, scope, key, value string) error
	Recall(ctx context.Context, scope, key string) (string, bool, error)
}

type ProductCache interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, bool, error)
	SetProduct(ctx context.Context, p *domain.Product) error
	Invalidate(ctx context.Context, ids ...string) error
}

type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, msg OrderEventMsg) error
}

type ImageStore interface {
	Save(ctx context.Context, name string, r io.Reader) error
	Delete(ctx context.Context, name string) error
}

type OrderMetrics interface {
	OrderPlaced(total decimal.Decimal)
	OrderCancelled(by domain.Actor)
	ReservationFailed(reason string)
}
