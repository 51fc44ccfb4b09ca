package usecase

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/aq2208/gorder-shop/internal/entity"
	"github.com/aq2208/gorder-shop/internal/logging"
	"github.com/shopspring/decimal"
)

type ReserveItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Inventory is the only path through which order flows change product stock.
// Reserve and Release must run inside a TxRunner unit of work so a failure
// part-way through leaves no stock change behind.
type Inventory struct {
	products ProductRepo
	cache    ProductCache
	metrics  OrderMetrics
}

func NewInventory(products ProductRepo, cache ProductCache, metrics OrderMetrics) *Inventory {
	return &Inventory{products: products, cache: cache, metrics: metrics}
}

func validateItems(items []ReserveItem) error {
	if len(items) == 0 {
		return domain.Invalid("Order must contain at least one item")
	}
	for _, it := range items {
		if it.ProductID == "" {
			return domain.Invalid("productId is required")
		}
		if it.Quantity <= 0 {
			return domain.Invalid("Invalid quantity for product %s", it.ProductID)
		}
	}
	return nil
}

// Reserve decrements stock for every item in input order and prices each line at the
// product's current price. The first failing item aborts the reservation.
func (inv *Inventory) Reserve(ctx context.Context, items []ReserveItem) ([]domain.LineItem, decimal.Decimal, error) {
	if err := validateItems(items); err != nil {
		return nil, decimal.Zero, err
	}

	lines := make([]domain.LineItem, 0, len(items))
	for _, it := range items {
		p, err := inv.products.DecrementStock(ctx, it.ProductID, it.Quantity)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			inv.failed("not_found")
			return nil, decimal.Zero, domain.NotFound("Product not found: %s", it.ProductID)
		case errors.Is(err, domain.ErrInsufficientStock):
			inv.failed("insufficient_stock")
			title := it.ProductID
			if cur, gerr := inv.products.GetByID(ctx, it.ProductID); gerr == nil {
				title = cur.Title
			}
			return nil, decimal.Zero, domain.InsufficientStock("Insufficient stock for %s", title)
		case err != nil:
			return nil, decimal.Zero, fmt.Errorf("decrement stock %s: %w", it.ProductID, err)
		}

		lines = append(lines, domain.LineItem{
			ProductID: p.ID,
			Quantity:  it.Quantity,
			Price:     p.Price,
		})
	}
	return lines, domain.Total(lines), nil
}

// Release restores the stock held by o. Items whose product was deleted are skipped.
// Callers guarantee it runs at most once per order by first winning the cancel transition.
func (inv *Inventory) Release(ctx context.Context, o *domain.Order) error {
	for _, it := range o.Items {
		found, err := inv.products.IncrementStock(ctx, it.ProductID, it.Quantity)
		if err != nil {
			return fmt.Errorf("restore stock %s: %w", it.ProductID, err)
		}
		if !found {
			logging.FromCtx(ctx).Info("inventory: product gone, nothing to restore",
				"order_id", o.ID, "product_id", it.ProductID, "qty", it.Quantity)
		}
	}
	return nil
}

// Forget drops cached product views after stock changed. Best-effort.
func (inv *Inventory) Forget(ctx context.Context, items []domain.LineItem) {
	if inv.cache == nil || len(items) == 0 {
		return
	}
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	if err := inv.cache.Invalidate(ctx, ids...); err != nil {
		logging.FromCtx(ctx).Warn("inventory: cache invalidate failed", "err", err)
	}
}

func (inv *Inventory) failed(reason string) {
	if inv.metrics != nil {
		inv.metrics.ReservationFailed(reason)
	}
}
