package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Stock       int             `json:"stock"`
	Image       string          `json:"image"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func (p *Product) Summary() *ProductSummary {
	return &ProductSummary{
		ID:       p.ID,
		Title:    p.Title,
		Price:    p.Price,
		Category: p.Category,
		Image:    p.Image,
	}
}

func (p *Product) Validate() error {
	if p.Title == "" {
		return Invalid("title is required")
	}
	if p.Price.IsNegative() {
		return Invalid("price must not be negative")
	}
	if p.Stock < 0 {
		return Invalid("stock must not be negative")
	}
	return nil
}

type ProductSort string

const (
	SortNewest    ProductSort = "newest"
	SortPriceLow  ProductSort = "price-low"
	SortPriceHigh ProductSort = "price-high"
)

type ProductFilter struct {
	Category string
	Search   string
	Sort     ProductSort
}
