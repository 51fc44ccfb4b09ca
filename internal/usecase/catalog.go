package usecase

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"

	domain "github.com/aq2208/gorder-shop/internal/entity"
	"github.com/aq2208/gorder-shop/internal/logging"
	"github.com/aq2208/gorder-shop/internal/security"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

type ProductInput struct {
	Title       string
	Description string
	Price       decimal.Decimal
	Category    string
	Stock       int
}

// ImageUpload is a product image received from an admin form.
type ImageUpload struct {
	Filename string
	Body     io.Reader
}

type Catalog struct {
	tx       TxRunner
	products ProductRepo
	orders   OrderRepo
	images   ImageStore
	cache    ProductCache // optional
	sf       singleflight.Group
}

func NewCatalog(tx TxRunner, products ProductRepo, orders OrderRepo, images ImageStore, cache ProductCache) *Catalog {
	return &Catalog{tx: tx, products: products, orders: orders, images: images, cache: cache}
}

func (c *Catalog) List(ctx context.Context, f domain.ProductFilter) ([]domain.Product, error) {
	if f.Category == "all" {
		f.Category = ""
	}
	switch f.Sort {
	case domain.SortPriceLow, domain.SortPriceHigh:
	default:
		f.Sort = domain.SortNewest
	}
	f.Search = strings.TrimSpace(f.Search)
	return c.products.List(ctx, f)
}

// Get reads through the product cache; concurrent misses for one id share a single lookup.
func (c *Catalog) Get(ctx context.Context, id string) (*domain.Product, error) {
	l := logging.FromCtx(ctx)
	if c.cache != nil {
		p, found, err := c.cache.GetProduct(ctx, id)
		if err != nil {
			l.Warn("catalog: cache read failed", "product_id", id, "err", err)
		}
		if found {
			return p, nil
		}
	}

	v, err, _ := c.sf.Do("product:"+id, func() (any, error) {
		return c.products.GetByID(ctx, id)
	})
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NotFound("Product not found")
	}
	if err != nil {
		return nil, err
	}
	p := v.(*domain.Product)

	if c.cache != nil {
		if err := c.cache.SetProduct(ctx, p); err != nil {
			l.Warn("catalog: cache write failed", "product_id", id, "err", err)
		}
	}
	return p, nil
}

func (c *Catalog) Create(ctx context.Context, caller security.Identity, in ProductInput, img *ImageUpload) (*domain.Product, error) {
	if !caller.IsAdmin() {
		return nil, domain.AccessDenied("Admin access required")
	}
	if img == nil {
		return nil, domain.Invalid("Image is required")
	}
	now := time.Now().UTC()
	p := &domain.Product{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		Price:       in.Price,
		Category:    in.Category,
		Stock:       in.Stock,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	name, err := c.saveImage(ctx, img)
	if err != nil {
		return nil, err
	}
	p.Image = name

	if err := c.products.Create(ctx, p); err != nil {
		c.dropImage(ctx, name)
		return nil, err
	}
	c.forget(ctx, p.ID)
	logging.FromCtx(ctx).Info("product created", "product_id", p.ID, "title", p.Title)
	return p, nil
}

// Update replaces the editable fields. Stock is set in the same single write as the rest
// of the row, which is how admins correct inventory counts.
func (c *Catalog) Update(ctx context.Context, caller security.Identity, id string, in ProductInput, img *ImageUpload) (*domain.Product, error) {
	if !caller.IsAdmin() {
		return nil, domain.AccessDenied("Admin access required")
	}
	p, err := c.products.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NotFound("Product not found")
	}
	if err != nil {
		return nil, err
	}

	oldImage := p.Image
	p.Title = in.Title
	p.Description = in.Description
	p.Price = in.Price
	p.Category = in.Category
	p.Stock = in.Stock
	p.UpdatedAt = time.Now().UTC()
	if err := p.Validate(); err != nil {
		return nil, err
	}

	if img != nil {
		name, err := c.saveImage(ctx, img)
		if err != nil {
			return nil, err
		}
		p.Image = name
	}

	err = c.products.Update(ctx, p)
	if errors.Is(err, domain.ErrNotFound) {
		err = domain.NotFound("Product not found")
	}
	if err != nil {
		if p.Image != oldImage {
			c.dropImage(ctx, p.Image)
		}
		return nil, err
	}
	if p.Image != oldImage {
		c.dropImage(ctx, oldImage)
	}
	c.forget(ctx, p.ID)
	return p, nil
}

// Delete removes a product no active order refers to. Orders that are already
// delivered or cancelled keep their line snapshot with a dangling reference.
func (c *Catalog) Delete(ctx context.Context, caller security.Identity, id string) error {
	if !caller.IsAdmin() {
		return domain.AccessDenied("Admin access required")
	}

	var image string
	err := c.tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := c.products.Lock(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NotFound("Product not found")
		}
		if err != nil {
			return err
		}
		n, err := c.orders.CountActiveByProduct(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return domain.Conflict("Cannot delete product. It has %d pending order(s). Please wait until orders are delivered or cancel them first.", n)
		}
		image = p.Image
		return c.products.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	c.dropImage(ctx, image)
	c.forget(ctx, id)
	logging.FromCtx(ctx).Info("product deleted", "product_id", id)
	return nil
}

func (c *Catalog) saveImage(ctx context.Context, img *ImageUpload) (string, error) {
	name := uuid.NewString() + strings.ToLower(filepath.Ext(img.Filename))
	if err := c.images.Save(ctx, name, img.Body); err != nil {
		return "", err
	}
	return name, nil
}

func (c *Catalog) dropImage(ctx context.Context, name string) {
	if name == "" {
		return
	}
	if err := c.images.Delete(ctx, name); err != nil {
		logging.FromCtx(ctx).Warn("catalog: image delete failed", "image", name, "err", err)
	}
}

func (c *Catalog) forget(ctx context.Context, id string) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Invalidate(ctx, id); err != nil {
		logging.FromCtx(ctx).Warn("catalog: cache invalidate failed", "product_id", id, "err", err)
	}
}
