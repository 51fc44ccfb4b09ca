package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	domain "github.com/aq2208/gorder-shop/internal/entity"
	"github.com/aq2208/gorder-shop/internal/security"
	"github.com/aq2208/gorder-shop/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type ProductHandler struct {
	catalog *usecase.Catalog
}

func NewProductHandler(catalog *usecase.Catalog) *ProductHandler {
	return &ProductHandler{catalog: catalog}
}

// ListProducts: GET /products?category=&search=&sort=price-low|price-high|newest
func (h *ProductHandler) ListProducts(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	products, err := h.catalog.List(ctx, domain.ProductFilter{
		Category: c.Query("category"),
		Search:   c.Query("search"),
		Sort:     domain.ProductSort(c.Query("sort")),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *ProductHandler) GetProduct(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	p, err := h.catalog.Get(ctx, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *ProductHandler) CreateProduct(c *gin.Context) {
	in, err := productForm(c)
	if err != nil {
		writeError(c, err)
		return
	}
	img, closeImg, err := imageForm(c)
	if err != nil {
		writeError(c, err)
		return
	}
	defer closeImg()

	caller, err := security.RequireAdmin(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	p, err := h.catalog.Create(ctx, caller, in, img)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	in, err := productForm(c)
	if err != nil {
		writeError(c, err)
		return
	}
	img, closeImg, err := imageForm(c)
	if err != nil {
		writeError(c, err)
		return
	}
	defer closeImg()

	caller, err := security.RequireAdmin(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	p, err := h.catalog.Update(ctx, caller, c.Param("id"), in, img)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	caller, err := security.RequireAdmin(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.catalog.Delete(ctx, caller, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}

// productForm reads the multipart fields shared by create and update.
func productForm(c *gin.Context) (usecase.ProductInput, error) {
	in := usecase.ProductInput{
		Title:       strings.TrimSpace(c.PostForm("title")),
		Description: strings.TrimSpace(c.PostForm("description")),
		Category:    strings.TrimSpace(c.PostForm("category")),
	}

	price, err := decimal.NewFromString(strings.TrimSpace(c.PostForm("price")))
	if err != nil {
		return in, domain.Invalid("price must be a number")
	}
	in.Price = price.Round(2)

	stock, err := strconv.Atoi(strings.TrimSpace(c.PostForm("stock")))
	if err != nil {
		return in, domain.Invalid("stock must be an integer")
	}
	in.Stock = stock
	return in, nil
}

// imageForm returns the uploaded "image" part, or nil when the form carries none.
func imageForm(c *gin.Context) (*usecase.ImageUpload, func(), error) {
	fh, err := c.FormFile("image")
	if err == http.ErrMissingFile {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, func() {}, domain.Invalid("Invalid image upload")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, func() {}, err
	}
	return &usecase.ImageUpload{Filename: fh.Filename, Body: f}, func() { _ = f.Close() }, nil
}
