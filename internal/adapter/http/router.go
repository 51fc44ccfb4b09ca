package http

import (
	"github.com/aq2208/gorder-shop/internal/adapter/http/middleware"
	domain "github.com/aq2208/gorder-shop/internal/entity"
	"github.com/aq2208/gorder-shop/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	Orders   *OrderHandler
	Products *ProductHandler
	Users    *UserHandler
	Admin    *AdminHandler
}

// NewRouter builds the engine. uploadDir may be empty when images are served elsewhere.
func NewRouter(h Handlers, authz *middleware.Authz, uploadDir string, maxUpload int64) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Metrics())
	if maxUpload > 0 {
		r.MaxMultipartMemory = maxUpload
	}

	l := logging.New("http")
	r.Use(middleware.Logging(l))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})
	// Prometheus endpoint (scraped by Prometheus)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if uploadDir != "" {
		r.Static("/uploads", uploadDir)
	}

	user := authz.Require()
	admin := authz.Require(domain.RoleAdmin)

	api := r.Group("/api")
	{
		api.POST("/admin/login", h.Admin.Login)
		api.GET("/admin/me", admin, h.Admin.Me)

		api.GET("/products", h.Products.ListProducts)
		api.GET("/products/:id", h.Products.GetProduct)
		api.POST("/products", admin, h.Products.CreateProduct)
		api.PUT("/products/:id", admin, h.Products.UpdateProduct)
		api.DELETE("/products/:id", admin, h.Products.DeleteProduct)

		api.POST("/orders", user, h.Orders.PlaceOrder)
		api.GET("/orders/my-orders", user, h.Orders.MyOrders)
		api.GET("/orders/:id", user, h.Orders.GetOrder)
		api.PUT("/orders/:id/cancel", user, h.Orders.CancelOrder)
		api.GET("/orders", admin, h.Orders.AllOrders)
		api.PUT("/orders/:id/status", admin, h.Orders.SetStatus)

		api.GET("/users", admin, h.Users.ListUsers)
		api.PUT("/users/:id", admin, h.Users.UpdateUser)
		api.DELETE("/users/:id", admin, h.Users.DeleteUser)
	}

	return r
}
