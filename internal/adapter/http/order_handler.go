package http

import (
	"context"
	"net/http"
	"time"

	domain "github.com/aq2208/gorder-shop/internal/entity"
	"github.com/aq2208/gorder-shop/internal/security"
	"github.com/aq2208/gorder-shop/internal/usecase"
	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	place   *usecase.PlaceOrder
	cancel  *usecase.CancelOrder
	status  *usecase.SetOrderStatus
	queries *usecase.OrderQueries
}

func NewOrderHandler(place *usecase.PlaceOrder, cancel *usecase.CancelOrder, status *usecase.SetOrderStatus, queries *usecase.OrderQueries) *OrderHandler {
	return &OrderHandler{place: place, cancel: cancel, status: status, queries: queries}
}

type placeOrderReq struct {
	Items []struct {
		ProductID string `json:"productId"`
		Quantity  int    `json:"quantity"`
	} `json:"items"`
	CustomerDetails domain.CustomerDetails `json:"customerDetails"`
	PaymentMode     string                 `json:"paymentMode"`
}

type cancelReq struct {
	Reason string `json:"reason"`
}

type statusReq struct {
	Status domain.Status `json:"status" binding:"required"`
}

// PlaceOrder handler: translate to use case input
func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	var req placeOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	caller, err := security.RequireUser(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	items := make([]usecase.ReserveItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, usecase.ReserveItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	order, err := h.place.Execute(ctx, usecase.PlaceOrderInput{
		UserID:         caller.UserID,
		IdempotencyKey: c.GetHeader("X-Idempotency-Key"), // prevent duplicated requests
		PaymentMode:    req.PaymentMode,
		Items:          items,
		Customer:       req.CustomerDetails,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *OrderHandler) MyOrders(c *gin.Context) {
	caller, err := security.RequireUser(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	orders, err := h.queries.Mine(ctx, caller)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	caller, err := security.RequireUser(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	order, err := h.queries.Get(ctx, caller, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// CancelOrder accepts an optional {"reason": "..."} body.
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	var req cancelReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request body")
			return
		}
	}
	caller, err := security.RequireUser(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	order, err := h.cancel.Execute(ctx, usecase.CancelOrderInput{
		OrderID: c.Param("id"),
		Caller:  caller,
		Reason:  req.Reason,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) AllOrders(c *gin.Context) {
	caller, err := security.RequireUser(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	orders, err := h.queries.All(ctx, caller)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) SetStatus(c *gin.Context) {
	var req statusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "status is required")
		return
	}
	caller, err := security.RequireUser(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	order, err := h.status.Execute(ctx, caller, c.Param("id"), req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
