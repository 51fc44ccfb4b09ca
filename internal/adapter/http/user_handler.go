package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aq2208/gorder-shop/internal/security"
	"github.com/aq2208/gorder-shop/internal/usecase"
	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	accounts *usecase.Accounts
}

func NewUserHandler(accounts *usecase.Accounts) *UserHandler {
	return &UserHandler{accounts: accounts}
}

type updateUserReq struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	caller, err := security.RequireAdmin(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	users, err := h.accounts.List(ctx, caller)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *UserHandler) UpdateUser(c *gin.Context) {
	var req updateUserReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	caller, err := security.RequireAdmin(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	u, err := h.accounts.Update(ctx, caller, c.Param("id"), req.Name, req.Email)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// DeleteUser cancels the user's open orders, restores their stock, then removes the account.
func (h *UserHandler) DeleteUser(c *gin.Context) {
	caller, err := security.RequireAdmin(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	res, err := h.accounts.Delete(ctx, caller, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":         fmt.Sprintf("User deleted successfully. %d orders were cancelled and stock restored.", res.CancelledOrders),
		"cancelledOrders": res.CancelledOrders,
		"deletedOrders":   res.DeletedOrders,
	})
}
