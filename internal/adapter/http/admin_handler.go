package http

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/aq2208/gorder-shop/internal/adapter/http/middleware"
	domain "github.com/aq2208/gorder-shop/internal/entity"
	"github.com/aq2208/gorder-shop/internal/security"
	"github.com/gin-gonic/gin"
)

// AdminAccount is the single back-office login configured for the shop.
type AdminAccount struct {
	Email    string
	Password string
}

type AdminHandler struct {
	account AdminAccount
	authz   *middleware.Authz
}

func NewAdminHandler(account AdminAccount, authz *middleware.Authz) *AdminHandler {
	return &AdminHandler{account: account, authz: authz}
}

type loginReq struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login: POST /admin/login {email, password}
func (h *AdminHandler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Email and password are required")
		return
	}

	if h.account.Email == "" || !equal(req.Email, h.account.Email) || !equal(req.Password, h.account.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials"})
		return
	}

	signed, err := h.authz.Issue(security.Identity{UserID: "admin", Role: domain.RoleAdmin}, time.Now())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      signed,
		"token_type": "Bearer",
		"expires_in": int64(h.authz.TTL().Seconds()),
		"admin":      gin.H{"id": "admin", "email": h.account.Email, "role": domain.RoleAdmin},
	})
}

func (h *AdminHandler) Me(c *gin.Context) {
	caller, err := security.RequireAdmin(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": caller.UserID, "email": h.account.Email, "role": caller.Role})
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
