package http

import (
	"errors"
	"net/http"

	domain "github.com/aq2208/gorder-shop/internal/entity"
	"github.com/aq2208/gorder-shop/internal/logging"
	"github.com/aq2208/gorder-shop/internal/usecase"
	"github.com/gin-gonic/gin"
)

func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrConflict), errors.Is(err, usecase.ErrDuplicate):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeError renders err as {"message": ...}. Internal failures are logged and hidden.
func writeError(c *gin.Context, err error) {
	status := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logging.From(c).Error("request failed", "err", err)
		msg = "Internal server error"
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"message": msg})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"message": msg})
}
