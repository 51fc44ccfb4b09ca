package http

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	domain "github.com/aq2208/gorder-shop/internal/entity"
	"github.com/aq2208/gorder-shop/internal/usecase"
	"github.com/stretchr/testify/assert"
)

func TestStatusOf(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.NotFound("Order not found"), http.StatusNotFound},
		{domain.InsufficientStock("Insufficient stock for Mug"), http.StatusBadRequest},
		{domain.InvalidTransition("Cannot cancel delivered order"), http.StatusBadRequest},
		{domain.Invalid("bad"), http.StatusBadRequest},
		{domain.AccessDenied("Access denied"), http.StatusForbidden},
		{domain.Unauthenticated("No token provided"), http.StatusUnauthorized},
		{domain.Conflict("in use"), http.StatusConflict},
		{fmt.Errorf("place: %w", usecase.ErrDuplicate), http.StatusConflict},
		{errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusOf(tc.err), tc.err.Error())
	}
}
