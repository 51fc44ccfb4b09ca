package security

import (
	"context"
	"errors"
	"testing"

	domain "github.com/aq2208/gorder-shop/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireUser(t *testing.T) {
	_, err := RequireUser(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthenticated))

	ctx := WithIdentity(context.Background(), Identity{UserID: "u1", Role: domain.RoleCustomer})
	id, err := RequireUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u1", id.UserID)
}

func TestRequireAdmin(t *testing.T) {
	tests := []struct {
		name    string
		ctx     context.Context
		wantErr error
	}{
		{"anonymous", context.Background(), domain.ErrUnauthenticated},
		{"customer", WithIdentity(context.Background(), Identity{UserID: "u1", Role: domain.RoleCustomer}), domain.ErrAccessDenied},
		{"admin", WithIdentity(context.Background(), Identity{UserID: "admin", Role: domain.RoleAdmin}), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RequireAdmin(tt.ctx)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestIdentity_CanAccess(t *testing.T) {
	owner := Identity{UserID: "u1", Role: domain.RoleCustomer}
	other := Identity{UserID: "u2", Role: domain.RoleCustomer}
	admin := Identity{UserID: "admin", Role: domain.RoleAdmin}

	assert.True(t, owner.CanAccess("u1"))
	assert.False(t, other.CanAccess("u1"))
	assert.True(t, admin.CanAccess("u1"))
	assert.Equal(t, domain.ActorUser, owner.Actor())
	assert.Equal(t, domain.ActorAdmin, admin.Actor())
}
