package security

import (
	"context"

	domain "github.com/aq2208/gorder-shop/internal/entity"
)

// Identity is the authenticated caller as established by the access gate.
type Identity struct {
	UserID string
	Role   domain.Role
}

func (i Identity) IsAdmin() bool { return i.Role == domain.RoleAdmin }

// Actor maps the caller's role to the cancellation actor recorded on orders.
func (i Identity) Actor() domain.Actor {
	if i.IsAdmin() {
		return domain.ActorAdmin
	}
	return domain.ActorUser
}

// CanAccess reports whether the caller may read or cancel an order owned by ownerID.
func (i Identity) CanAccess(ownerID string) bool {
	return i.IsAdmin() || i.UserID == ownerID
}

// System is the identity used by background consumers acting on behalf of the back-office.
var System = Identity{UserID: "system", Role: domain.RoleAdmin}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok && id.UserID != ""
}

// RequireUser returns the caller or an Unauthenticated failure.
func RequireUser(ctx context.Context) (Identity, error) {
	id, ok := FromContext(ctx)
	if !ok {
		return Identity{}, domain.Unauthenticated("No token provided")
	}
	return id, nil
}

// RequireAdmin returns the caller if it holds the admin role.
func RequireAdmin(ctx context.Context) (Identity, error) {
	id, err := RequireUser(ctx)
	if err != nil {
		return Identity{}, err
	}
	if !id.IsAdmin() {
		return Identity{}, domain.AccessDenied("Admin access required")
	}
	return id, nil
}
