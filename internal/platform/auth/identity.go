package auth

import (
	"context"
	"strings"
)

// Role enumerates the staff roles recognised by the portal.
type Role string

const (
	RoleSuperAdmin Role = "super-admin"
	RoleAdmin      Role = "admin"
	RoleUser       Role = "user"
)

// Identity describes the authenticated staff member attached to a request.
type Identity struct {
	StaffID string
	Email   string
	Role    Role
}

// HasRole reports whether the identity carries one of the supplied roles.
func (i *Identity) HasRole(roles ...Role) bool {
	if i == nil {
		return false
	}
	for _, role := range roles {
		if i.Role == role {
			return true
		}
	}
	return false
}

type identityContextKey struct{}

// WithIdentity stores the identity on the context.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// IdentityFromContext retrieves the identity previously stored on the context.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	if ctx == nil {
		return nil, false
	}
	identity, ok := ctx.Value(identityContextKey{}).(*Identity)
	if !ok || identity == nil {
		return nil, false
	}
	return identity, true
}

// ParseRole normalises a raw role claim into a known Role, defaulting to RoleUser.
func ParseRole(raw string) Role {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(RoleSuperAdmin):
		return RoleSuperAdmin
	case string(RoleAdmin):
		return RoleAdmin
	default:
		return RoleUser
	}
}
