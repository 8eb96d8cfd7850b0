package auth

import "context"

// RoleAdmin grants access to admin-only actions.
const RoleAdmin = "admin"

// Identity is the authenticated caller.
type Identity struct {
	UserID string
	Email  string
	Role   string
	Token  string
}

// IsAdmin reports whether the caller holds the admin role.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}

type identityKey struct{}

// WithIdentity stores ident on ctx.
func WithIdentity(ctx context.Context, ident *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, ident)
}

// IdentityFromContext returns the caller stored on ctx, or nil for anonymous
// requests.
func IdentityFromContext(ctx context.Context) *Identity {
	ident, _ := ctx.Value(identityKey{}).(*Identity)
	return ident
}
