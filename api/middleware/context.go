package middleware

import (
	"context"

	"github.com/google/uuid"
)

type principalKey struct{}

// Principal is the authenticated caller attached to a request by Auth.
type Principal struct {
	UserID   string
	Role     string
	Username string
}

// PrincipalFromContext returns the caller, or the zero Principal for anonymous requests.
func PrincipalFromContext(ctx context.Context) Principal {
	if ctx == nil {
		return Principal{}
	}
	p, _ := ctx.Value(principalKey{}).(Principal)
	return p
}

// WithPrincipal replaces the caller stored on ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, principalKey{}, p)
}

func UserIDFromContext(ctx context.Context) string {
	return PrincipalFromContext(ctx).UserID
}

// UserUUIDFromContext parses the authenticated user id; ok is false when the request is anonymous.
func UserUUIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(UserIDFromContext(ctx))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func RoleFromContext(ctx context.Context) string {
	return PrincipalFromContext(ctx).Role
}

func UsernameFromContext(ctx context.Context) string {
	return PrincipalFromContext(ctx).Username
}

// WithUserID sets only the user id, keeping any role already present.
func WithUserID(ctx context.Context, userID string) context.Context {
	p := PrincipalFromContext(ctx)
	p.UserID = userID
	return WithPrincipal(ctx, p)
}

// WithRole sets only the platform role, keeping any user id already present.
func WithRole(ctx context.Context, role string) context.Context {
	p := PrincipalFromContext(ctx)
	p.Role = role
	return WithPrincipal(ctx, p)
}
