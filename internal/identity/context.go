package identity

import (
	"context"

	"github.com/wolfman30/doctorhome/internal/directory"
)

type ctxKey string

const principalKey ctxKey = "doctorhome.principal"

// Principal is the authenticated caller.
type Principal struct {
	UserID string
	Role   directory.Role
}

// WithPrincipal stores the caller in context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext extracts the caller if present and complete.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	val := ctx.Value(principalKey)
	if val == nil {
		return Principal{}, false
	}
	p, ok := val.(Principal)
	return p, ok && p.UserID != "" && p.Role.Valid()
}
