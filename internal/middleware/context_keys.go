package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/mar0580/teste-sistema-bancario/internal/utils"
)

const principalCtxKey = contextKey("principal")

// Principal is the authenticated caller resolved from the bearer token.
type Principal struct {
	ID         string
	HolderName string
	Role       string
}

// IsAdmin reports whether the principal may act on any account.
func (p Principal) IsAdmin() bool {
	return p.Role == utils.RoleAdmin
}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey, p)
}

// GetPrincipalFromCtx retrieves the authenticated principal from a standard context.
func GetPrincipalFromCtx(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalCtxKey).(Principal)
	return p, ok
}

// GetPrincipalFromContext retrieves the authenticated principal from the Gin context.
// It returns the principal and a boolean indicating if it was found.
func GetPrincipalFromContext(c *gin.Context) (Principal, bool) {
	return GetPrincipalFromCtx(c.Request.Context())
}
