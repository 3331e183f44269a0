// Package identity resolves the calling employee from the session and makes
// the caller's role and authority level available to authorization checks.
package identity

import "context"

// Principal describes the authenticated caller.
type Principal struct {
	EmployeeID int64
	Name       string
	Email      string
	RoleName   string
	Level      int
	DivisionID *int64
}

type principalContextKey struct{}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok
}
