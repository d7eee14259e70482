package auth

import "context"

// Principal is the authenticated identity attached to a request context.
// It is immutable after construction; roles are decoded once from the token.
type Principal struct {
	ID       string
	Username string
	Roles    []string
}

// HasRole reports whether the principal carries the given role name.
func (p *Principal) HasRole(role string) bool {
	if p == nil {
		return false
	}
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

type principalContextKey struct{}

var defaultPrincipalContextKey = principalContextKey{}

// WithPrincipal returns a context carrying the authenticated principal.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, defaultPrincipalContextKey, p)
}

// PrincipalFromContext returns the principal stored on the request context.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(defaultPrincipalContextKey).(*Principal)
	return p, ok && p != nil
}
