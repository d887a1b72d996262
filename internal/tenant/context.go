package tenant

import "context"

// ctxKey marks the context storage slot for the tenant identifier.
type ctxKey struct{}

// NewContext returns a child context carrying the tenant identifier. The value
// travels with the unit of work and disappears when the work's context is
// released, so no manual clearing is needed.
func NewContext(ctx context.Context, id ID) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the tenant identifier stored in ctx. The second return
// value is false when the context carries no tenant, which callers must treat
// as the admin namespace only if they explicitly decided so.
func FromContext(ctx context.Context) (ID, bool) {
	id, ok := ctx.Value(ctxKey{}).(ID)
	return id, ok
}
