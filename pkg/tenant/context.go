// Package tenant carries the tenant scope through context. Every entity in
// the engine is tenant-scoped; repositories read the scope from context and
// add it to their filters.
package tenant

import (
	"context"
	"errors"
)

type contextKey string

const tenantIDKey contextKey = "tenantId"

// ErrMissingTenant is returned when an operation requires a tenant scope and
// none is present on the context.
var ErrMissingTenant = errors.New("tenant context is required")

// WithTenant returns a context scoped to the given tenant.
func WithTenant(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantIDKey, tenantID)
}

// FromContext extracts the tenant ID, or an error if the scope is missing.
func FromContext(ctx context.Context) (string, error) {
	if v := ctx.Value(tenantIDKey); v != nil {
		if id, ok := v.(string); ok && id != "" {
			return id, nil
		}
	}
	return "", ErrMissingTenant
}

// IDOrDefault extracts the tenant ID, falling back to def when absent.
// Used by repositories that tolerate unscoped access (tests, migrations).
func IDOrDefault(ctx context.Context, def string) string {
	if id, err := FromContext(ctx); err == nil {
		return id
	}
	return def
}
