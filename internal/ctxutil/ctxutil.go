// Package ctxutil provides context utilities that can be safely imported anywhere.
// This package has no internal dependencies to avoid import cycles.
package ctxutil

import "context"

type holderKey struct{}

// WithHolder returns a context naming who is acting, e.g. "cli" or an HTTP caller.
// Lock acquisitions made with this context record it as the lock holder.
func WithHolder(ctx context.Context, holder string) context.Context {
	return context.WithValue(ctx, holderKey{}, holder)
}

// HolderFromContext returns the holder from context, or empty string if not set.
func HolderFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(holderKey{}).(string); ok {
		return v
	}
	return ""
}
