// Package middleware provides the access gate: authentication, tenant
// activity checks, scoped handle binding, and tier authorization.
package middleware

import (
	"context"

	"github.com/jusflow/jusflow/internal/domain/user"
	"github.com/jusflow/jusflow/internal/port/database"
)

type claimsCtxKey struct{}
type handleCtxKey struct{}

// ClaimsFromContext returns the verified access-token claims, or nil when
// the request did not pass the gate.
func ClaimsFromContext(ctx context.Context) *user.Claims {
	c, _ := ctx.Value(claimsCtxKey{}).(*user.Claims)
	return c
}

// HandleFromContext returns the tenant-scoped database handle bound by the
// gate, or nil outside gated routes.
func HandleFromContext(ctx context.Context) database.ScopedHandle {
	h, _ := ctx.Value(handleCtxKey{}).(database.ScopedHandle)
	return h
}

// WithClaims stores claims in ctx. Exported for handler tests.
func WithClaims(ctx context.Context, c *user.Claims) context.Context {
	return context.WithValue(ctx, claimsCtxKey{}, c)
}

// WithHandle stores a scoped handle in ctx. Exported for handler tests.
func WithHandle(ctx context.Context, h database.ScopedHandle) context.Context {
	return context.WithValue(ctx, handleCtxKey{}, h)
}
