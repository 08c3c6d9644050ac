package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/jusflow/jusflow/internal/domain"
	"github.com/jusflow/jusflow/internal/domain/user"
	"github.com/jusflow/jusflow/internal/port/database"
)

// TokenVerifier verifies a bearer token and returns its claims.
type TokenVerifier interface {
	VerifyAccess(token string) (*user.Claims, error)
}

// TenantChecker reports whether a tenant is known and active.
type TenantChecker interface {
	ValidateActive(ctx context.Context, tenantID string) error
}

// AccessGate returns middleware that authenticates the bearer token, checks
// the tenant is still active, and binds the tenant-scoped database handle
// into the request context. Expired tokens are distinguished from invalid
// ones so clients know when a refresh is worth attempting.
func AccessGate(verifier TokenVerifier, tenants TenantChecker, router database.Router) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeCodedError(w, http.StatusUnauthorized, CodeUnauthorized, "authorization required")
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")
			if token == authHeader || token == "" {
				writeCodedError(w, http.StatusUnauthorized, CodeTokenInvalid, "invalid authorization header")
				return
			}

			claims, err := verifier.VerifyAccess(token)
			if err != nil {
				if errors.Is(err, domain.ErrTokenExpired) {
					writeCodedError(w, http.StatusUnauthorized, CodeTokenExpired, "access token expired")
					return
				}
				writeCodedError(w, http.StatusUnauthorized, CodeTokenInvalid, "invalid access token")
				return
			}

			if err := tenants.ValidateActive(r.Context(), claims.TenantID); err != nil {
				if errors.Is(err, domain.ErrTenantInactive) {
					writeCodedError(w, http.StatusUnauthorized, CodeTenantInactive, "tenant is deactivated")
					return
				}
				writeCodedError(w, http.StatusUnauthorized, CodeTokenInvalid, "unknown tenant")
				return
			}

			ctx := WithClaims(r.Context(), claims)

			if router != nil {
				handle, err := router.Handle(ctx, claims.TenantID)
				if err != nil {
					if errors.Is(err, domain.ErrTenantInactive) {
						writeCodedError(w, http.StatusUnauthorized, CodeTenantInactive, "tenant is deactivated")
						return
					}
					writeCodedError(w, http.StatusUnauthorized, CodeTokenInvalid, "unknown tenant")
					return
				}
				ctx = WithHandle(ctx, handle)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
