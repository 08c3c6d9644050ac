package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/jusflow/jusflow/internal/domain/user"
)

// RequireTier returns middleware that restricts access to users whose
// account tier grants at least min. The 403 body names both the required
// and the caller's current tier.
func RequireTier(min user.Tier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				writeCodedError(w, http.StatusUnauthorized, CodeUnauthorized, "authorization required")
				return
			}

			if !claims.Tier.AtLeast(min) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_ = json.NewEncoder(w).Encode(errorBody{
					Error:    "insufficient account tier",
					Code:     CodeForbiddenTier,
					Required: string(min),
					Current:  string(claims.Tier),
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
