package middleware

import (
	"context"
	"net/http"
	"strings"

	jwtinfra "github.com/go-verify-nosql/internal/infrastructure/jwt"
)

type contextKey string

const ClaimsKey contextKey = "grant"

// GrantVerifier validates verification grant tokens.
type GrantVerifier interface {
	Verify(token string) (*jwtinfra.GrantClaims, error)
}

// Auth returns middleware that validates the Bearer grant and injects its claims into context.
func Auth(verifier GrantVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeJSONError(w, http.StatusUnauthorized, "missing or invalid authorization header")
				return
			}
			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
			claims, err := verifier.Verify(tokenStr)
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			ctx := context.WithValue(r.Context(), ClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext extracts grant claims from the request context.
func ClaimsFromContext(ctx context.Context) (*jwtinfra.GrantClaims, bool) {
	c, ok := ctx.Value(ClaimsKey).(*jwtinfra.GrantClaims)
	return c, ok
}
