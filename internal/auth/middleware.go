package auth

import (
	"context"
	"net/http"
	"strings"
)

const (
	authorizationHeader = "Authorization"
	bearerPrefix        = "Bearer "
	unauthorizedMessage = "Unauthorized"
	invalidTokenMessage = "Invalid token"
)

// Middleware requires a valid bearer token. A nil verifier lets every request
// through.
func Middleware(verifier *JWTVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if verifier == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get(authorizationHeader)
			if !strings.HasPrefix(authHeader, bearerPrefix) {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", unauthorizedMessage)
				return
			}

			principal, err := verifier.VerifyToken(strings.TrimPrefix(authHeader, bearerPrefix))
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "invalid_token", invalidTokenMessage)
				return
			}

			ctx := context.WithValue(r.Context(), principalContextKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(*Principal)
	return p, ok
}
