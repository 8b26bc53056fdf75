package middleware

import (
	"net/http"
	"strings"

	"fieldpay/internal/domain/auth"
)

// Auth attaches the token's user to the request. Requests without a valid token pass
// through anonymous; RequirePermission rejects them.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := auth.ParseToken(secret, parts[1])
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := WithUser(r.Context(), User{ID: claims.UserID, Role: claims.Role, BranchID: claims.BranchID})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
