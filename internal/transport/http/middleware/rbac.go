package middleware

import (
	"net/http"

	"fieldpay/internal/domain/auth"
	"fieldpay/internal/transport/http/api"
)

func RequirePermission(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := GetUser(r.Context())
			if !ok {
				api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", GetRequestID(r.Context()))
				return
			}
			if !auth.HasPermission(user.Role, permission) {
				api.Fail(w, http.StatusForbidden, "forbidden", "insufficient permissions", GetRequestID(r.Context()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireBranch writes 403 and returns false when the caller cannot act on branchID.
func RequireBranch(w http.ResponseWriter, r *http.Request, branchID string) bool {
	user, _ := GetUser(r.Context())
	if !CanAccessBranch(user, branchID) {
		api.Fail(w, http.StatusForbidden, "forbidden", "branch not accessible", GetRequestID(r.Context()))
		return false
	}
	return true
}
