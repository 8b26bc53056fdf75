package middleware

import (
	"context"

	"fieldpay/internal/domain/auth"
)

type ctxKey string

const (
	ctxKeyUser      ctxKey = "user"
	ctxKeyRequestID ctxKey = "request_id"
)

// User is the authenticated caller taken from the bearer token.
type User struct {
	ID       string
	Role     string
	BranchID string
}

func WithUser(ctx context.Context, user User) context.Context {
	return context.WithValue(ctx, ctxKeyUser, user)
}

func GetUser(ctx context.Context) (User, bool) {
	user, ok := ctx.Value(ctxKeyUser).(User)
	return user, ok
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, requestID)
}

func GetRequestID(ctx context.Context) string {
	if value, ok := ctx.Value(ctxKeyRequestID).(string); ok {
		return value
	}
	return ""
}

// CanAccessBranch reports whether user may act on branchID. Admins span all branches.
func CanAccessBranch(user User, branchID string) bool {
	return user.Role == auth.RoleAdmin || (user.BranchID != "" && user.BranchID == branchID)
}
