package middleware

import (
	"net/http"

	"fieldpay/internal/domain/audit"
	"fieldpay/internal/transport/http/shared"
)

// AuditEntry fills the caller, request id and client address of an audit record.
func AuditEntry(r *http.Request, action, entityType, entityID string, before, after any) audit.Entry {
	e := audit.Entry{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		RequestID:  GetRequestID(r.Context()),
		IP:         shared.ClientIP(r),
		Before:     before,
		After:      after,
	}
	if user, ok := GetUser(r.Context()); ok {
		e.ActorID = user.ID
	}
	return e
}
