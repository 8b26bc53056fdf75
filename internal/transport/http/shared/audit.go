package shared

import (
	"context"

	"fieldpay/internal/domain/audit"
)

// Auditor records mutations; *audit.Service satisfies it.
type Auditor interface {
	Log(ctx context.Context, e audit.Entry)
}

type NopAuditor struct{}

func (NopAuditor) Log(context.Context, audit.Entry) {}
