package notify

import (
	"context"

	"github.com/lumonlab/crecheauth/internal/auth/domain"
	"github.com/lumonlab/crecheauth/internal/auth/store"
	"github.com/lumonlab/crecheauth/pkg/idx"
)

// StoreAuditSink persists audit events through the storage layer.
type StoreAuditSink struct {
	Store store.Store
}

func (s StoreAuditSink) Record(ctx context.Context, e domain.AuditEvent) error {
	if e.ID == "" {
		e.ID = idx.New().String()
	}
	return s.Store.AuditLogs().CreateAuditLog(ctx, e)
}
