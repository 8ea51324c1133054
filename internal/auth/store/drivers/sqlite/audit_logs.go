package sqlite

import (
	"context"
	"encoding/json"

	"github.com/lumonlab/crecheauth/internal/auth/domain"
)

type auditLogsRepo struct {
	db dbtx
}

func (r *auditLogsRepo) CreateAuditLog(ctx context.Context, e domain.AuditEvent) error {
	details := "{}"
	if len(e.Details) > 0 {
		if b, err := json.Marshal(e.Details); err == nil {
			details = string(b)
		}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, account_id, action, status, ip_address, user_agent, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		e.ID, e.AccountID, e.Action, string(e.Status),
		e.Meta.IPAddress, e.Meta.UserAgent, details,
	)
	return err
}
