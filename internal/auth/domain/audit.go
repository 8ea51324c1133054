package domain

import "time"

// AuditStatus is the recorded outcome of an audited action.
type AuditStatus string

const (
	AuditSuccess AuditStatus = "SUCCESS"
	AuditFailure AuditStatus = "FAILURE"
)

// RequestMeta is the client metadata attached to audit events. It is
// extracted by the transport layer; the engine treats it as opaque.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// AuditEvent is a single security-relevant event. Events are dispatched to
// the audit sink asynchronously; recording them must never affect the
// outcome of the operation they describe.
type AuditEvent struct {
	ID        string
	AccountID string // empty when the account is unknown (e.g. bad email)
	Action    string // e.g. "USER_LOGIN", "ACCOUNT_LOCKED"
	Status    AuditStatus
	Meta      RequestMeta
	Details   map[string]string
	CreatedAt time.Time
}
