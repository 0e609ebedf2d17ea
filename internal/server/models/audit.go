package models

import "time"

const (
	AuditEntityUser     = "user"
	AuditEntityDocument = "document"
)

// AuditEntry records one privileged mutation.
type AuditEntry struct {
	ID        int64
	ActorID   string
	Action    string
	Entity    string
	EntityID  string
	Note      *string
	CreatedAt time.Time
}
