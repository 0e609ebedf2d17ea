package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/abroadportal/internal/dbx"
	"github.com/dmitrijs2005/abroadportal/internal/server/repositories/audit"
	"github.com/dmitrijs2005/abroadportal/internal/server/repositories/documents"
	"github.com/dmitrijs2005/abroadportal/internal/server/repositories/notifications"
	"github.com/dmitrijs2005/abroadportal/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so the same
// service code runs against the pool or an open transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Documents(db dbx.DBTX) documents.Repository
	Notifications(db dbx.DBTX) notifications.Repository
	Audit(db dbx.DBTX) audit.Repository
}
