package audit

import (
	"context"

	"github.com/dmitrijs2005/abroadportal/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, e *models.AuditEntry) error
	ListByEntity(ctx context.Context, entity, entityID string) ([]*models.AuditEntry, error)
}
