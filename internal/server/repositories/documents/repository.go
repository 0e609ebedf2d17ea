package documents

import (
	"context"

	"github.com/dmitrijs2005/abroadportal/internal/server/models"
)

type Repository interface {
	// Upsert writes the (user, type) slot with the given status and file,
	// clearing any rejection reason, and returns the slot id.
	Upsert(ctx context.Context, userID, docType, label string, status models.DocumentStatus, file models.FileRef) (string, error)
	GetByID(ctx context.Context, id string) (*models.Document, error)
	GetByUserAndType(ctx context.Context, userID, docType string) (*models.Document, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Document, error)
	UpdateStatus(ctx context.Context, id string, status models.DocumentStatus, reason *string) error
	// ResetSlot returns the slot to pending with no file attached.
	ResetSlot(ctx context.Context, id string) error
	// OldestRejected returns the rejected document that has waited longest.
	OldestRejected(ctx context.Context, userID string) (*models.Document, error)
}
