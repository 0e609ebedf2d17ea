package users

import (
	"context"
	"encoding/json"

	"github.com/dmitrijs2005/abroadportal/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	// GetByIDForUpdate locks the row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id string) (*models.User, error)
	GetByPhone(ctx context.Context, phone string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProgress(ctx context.Context, id string, step int, status models.ApprovalStatus) error
	// SetApprovalStatus writes status only when it differs from the stored
	// one and reports whether a transition happened.
	SetApprovalStatus(ctx context.Context, id string, status models.ApprovalStatus) (bool, error)
	SetSelectedProgram(ctx context.Context, id string, program json.RawMessage) error
	SetVisaTrackingCode(ctx context.Context, id string, code string) error
}
