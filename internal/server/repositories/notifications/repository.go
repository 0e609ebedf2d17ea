package notifications

import (
	"context"

	"github.com/dmitrijs2005/abroadportal/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, n *models.Notification) (*models.Notification, error)
	// ListByUser returns newest first; limit <= 0 means no limit.
	ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*models.Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	// MarkRead flips is_read for a notification owned by userID.
	MarkRead(ctx context.Context, userID, id string) error
}
