package services

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/abroadportal/internal/server/models"
	"github.com/dmitrijs2005/abroadportal/internal/server/repositories/repomanager"
)

const maxInboxPage = 100

type NotificationService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewNotificationService(db *sql.DB, rm repomanager.RepositoryManager) *NotificationService {
	return &NotificationService{db: db, repomanager: rm}
}

// List returns the user's inbox, newest first, capped at one page.
func (s *NotificationService) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*models.Notification, error) {
	if limit <= 0 || limit > maxInboxPage {
		limit = maxInboxPage
	}
	return s.repomanager.Notifications(s.db).ListByUser(ctx, userID, unreadOnly, limit)
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.repomanager.Notifications(s.db).CountUnread(ctx, userID)
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	return s.repomanager.Notifications(s.db).MarkRead(ctx, userID, id)
}
