package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/abroadportal/internal/common"
	"github.com/dmitrijs2005/abroadportal/internal/logging"
	"github.com/dmitrijs2005/abroadportal/internal/server/models"
	"github.com/dmitrijs2005/abroadportal/internal/server/notify"
	"github.com/dmitrijs2005/abroadportal/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/abroadportal/internal/server/steps"
)

// ResubmissionService turns media sent to the relay channel into a
// re-upload of the sender's oldest rejected document.
type ResubmissionService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	catalog     *steps.Catalog
	notifier    Notifier
	logger      logging.Logger
}

func NewResubmissionService(db *sql.DB, rm repomanager.RepositoryManager, catalog *steps.Catalog, n Notifier, l logging.Logger) *ResubmissionService {
	return &ResubmissionService{
		db:          db,
		repomanager: rm,
		catalog:     catalog,
		notifier:    n,
		logger:      l.With("module", "resubmission"),
	}
}

func (s *ResubmissionService) HandleInbound(ctx context.Context, m models.InboundMedia) error {
	phone := NormalizePhone(m.From)
	if phone == "" || m.FileURL == "" {
		return fmt.Errorf("%w: sender and file url are required", common.ErrorValidation)
	}

	return inTx(ctx, s.db, s.repomanager, s.notifier, func(ctx context.Context, u *unit) error {
		users := u.repos.Users(u.tx)
		sender, err := users.GetByPhone(ctx, phone)
		if err != nil {
			return err
		}
		// lock so the upsert serializes with admin reviews of the same user
		if _, err := users.GetByIDForUpdate(ctx, sender.ID); err != nil {
			return err
		}

		docs := u.repos.Documents(u.tx)
		rejected, err := docs.OldestRejected(ctx, sender.ID)
		if errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("%w: no rejected documents", common.ErrNothingToSubmit)
		}
		if err != nil {
			return err
		}

		fileName := m.FileName
		if fileName == "" {
			fileName = rejected.Type
		}
		id, err := docs.Upsert(ctx, sender.ID, rejected.Type, rejected.Label, models.DocumentUploaded,
			models.FileRef{Name: fileName, URL: m.FileURL})
		if err != nil {
			return err
		}

		label := rejected.Label
		if label == "" {
			label = s.catalog.Label(rejected.Type)
		}
		s.logger.Info(ctx, "rejected document resubmitted", "user_id", sender.ID, "document_id", id, "type", rejected.Type)

		return u.emit(ctx, notify.Event{
			UserID:  sender.ID,
			Type:    models.NotificationDocumentUploaded,
			Title:   label + " received",
			Message: "We received your new " + label + ". Submit it for review when you are ready.",
			Data:    map[string]any{"document_id": id, "document_type": rejected.Type},
		})
	})
}
