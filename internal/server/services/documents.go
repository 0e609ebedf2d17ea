package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/abroadportal/internal/common"
	"github.com/dmitrijs2005/abroadportal/internal/logging"
	"github.com/dmitrijs2005/abroadportal/internal/server/guard"
	"github.com/dmitrijs2005/abroadportal/internal/server/models"
	"github.com/dmitrijs2005/abroadportal/internal/server/notify"
	"github.com/dmitrijs2005/abroadportal/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/abroadportal/internal/server/steps"
	"github.com/dmitrijs2005/abroadportal/internal/server/storage"
)

const defaultRejectionReason = "please re-upload"

// FileStore is the object storage collaborator.
type FileStore interface {
	PresignPut(ctx context.Context, userID, docType, fileName string) (*storage.Upload, error)
	PresignGet(ctx context.Context, key string) (string, error)
	KeyFromURL(url string) (string, bool)
}

type UploadInput struct {
	Type     string
	FileName string
	FileURL  string
	Label    string
}

// RequirementStatus is one row of the student-facing review view.
type RequirementStatus struct {
	Type            string
	Label           string
	DocumentID      string
	Status          models.DocumentStatus
	RejectionReason *string
}

type ReviewStatus struct {
	Step           int
	ApprovalStatus models.ApprovalStatus
	Complete       bool
	Requirements   []RequirementStatus
}

type DocumentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	catalog     *steps.Catalog
	notifier    Notifier
	files       FileStore
	logger      logging.Logger
}

func NewDocumentService(db *sql.DB, rm repomanager.RepositoryManager, catalog *steps.Catalog, n Notifier, files FileStore, l logging.Logger) *DocumentService {
	return &DocumentService{
		db:          db,
		repomanager: rm,
		catalog:     catalog,
		notifier:    n,
		files:       files,
		logger:      l.With("module", "documents"),
	}
}

// Upload writes the (user, type) slot as uploaded. Re-uploading overwrites
// the existing slot in place. Staff-delivered types are refused.
func (s *DocumentService) Upload(ctx context.Context, userID string, in UploadInput) (string, error) {
	in.Type = strings.TrimSpace(in.Type)
	if in.Type == "" || in.FileURL == "" {
		return "", fmt.Errorf("%w: document type and file url are required", common.ErrorValidation)
	}
	if s.catalog.AdminOnly(in.Type) {
		return "", fmt.Errorf("%w: %s is delivered by staff", common.ErrorUnauthorized, in.Type)
	}
	label := in.Label
	if label == "" {
		label = s.catalog.Label(in.Type)
	}

	return inTxValue(ctx, s.db, s.repomanager, s.notifier, func(ctx context.Context, u *unit) (string, error) {
		owner, err := u.repos.Users(u.tx).GetByIDForUpdate(ctx, userID)
		if err != nil {
			return "", err
		}

		docs := u.repos.Documents(u.tx)
		prev, err := docs.GetByUserAndType(ctx, userID, in.Type)
		if err != nil && !errors.Is(err, common.ErrorNotFound) {
			return "", err
		}

		id, err := docs.Upsert(ctx, userID, in.Type, label, models.DocumentUploaded,
			models.FileRef{Name: in.FileName, URL: in.FileURL})
		if err != nil {
			return "", err
		}

		if prev != nil && prev.Status == models.DocumentApproved {
			if err := revokeApproval(ctx, u, s.catalog, owner, in.Type); err != nil {
				return "", err
			}
		}

		s.logger.Info(ctx, "document uploaded", "user_id", userID, "document_id", id, "type", in.Type)
		return id, nil
	})
}

// Delete resets an owned, not yet submitted upload back to an empty slot.
func (s *DocumentService) Delete(ctx context.Context, userID, docID string) error {
	return inTx(ctx, s.db, s.repomanager, s.notifier, func(ctx context.Context, u *unit) error {
		docs := u.repos.Documents(u.tx)
		d, err := docs.GetByID(ctx, docID)
		if err != nil {
			return err
		}
		if d.UserID != userID {
			return common.ErrorNotFound
		}
		if d.Status != models.DocumentUploaded {
			return fmt.Errorf("%w: only uploaded documents can be deleted, this one is %s", common.ErrInvalidState, d.Status)
		}
		return docs.ResetSlot(ctx, d.ID)
	})
}

// SubmitForReview moves the step's uploaded documents to reviewing and
// returns how many were submitted.
func (s *DocumentService) SubmitForReview(ctx context.Context, userID string, step int) (int, error) {
	if step < 1 || step > s.catalog.MaxStep() {
		return 0, fmt.Errorf("%w: step %d is out of range", common.ErrorValidation, step)
	}
	return inTxValue(ctx, s.db, s.repomanager, s.notifier, func(ctx context.Context, u *unit) (int, error) {
		owner, err := u.repos.Users(u.tx).GetByIDForUpdate(ctx, userID)
		if err != nil {
			return 0, err
		}
		if err := guard.RequireStep(guard.SessionFromUser(owner), step); err != nil {
			return 0, err
		}

		docs := u.repos.Documents(u.tx)
		all, err := docs.ListByUser(ctx, userID)
		if err != nil {
			return 0, err
		}

		relevant := s.catalog.Relevant(all, step)
		var uploaded []*models.Document
		inReview := len(relevant) > 0
		for _, d := range relevant {
			switch d.Status {
			case models.DocumentUploaded:
				uploaded = append(uploaded, d)
			case models.DocumentReviewing, models.DocumentApproved:
			default:
				inReview = false
			}
		}

		if len(uploaded) == 0 {
			if inReview {
				return 0, common.ErrAlreadyInReview
			}
			return 0, common.ErrNothingToSubmit
		}

		for _, d := range uploaded {
			if err := docs.UpdateStatus(ctx, d.ID, models.DocumentReviewing, nil); err != nil {
				return 0, err
			}
		}

		if step == owner.OnboardingStep {
			if _, err := u.repos.Users(u.tx).SetApprovalStatus(ctx, userID, models.ApprovalPending); err != nil {
				return 0, err
			}
		}

		if notice, ok := s.catalog.SubmittedNotice(step); ok {
			if err := u.emit(ctx, notify.Event{
				UserID:  userID,
				Type:    models.NotificationDocumentUploaded,
				Title:   notice.Title,
				Message: notice.Message,
				Data:    map[string]any{"step": step, "count": len(uploaded)},
			}); err != nil {
				return 0, err
			}
		}

		return len(uploaded), nil
	})
}

// SetStatus force-sets a document status on behalf of an admin.
func (s *DocumentService) SetStatus(ctx context.Context, actorID, docID string, status models.DocumentStatus, reason *string) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown document status %q", common.ErrorValidation, status)
	}

	var stored *string
	if status == models.DocumentRejected {
		r := defaultRejectionReason
		if reason != nil && strings.TrimSpace(*reason) != "" {
			r = strings.TrimSpace(*reason)
		}
		stored = &r
	}

	return inTx(ctx, s.db, s.repomanager, s.notifier, func(ctx context.Context, u *unit) error {
		docs := u.repos.Documents(u.tx)
		d, err := docs.GetByID(ctx, docID)
		if err != nil {
			return err
		}
		owner, err := u.repos.Users(u.tx).GetByIDForUpdate(ctx, d.UserID)
		if err != nil {
			return err
		}
		// the previous status decides the notifications, read it under the lock
		if d, err = docs.GetByID(ctx, docID); err != nil {
			return err
		}

		if err := docs.UpdateStatus(ctx, d.ID, status, stored); err != nil {
			return err
		}

		note := string(d.Status) + " -> " + string(status)
		if stored != nil {
			note += ": " + *stored
		}
		if err := u.audit(ctx, actorID, "set_document_status", models.AuditEntityDocument, d.ID, &note); err != nil {
			return err
		}

		if d.Status == models.DocumentApproved && status != models.DocumentApproved {
			if err := revokeApproval(ctx, u, s.catalog, owner, d.Type); err != nil {
				return err
			}
		}

		label := d.Label
		if label == "" {
			label = s.catalog.Label(d.Type)
		}
		data := map[string]any{"document_id": d.ID, "document_type": d.Type}

		switch status {
		case models.DocumentRejected:
			data["reason"] = *stored
			return u.emit(ctx, notify.Event{
				UserID:  owner.ID,
				Type:    models.NotificationDocumentRejected,
				Title:   label + " rejected",
				Message: fmt.Sprintf("Your %s was rejected: %s", strings.ToLower(label), *stored),
				Data:    data,
			})
		case models.DocumentApproved:
			if d.Status != models.DocumentApproved {
				if err := u.emit(ctx, notify.Event{
					UserID:  owner.ID,
					Type:    models.NotificationDocumentApproved,
					Title:   label + " approved",
					Message: fmt.Sprintf("Your %s has been approved.", strings.ToLower(label)),
					Data:    data,
				}); err != nil {
					return err
				}
			}
			_, err := cascade(ctx, u, s.catalog, owner)
			return err
		}
		return nil
	})
}

func (s *DocumentService) List(ctx context.Context, userID string) ([]*models.Document, error) {
	return s.repomanager.Documents(s.db).ListByUser(ctx, userID)
}

// Get returns a document visible to caller: its owner or any admin.
func (s *DocumentService) Get(ctx context.Context, caller *guard.Session, docID string) (*models.Document, error) {
	d, err := s.repomanager.Documents(s.db).GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin() && d.UserID != caller.UserID {
		return nil, common.ErrorNotFound
	}
	return d, nil
}

// ReviewStatus reports the user's persisted current step against its
// requirement set.
func (s *DocumentService) ReviewStatus(ctx context.Context, userID string) (*ReviewStatus, error) {
	owner, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	docs, err := s.repomanager.Documents(s.db).ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	types := s.catalog.RequirementsFor(owner.OnboardingStep)
	if st, ok := s.catalog.Step(owner.OnboardingStep); ok && st.Countersignature != "" {
		types = append(types, st.Countersignature)
	}

	idx := steps.ByType(docs)
	out := &ReviewStatus{
		Step:           owner.OnboardingStep,
		ApprovalStatus: owner.StepApprovalStatus,
		Complete:       s.catalog.IsStepComplete(docs, owner.OnboardingStep),
		Requirements:   make([]RequirementStatus, 0, len(types)),
	}
	for _, t := range types {
		rs := RequirementStatus{Type: t, Label: s.catalog.Label(t), Status: models.DocumentPending}
		if d, ok := idx[t]; ok {
			rs.DocumentID = d.ID
			rs.Status = d.Status
			rs.RejectionReason = d.RejectionReason
		}
		out.Requirements = append(out.Requirements, rs)
	}
	return out, nil
}

// RequestUpload returns a presigned PUT for a document of userID.
func (s *DocumentService) RequestUpload(ctx context.Context, userID, docType, fileName string) (*storage.Upload, error) {
	if strings.TrimSpace(docType) == "" {
		return nil, fmt.Errorf("%w: document type is required", common.ErrorValidation)
	}
	if _, err := s.repomanager.Users(s.db).GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.files.PresignPut(ctx, userID, docType, fileName)
}

// DownloadLink returns a URL for the stored file. Objects in our bucket get
// a presigned GET; external URLs are returned unchanged.
func (s *DocumentService) DownloadLink(ctx context.Context, caller *guard.Session, docID string) (string, error) {
	d, err := s.Get(ctx, caller, docID)
	if err != nil {
		return "", err
	}
	if !d.HasFile() {
		return "", fmt.Errorf("%w: document has no file", common.ErrInvalidState)
	}
	key, ok := s.files.KeyFromURL(*d.FileURL)
	if !ok {
		return *d.FileURL, nil
	}
	return s.files.PresignGet(ctx, key)
}
