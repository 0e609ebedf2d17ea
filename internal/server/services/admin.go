package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/abroadportal/internal/common"
	"github.com/dmitrijs2005/abroadportal/internal/logging"
	"github.com/dmitrijs2005/abroadportal/internal/server/models"
	"github.com/dmitrijs2005/abroadportal/internal/server/notify"
	"github.com/dmitrijs2005/abroadportal/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/abroadportal/internal/server/steps"
)

// Overview is what staff see for a single student.
type Overview struct {
	User      *models.User
	Documents []*models.Document
	Complete  bool
}

type AdminService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	catalog     *steps.Catalog
	notifier    Notifier
	logger      logging.Logger
}

func NewAdminService(db *sql.DB, rm repomanager.RepositoryManager, catalog *steps.Catalog, n Notifier, l logging.Logger) *AdminService {
	return &AdminService{
		db:          db,
		repomanager: rm,
		catalog:     catalog,
		notifier:    n,
		logger:      l.With("module", "admin"),
	}
}

func (s *AdminService) RegisterStudent(ctx context.Context, actorID, email, phone string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", common.ErrorValidation)
	}
	user := &models.User{Email: email, Role: models.RoleStudent}
	if p := NormalizePhone(phone); p != "" {
		user.Phone = &p
	}

	return inTxValue(ctx, s.db, s.repomanager, s.notifier, func(ctx context.Context, u *unit) (*models.User, error) {
		created, err := u.repos.Users(u.tx).Create(ctx, user)
		if err != nil {
			return nil, err
		}
		if err := u.audit(ctx, actorID, "register_student", models.AuditEntityUser, created.ID, nil); err != nil {
			return nil, err
		}
		return created, nil
	})
}

// EnsureAdmin returns the admin account for email, creating it when missing.
func (s *AdminService) EnsureAdmin(ctx context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", common.ErrorValidation)
	}

	return inTxValue(ctx, s.db, s.repomanager, s.notifier, func(ctx context.Context, u *unit) (*models.User, error) {
		users := u.repos.Users(u.tx)
		existing, err := users.GetByEmail(ctx, email)
		if err == nil {
			if !existing.IsAdmin() {
				return nil, fmt.Errorf("%w: %s exists and is not an admin", common.ErrInvalidState, email)
			}
			return existing, nil
		}
		if !errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}

		created, err := users.Create(ctx, &models.User{Email: email, Role: models.RoleAdmin})
		if err != nil {
			return nil, err
		}
		s.logger.Info(ctx, "bootstrap admin created", "user_id", created.ID)
		return created, nil
	})
}

// SetStep moves a student to any step in range, in either direction.
func (s *AdminService) SetStep(ctx context.Context, actorID, userID string, newStep int) (*models.User, error) {
	if newStep < models.FirstStep || newStep > s.catalog.MaxStep() {
		return nil, fmt.Errorf("%w: step must be between %d and %d", common.ErrorValidation, models.FirstStep, s.catalog.MaxStep())
	}

	return inTxValue(ctx, s.db, s.repomanager, s.notifier, func(ctx context.Context, u *unit) (*models.User, error) {
		owner, err := u.repos.Users(u.tx).GetByIDForUpdate(ctx, userID)
		if err != nil {
			return nil, err
		}

		oldStep := owner.OnboardingStep
		if oldStep == newStep {
			return owner, nil
		}
		if err := moveTo(ctx, u, owner, newStep, models.ApprovalPending); err != nil {
			return nil, err
		}

		note := strconv.Itoa(oldStep) + " -> " + strconv.Itoa(newStep)
		if err := u.audit(ctx, actorID, "set_step", models.AuditEntityUser, userID, &note); err != nil {
			return nil, err
		}

		title := s.stepTitle(newStep)
		data := map[string]any{"old_step": oldStep, "new_step": newStep}
		ev := notify.Event{
			UserID:  userID,
			Type:    models.NotificationStepCompleted,
			Title:   "Congratulations!",
			Message: "You have advanced to step " + strconv.Itoa(newStep) + ": " + title + ".",
			Data:    data,
		}
		if newStep < oldStep {
			ev.Type = models.NotificationApplicationUpdate
			ev.Title = "Application updated"
			ev.Message = "Your application was moved back to step " + strconv.Itoa(newStep) + ": " + title + "."
		}
		if err := u.emit(ctx, ev); err != nil {
			return nil, err
		}
		return owner, nil
	})
}

// ApproveCurrentStep approves the student's current step and moves them one
// step forward. At the last step the status stays approved.
func (s *AdminService) ApproveCurrentStep(ctx context.Context, actorID, userID string) (*models.User, error) {
	return inTxValue(ctx, s.db, s.repomanager, s.notifier, func(ctx context.Context, u *unit) (*models.User, error) {
		owner, err := u.repos.Users(u.tx).GetByIDForUpdate(ctx, userID)
		if err != nil {
			return nil, err
		}

		cur := owner.OnboardingStep
		if st, ok := s.catalog.Step(cur); ok && st.RequiresAnyUpload {
			docs, err := u.repos.Documents(u.tx).ListByUser(ctx, userID)
			if err != nil {
				return nil, err
			}
			if !steps.AnyUploaded(docs) {
				return nil, fmt.Errorf("%w: student has not uploaded any documents yet", common.ErrPrerequisiteNotMet)
			}
		}

		newStep := min(cur+1, s.catalog.MaxStep())
		status := models.ApprovalPending
		if newStep >= s.catalog.MaxStep() {
			status = models.ApprovalApproved
		}
		if err := moveTo(ctx, u, owner, newStep, status); err != nil {
			return nil, err
		}

		note := "step " + strconv.Itoa(cur)
		if err := u.audit(ctx, actorID, "approve_step", models.AuditEntityUser, userID, &note); err != nil {
			return nil, err
		}

		if newStep != cur {
			notice := s.catalog.CompletedNotice(cur)
			if err := u.emit(ctx, notify.Event{
				UserID:  userID,
				Type:    models.NotificationStepCompleted,
				Title:   notice.Title,
				Message: notice.Message,
				Data:    map[string]any{"step": cur, "new_step": newStep},
			}); err != nil {
				return nil, err
			}
		}
		return owner, nil
	})
}

// RejectCurrentStep marks the current step rejected. The reason is kept in
// the audit log only.
func (s *AdminService) RejectCurrentStep(ctx context.Context, actorID, userID string, reason *string) (*models.User, error) {
	return inTxValue(ctx, s.db, s.repomanager, s.notifier, func(ctx context.Context, u *unit) (*models.User, error) {
		users := u.repos.Users(u.tx)
		owner, err := users.GetByIDForUpdate(ctx, userID)
		if err != nil {
			return nil, err
		}
		if _, err := users.SetApprovalStatus(ctx, userID, models.ApprovalRejected); err != nil {
			return nil, err
		}
		owner.StepApprovalStatus = models.ApprovalRejected

		if err := u.audit(ctx, actorID, "reject_step", models.AuditEntityUser, userID, reason); err != nil {
			return nil, err
		}
		return owner, nil
	})
}

// artifact describes one admin-delivered document.
type artifact struct {
	docType string
	// advanceAt is the only step at which delivery moves the student on.
	advanceAt int
	check     func(owner *models.User, docs map[string]*models.Document) error
	notify    bool
}

// UploadCountersignedContract stores the admin-signed contract. Requires the
// student's signed contract to exist.
func (s *AdminService) UploadCountersignedContract(ctx context.Context, actorID, userID string, file models.FileRef) (*models.User, error) {
	at, _ := s.catalog.Number(steps.KeyContract)
	return s.deliver(ctx, actorID, userID, file, artifact{
		docType:   models.DocAdminContract,
		advanceAt: at,
		notify:    true,
		check: func(_ *models.User, docs map[string]*models.Document) error {
			if _, ok := docs[models.DocSignedContract]; !ok {
				return fmt.Errorf("%w: student has not uploaded a signed contract", common.ErrPrerequisiteNotMet)
			}
			return nil
		},
	})
}

// UploadInvitationLetter stores the university invitation. Requires an
// approved translation or a student already past the translation step.
func (s *AdminService) UploadInvitationLetter(ctx context.Context, actorID, userID string, file models.FileRef) (*models.User, error) {
	at, _ := s.catalog.Number(steps.KeyUniversityApplication)
	translation, _ := s.catalog.Number(steps.KeyTranslation)
	return s.deliver(ctx, actorID, userID, file, artifact{
		docType:   models.DocInvitationLetter,
		advanceAt: at,
		check: func(owner *models.User, docs map[string]*models.Document) error {
			if owner.OnboardingStep > translation {
				return nil
			}
			for t, d := range docs {
				if strings.HasPrefix(t, models.TranslatedPrefix) && d.Status == models.DocumentApproved {
					return nil
				}
			}
			return fmt.Errorf("%w: no approved translation yet", common.ErrPrerequisiteNotMet)
		},
	})
}

func (s *AdminService) UploadFlightTicket(ctx context.Context, actorID, userID string, file models.FileRef) (*models.User, error) {
	at, _ := s.catalog.Number(steps.KeyVisa)
	return s.deliver(ctx, actorID, userID, file, artifact{
		docType:   models.DocFlightTicket,
		advanceAt: at,
	})
}

func (s *AdminService) deliver(ctx context.Context, actorID, userID string, file models.FileRef, a artifact) (*models.User, error) {
	if file.URL == "" {
		return nil, fmt.Errorf("%w: file url is required", common.ErrorValidation)
	}

	return inTxValue(ctx, s.db, s.repomanager, s.notifier, func(ctx context.Context, u *unit) (*models.User, error) {
		owner, err := u.repos.Users(u.tx).GetByIDForUpdate(ctx, userID)
		if err != nil {
			return nil, err
		}

		docs := u.repos.Documents(u.tx)
		if a.check != nil {
			all, err := docs.ListByUser(ctx, userID)
			if err != nil {
				return nil, err
			}
			if err := a.check(owner, steps.ByType(all)); err != nil {
				return nil, err
			}
		}

		label := s.catalog.Label(a.docType)
		id, err := docs.Upsert(ctx, userID, a.docType, label, models.DocumentApproved, file)
		if err != nil {
			return nil, err
		}
		if err := u.audit(ctx, actorID, "upload_"+a.docType, models.AuditEntityDocument, id, nil); err != nil {
			return nil, err
		}

		if owner.OnboardingStep == a.advanceAt {
			if err := moveTo(ctx, u, owner, a.advanceAt+1, models.ApprovalPending); err != nil {
				return nil, err
			}
			s.logger.Info(ctx, "step advanced by delivery", "user_id", userID, "type", a.docType, "to", owner.OnboardingStep)
		}

		if a.notify {
			if err := u.emit(ctx, notify.Event{
				UserID:  userID,
				Type:    models.NotificationDocumentApproved,
				Title:   label + " ready",
				Message: "Your " + strings.ToLower(label) + " has been uploaded by our team.",
				Data:    map[string]any{"document_id": id, "document_type": a.docType},
			}); err != nil {
				return nil, err
			}
		}
		return owner, nil
	})
}

func (s *AdminService) AuditLog(ctx context.Context, entity, entityID string) ([]*models.AuditEntry, error) {
	return s.repomanager.Audit(s.db).ListByEntity(ctx, entity, entityID)
}

func (s *AdminService) Overview(ctx context.Context, userID string) (*Overview, error) {
	owner, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	docs, err := s.repomanager.Documents(s.db).ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Overview{
		User:      owner,
		Documents: docs,
		Complete:  s.catalog.IsStepComplete(docs, owner.OnboardingStep),
	}, nil
}

func (s *AdminService) stepTitle(n int) string {
	if st, ok := s.catalog.Step(n); ok && st.Title != "" {
		return st.Title
	}
	return "step " + strconv.Itoa(n)
}
