package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/abroadportal/internal/common"
	"github.com/dmitrijs2005/abroadportal/internal/logging"
	"github.com/dmitrijs2005/abroadportal/internal/server/guard"
	"github.com/dmitrijs2005/abroadportal/internal/server/models"
	"github.com/dmitrijs2005/abroadportal/internal/server/notify"
	"github.com/dmitrijs2005/abroadportal/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/abroadportal/internal/server/steps"
)

// Progress is the student's position in the pipeline.
type Progress struct {
	Step             int
	MaxStep          int
	ApprovalStatus   models.ApprovalStatus
	Current          steps.Step
	SelectedProgram  json.RawMessage
	VisaTrackingCode *string
	Missing          []string
}

type ProgressionService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	catalog     *steps.Catalog
	notifier    Notifier
	logger      logging.Logger
}

func NewProgressionService(db *sql.DB, rm repomanager.RepositoryManager, catalog *steps.Catalog, n Notifier, l logging.Logger) *ProgressionService {
	return &ProgressionService{
		db:          db,
		repomanager: rm,
		catalog:     catalog,
		notifier:    n,
		logger:      l.With("module", "progression"),
	}
}

// Advance moves the user to target, which must be exactly the next step.
func (s *ProgressionService) Advance(ctx context.Context, userID string, target int) (*models.User, error) {
	return inTxValue(ctx, s.db, s.repomanager, s.notifier, func(ctx context.Context, u *unit) (*models.User, error) {
		owner, err := u.repos.Users(u.tx).GetByIDForUpdate(ctx, userID)
		if err != nil {
			return nil, err
		}
		if err := s.advance(ctx, u, owner, target); err != nil {
			return nil, err
		}
		return owner, nil
	})
}

func (s *ProgressionService) advance(ctx context.Context, u *unit, owner *models.User, target int) error {
	if target > s.catalog.MaxStep() {
		return fmt.Errorf("%w: step %d is beyond the last step %d", common.ErrMaxStepExceeded, target, s.catalog.MaxStep())
	}
	if target != owner.OnboardingStep+1 {
		return fmt.Errorf("%w: cannot move from step %d to step %d", common.ErrInvalidTransition, owner.OnboardingStep, target)
	}

	docs, err := u.repos.Documents(u.tx).ListByUser(ctx, owner.ID)
	if err != nil {
		return err
	}
	if missing := s.catalog.MissingForAdvance(owner, docs); len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", common.ErrPrerequisiteNotMet, strings.Join(missing, ", "))
	}

	from := owner.OnboardingStep
	if err := moveTo(ctx, u, owner, target, models.ApprovalPending); err != nil {
		return err
	}
	s.logger.Info(ctx, "step advanced", "user_id", owner.ID, "from", from, "to", target)
	return nil
}

// SelectProgram stores the chosen program and leaves the program selection
// step in the same transaction.
func (s *ProgressionService) SelectProgram(ctx context.Context, userID string, program json.RawMessage) (*models.User, error) {
	if len(program) == 0 || !json.Valid(program) {
		return nil, fmt.Errorf("%w: program must be a JSON document", common.ErrorValidation)
	}

	return inTxValue(ctx, s.db, s.repomanager, s.notifier, func(ctx context.Context, u *unit) (*models.User, error) {
		users := u.repos.Users(u.tx)
		owner, err := users.GetByIDForUpdate(ctx, userID)
		if err != nil {
			return nil, err
		}

		st, ok := s.catalog.Step(owner.OnboardingStep)
		if !ok || !st.RequiresProgram {
			return nil, fmt.Errorf("%w: program selection is not open at step %d", common.ErrInvalidTransition, owner.OnboardingStep)
		}

		if err := users.SetSelectedProgram(ctx, userID, program); err != nil {
			return nil, err
		}
		owner.SelectedProgram = program

		if err := s.advance(ctx, u, owner, owner.OnboardingStep+1); err != nil {
			return nil, err
		}
		return owner, nil
	})
}

// ConfirmInvitation is the student's acknowledgement of the invitation
// letter, moving them into the visa stage.
func (s *ProgressionService) ConfirmInvitation(ctx context.Context, userID string) (*models.User, error) {
	at, _ := s.catalog.Number(steps.KeyUniversityApplication)

	return inTxValue(ctx, s.db, s.repomanager, s.notifier, func(ctx context.Context, u *unit) (*models.User, error) {
		owner, err := u.repos.Users(u.tx).GetByIDForUpdate(ctx, userID)
		if err != nil {
			return nil, err
		}
		if owner.OnboardingStep != at {
			return nil, fmt.Errorf("%w: invitation can only be confirmed at step %d", common.ErrInvalidTransition, at)
		}
		if err := s.advance(ctx, u, owner, at+1); err != nil {
			return nil, err
		}
		return owner, nil
	})
}

func (s *ProgressionService) SetVisaTrackingCode(ctx context.Context, userID, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return fmt.Errorf("%w: tracking code is required", common.ErrorValidation)
	}
	floor, _ := s.catalog.Number(steps.KeyVisa)

	return inTx(ctx, s.db, s.repomanager, s.notifier, func(ctx context.Context, u *unit) error {
		users := u.repos.Users(u.tx)
		owner, err := users.GetByIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if err := guard.RequireStep(guard.SessionFromUser(owner), floor); err != nil {
			return err
		}
		if err := users.SetVisaTrackingCode(ctx, userID, code); err != nil {
			return err
		}
		return u.emit(ctx, notify.Event{
			UserID:  userID,
			Type:    models.NotificationApplicationUpdate,
			Title:   "Visa application tracking",
			Message: "Your visa tracking code was saved: " + code,
			Data:    map[string]any{"visa_tracking_code": code},
		})
	})
}

func (s *ProgressionService) Progress(ctx context.Context, userID string) (*Progress, error) {
	owner, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	docs, err := s.repomanager.Documents(s.db).ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	st, _ := s.catalog.Step(owner.OnboardingStep)
	p := &Progress{
		Step:             owner.OnboardingStep,
		MaxStep:          s.catalog.MaxStep(),
		ApprovalStatus:   owner.StepApprovalStatus,
		Current:          st,
		SelectedProgram:  owner.SelectedProgram,
		VisaTrackingCode: owner.VisaTrackingCode,
	}
	if owner.OnboardingStep < s.catalog.MaxStep() {
		p.Missing = s.catalog.MissingForAdvance(owner, docs)
	}
	return p, nil
}
