package services

import (
	"context"

	"github.com/dmitrijs2005/abroadportal/internal/server/models"
	"github.com/dmitrijs2005/abroadportal/internal/server/notify"
	"github.com/dmitrijs2005/abroadportal/internal/server/steps"
)

// cascade recomputes completeness of owner's current step after a document
// was approved. owner must be locked by the caller. Only a real
// non-approved -> approved transition emits step_completed; the step number
// is never changed here.
func cascade(ctx context.Context, u *unit, catalog *steps.Catalog, owner *models.User) (bool, error) {
	docs, err := u.repos.Documents(u.tx).ListByUser(ctx, owner.ID)
	if err != nil {
		return false, err
	}
	if !catalog.IsStepComplete(docs, owner.OnboardingStep) {
		return false, nil
	}

	changed, err := u.repos.Users(u.tx).SetApprovalStatus(ctx, owner.ID, models.ApprovalApproved)
	if err != nil || !changed {
		return false, err
	}
	owner.StepApprovalStatus = models.ApprovalApproved

	notice := catalog.CompletedNotice(owner.OnboardingStep)
	return true, u.emit(ctx, notify.Event{
		UserID:  owner.ID,
		Type:    models.NotificationStepCompleted,
		Title:   notice.Title,
		Message: notice.Message,
		Data:    map[string]any{"step": owner.OnboardingStep},
	})
}

// revokeApproval drops owner back to pending when docType stops counting
// toward an already approved current step.
func revokeApproval(ctx context.Context, u *unit, catalog *steps.Catalog, owner *models.User, docType string) error {
	if owner.StepApprovalStatus != models.ApprovalApproved || !catalog.Gates(owner.OnboardingStep, docType) {
		return nil
	}
	if _, err := u.repos.Users(u.tx).SetApprovalStatus(ctx, owner.ID, models.ApprovalPending); err != nil {
		return err
	}
	owner.StepApprovalStatus = models.ApprovalPending
	return nil
}

// moveTo writes step and status in one statement.
func moveTo(ctx context.Context, u *unit, owner *models.User, step int, status models.ApprovalStatus) error {
	if err := u.repos.Users(u.tx).UpdateProgress(ctx, owner.ID, step, status); err != nil {
		return err
	}
	owner.OnboardingStep = step
	owner.StepApprovalStatus = status
	return nil
}
