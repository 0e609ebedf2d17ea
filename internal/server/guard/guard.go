// Package guard implements the read-only capability checks applied before
// any step-scoped or privileged operation runs.
package guard

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/abroadportal/internal/common"
	"github.com/dmitrijs2005/abroadportal/internal/server/models"
)

// Session is the caller as loaded fresh from the users table.
type Session struct {
	UserID             string
	Role               models.Role
	OnboardingStep     int
	StepApprovalStatus models.ApprovalStatus
}

func SessionFromUser(u *models.User) *Session {
	return &Session{
		UserID:             u.ID,
		Role:               u.Role,
		OnboardingStep:     u.OnboardingStep,
		StepApprovalStatus: u.StepApprovalStatus,
	}
}

func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == models.RoleAdmin
}

// RequireStep is a floor check: earlier steps stay reachable.
func RequireStep(s *Session, step int) error {
	if s == nil {
		return common.ErrorUnauthorized
	}
	if s.OnboardingStep < step {
		return fmt.Errorf("%w: step %d requires reaching step %d first", common.ErrStepLocked, s.OnboardingStep, step)
	}
	return nil
}

func RequireAdmin(s *Session) error {
	if !s.IsAdmin() {
		return fmt.Errorf("%w: admin role required", common.ErrorUnauthorized)
	}
	return nil
}

type sessionKey struct{}

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// FromContext returns the session stored by the auth interceptor.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*Session)
	return s, ok && s != nil
}
