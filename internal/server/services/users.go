package services

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/abroadportal/internal/server/auth"
	"github.com/dmitrijs2005/abroadportal/internal/server/guard"
	"github.com/dmitrijs2005/abroadportal/internal/server/models"
	"github.com/dmitrijs2005/abroadportal/internal/server/repositories/repomanager"
)

type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	links       *auth.LinkIssuer
	access      *auth.AccessIssuer
}

func NewUserService(db *sql.DB, rm repomanager.RepositoryManager, links *auth.LinkIssuer, access *auth.AccessIssuer) *UserService {
	return &UserService{db: db, repomanager: rm, links: links, access: access}
}

// Session loads the caller's current state; nothing is trusted from the
// token except the user id.
func (s *UserService) Session(ctx context.Context, userID string) (*guard.Session, error) {
	u, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return guard.SessionFromUser(u), nil
}

// ExchangeLoginLink trades a login link token for an access token.
func (s *UserService) ExchangeLoginLink(ctx context.Context, token string) (string, *models.User, error) {
	userID, err := s.links.Redeem(token)
	if err != nil {
		return "", nil, err
	}
	u, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return "", nil, err
	}
	access, err := s.access.Issue(u.ID, u.Role)
	if err != nil {
		return "", nil, err
	}
	return access, u, nil
}
