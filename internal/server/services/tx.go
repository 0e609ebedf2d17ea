package services

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/abroadportal/internal/dbx"
	"github.com/dmitrijs2005/abroadportal/internal/server/models"
	"github.com/dmitrijs2005/abroadportal/internal/server/notify"
	"github.com/dmitrijs2005/abroadportal/internal/server/repositories/repomanager"
)

// Notifier is the notification collaborator: Stage runs inside the
// transaction, Relay after it commits.
type Notifier interface {
	Stage(ctx context.Context, tx dbx.DBTX, ev notify.Event) (*models.Notification, error)
	Relay(ctx context.Context, notes ...*models.Notification)
}

// unit is one transactional operation: the tx handle, repositories bound
// to it, and the notifications to relay once it commits.
type unit struct {
	tx     dbx.DBTX
	repos  repomanager.RepositoryManager
	notify Notifier
	staged []*models.Notification
}

func (u *unit) emit(ctx context.Context, ev notify.Event) error {
	n, err := u.notify.Stage(ctx, u.tx, ev)
	if err != nil {
		return err
	}
	u.staged = append(u.staged, n)
	return nil
}

func (u *unit) audit(ctx context.Context, actorID, action, entity, entityID string, note *string) error {
	return u.repos.Audit(u.tx).Create(ctx, &models.AuditEntry{
		ActorID:  actorID,
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		Note:     note,
	})
}

// inTx runs fn in one transaction and relays its notifications after commit.
func inTx(ctx context.Context, db *sql.DB, repos repomanager.RepositoryManager, n Notifier, fn func(ctx context.Context, u *unit) error) error {
	u := &unit{repos: repos, notify: n}
	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		u.tx = tx
		return fn(ctx, u)
	})
	if err != nil {
		return err
	}
	if len(u.staged) > 0 {
		n.Relay(ctx, u.staged...)
	}
	return nil
}

// inTxValue is inTx for operations that return a value.
func inTxValue[T any](ctx context.Context, db *sql.DB, repos repomanager.RepositoryManager, n Notifier, fn func(ctx context.Context, u *unit) (T, error)) (T, error) {
	var out T
	err := inTx(ctx, db, repos, n, func(ctx context.Context, u *unit) error {
		v, err := fn(ctx, u)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
