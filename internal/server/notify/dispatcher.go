// Package notify delivers user notifications: the in-app row is written in
// the caller's transaction, the outbound relay message is sent after commit
// from a background worker.
package notify

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/abroadportal/internal/dbx"
	"github.com/dmitrijs2005/abroadportal/internal/logging"
	"github.com/dmitrijs2005/abroadportal/internal/server/models"
	"github.com/dmitrijs2005/abroadportal/internal/server/relay"
	"github.com/dmitrijs2005/abroadportal/internal/server/repositories/repomanager"
)

const drainTimeout = 5 * time.Second

// Event is one notify(userID, type, title, message, data) call.
type Event struct {
	UserID  string
	Type    models.NotificationType
	Title   string
	Message string
	Data    map[string]any
}

type Publisher interface {
	Publish(ctx context.Context, msg relay.Message) error
}

type LinkIssuer interface {
	Issue(userID string) (string, error)
}

type Dispatcher struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	links  LinkIssuer
	pub    Publisher
	queue  chan *models.Notification
	logger logging.Logger
}

// NewDispatcher returns a dispatcher with a relay queue of queueSize. A nil
// publisher disables the outbound relay; in-app rows are still written.
func NewDispatcher(db *sql.DB, repos repomanager.RepositoryManager, links LinkIssuer, pub Publisher, queueSize int, l logging.Logger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Dispatcher{
		db:     db,
		repos:  repos,
		links:  links,
		pub:    pub,
		queue:  make(chan *models.Notification, queueSize),
		logger: l.With("module", "notify"),
	}
}

// Stage persists the in-app notification using tx.
func (d *Dispatcher) Stage(ctx context.Context, tx dbx.DBTX, ev Event) (*models.Notification, error) {
	n := &models.Notification{
		UserID:  ev.UserID,
		Type:    ev.Type,
		Title:   ev.Title,
		Message: ev.Message,
	}
	if len(ev.Data) > 0 {
		b, err := json.Marshal(ev.Data)
		if err != nil {
			return nil, fmt.Errorf("encode notification data: %w", err)
		}
		n.Data = b
	}

	return d.repos.Notifications(tx).Create(ctx, n)
}

// Relay hands committed notifications to the worker. It never blocks: when
// the queue is full the message is dropped and the in-app row remains.
func (d *Dispatcher) Relay(ctx context.Context, notes ...*models.Notification) {
	if d.pub == nil {
		return
	}
	for _, n := range notes {
		select {
		case d.queue <- n:
		default:
			d.logger.Warn(ctx, "relay queue full, message dropped", "notification_id", n.ID, "user_id", n.UserID)
		}
	}
}

// Run delivers queued notifications until ctx is cancelled, then drains
// what is already queued with a short deadline.
func (d *Dispatcher) Run(ctx context.Context) error {
	if d.pub == nil {
		d.logger.Info(ctx, "relay disabled")
		<-ctx.Done()
		return nil
	}

	d.logger.Info(ctx, "Starting notification relay")
	for {
		select {
		case n := <-d.queue:
			d.deliver(ctx, n)
		case <-ctx.Done():
			d.drain(context.WithoutCancel(ctx))
			return nil
		}
	}
}

func (d *Dispatcher) drain(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, drainTimeout)
	defer cancel()

	for {
		select {
		case n := <-d.queue:
			d.deliver(ctx, n)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, n *models.Notification) {
	if err := d.send(ctx, n); err != nil {
		d.logger.Warn(ctx, "relay delivery failed", "notification_id", n.ID, "user_id", n.UserID, "error", err)
	}
}

func (d *Dispatcher) send(ctx context.Context, n *models.Notification) error {
	u, err := d.repos.Users(d.db).GetByID(ctx, n.UserID)
	if err != nil {
		return err
	}
	if u.Phone == nil || *u.Phone == "" {
		d.logger.Debug(ctx, "no phone on file, relay skipped", "user_id", n.UserID)
		return nil
	}

	msg := relay.Message{
		NotificationID: n.ID,
		UserID:         n.UserID,
		Phone:          *u.Phone,
		Type:           string(n.Type),
		Title:          n.Title,
		Message:        n.Message,
		Data:           n.Data,
		CreatedAt:      n.CreatedAt,
	}

	if d.links != nil {
		link, err := d.links.Issue(n.UserID)
		if err != nil {
			return fmt.Errorf("issue login link: %w", err)
		}
		msg.LoginLink = link
	}

	if err := d.pub.Publish(ctx, msg); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}
