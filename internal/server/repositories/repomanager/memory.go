package repomanager

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/abroadportal/internal/common"
	"github.com/dmitrijs2005/abroadportal/internal/dbx"
	"github.com/dmitrijs2005/abroadportal/internal/server/models"
	"github.com/dmitrijs2005/abroadportal/internal/server/repositories/audit"
	"github.com/dmitrijs2005/abroadportal/internal/server/repositories/documents"
	"github.com/dmitrijs2005/abroadportal/internal/server/repositories/notifications"
	"github.com/dmitrijs2005/abroadportal/internal/server/repositories/users"
	"github.com/google/uuid"
)

// InMemoryRepositoryManager keeps all state in process memory and ignores
// the DBTX it is given, so writes are not rolled back with the transaction.
// Each write advances an internal clock by one second, giving stable
// ordering by updated_at.
type InMemoryRepositoryManager struct {
	mu    sync.Mutex
	clock time.Time

	users         map[string]*models.User
	documents     map[string]*models.Document
	notifications []*models.Notification
	audit         []*models.AuditEntry
}

func NewInMemoryRepositoryManager() *InMemoryRepositoryManager {
	return &InMemoryRepositoryManager{
		clock:     time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		users:     map[string]*models.User{},
		documents: map[string]*models.Document{},
	}
}

func (m *InMemoryRepositoryManager) RunMigrations(context.Context, *sql.DB) error {
	return nil
}

func (m *InMemoryRepositoryManager) Users(dbx.DBTX) users.Repository {
	return memUsers{m}
}

func (m *InMemoryRepositoryManager) Documents(dbx.DBTX) documents.Repository {
	return memDocuments{m}
}

func (m *InMemoryRepositoryManager) Notifications(dbx.DBTX) notifications.Repository {
	return memNotifications{m}
}

func (m *InMemoryRepositoryManager) Audit(dbx.DBTX) audit.Repository {
	return memAudit{m}
}

// AuditEntries returns a snapshot of the audit log.
func (m *InMemoryRepositoryManager) AuditEntries() []models.AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.AuditEntry, 0, len(m.audit))
	for _, e := range m.audit {
		out = append(out, *e)
	}
	return out
}

func (m *InMemoryRepositoryManager) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

type memUsers struct{ m *InMemoryRepositoryManager }

func (r memUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	for _, existing := range r.m.users {
		if existing.Email == u.Email {
			return nil, fmt.Errorf("db error: duplicate email %q", u.Email)
		}
		if u.Phone != nil && existing.Phone != nil && *existing.Phone == *u.Phone {
			return nil, fmt.Errorf("db error: duplicate phone %q", *u.Phone)
		}
	}

	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = models.RoleStudent
	}
	u.OnboardingStep = models.FirstStep
	u.StepApprovalStatus = models.ApprovalPending
	u.CreatedAt = r.m.tick()
	u.UpdatedAt = u.CreatedAt

	cp := *u
	r.m.users[u.ID] = &cp
	return u, nil
}

func (r memUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	u, ok := r.m.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

// GetByIDForUpdate takes no lock; ordering is left to the transaction of
// the DBTX the caller runs in.
func (r memUsers) GetByIDForUpdate(ctx context.Context, id string) (*models.User, error) {
	return r.GetByID(ctx, id)
}

func (r memUsers) GetByPhone(_ context.Context, phone string) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	for _, u := range r.m.users {
		if u.Phone != nil && *u.Phone == phone {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	for _, u := range r.m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memUsers) update(id string, fn func(u *models.User) bool) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	u, ok := r.m.users[id]
	if !ok {
		return false, common.ErrorNotFound
	}
	if fn(u) {
		u.UpdatedAt = r.m.tick()
		return true, nil
	}
	return false, nil
}

func (r memUsers) UpdateProgress(_ context.Context, id string, step int, status models.ApprovalStatus) error {
	_, err := r.update(id, func(u *models.User) bool {
		u.OnboardingStep = step
		u.StepApprovalStatus = status
		return true
	})
	return err
}

func (r memUsers) SetApprovalStatus(_ context.Context, id string, status models.ApprovalStatus) (bool, error) {
	return r.update(id, func(u *models.User) bool {
		if u.StepApprovalStatus == status {
			return false
		}
		u.StepApprovalStatus = status
		return true
	})
}

func (r memUsers) SetSelectedProgram(_ context.Context, id string, program json.RawMessage) error {
	_, err := r.update(id, func(u *models.User) bool {
		u.SelectedProgram = append(json.RawMessage(nil), program...)
		return true
	})
	return err
}

func (r memUsers) SetVisaTrackingCode(_ context.Context, id string, code string) error {
	_, err := r.update(id, func(u *models.User) bool {
		u.VisaTrackingCode = &code
		return true
	})
	return err
}

type memDocuments struct{ m *InMemoryRepositoryManager }

func copyDoc(d *models.Document) *models.Document {
	cp := *d
	return &cp
}

func (r memDocuments) Upsert(_ context.Context, userID, docType, label string, status models.DocumentStatus, file models.FileRef) (string, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	now := r.m.tick()
	name, url := file.Name, file.URL
	for _, d := range r.m.documents {
		if d.UserID == userID && d.Type == docType {
			d.Label = label
			d.Status = status
			d.FileName = &name
			d.FileURL = &url
			d.RejectionReason = nil
			d.UpdatedAt = now
			return d.ID, nil
		}
	}

	d := &models.Document{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      docType,
		Label:     label,
		Status:    status,
		FileName:  &name,
		FileURL:   &url,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.m.documents[d.ID] = d
	return d.ID, nil
}

func (r memDocuments) GetByID(_ context.Context, id string) (*models.Document, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	d, ok := r.m.documents[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return copyDoc(d), nil
}

func (r memDocuments) GetByUserAndType(_ context.Context, userID, docType string) (*models.Document, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	for _, d := range r.m.documents {
		if d.UserID == userID && d.Type == docType {
			return copyDoc(d), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memDocuments) list(userID string, keep func(*models.Document) bool) []*models.Document {
	var out []*models.Document
	for _, d := range r.m.documents {
		if d.UserID == userID && keep(d) {
			out = append(out, copyDoc(d))
		}
	}
	return out
}

func (r memDocuments) ListByUser(_ context.Context, userID string) ([]*models.Document, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	out := r.list(userID, func(*models.Document) bool { return true })
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r memDocuments) OldestRejected(_ context.Context, userID string) (*models.Document, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	out := r.list(userID, func(d *models.Document) bool { return d.Status == models.DocumentRejected })
	if len(out) == 0 {
		return nil, common.ErrorNotFound
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.Before(out[j].UpdatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out[0], nil
}

func (r memDocuments) UpdateStatus(_ context.Context, id string, status models.DocumentStatus, reason *string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	d, ok := r.m.documents[id]
	if !ok {
		return common.ErrorNotFound
	}
	d.Status = status
	d.RejectionReason = nil
	if reason != nil {
		v := *reason
		d.RejectionReason = &v
	}
	d.UpdatedAt = r.m.tick()
	return nil
}

func (r memDocuments) ResetSlot(_ context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	d, ok := r.m.documents[id]
	if !ok {
		return common.ErrorNotFound
	}
	d.Status = models.DocumentPending
	d.FileName = nil
	d.FileURL = nil
	d.RejectionReason = nil
	d.UpdatedAt = r.m.tick()
	return nil
}

type memNotifications struct{ m *InMemoryRepositoryManager }

func (r memNotifications) Create(_ context.Context, n *models.Notification) (*models.Notification, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	n.CreatedAt = r.m.tick()
	cp := *n
	r.m.notifications = append(r.m.notifications, &cp)
	return n, nil
}

func (r memNotifications) ListByUser(_ context.Context, userID string, unreadOnly bool, limit int) ([]*models.Notification, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	var out []*models.Notification
	for i := len(r.m.notifications) - 1; i >= 0; i-- {
		n := r.m.notifications[i]
		if n.UserID != userID || (unreadOnly && n.IsRead) {
			continue
		}
		cp := *n
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r memNotifications) CountUnread(_ context.Context, userID string) (int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	c := 0
	for _, n := range r.m.notifications {
		if n.UserID == userID && !n.IsRead {
			c++
		}
	}
	return c, nil
}

func (r memNotifications) MarkRead(_ context.Context, userID, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	for _, n := range r.m.notifications {
		if n.ID == id && n.UserID == userID {
			n.IsRead = true
			return nil
		}
	}
	return common.ErrorNotFound
}

type memAudit struct{ m *InMemoryRepositoryManager }

func (r memAudit) Create(_ context.Context, e *models.AuditEntry) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	e.ID = int64(len(r.m.audit) + 1)
	e.CreatedAt = r.m.tick()
	cp := *e
	r.m.audit = append(r.m.audit, &cp)
	return nil
}

func (r memAudit) ListByEntity(_ context.Context, entity, entityID string) ([]*models.AuditEntry, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	var out []*models.AuditEntry
	for _, e := range r.m.audit {
		if e.Entity == entity && e.EntityID == entityID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

