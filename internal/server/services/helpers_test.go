package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"

	"github.com/dmitrijs2005/abroadportal/internal/dbx"
	"github.com/dmitrijs2005/abroadportal/internal/logging"
	"github.com/dmitrijs2005/abroadportal/internal/server/models"
	"github.com/dmitrijs2005/abroadportal/internal/server/notify"
	"github.com/dmitrijs2005/abroadportal/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/abroadportal/internal/server/steps"
	"github.com/dmitrijs2005/abroadportal/internal/server/storage"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// recorder stages notifications into the in-memory store and remembers
// what was relayed after commit.
type recorder struct {
	mu        sync.Mutex
	rm        *repomanager.InMemoryRepositoryManager
	relayed   []*models.Notification
	failStage error
}

func (r *recorder) Stage(ctx context.Context, tx dbx.DBTX, ev notify.Event) (*models.Notification, error) {
	if r.failStage != nil {
		return nil, r.failStage
	}
	n := &models.Notification{UserID: ev.UserID, Type: ev.Type, Title: ev.Title, Message: ev.Message}
	if len(ev.Data) > 0 {
		b, err := json.Marshal(ev.Data)
		if err != nil {
			return nil, err
		}
		n.Data = b
	}
	return r.rm.Notifications(tx).Create(ctx, n)
}

func (r *recorder) Relay(_ context.Context, notes ...*models.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.relayed = append(r.relayed, notes...)
}

func (r *recorder) ofType(typ models.NotificationType) []*models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Notification
	for _, n := range r.relayed {
		if n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.relayed)
}

type fakeFiles struct{}

func (fakeFiles) PresignPut(_ context.Context, userID, docType, fileName string) (*storage.Upload, error) {
	key := storage.StorageKey(userID, docType, fileName)
	return &storage.Upload{
		Key:       key,
		URL:       "https://bucket.example.com/" + key + "?X-Amz-Signature=put",
		ObjectURL: "https://bucket.example.com/" + key,
	}, nil
}

func (fakeFiles) PresignGet(_ context.Context, key string) (string, error) {
	return "https://bucket.example.com/" + key + "?X-Amz-Signature=get", nil
}

func (fakeFiles) KeyFromURL(url string) (string, bool) {
	const prefix = "https://bucket.example.com/"
	if len(url) > len(prefix) && url[:len(prefix)] == prefix {
		return url[len(prefix):], true
	}
	return "", false
}

type env struct {
	db       *sql.DB
	rm       *repomanager.InMemoryRepositoryManager
	catalog  *steps.Catalog
	notes    *recorder
	docs     *DocumentService
	progress *ProgressionService
	admin    *AdminService
	inbound  *ResubmissionService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	return newEnvWithDSN(t, ":memory:")
}

// newSerializedEnv backs transactions with a sqlite file opened in
// BEGIN IMMEDIATE mode, so concurrent operations run one at a time the way
// the owner row lock orders them in Postgres.
func newSerializedEnv(t *testing.T) *env {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "tx.db") + "?_txlock=immediate&_pragma=busy_timeout(10000)"
	return newEnvWithDSN(t, dsn)
}

func newEnvWithDSN(t *testing.T, dsn string) *env {
	t.Helper()
	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rm := repomanager.NewInMemoryRepositoryManager()
	cat := steps.Default()
	rec := &recorder{rm: rm}
	l := logging.Nop{}

	return &env{
		db:       db,
		rm:       rm,
		catalog:  cat,
		notes:    rec,
		docs:     NewDocumentService(db, rm, cat, rec, fakeFiles{}, l),
		progress: NewProgressionService(db, rm, cat, rec, l),
		admin:    NewAdminService(db, rm, cat, rec, l),
		inbound:  NewResubmissionService(db, rm, cat, rec, l),
	}
}

const adminID = "admin-1"

func (e *env) student(t *testing.T, phone string) *models.User {
	t.Helper()
	u := &models.User{Email: "student" + phone + "@example.com"}
	if phone != "" {
		u.Phone = &phone
	}
	u, err := e.rm.Users(nil).Create(context.Background(), u)
	require.NoError(t, err)
	return u
}

func (e *env) at(t *testing.T, u *models.User, step int, status models.ApprovalStatus) {
	t.Helper()
	require.NoError(t, e.rm.Users(nil).UpdateProgress(context.Background(), u.ID, step, status))
}

func (e *env) user(t *testing.T, id string) *models.User {
	t.Helper()
	u, err := e.rm.Users(nil).GetByID(context.Background(), id)
	require.NoError(t, err)
	return u
}

func (e *env) upload(t *testing.T, userID, docType string) string {
	t.Helper()
	id, err := e.docs.Upload(context.Background(), userID, UploadInput{
		Type:     docType,
		FileName: docType + ".pdf",
		FileURL:  "https://bucket.example.com/users/" + userID + "/" + docType + ".pdf",
	})
	require.NoError(t, err)
	return id
}

func (e *env) doc(t *testing.T, id string) *models.Document {
	t.Helper()
	d, err := e.rm.Documents(nil).GetByID(context.Background(), id)
	require.NoError(t, err)
	return d
}

func decodeData(t *testing.T, n *models.Notification) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(n.Data, &out))
	return out
}

func ptr[T any](v T) *T { return &v }
