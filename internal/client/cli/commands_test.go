package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/abroadportal/internal/client/client"
	"github.com/dmitrijs2005/abroadportal/internal/client/config"
	"github.com/dmitrijs2005/abroadportal/internal/server/auth"
	"github.com/dmitrijs2005/abroadportal/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiCall struct {
	method string
	req    map[string]any
}

type fakeAPI struct {
	token string
	calls []apiCall

	responses map[string]map[string]any
	errs      map[string]error

	exchangeToken string
	exchangeUser  map[string]any
	exchangeErr   error
}

func (f *fakeAPI) Close() error { return nil }
func (f *fakeAPI) Call(_ context.Context, method string, req map[string]any) (map[string]any, error) {
	f.calls = append(f.calls, apiCall{method, req})
	if err := f.errs[method]; err != nil {
		return nil, err
	}
	return f.responses[method], nil
}
func (f *fakeAPI) ExchangeLoginLink(_ context.Context, token string) (map[string]any, error) {
	f.exchangeToken = token
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	f.token = "access"
	return f.exchangeUser, nil
}
func (f *fakeAPI) SetAccessToken(token string) { f.token = token }
func (f *fakeAPI) HasAccessToken() bool        { return f.token != "" }

func newTestApp(api *fakeAPI, input string) (*App, *bytes.Buffer) {
	var out bytes.Buffer
	return &App{api: api, reader: bufio.NewReader(strings.NewReader(input)), out: &out}, &out
}

func TestLogin_FromArgumentAndPrompt(t *testing.T) {
	api := &fakeAPI{exchangeUser: map[string]any{"email": "s@example.com", "role": "student"}}
	a, out := newTestApp(api, "https://portal.example.com/auth/link?token=from-prompt\n")

	require.NoError(t, a.Login(context.Background(), []string{"https://portal.example.com/auth/link?token=t1"}))
	assert.Equal(t, "t1", api.exchangeToken)
	assert.Contains(t, out.String(), "Logged in as s@example.com")
	assert.Equal(t, "(s@example.com student)", a.getStatus())

	require.NoError(t, a.Login(context.Background(), nil))
	assert.Equal(t, "from-prompt", api.exchangeToken)
}

func TestLogin_Errors(t *testing.T) {
	api := &fakeAPI{exchangeErr: client.ErrUnauthorized}
	a, _ := newTestApp(api, "\n")

	assert.ErrorIs(t, a.Login(context.Background(), nil), errEmptyToken)
	assert.ErrorIs(t, a.Login(context.Background(), []string{"t1"}), client.ErrUnauthorized)
	assert.False(t, a.isLoggedIn())
	assert.Equal(t, "", a.getStatus())
}

func TestTokenAndLogout(t *testing.T) {
	orig := getSecret
	t.Cleanup(func() { getSecret = orig })
	getSecret = func(string, io.Writer) (string, error) { return "admin-token", nil }

	api := &fakeAPI{}
	a, _ := newTestApp(api, "")

	require.NoError(t, a.Token(context.Background(), nil))
	assert.Equal(t, "admin-token", api.token)
	assert.Equal(t, "(token)", a.getStatus())

	require.NoError(t, a.Logout(context.Background()))
	assert.Empty(t, api.token)
	assert.False(t, a.isLoggedIn())
}

func TestToken_Mint(t *testing.T) {
	prompts := 0
	orig := getSecret
	t.Cleanup(func() { getSecret = orig })
	getSecret = func(string, io.Writer) (string, error) { prompts++; return "prompted-secret", nil }

	api := &fakeAPI{}
	a, _ := newTestApp(api, "")
	a.config = &config.Config{SecretKey: "cfg-secret"}

	require.NoError(t, a.Token(context.Background(), []string{"admin-1"}))
	assert.Equal(t, 0, prompts, "secret from config is used without prompting")

	claims, err := auth.NewAccessIssuer([]byte("cfg-secret"), time.Hour).Parse(api.token)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)

	a.config.SecretKey = ""
	require.NoError(t, a.Token(context.Background(), []string{"u7", "student"}))
	assert.Equal(t, 1, prompts)
	claims, err = auth.NewAccessIssuer([]byte("prompted-secret"), time.Hour).Parse(api.token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, claims.Role)

	assert.Error(t, a.Token(context.Background(), []string{"u7", "root"}))
}

func TestCommands_RequireLogin(t *testing.T) {
	a, _ := newTestApp(&fakeAPI{}, "")
	ctx := context.Background()

	assert.ErrorIs(t, a.Progress(ctx), client.ErrNoToken)
	assert.ErrorIs(t, a.Documents(ctx), client.ErrNoToken)
	assert.ErrorIs(t, a.Submit(ctx, nil), client.ErrNoToken)
	assert.ErrorIs(t, a.Upload(ctx, []string{"passport", "x.pdf"}), client.ErrNoToken)
}

func TestDocumentsAndSubmit(t *testing.T) {
	api := &fakeAPI{token: "t", responses: map[string]map[string]any{
		"ListDocuments":   {"documents": []any{map[string]any{"type": "passport", "status": "uploaded"}}},
		"SubmitForReview": {"submitted": float64(2)},
	}}
	a, out := newTestApp(api, "")
	ctx := context.Background()

	require.NoError(t, a.Documents(ctx))
	assert.Contains(t, out.String(), `"type": "passport"`)

	require.NoError(t, a.Submit(ctx, []string{"3"}))
	require.NoError(t, a.Submit(ctx, nil))
	assert.Equal(t, map[string]any{"step": "3"}, api.calls[1].req)
	assert.Equal(t, map[string]any{}, api.calls[2].req)
	assert.Contains(t, out.String(), `"submitted": 2`)
}

func TestUpload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "passport.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF"), 0o600))

	var putURL, putType string
	var putBody []byte
	orig := uploadFn
	t.Cleanup(func() { uploadFn = orig })
	uploadFn = func(_ context.Context, url string, file []byte, contentType string) error {
		putURL, putBody, putType = url, file, contentType
		return nil
	}

	api := &fakeAPI{token: "t", responses: map[string]map[string]any{
		"RequestUploadURL": {"upload_url": "https://bucket.example.com/put?sig=1", "file_url": "https://bucket.example.com/users/u1/passport.pdf"},
		"UploadDocument":   {"document_id": "d1"},
	}}
	a, out := newTestApp(api, "")

	require.NoError(t, a.Upload(context.Background(), []string{"passport", path}))

	assert.Equal(t, "https://bucket.example.com/put?sig=1", putURL)
	assert.Equal(t, []byte("%PDF"), putBody)
	assert.Equal(t, "application/pdf", putType)
	require.Len(t, api.calls, 2)
	assert.Equal(t, apiCall{"RequestUploadURL", map[string]any{"type": "passport", "file_name": "passport.pdf"}}, api.calls[0])
	assert.Equal(t, map[string]any{
		"type":      "passport",
		"file_name": "passport.pdf",
		"file_url":  "https://bucket.example.com/users/u1/passport.pdf",
	}, api.calls[1].req)
	assert.Contains(t, out.String(), "Uploaded passport (4 bytes), document d1")
}

func TestUpload_Failures(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.jpg")
	require.NoError(t, os.WriteFile(path, []byte("jpg"), 0o600))

	orig := uploadFn
	t.Cleanup(func() { uploadFn = orig })
	uploadFn = func(context.Context, string, []byte, string) error { return errors.New("upload failed: 403 Forbidden") }

	api := &fakeAPI{token: "t", responses: map[string]map[string]any{
		"RequestUploadURL": {"upload_url": "u", "file_url": "f"},
	}}
	a, _ := newTestApp(api, "")
	ctx := context.Background()

	assert.Error(t, a.Upload(ctx, []string{"passport"}))
	assert.Error(t, a.Upload(ctx, []string{"passport", filepath.Join(t.TempDir(), "absent")}))

	err := a.Upload(ctx, []string{"passport", path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	for _, c := range api.calls {
		assert.NotEqual(t, "UploadDocument", c.method, "document must not be recorded when the PUT fails")
	}

	api.responses["RequestUploadURL"] = map[string]any{}
	assert.Error(t, a.Upload(ctx, []string{"passport", path}))
}

func TestCall(t *testing.T) {
	api := &fakeAPI{
		responses: map[string]map[string]any{"Ping": {"status": "OK"}},
		errs:      map[string]error{"SetStep": errors.New("PermissionDenied: admin only")},
	}
	a, out := newTestApp(api, "")
	ctx := context.Background()

	require.NoError(t, a.Call(ctx, []string{"Ping"}))
	assert.Contains(t, out.String(), `"status": "OK"`)

	err := a.Call(ctx, []string{"SetStep", "user_id=u1", "step:=4"})
	assert.EqualError(t, err, "PermissionDenied: admin only")
	assert.Equal(t, map[string]any{"user_id": "u1", "step": float64(4)}, api.calls[1].req)

	assert.Error(t, a.Call(ctx, nil))
	assert.Error(t, a.Call(ctx, []string{"SetStep", "bad"}))
}
