package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/abroadportal/internal/client/client"
	"github.com/dmitrijs2005/abroadportal/internal/netx"
)

// uploadFn is a test seam for the presigned PUT.
var uploadFn = netx.UploadToPresignedURL

func (a *App) requireLogin() error {
	if !a.isLoggedIn() {
		return client.ErrNoToken
	}
	return nil
}

func (a *App) printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, string(b))
	return err
}

func (a *App) callAndPrint(ctx context.Context, method string, req map[string]any, key string) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	res, err := a.api.Call(ctx, method, req)
	if err != nil {
		return err
	}
	if key != "" {
		return a.printJSON(res[key])
	}
	return a.printJSON(res)
}

func (a *App) Progress(ctx context.Context) error {
	return a.callAndPrint(ctx, "GetProgress", nil, "")
}

func (a *App) Documents(ctx context.Context) error {
	return a.callAndPrint(ctx, "ListDocuments", nil, "documents")
}

func (a *App) Notifications(ctx context.Context) error {
	return a.callAndPrint(ctx, "ListNotifications", map[string]any{"limit": 20}, "")
}

// Submit submits uploaded documents of the given step, or of the current
// step without an argument.
func (a *App) Submit(ctx context.Context, args []string) error {
	req := map[string]any{}
	if len(args) > 0 {
		req["step"] = args[0]
	}
	return a.callAndPrint(ctx, "SubmitForReview", req, "")
}

// Upload sends the file at path to a presigned URL and records it as the
// document of docType.
func (a *App) Upload(ctx context.Context, args []string) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	if len(args) < 2 {
		return errors.New("usage: upload <type> <path>")
	}
	docType, path := args[0], args[1]

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	fileName := filepath.Base(path)

	target, err := a.api.Call(ctx, "RequestUploadURL", map[string]any{"type": docType, "file_name": fileName})
	if err != nil {
		return err
	}
	uploadURL, _ := target["upload_url"].(string)
	fileURL, _ := target["file_url"].(string)
	if uploadURL == "" || fileURL == "" {
		return errors.New("server returned no upload target")
	}

	if err := uploadFn(ctx, uploadURL, data, mime.TypeByExtension(filepath.Ext(fileName))); err != nil {
		return err
	}

	res, err := a.api.Call(ctx, "UploadDocument", map[string]any{
		"type":      docType,
		"file_name": fileName,
		"file_url":  fileURL,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Uploaded %s (%d bytes), document %v\n", docType, len(data), res["document_id"])
	return nil
}

// Call invokes any API method with key=value arguments. Ping and
// ExchangeLoginLink work without a token.
func (a *App) Call(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: call <Method> [key=value | key:=json ...]")
	}
	req, err := parseKeyValues(args[1:])
	if err != nil {
		return err
	}
	res, err := a.api.Call(ctx, args[0], req)
	if err != nil {
		return err
	}
	return a.printJSON(res)
}
