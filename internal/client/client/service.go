package client

import "context"

type Client interface {
	Close() error
	Call(ctx context.Context, method string, req map[string]any) (map[string]any, error)
	ExchangeLoginLink(ctx context.Context, token string) (map[string]any, error)
	SetAccessToken(token string)
	HasAccessToken() bool
}
