package client

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/abroadportal/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

type fakeHandler func(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)

type fakePortal struct{}

func method(name string, h fakeHandler) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(_ any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			return h(ctx, in)
		},
	}
}

func tokenOf(ctx context.Context) string {
	md, _ := metadata.FromIncomingContext(ctx)
	if v := md.Get(common.AccessTokenHeaderName); len(v) > 0 {
		return v[0]
	}
	return ""
}

func newTestClient(t *testing.T) *GRPCClient {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	srv.RegisterService(&grpc.ServiceDesc{
		ServiceName: common.PortalServiceName,
		HandlerType: (*any)(nil),
		Methods: []grpc.MethodDesc{
			method("Echo", func(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				out := in.AsMap()
				out["token"] = tokenOf(ctx)
				return structpb.NewStruct(out)
			}),
			method("ExchangeLoginLink", func(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				if in.AsMap()["token"] != "link-token" {
					return nil, status.Error(codes.Unauthenticated, "invalid token")
				}
				return structpb.NewStruct(map[string]any{
					"access_token": "access-1",
					"user":         map[string]any{"id": "u1", "role": "student"},
				})
			}),
			method("Locked", func(context.Context, *structpb.Struct) (*structpb.Struct, error) {
				return nil, status.Error(codes.FailedPrecondition, "step not reached yet")
			}),
		},
	}, fakePortal{})
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	c, err := NewGRPCClient("passthrough:///bufnet", time.Second,
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestGRPCClient_CallRoundTrip(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	res, err := c.Call(ctx, "Echo", map[string]any{"step": 3, "type": "passport"})
	require.NoError(t, err)
	assert.Equal(t, float64(3), res["step"])
	assert.Equal(t, "passport", res["type"])
	assert.Equal(t, "", res["token"], "no token before login")

	res, err = c.Call(ctx, "Echo", nil)
	require.NoError(t, err)
	assert.Equal(t, "", res["token"])
}

func TestGRPCClient_ExchangeLoginLinkStoresToken(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	_, err := c.ExchangeLoginLink(ctx, "bad")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnauthorized))
	assert.False(t, c.HasAccessToken())

	user, err := c.ExchangeLoginLink(ctx, "link-token")
	require.NoError(t, err)
	assert.Equal(t, "u1", user["id"])
	assert.True(t, c.HasAccessToken())

	res, err := c.Call(ctx, "Echo", nil)
	require.NoError(t, err)
	assert.Equal(t, "access-1", res["token"])
}

func TestGRPCClient_ErrorMapping(t *testing.T) {
	c := newTestClient(t)

	_, err := c.Call(context.Background(), "Locked", nil)
	require.Error(t, err)
	assert.Equal(t, "FailedPrecondition: step not reached yet", err.Error())

	_, err = c.Call(context.Background(), "Missing", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unimplemented")

	assert.True(t, errors.Is(c.mapError(status.Error(codes.Unavailable, "down")), ErrUnavailable))
	assert.True(t, errors.Is(c.mapError(status.Error(codes.PermissionDenied, "admin only")), ErrUnauthorized))
	assert.Nil(t, c.mapError(nil))
}

func TestGRPCClient_RejectsUnencodableRequest(t *testing.T) {
	c := newTestClient(t)
	_, err := c.Call(context.Background(), "Echo", map[string]any{"bad": make(chan int)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encode request")
}
