package grpc

import (
	"context"
	"errors"
	"path"
	"time"

	"github.com/dmitrijs2005/abroadportal/internal/common"
	"github.com/dmitrijs2005/abroadportal/internal/server/guard"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func accessToken(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get(common.AccessTokenHeaderName); len(values) > 0 {
		return values[0]
	}
	return ""
}

// authInterceptor authenticates the caller, loads a fresh session and
// checks it against the method policy before the handler runs.
func (s *GRPCServer) authInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	op := path.Base(info.FullMethod)
	rule, ok := s.policy.Lookup(op)
	if !ok {
		return nil, status.Error(codes.PermissionDenied, "method not allowed")
	}
	if rule.Public {
		return handler(ctx, req)
	}

	token := accessToken(ctx)
	if token == "" {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	claims, err := s.access.Parse(token)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return nil, status.Error(codes.Unauthenticated, "token expired")
		}
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}

	sess, err := s.sessions.Session(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, status.Error(codes.Unauthenticated, "unknown user")
		}
		return nil, s.toStatus(ctx, err)
	}

	if err := s.policy.Authorize(op, sess); err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return handler(guard.WithSession(ctx, sess), req)
}

func (s *GRPCServer) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)

	code := status.Code(err)
	attrs := []any{"method", info.FullMethod, "code", code.String(), "duration", time.Since(start)}
	switch code {
	case codes.OK, codes.AlreadyExists, codes.FailedPrecondition:
		s.logger.Debug(ctx, "request", attrs...)
	default:
		s.logger.Info(ctx, "request", attrs...)
	}
	return resp, err
}

// caller returns the session placed by authInterceptor.
func caller(ctx context.Context) (*guard.Session, error) {
	sess, ok := guard.FromContext(ctx)
	if !ok {
		return nil, common.ErrorUnauthorized
	}
	return sess, nil
}
