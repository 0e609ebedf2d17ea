package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/abroadportal/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// statusCode maps a service error to its gRPC code. Unknown errors are
// Internal and their text is not sent to the client.
func statusCode(err error) codes.Code {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return codes.NotFound
	case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrTokenExpired):
		return codes.Unauthenticated
	case errors.Is(err, common.ErrorUnauthorized), errors.Is(err, common.ErrStepLocked):
		return codes.PermissionDenied
	case errors.Is(err, common.ErrorValidation):
		return codes.InvalidArgument
	case errors.Is(err, common.ErrAlreadyInReview):
		return codes.AlreadyExists
	case errors.Is(err, common.ErrInvalidTransition),
		errors.Is(err, common.ErrMaxStepExceeded),
		errors.Is(err, common.ErrPrerequisiteNotMet),
		errors.Is(err, common.ErrInvalidState),
		errors.Is(err, common.ErrNothingToSubmit):
		return codes.FailedPrecondition
	}
	return codes.Internal
}

func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}
	code := statusCode(err)
	if code == codes.Internal {
		s.logger.Error(ctx, "request failed", "error", err)
		return status.Error(codes.Internal, "internal error")
	}
	return status.Error(code, err.Error())
}
