package grpc

import (
	"context"

	"github.com/dmitrijs2005/abroadportal/internal/server/models"
)

func (s *GRPCServer) registerStudent(ctx context.Context, in args) (map[string]any, error) {
	sess, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	u, err := s.svc.Admin.RegisterStudent(ctx, sess.UserID, in.str("email"), in.str("phone"))
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "student registered", "user_id", u.ID, "by", sess.UserID)
	return map[string]any{"user": userMap(u)}, nil
}

func (s *GRPCServer) getStudent(ctx context.Context, in args) (map[string]any, error) {
	userID, err := in.required("user_id")
	if err != nil {
		return nil, err
	}
	o, err := s.svc.Admin.Overview(ctx, userID)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"user":      userMap(o.User),
		"documents": documentList(o.Documents),
		"complete":  o.Complete,
	}, nil
}

func (s *GRPCServer) setDocumentStatus(ctx context.Context, in args) (map[string]any, error) {
	sess, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	id, err := in.required("document_id")
	if err != nil {
		return nil, err
	}
	st, err := in.required("status")
	if err != nil {
		return nil, err
	}
	return nil, s.svc.Documents.SetStatus(ctx, sess.UserID, id, models.DocumentStatus(st), in.optional("reason"))
}

// userCall runs one of the admin operations that act on a user id.
func (s *GRPCServer) userCall(ctx context.Context, in args, fn func(actorID, userID string) (*models.User, error)) (map[string]any, error) {
	sess, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	userID, err := in.required("user_id")
	if err != nil {
		return nil, err
	}
	u, err := fn(sess.UserID, userID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"user": userMap(u)}, nil
}

func (s *GRPCServer) setStep(ctx context.Context, in args) (map[string]any, error) {
	step, err := in.int("step")
	if err != nil {
		return nil, err
	}
	return s.userCall(ctx, in, func(actorID, userID string) (*models.User, error) {
		return s.svc.Admin.SetStep(ctx, actorID, userID, step)
	})
}

func (s *GRPCServer) approveStep(ctx context.Context, in args) (map[string]any, error) {
	return s.userCall(ctx, in, func(actorID, userID string) (*models.User, error) {
		return s.svc.Admin.ApproveCurrentStep(ctx, actorID, userID)
	})
}

func (s *GRPCServer) rejectStep(ctx context.Context, in args) (map[string]any, error) {
	return s.userCall(ctx, in, func(actorID, userID string) (*models.User, error) {
		return s.svc.Admin.RejectCurrentStep(ctx, actorID, userID, in.optional("reason"))
	})
}

func fileRef(in args) models.FileRef {
	return models.FileRef{Name: in.str("file_name"), URL: in.str("file_url")}
}

func (s *GRPCServer) uploadCountersignedContract(ctx context.Context, in args) (map[string]any, error) {
	return s.userCall(ctx, in, func(actorID, userID string) (*models.User, error) {
		return s.svc.Admin.UploadCountersignedContract(ctx, actorID, userID, fileRef(in))
	})
}

func (s *GRPCServer) uploadInvitationLetter(ctx context.Context, in args) (map[string]any, error) {
	return s.userCall(ctx, in, func(actorID, userID string) (*models.User, error) {
		return s.svc.Admin.UploadInvitationLetter(ctx, actorID, userID, fileRef(in))
	})
}

func (s *GRPCServer) uploadFlightTicket(ctx context.Context, in args) (map[string]any, error) {
	return s.userCall(ctx, in, func(actorID, userID string) (*models.User, error) {
		return s.svc.Admin.UploadFlightTicket(ctx, actorID, userID, fileRef(in))
	})
}

func (s *GRPCServer) getAuditLog(ctx context.Context, in args) (map[string]any, error) {
	entity := in.str("entity")
	if entity == "" {
		entity = models.AuditEntityUser
	}
	id, err := in.required("entity_id")
	if err != nil {
		return nil, err
	}
	entries, err := s.svc.Admin.AuditLog(ctx, entity, id)
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, len(entries))
	for _, e := range entries {
		out = append(out, auditMap(e))
	}
	return map[string]any{"entries": out}, nil
}
