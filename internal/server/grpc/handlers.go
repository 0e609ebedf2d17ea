package grpc

import (
	"context"

	"github.com/dmitrijs2005/abroadportal/internal/server/services"
)

func (s *GRPCServer) ping(ctx context.Context, in args) (map[string]any, error) {
	return map[string]any{"status": "OK"}, nil
}

func (s *GRPCServer) exchangeLoginLink(ctx context.Context, in args) (map[string]any, error) {
	token, err := in.required("token")
	if err != nil {
		return nil, err
	}
	access, u, err := s.svc.Users.ExchangeLoginLink(ctx, token)
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "login link redeemed", "user_id", u.ID)
	return map[string]any{"access_token": access, "user": userMap(u)}, nil
}

// subject is the user a call acts on: the caller, or for admins the
// user_id argument when given.
func subject(ctx context.Context, in args) (string, error) {
	sess, err := caller(ctx)
	if err != nil {
		return "", err
	}
	if id := in.optional("user_id"); id != nil && sess.IsAdmin() {
		return *id, nil
	}
	return sess.UserID, nil
}

func (s *GRPCServer) getProgress(ctx context.Context, in args) (map[string]any, error) {
	userID, err := subject(ctx, in)
	if err != nil {
		return nil, err
	}
	p, err := s.svc.Progression.Progress(ctx, userID)
	if err != nil {
		return nil, err
	}
	return progressMap(p), nil
}

func (s *GRPCServer) advance(ctx context.Context, in args) (map[string]any, error) {
	sess, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	target, err := in.intOr("step", sess.OnboardingStep+1)
	if err != nil {
		return nil, err
	}
	u, err := s.svc.Progression.Advance(ctx, sess.UserID, target)
	if err != nil {
		return nil, err
	}
	return map[string]any{"user": userMap(u)}, nil
}

func (s *GRPCServer) selectProgram(ctx context.Context, in args) (map[string]any, error) {
	sess, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	program, err := in.json("program")
	if err != nil {
		return nil, err
	}
	u, err := s.svc.Progression.SelectProgram(ctx, sess.UserID, program)
	if err != nil {
		return nil, err
	}
	return map[string]any{"user": userMap(u)}, nil
}

func (s *GRPCServer) confirmInvitation(ctx context.Context, in args) (map[string]any, error) {
	sess, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	u, err := s.svc.Progression.ConfirmInvitation(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"user": userMap(u)}, nil
}

func (s *GRPCServer) setVisaTrackingCode(ctx context.Context, in args) (map[string]any, error) {
	sess, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	code, err := in.required("code")
	if err != nil {
		return nil, err
	}
	return nil, s.svc.Progression.SetVisaTrackingCode(ctx, sess.UserID, code)
}

func (s *GRPCServer) requestUploadURL(ctx context.Context, in args) (map[string]any, error) {
	userID, err := subject(ctx, in)
	if err != nil {
		return nil, err
	}
	docType, err := in.required("type")
	if err != nil {
		return nil, err
	}
	fileName, err := in.required("file_name")
	if err != nil {
		return nil, err
	}
	up, err := s.svc.Documents.RequestUpload(ctx, userID, docType, fileName)
	if err != nil {
		return nil, err
	}
	return map[string]any{"key": up.Key, "upload_url": up.URL, "file_url": up.ObjectURL}, nil
}

func (s *GRPCServer) uploadDocument(ctx context.Context, in args) (map[string]any, error) {
	sess, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	id, err := s.svc.Documents.Upload(ctx, sess.UserID, services.UploadInput{
		Type:     in.str("type"),
		FileName: in.str("file_name"),
		FileURL:  in.str("file_url"),
		Label:    in.str("label"),
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"document_id": id}, nil
}

func (s *GRPCServer) deleteDocument(ctx context.Context, in args) (map[string]any, error) {
	sess, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	id, err := in.required("document_id")
	if err != nil {
		return nil, err
	}
	return nil, s.svc.Documents.Delete(ctx, sess.UserID, id)
}

func (s *GRPCServer) listDocuments(ctx context.Context, in args) (map[string]any, error) {
	userID, err := subject(ctx, in)
	if err != nil {
		return nil, err
	}
	docs, err := s.svc.Documents.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"documents": documentList(docs)}, nil
}

func (s *GRPCServer) submitForReview(ctx context.Context, in args) (map[string]any, error) {
	sess, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	step, err := in.intOr("step", sess.OnboardingStep)
	if err != nil {
		return nil, err
	}
	n, err := s.svc.Documents.SubmitForReview(ctx, sess.UserID, step)
	if err != nil {
		return nil, err
	}
	return map[string]any{"submitted": n}, nil
}

func (s *GRPCServer) getReviewStatus(ctx context.Context, in args) (map[string]any, error) {
	userID, err := subject(ctx, in)
	if err != nil {
		return nil, err
	}
	rs, err := s.svc.Documents.ReviewStatus(ctx, userID)
	if err != nil {
		return nil, err
	}
	return reviewMap(rs), nil
}

func (s *GRPCServer) getDocumentLink(ctx context.Context, in args) (map[string]any, error) {
	sess, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	id, err := in.required("document_id")
	if err != nil {
		return nil, err
	}
	url, err := s.svc.Documents.DownloadLink(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	return map[string]any{"url": url}, nil
}

func (s *GRPCServer) listNotifications(ctx context.Context, in args) (map[string]any, error) {
	sess, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	unreadOnly, err := in.bool("unread_only")
	if err != nil {
		return nil, err
	}
	limit, err := in.intOr("limit", 0)
	if err != nil {
		return nil, err
	}

	list, err := s.svc.Notifications.List(ctx, sess.UserID, unreadOnly, limit)
	if err != nil {
		return nil, err
	}
	unread, err := s.svc.Notifications.UnreadCount(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}

	out := make([]any, 0, len(list))
	for _, n := range list {
		out = append(out, notificationMap(n))
	}
	return map[string]any{"notifications": out, "unread": unread}, nil
}

func (s *GRPCServer) markNotificationRead(ctx context.Context, in args) (map[string]any, error) {
	sess, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	id, err := in.required("notification_id")
	if err != nil {
		return nil, err
	}
	return nil, s.svc.Notifications.MarkRead(ctx, sess.UserID, id)
}
