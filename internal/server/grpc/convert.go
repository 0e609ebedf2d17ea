package grpc

import (
	"encoding/json"
	"time"

	"github.com/dmitrijs2005/abroadportal/internal/server/models"
	"github.com/dmitrijs2005/abroadportal/internal/server/services"
	"github.com/dmitrijs2005/abroadportal/internal/server/steps"
)

// Responses are built as map[string]any trees that structpb.NewStruct
// accepts: no typed slices, times as RFC 3339 strings.

func optString(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func rawJSON(b json.RawMessage) any {
	if len(b) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return string(b)
	}
	return v
}

func stringList(in []string) []any {
	out := make([]any, 0, len(in))
	for _, s := range in {
		out = append(out, s)
	}
	return out
}

func userMap(u *models.User) map[string]any {
	return map[string]any{
		"id":                   u.ID,
		"email":                u.Email,
		"phone":                optString(u.Phone),
		"role":                 string(u.Role),
		"onboarding_step":      u.OnboardingStep,
		"step_approval_status": string(u.StepApprovalStatus),
		"selected_program":     rawJSON(u.SelectedProgram),
		"visa_tracking_code":   optString(u.VisaTrackingCode),
		"created_at":           timestamp(u.CreatedAt),
		"updated_at":           timestamp(u.UpdatedAt),
	}
}

func documentMap(d *models.Document) map[string]any {
	return map[string]any{
		"id":               d.ID,
		"user_id":          d.UserID,
		"type":             d.Type,
		"label":            d.Label,
		"status":           string(d.Status),
		"file_name":        optString(d.FileName),
		"file_url":         optString(d.FileURL),
		"rejection_reason": optString(d.RejectionReason),
		"created_at":       timestamp(d.CreatedAt),
		"updated_at":       timestamp(d.UpdatedAt),
	}
}

func documentList(docs []*models.Document) []any {
	out := make([]any, 0, len(docs))
	for _, d := range docs {
		out = append(out, documentMap(d))
	}
	return out
}

func notificationMap(n *models.Notification) map[string]any {
	return map[string]any{
		"id":         n.ID,
		"type":       string(n.Type),
		"title":      n.Title,
		"message":    n.Message,
		"data":       rawJSON(n.Data),
		"is_read":    n.IsRead,
		"created_at": timestamp(n.CreatedAt),
	}
}

func auditMap(e *models.AuditEntry) map[string]any {
	return map[string]any{
		"id":         e.ID,
		"actor_id":   e.ActorID,
		"action":     e.Action,
		"entity":     e.Entity,
		"entity_id":  e.EntityID,
		"note":       optString(e.Note),
		"created_at": timestamp(e.CreatedAt),
	}
}

func stepMap(st steps.Step) map[string]any {
	return map[string]any{
		"number":           st.Number,
		"key":              st.Key,
		"title":            st.Title,
		"required":         stringList(st.Required),
		"advance_requires": stringList(st.AdvanceRequires),
	}
}

func progressMap(p *services.Progress) map[string]any {
	return map[string]any{
		"onboarding_step":      p.Step,
		"max_step":             p.MaxStep,
		"step_approval_status": string(p.ApprovalStatus),
		"step":                 stepMap(p.Current),
		"selected_program":     rawJSON(p.SelectedProgram),
		"visa_tracking_code":   optString(p.VisaTrackingCode),
		"missing":              stringList(p.Missing),
	}
}

func reviewMap(rs *services.ReviewStatus) map[string]any {
	reqs := make([]any, 0, len(rs.Requirements))
	for _, r := range rs.Requirements {
		reqs = append(reqs, map[string]any{
			"type":             r.Type,
			"label":            r.Label,
			"document_id":      r.DocumentID,
			"status":           string(r.Status),
			"rejection_reason": optString(r.RejectionReason),
		})
	}
	return map[string]any{
		"step":                 rs.Step,
		"step_approval_status": string(rs.ApprovalStatus),
		"complete":             rs.Complete,
		"requirements":         reqs,
	}
}
