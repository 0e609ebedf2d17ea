package steps

import (
	"github.com/dmitrijs2005/abroadportal/internal/server/models"
)

// ByType indexes a user's documents by type. The (user, type) uniqueness
// constraint guarantees at most one entry per key.
func ByType(docs []*models.Document) map[string]*models.Document {
	out := make(map[string]*models.Document, len(docs))
	for _, d := range docs {
		out[d.Type] = d
	}
	return out
}

// IsStepComplete reports whether every required document type of step is
// approved. Steps with no requirement set are never complete by documents;
// their completion is driven by explicit actions.
func (c *Catalog) IsStepComplete(docs []*models.Document, step int) bool {
	s, ok := c.Step(step)
	if !ok || len(s.Required) == 0 {
		return false
	}

	idx := ByType(docs)
	for _, t := range s.Required {
		d, ok := idx[t]
		if !ok || d.Status != models.DocumentApproved {
			return false
		}
	}

	if s.Countersignature != "" {
		d, ok := idx[s.Countersignature]
		if !ok || d.Status != models.DocumentApproved {
			return false
		}
	}
	return true
}

// Relevant returns the documents a review submission for step covers: the
// required types when the step has any, otherwise everything.
func (c *Catalog) Relevant(docs []*models.Document, step int) []*models.Document {
	reqs := c.RequirementsFor(step)
	if len(reqs) == 0 {
		return docs
	}

	want := make(map[string]struct{}, len(reqs))
	for _, t := range reqs {
		want[t] = struct{}{}
	}

	out := make([]*models.Document, 0, len(reqs))
	for _, d := range docs {
		if _, ok := want[d.Type]; ok {
			out = append(out, d)
		}
	}
	return out
}

// MissingForAdvance lists what blocks a self-advance out of the user's
// current step. The aggregate status is checked for steps with a
// requirement set, and the advance_requires types for the rest.
func (c *Catalog) MissingForAdvance(u *models.User, docs []*models.Document) []string {
	s, ok := c.Step(u.OnboardingStep)
	if !ok {
		return nil
	}

	var missing []string
	if len(s.Required) > 0 && u.StepApprovalStatus != models.ApprovalApproved {
		missing = append(missing, "step approval")
	}
	if s.RequiresProgram && len(u.SelectedProgram) == 0 {
		missing = append(missing, "program selection")
	}

	idx := ByType(docs)
	for _, t := range s.AdvanceRequires {
		d, ok := idx[t]
		if !ok || d.Status != models.DocumentApproved {
			missing = append(missing, c.Label(t))
		}
	}
	return missing
}

// AnyUploaded reports whether at least one document holds a file.
func AnyUploaded(docs []*models.Document) bool {
	for _, d := range docs {
		if d.HasFile() {
			return true
		}
	}
	return false
}
