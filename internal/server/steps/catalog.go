// Package steps holds the static onboarding catalog: which document types
// each step requires, and the predicates derived from it.
package steps

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Keys of the steps that fixed transitions refer to.
const (
	KeyContract              = "contract"
	KeyTranslation           = "translation"
	KeyUniversityApplication = "university_application"
	KeyVisa                  = "visa"
)

// Notice is the user-facing copy attached to a step event.
type Notice struct {
	Title   string `yaml:"title"`
	Message string `yaml:"message"`
}

// Step describes one stage of the pipeline.
type Step struct {
	Number int    `yaml:"number"`
	Key    string `yaml:"key"`
	Title  string `yaml:"title"`

	// Required lists the document types that must all be approved. Empty
	// means the step is gated by an explicit action instead.
	Required []string `yaml:"required"`
	// Countersignature must be approved in addition to Required.
	Countersignature string `yaml:"countersignature"`
	// AdvanceRequires must be approved before a self-advance out of a step
	// without a requirement set.
	AdvanceRequires []string `yaml:"advance_requires"`
	// RequiresAnyUpload makes an admin approval wait for at least one upload.
	RequiresAnyUpload bool `yaml:"requires_any_upload"`
	// RequiresProgram blocks leaving the step until a program is selected.
	RequiresProgram bool `yaml:"requires_program"`

	SubmittedNotice *Notice `yaml:"submitted_notice"`
	CompletedNotice *Notice `yaml:"completed_notice"`
}

type catalogFile struct {
	DocumentTypes map[string]string `yaml:"document_types"`
	AdminOnly     []string          `yaml:"admin_only"`
	Steps         []Step            `yaml:"steps"`
}

// Catalog is immutable after load and safe for concurrent use.
type Catalog struct {
	steps     []Step
	labels    map[string]string
	adminOnly map[string]bool
}

// Load parses and validates a YAML catalog.
func Load(r io.Reader) (*Catalog, error) {
	var f catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	if len(f.Steps) == 0 {
		return nil, fmt.Errorf("catalog has no steps")
	}
	seen := make(map[string]bool, len(f.Steps))
	for i, s := range f.Steps {
		if s.Number != i+1 {
			return nil, fmt.Errorf("catalog step %d: expected number %d", s.Number, i+1)
		}
		if s.Key == "" {
			return nil, fmt.Errorf("catalog step %d: empty key", s.Number)
		}
		if seen[s.Key] {
			return nil, fmt.Errorf("catalog step %d: duplicate key %q", s.Number, s.Key)
		}
		seen[s.Key] = true
	}

	if f.DocumentTypes == nil {
		f.DocumentTypes = map[string]string{}
	}
	adminOnly := make(map[string]bool, len(f.AdminOnly))
	for _, t := range f.AdminOnly {
		adminOnly[t] = true
	}
	return &Catalog{steps: f.Steps, labels: f.DocumentTypes, adminOnly: adminOnly}, nil
}

// LoadFile reads a catalog override from disk.
func LoadFile(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Load(bytes.NewReader(b))
}

// Default returns the embedded catalog.
func Default() *Catalog {
	c, err := Load(bytes.NewReader(defaultCatalog))
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return c
}

// MaxStep is the terminal step number.
func (c *Catalog) MaxStep() int {
	return len(c.steps)
}

func (c *Catalog) Step(n int) (Step, bool) {
	if n < 1 || n > len(c.steps) {
		return Step{}, false
	}
	return c.steps[n-1], true
}

// Number returns the position of the step with the given key.
func (c *Catalog) Number(key string) (int, bool) {
	for _, s := range c.steps {
		if s.Key == key {
			return s.Number, true
		}
	}
	return 0, false
}

// Steps returns a copy of the pipeline in order.
func (c *Catalog) Steps() []Step {
	out := make([]Step, len(c.steps))
	copy(out, c.steps)
	return out
}

// RequirementsFor returns the document types required by step n. Unknown
// steps have no requirements.
func (c *Catalog) RequirementsFor(n int) []string {
	s, ok := c.Step(n)
	if !ok || len(s.Required) == 0 {
		return []string{}
	}
	out := make([]string, len(s.Required))
	copy(out, s.Required)
	return out
}

// Requires reports whether docType is in step n's requirement set.
func (c *Catalog) Requires(n int, docType string) bool {
	for _, t := range c.RequirementsFor(n) {
		if t == docType {
			return true
		}
	}
	return false
}

// Gates reports whether docType takes part in step n's completeness, either
// as a required type or as its countersignature.
func (c *Catalog) Gates(n int, docType string) bool {
	if c.Requires(n, docType) {
		return true
	}
	s, ok := c.Step(n)
	return ok && s.Countersignature != "" && s.Countersignature == docType
}

// AdminOnly reports whether docType is delivered by staff and cannot be
// uploaded by the student.
func (c *Catalog) AdminOnly(docType string) bool {
	return c.adminOnly[docType]
}

// Label is the display name of a document type.
func (c *Catalog) Label(docType string) string {
	if l, ok := c.labels[docType]; ok && l != "" {
		return l
	}
	s := strings.ReplaceAll(docType, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// SubmittedNotice is the copy sent when documents of step n go to review.
func (c *Catalog) SubmittedNotice(n int) (Notice, bool) {
	s, ok := c.Step(n)
	if !ok || s.SubmittedNotice == nil {
		return Notice{}, false
	}
	return *s.SubmittedNotice, true
}

// CompletedNotice is the copy sent when step n's requirements are satisfied.
func (c *Catalog) CompletedNotice(n int) Notice {
	s, ok := c.Step(n)
	if ok && s.CompletedNotice != nil {
		return *s.CompletedNotice
	}
	title := fmt.Sprintf("Step %d", n)
	if ok {
		title = s.Title
	}
	return Notice{
		Title:   title + " completed",
		Message: fmt.Sprintf("Congratulations! %s is complete, you can proceed to the next step.", title),
	}
}
