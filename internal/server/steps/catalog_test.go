package steps

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dmitrijs2005/abroadportal/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doc(t string, s models.DocumentStatus) *models.Document {
	return &models.Document{Type: t, Status: s}
}

func TestDefault_Pipeline(t *testing.T) {
	c := Default()
	require.Equal(t, 8, c.MaxStep())

	keys := []string{}
	for _, s := range c.Steps() {
		keys = append(keys, s.Key)
	}
	assert.Equal(t, []string{
		"registration", "program_selection", "documents", "contract",
		"translation", "university_application", "visa", "flight",
	}, keys)
}

func TestRequirementsFor(t *testing.T) {
	c := Default()

	tests := []struct {
		step int
		want []string
	}{
		{1, []string{}},
		{2, []string{}},
		{3, []string{"passport", "diploma", "transcript", "biometric_photo"}},
		{4, []string{"signed_contract"}},
		{5, []string{"translated_diploma", "translated_transcript"}},
		{6, []string{}},
		{7, []string{}},
		{8, []string{}},
		{0, []string{}},
		{9, []string{}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.RequirementsFor(tt.step), "step %d", tt.step)
	}
}

func TestRequirementsFor_ReturnsCopy(t *testing.T) {
	c := Default()
	r := c.RequirementsFor(3)
	r[0] = "mutated"
	assert.Equal(t, "passport", c.RequirementsFor(3)[0])
}

func TestIsStepComplete(t *testing.T) {
	c := Default()

	allApproved := []*models.Document{
		doc("passport", models.DocumentApproved),
		doc("diploma", models.DocumentApproved),
		doc("transcript", models.DocumentApproved),
		doc("biometric_photo", models.DocumentApproved),
	}

	tests := []struct {
		name string
		docs []*models.Document
		step int
		want bool
	}{
		{"empty requirement set", nil, 1, false},
		{"empty requirement set with docs", allApproved, 6, false},
		{"step 3 all approved", allApproved, 3, true},
		{"step 3 one reviewing", append(allApproved[:3:3], doc("biometric_photo", models.DocumentReviewing)), 3, false},
		{"step 3 one missing", allApproved[:3], 3, false},
		{"step 4 without countersignature", []*models.Document{doc("signed_contract", models.DocumentApproved)}, 4, false},
		{"step 4 with pending countersignature", []*models.Document{
			doc("signed_contract", models.DocumentApproved),
			doc("admin_contract", models.DocumentPending),
		}, 4, false},
		{"step 4 with unapproved countersignature", []*models.Document{
			doc("signed_contract", models.DocumentApproved),
			doc("admin_contract", models.DocumentUploaded),
		}, 4, false},
		{"step 4 with countersignature", []*models.Document{
			doc("signed_contract", models.DocumentApproved),
			doc("admin_contract", models.DocumentApproved),
		}, 4, true},
		{"step 5 translations", []*models.Document{
			doc("translated_diploma", models.DocumentApproved),
			doc("translated_transcript", models.DocumentApproved),
		}, 5, true},
		{"unknown step", allApproved, 42, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.IsStepComplete(tt.docs, tt.step))
		})
	}
}

func TestRelevant(t *testing.T) {
	c := Default()
	docs := []*models.Document{
		doc("passport", models.DocumentUploaded),
		doc("signed_contract", models.DocumentUploaded),
	}

	got := c.Relevant(docs, 3)
	require.Len(t, got, 1)
	assert.Equal(t, "passport", got[0].Type)

	assert.Len(t, c.Relevant(docs, 2), 2)
}

func TestMissingForAdvance(t *testing.T) {
	c := Default()
	at := func(step int, status models.ApprovalStatus) *models.User {
		return &models.User{OnboardingStep: step, StepApprovalStatus: status}
	}

	assert.Equal(t, []string{"step approval"}, c.MissingForAdvance(at(3, models.ApprovalPending), nil))
	assert.Empty(t, c.MissingForAdvance(at(3, models.ApprovalApproved), nil))
	assert.Empty(t, c.MissingForAdvance(at(1, models.ApprovalPending), nil))
	assert.Equal(t, []string{"program selection"}, c.MissingForAdvance(at(2, models.ApprovalPending), nil))

	withProgram := at(2, models.ApprovalPending)
	withProgram.SelectedProgram = []byte(`{"id":"p1"}`)
	assert.Empty(t, c.MissingForAdvance(withProgram, nil))

	assert.Equal(t, []string{"Invitation letter"}, c.MissingForAdvance(at(6, models.ApprovalApproved), nil))
	assert.Empty(t, c.MissingForAdvance(at(6, models.ApprovalPending), []*models.Document{doc("invitation_letter", models.DocumentApproved)}))
	assert.Equal(t, []string{"Flight ticket"}, c.MissingForAdvance(at(7, models.ApprovalPending), []*models.Document{doc("flight_ticket", models.DocumentUploaded)}))
	assert.Nil(t, c.MissingForAdvance(at(9, models.ApprovalPending), nil))
}

func TestAnyUploaded(t *testing.T) {
	url := "https://bucket/key"
	empty := ""
	assert.False(t, AnyUploaded(nil))
	assert.False(t, AnyUploaded([]*models.Document{{FileURL: &empty}}))
	assert.True(t, AnyUploaded([]*models.Document{{}, {FileURL: &url}}))
}

func TestNumber(t *testing.T) {
	c := Default()
	for key, want := range map[string]int{
		KeyContract:              4,
		KeyTranslation:           5,
		KeyUniversityApplication: 6,
		KeyVisa:                  7,
	} {
		got, ok := c.Number(key)
		assert.True(t, ok, key)
		assert.Equal(t, want, got, key)
	}
	_, ok := c.Number("missing")
	assert.False(t, ok)
}

func TestGates(t *testing.T) {
	c := Default()
	assert.True(t, c.Gates(3, "passport"))
	assert.True(t, c.Gates(4, "signed_contract"))
	assert.True(t, c.Gates(4, "admin_contract"))
	assert.False(t, c.Gates(5, "admin_contract"))
	assert.False(t, c.Gates(6, "invitation_letter"))
}

func TestLabel(t *testing.T) {
	c := Default()
	assert.Equal(t, "Biometric photo", c.Label("biometric_photo"))
	assert.Equal(t, "Medical certificate", c.Label("medical_certificate"))
	assert.Equal(t, "", c.Label(""))
}

func TestNotices(t *testing.T) {
	c := Default()

	n, ok := c.SubmittedNotice(4)
	require.True(t, ok)
	assert.Equal(t, "Contract submitted", n.Title)

	_, ok = c.SubmittedNotice(2)
	assert.False(t, ok)

	assert.Equal(t, "Documents approved", c.CompletedNotice(3).Title)
	assert.Equal(t, "Contract completed", c.CompletedNotice(4).Title)
	assert.Equal(t, "Step 99 completed", c.CompletedNotice(99).Title)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"no steps", "steps: []\n", "no steps"},
		{"gap", "steps:\n  - {number: 1, key: a}\n  - {number: 3, key: b}\n", "expected number 2"},
		{"empty key", "steps:\n  - {number: 1}\n", "empty key"},
		{"duplicate key", "steps:\n  - {number: 1, key: a}\n  - {number: 2, key: a}\n", "duplicate key"},
		{"unknown field", "steps:\n  - {number: 1, key: a, bogus: true}\n", "decode catalog"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "catalog.yaml")
	body := "steps:\n  - {number: 1, key: start, title: Start}\n  - {number: 2, key: end, title: End, required: [id_card]}\n"
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))

	c, err := LoadFile(p)
	require.NoError(t, err)
	assert.Equal(t, 2, c.MaxStep())
	assert.Equal(t, []string{"id_card"}, c.RequirementsFor(2))
	assert.Equal(t, "Id card", c.Label("id_card"))

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestAdminOnly(t *testing.T) {
	c := Default()
	for _, typ := range []string{"admin_contract", "invitation_letter", "flight_ticket"} {
		assert.True(t, c.AdminOnly(typ), typ)
	}
	for _, typ := range []string{"passport", "signed_contract", "translated_diploma", "unknown"} {
		assert.False(t, c.AdminOnly(typ), typ)
	}
}
