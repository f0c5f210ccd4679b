package usecase_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/scholarship-matcher/internal/domain"
	"github.com/fairyhunter13/scholarship-matcher/internal/usecase"
)

func decodeRaw(t *testing.T, s string) usecase.RawProfile {
	t.Helper()
	var raw usecase.RawProfile
	require.NoError(t, json.Unmarshal([]byte(s), &raw))
	return raw
}

func TestNormalizeProfile_LooseInput(t *testing.T) {
	t.Parallel()
	raw := decodeRaw(t, `{"gpa":"3.8","satScore":1400,"state":" ca ","major":"Computer   Science","firstGeneration":"yes","isLowIncome":true}`)
	p, err := usecase.NormalizeProfile(raw)
	require.NoError(t, err)
	require.NotNil(t, p.GPA)
	assert.InDelta(t, 3.8, *p.GPA, 1e-9)
	require.NotNil(t, p.SATScore)
	assert.Equal(t, 1400, *p.SATScore)
	assert.Nil(t, p.ACTScore)
	assert.Equal(t, "CA", p.State)
	assert.Equal(t, "Computer Science", p.IntendedMajor)
	assert.True(t, p.IsFirstGeneration)
	assert.True(t, p.IsLowIncome)
	assert.False(t, p.IsWomen)
}

func TestNormalizeProfile_EmptyIsValid(t *testing.T) {
	t.Parallel()
	p, err := usecase.NormalizeProfile(usecase.RawProfile{})
	require.NoError(t, err)
	assert.Equal(t, domain.StudentProfile{}, p)
}

func TestNormalizeProfile_OutOfRange(t *testing.T) {
	t.Parallel()
	_, err := usecase.NormalizeProfile(decodeRaw(t, `{"gpa":7.5}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "GPA")

	_, err = usecase.NormalizeProfile(decodeRaw(t, `{"actScore":50}`))
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestNormalizeProfile_UnparseableNumbersAreAbsent(t *testing.T) {
	t.Parallel()
	p, err := usecase.NormalizeProfile(decodeRaw(t, `{"gpa":"about three","satScore":{"x":1}}`))
	require.NoError(t, err)
	assert.Nil(t, p.GPA)
	assert.Nil(t, p.SATScore)
}

func TestBuildSearchQuery(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)
	full := domain.StudentProfile{IntendedMajor: "Nursing", State: "TX", Ethnicity: "Hispanic"}
	assert.Equal(t, "scholarships Nursing TX Hispanic first generation 2026 2027", usecase.BuildSearchQuery(full, now))
	assert.Equal(t, "scholarships first generation 2026 2027", usecase.BuildSearchQuery(domain.StudentProfile{}, now))
	assert.NotContains(t, usecase.BuildSearchQuery(domain.StudentProfile{State: "OH"}, now), "  ")
}

func TestBuildSearchPrompt(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)
	gpa := 3.5
	p := domain.StudentProfile{GPA: &gpa, IsWomen: true}
	docs := []domain.CandidateDocument{
		{Title: "Award A", URL: "https://a.org/award", Snippet: "for nurses"},
		{Title: "Award B", URL: "https://b.org/award", Snippet: "for engineers"},
	}
	got := usecase.BuildSearchPrompt(p, docs, now, 8, 12)
	assert.Equal(t, got, usecase.BuildSearchPrompt(p, docs, now, 8, 12))
	assert.Contains(t, got, "- GPA: 3.50")
	assert.Contains(t, got, "- SAT Score: Not provided")
	assert.Contains(t, got, "- Women in Field: Yes")
	assert.Contains(t, got, "- Low Income: Not provided")
	assert.Contains(t, got, `"url": "https://a.org/award"`)
	assert.Contains(t, got, `"url": "https://b.org/award"`)
	assert.Contains(t, got, "between 2026-10-14 and 2027-10-14")
	assert.Contains(t, got, "between 8 and 12 scholarships")
}

func TestBuildCatalogPrompt(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)
	rows := []domain.CatalogScholarship{
		{ID: "s-1", Name: "Gates", URL: "https://g.org", Deadline: "2027-01-15"},
		{ID: "s-2", Name: "Coke", URL: "https://c.org", Requirements: []string{"essay"}},
	}
	got := usecase.BuildCatalogPrompt(domain.StudentProfile{State: "CA"}, rows, now, 15)
	assert.Contains(t, got, `"id": "s-1"`)
	assert.Contains(t, got, `"id": "s-2"`)
	assert.Contains(t, got, "- State: CA")
	assert.Contains(t, got, "at most 15 scholarships")
	assert.Contains(t, got, "before 2026-10-14")
	assert.Equal(t, 1, strings.Count(got, `"essay"`))
}
