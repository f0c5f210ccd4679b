package usecase

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fairyhunter13/scholarship-matcher/internal/domain"
)

// System prompts per variant.
const (
	SearchSystemPrompt  = "You are a scholarship matching expert. Return only valid JSON."
	CatalogSystemPrompt = "You are an expert scholarship advisor. Respond with valid JSON arrays only."
)

const notProvided = "Not provided"

const searchExampleJSON = `{
  "scholarships": [
    {
      "name": "Example Scholarship Name",
      "provider": "Organization offering the award",
      "amountMin": 1000,
      "amountMax": 5000,
      "deadline": "YYYY-MM-DD",
      "matchScore": 85,
      "description": "One or two sentences on what the award funds and who it targets.",
      "requirements": ["Requirement one", "Requirement two"],
      "url": "https://one-of-the-search-result-urls"
    }
  ]
}`

const catalogExampleJSON = `[
  {
    "scholarship_id": "id-from-the-list",
    "match_score": 85,
    "priority_level": "high",
    "match_reasons": ["Reason grounded in the profile", "Another reason"]
  }
]`

// BuildSearchPrompt embeds the profile and the candidate documents into the
// instruction for the ad-hoc variant. Output is a pure function of its inputs.
func BuildSearchPrompt(p domain.StudentProfile, candidates []domain.CandidateDocument, now time.Time, minResults, maxResults int) string {
	var sb strings.Builder
	sb.WriteString("Match the following student to real scholarships found in the web search results below.\n\n")
	writeProfile(&sb, p)

	sb.WriteString("\nSearch results (JSON):\n")
	sb.WriteString(renderCandidates(candidates))
	sb.WriteString("\n\n")

	sb.WriteString("Return ONLY valid JSON matching this exact structure:\n")
	sb.WriteString(searchExampleJSON)
	sb.WriteString("\n\n")

	sb.WriteString("IMPORTANT:\n")
	sb.WriteString("- Use ONLY urls that appear in the search results above. Never invent a url.\n")
	fmt.Fprintf(&sb, "- Estimate realistic deadlines between %s and %s.\n", now.Format(dateLayout), now.AddDate(1, 0, 0).Format(dateLayout))
	sb.WriteString("- Include only scholarships that are plausibly relevant to this student.\n")
	fmt.Fprintf(&sb, "- Return between %d and %d scholarships, fewer if fewer are relevant.\n", minResults, maxResults)
	sb.WriteString("- matchScore is an integer from 0 to 100.\n")
	sb.WriteString("- Return ONLY the JSON object, no markdown, no explanation.\n")
	return sb.String()
}

// BuildCatalogPrompt embeds the profile and catalog rows into the instruction for
// the catalog variant.
func BuildCatalogPrompt(p domain.StudentProfile, catalog []domain.CatalogScholarship, now time.Time, maxResults int) string {
	var sb strings.Builder
	sb.WriteString("Rank the scholarships below by how well they fit this student.\n\n")
	writeProfile(&sb, p)

	sb.WriteString("\nAvailable scholarships (JSON):\n")
	sb.WriteString(renderCatalog(catalog))
	sb.WriteString("\n\n")

	sb.WriteString("Return ONLY a JSON array matching this exact structure:\n")
	sb.WriteString(catalogExampleJSON)
	sb.WriteString("\n\n")

	sb.WriteString("IMPORTANT:\n")
	sb.WriteString("- scholarship_id must be one of the ids listed above.\n")
	fmt.Fprintf(&sb, "- Return at most %d scholarships, best match first.\n", maxResults)
	fmt.Fprintf(&sb, "- Skip scholarships whose deadline is before %s.\n", now.Format(dateLayout))
	sb.WriteString("- match_score is an integer from 0 to 100; priority_level is high, medium or low.\n")
	sb.WriteString("- match_reasons must cite concrete profile facts.\n")
	sb.WriteString("- Return ONLY the JSON array, no markdown, no explanation.\n")
	return sb.String()
}

func writeProfile(sb *strings.Builder, p domain.StudentProfile) {
	sb.WriteString("Student Profile:\n")
	line := func(label, v string) {
		if v == "" {
			v = notProvided
		}
		fmt.Fprintf(sb, "- %s: %s\n", label, v)
	}
	gpa := ""
	if p.GPA != nil {
		gpa = strconv.FormatFloat(*p.GPA, 'f', 2, 64)
	}
	line("GPA", gpa)
	line("SAT Score", intOrEmpty(p.SATScore))
	line("ACT Score", intOrEmpty(p.ACTScore))
	line("State", p.State)
	line("Intended Major", p.IntendedMajor)
	line("Ethnicity", p.Ethnicity)
	line("Family Income", p.FamilyIncome)
	line("First Generation College Student", yesOrEmpty(p.IsFirstGeneration))
	line("Low Income", yesOrEmpty(p.IsLowIncome))
	line("International Student", yesOrEmpty(p.IsInternational))
	line("Underrepresented Minority", yesOrEmpty(p.IsMinority))
	line("Women in Field", yesOrEmpty(p.IsWomen))
}

func intOrEmpty(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

// yesOrEmpty renders false as absent: the request layer does not distinguish
// "no" from "not answered".
func yesOrEmpty(b bool) string {
	if b {
		return "Yes"
	}
	return ""
}

type promptCandidate struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

func renderCandidates(cs []domain.CandidateDocument) string {
	out := make([]promptCandidate, len(cs))
	for i, c := range cs {
		out[i] = promptCandidate{Title: c.Title, URL: c.URL, Snippet: c.Snippet}
	}
	return marshalPrompt(out)
}

type promptCatalogRow struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Provider     string   `json:"provider"`
	AmountMin    float64  `json:"amount_min"`
	AmountMax    float64  `json:"amount_max"`
	Deadline     string   `json:"deadline"`
	Requirements []string `json:"requirements"`
	Description  string   `json:"description"`
}

func renderCatalog(rows []domain.CatalogScholarship) string {
	out := make([]promptCatalogRow, len(rows))
	for i, r := range rows {
		reqs := r.Requirements
		if reqs == nil {
			reqs = []string{}
		}
		out[i] = promptCatalogRow{
			ID: r.ID, Name: r.Name, Provider: r.Provider,
			AmountMin: r.AmountMin, AmountMax: r.AmountMax, Deadline: r.Deadline,
			Requirements: reqs, Description: r.Description,
		}
	}
	return marshalPrompt(out)
}

// marshalPrompt renders v as indented JSON without HTML escaping so urls reach
// the model exactly as the search provider returned them.
func marshalPrompt(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
	return strings.TrimRight(buf.String(), "\n")
}
