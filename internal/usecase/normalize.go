package usecase

import (
	"encoding/json"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/fairyhunter13/scholarship-matcher/internal/domain"
)

const dateLayout = "2006-01-02"

// Drop reasons reported by the normalizers.
const (
	DropUndecodable = "undecodable"
	DropUnknownURL  = "unknown_url"
	DropUnknownID   = "unknown_id"
	DropDuplicate   = "duplicate"
	DropOverLimit   = "over_limit"
)

// Drops counts records removed during normalization, by reason.
type Drops map[string]int

// Total returns the number of dropped records.
func (d Drops) Total() int {
	n := 0
	for _, v := range d {
		n += v
	}
	return n
}

type rawScholarship struct {
	Name         string      `json:"name"`
	Title        string      `json:"title"`
	Provider     string      `json:"provider"`
	Organization string      `json:"organization"`
	AmountMin    FlexNumber  `json:"amountMin"`
	AmountMinAlt FlexNumber  `json:"amount_min"`
	AmountMax    FlexNumber  `json:"amountMax"`
	AmountMaxAlt FlexNumber  `json:"amount_max"`
	Amount       FlexNumber  `json:"amount"`
	Deadline     string      `json:"deadline"`
	MatchScore   FlexNumber  `json:"matchScore"`
	MatchAlt     FlexNumber  `json:"match_score"`
	Description  string      `json:"description"`
	Requirements FlexStrings `json:"requirements"`
	URL          string      `json:"url"`
	Link         string      `json:"link"`
}

type rawCatalogPick struct {
	ScholarshipID    string      `json:"scholarship_id"`
	ScholarshipIDAlt string      `json:"scholarshipId"`
	ID               string      `json:"id"`
	URL              string      `json:"url"`
	MatchScore       FlexNumber  `json:"match_score"`
	MatchAlt         FlexNumber  `json:"matchScore"`
	PriorityLevel    string      `json:"priority_level"`
	PriorityAlt      string      `json:"priorityLevel"`
	MatchReasons     FlexStrings `json:"match_reasons"`
	MatchReasonsAlt  FlexStrings `json:"matchReasons"`
}

// NormalizeSearchResults turns decoded model records into recommendations that
// cite one of the candidate documents. It never fails: unusable records are
// dropped and counted. The emitted url is the candidate's own url.
func NormalizeSearchResults(records []json.RawMessage, candidates []domain.CandidateDocument, now time.Time, limit int) ([]domain.ScholarshipRecommendation, Drops) {
	drops := Drops{}
	byURL := make(map[string]domain.CandidateDocument, len(candidates))
	for _, c := range candidates {
		if k := urlKey(c.URL); k != "" {
			if _, seen := byURL[k]; !seen {
				byURL[k] = c
			}
		}
	}
	out := make([]domain.ScholarshipRecommendation, 0, min(len(records), limit))
	seen := make(map[string]bool, len(records))
	for _, rec := range records {
		var r rawScholarship
		if err := json.Unmarshal(rec, &r); err != nil {
			drops[DropUndecodable]++
			continue
		}
		key := urlKey(firstString(r.URL, r.Link))
		cand, ok := byURL[key]
		if !ok {
			drops[DropUnknownURL]++
			continue
		}
		if seen[key] {
			drops[DropDuplicate]++
			continue
		}
		if len(out) >= limit {
			drops[DropOverLimit]++
			continue
		}
		seen[key] = true
		lo, hi := amountRange(firstNumber(r.AmountMin, r.AmountMinAlt), firstNumber(r.AmountMax, r.AmountMaxAlt), r.Amount)
		out = append(out, domain.ScholarshipRecommendation{
			Name:         firstString(r.Name, r.Title, cand.Title),
			Provider:     firstString(r.Provider, r.Organization, hostOf(cand.URL)),
			AmountMin:    lo,
			AmountMax:    hi,
			Deadline:     normalizeDeadline(r.Deadline),
			MatchScore:   clampScore(firstNumber(r.MatchScore, r.MatchAlt)),
			Description:  strings.TrimSpace(r.Description),
			Requirements: nonNil(r.Requirements),
			URL:          cand.URL,
			Source:       domain.SourceAIGenerated,
			GeneratedAt:  now.UTC(),
		})
	}
	return out, drops
}

// NormalizeCatalogResults joins model picks with the catalog they were chosen
// from. Picks naming an id (or, failing that, a url) outside the catalog are
// dropped. Results are ordered by score, best first, and truncated to limit.
func NormalizeCatalogResults(records []json.RawMessage, catalog []domain.CatalogScholarship, now time.Time, limit int) ([]domain.CatalogRecommendation, Drops) {
	drops := Drops{}
	byID := make(map[string]domain.CatalogScholarship, len(catalog))
	byURL := make(map[string]domain.CatalogScholarship, len(catalog))
	for _, s := range catalog {
		byID[strings.TrimSpace(s.ID)] = s
		if k := urlKey(s.URL); k != "" {
			byURL[k] = s
		}
	}
	out := make([]domain.CatalogRecommendation, 0, len(records))
	seen := make(map[string]bool, len(records))
	for _, rec := range records {
		var r rawCatalogPick
		if err := json.Unmarshal(rec, &r); err != nil {
			drops[DropUndecodable]++
			continue
		}
		s, ok := byID[firstString(r.ScholarshipID, r.ScholarshipIDAlt, r.ID)]
		if !ok {
			s, ok = byURL[urlKey(r.URL)]
		}
		if !ok || strings.TrimSpace(s.URL) == "" {
			drops[DropUnknownID]++
			continue
		}
		if seen[s.ID] {
			drops[DropDuplicate]++
			continue
		}
		seen[s.ID] = true
		score := clampScore(firstNumber(r.MatchScore, r.MatchAlt))
		reasons := r.MatchReasons
		if len(reasons) == 0 {
			reasons = r.MatchReasonsAlt
		}
		out = append(out, domain.CatalogRecommendation{
			ScholarshipID: s.ID,
			Name:          s.Name,
			Provider:      s.Provider,
			AmountMin:     s.AmountMin,
			AmountMax:     s.AmountMax,
			Deadline:      s.Deadline,
			MatchScore:    score,
			PriorityLevel: normalizePriority(firstString(r.PriorityLevel, r.PriorityAlt), score),
			MatchReasons:  nonNil(reasons),
			Description:   s.Description,
			Requirements:  nonNil(s.Requirements),
			URL:           s.URL,
			Source:        domain.SourceAIGenerated,
			GeneratedAt:   now.UTC(),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].MatchScore > out[j].MatchScore })
	if len(out) > limit {
		drops[DropOverLimit] += len(out) - limit
		out = out[:limit]
	}
	return out, drops
}

// clampScore rounds into [0,100]; absent or non-numeric scores become 0.
func clampScore(n FlexNumber) int {
	if !n.Valid {
		return 0
	}
	v := n.Int()
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}

func normalizePriority(p string, score int) string {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case domain.PriorityHigh:
		return domain.PriorityHigh
	case domain.PriorityMedium, "med":
		return domain.PriorityMedium
	case domain.PriorityLow:
		return domain.PriorityLow
	}
	switch {
	case score >= 80:
		return domain.PriorityHigh
	case score >= 60:
		return domain.PriorityMedium
	}
	return domain.PriorityLow
}

// amountRange fills missing bounds from the single amount and orders the pair.
func amountRange(lo, hi, single FlexNumber) (float64, float64) {
	if !lo.Valid && !hi.Valid && single.Valid {
		lo, hi = single, single
	}
	switch {
	case lo.Valid && !hi.Valid:
		hi = lo
	case hi.Valid && !lo.Valid:
		lo = hi
	}
	a, b := lo.Value, hi.Value
	if a < 0 {
		a = 0
	}
	if b < 0 {
		b = 0
	}
	if a > b {
		a, b = b, a
	}
	return a, b
}

var deadlineLayouts = []string{
	dateLayout,
	time.RFC3339,
	"January 2, 2006",
	"Jan 2, 2006",
	"01/02/2006",
	"1/2/2006",
	"2006/01/02",
}

// normalizeDeadline rewrites recognizable dates as YYYY-MM-DD and keeps
// anything else ("Rolling", "Varies") as written.
func normalizeDeadline(s string) string {
	s = strings.TrimSpace(s)
	for _, layout := range deadlineLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(dateLayout)
		}
	}
	return s
}

// urlKey canonicalizes a url for membership checks: scheme and host are
// lower-cased, the fragment and a trailing slash are ignored.
func urlKey(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.TrimSuffix(raw, "/")
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")
	return u.String()
}

func hostOf(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
