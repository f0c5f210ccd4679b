package usecase

import (
	"strconv"
	"strings"
	"time"

	"github.com/fairyhunter13/scholarship-matcher/internal/domain"
)

const (
	queryAnchor      = "scholarships"
	queryDemographic = "first generation"
)

// BuildSearchQuery derives the free-text search query for a profile. Absent
// fields are omitted rather than rendered as placeholder tokens. The award years
// are the current and next calendar year of now.
func BuildSearchQuery(p domain.StudentProfile, now time.Time) string {
	parts := []string{queryAnchor}
	for _, f := range []string{p.IntendedMajor, p.State, p.Ethnicity} {
		if f != "" {
			parts = append(parts, f)
		}
	}
	y := now.Year()
	parts = append(parts, queryDemographic, strconv.Itoa(y), strconv.Itoa(y+1))
	return strings.Join(parts, " ")
}
