// Package file serves the scholarship catalog from a YAML document.
package file

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fairyhunter13/scholarship-matcher/internal/domain"
)

const dateLayout = "2006-01-02"

type document struct {
	Scholarships []domain.CatalogScholarship `yaml:"scholarships"`
}

// Decode reads a catalog document. Both a top-level list and a
// {scholarships: [...]} mapping are accepted. Rows without an id or name are
// rejected, as are deadlines that are not YYYY-MM-DD.
func Decode(r io.Reader) ([]domain.CatalogScholarship, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("op=catalog.decode: %w", err)
	}
	var root yaml.Node
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("op=catalog.decode: %w", err)
	}
	var rows []domain.CatalogScholarship
	if len(root.Content) > 0 {
		body := root.Content[0]
		if body.Kind == yaml.SequenceNode {
			err = body.Decode(&rows)
		} else {
			var doc document
			err = body.Decode(&doc)
			rows = doc.Scholarships
		}
		if err != nil {
			return nil, fmt.Errorf("op=catalog.decode: %w", err)
		}
	}
	for i := range rows {
		s := &rows[i]
		s.ID = strings.TrimSpace(s.ID)
		s.Deadline = strings.TrimSpace(s.Deadline)
		if s.ID == "" || strings.TrimSpace(s.Name) == "" {
			return nil, fmt.Errorf("op=catalog.decode: row %d: id and name are required", i)
		}
		if s.Deadline != "" {
			if _, err := time.Parse(dateLayout, s.Deadline); err != nil {
				return nil, fmt.Errorf("op=catalog.decode: row %d (%s): deadline %q: %w", i, s.ID, s.Deadline, err)
			}
		}
	}
	return rows, nil
}

// Load opens and decodes a catalog file.
func Load(path string) ([]domain.CatalogScholarship, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("op=catalog.load: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Decode(f)
}

// Repo is an in-memory, read-only catalog.
type Repo struct {
	rows []domain.CatalogScholarship
}

var _ domain.CatalogRepository = (*Repo)(nil)

// NewRepo wraps already decoded rows.
func NewRepo(rows []domain.CatalogScholarship) *Repo { return &Repo{rows: rows} }

// Open loads path into a Repo.
func Open(path string) (*Repo, error) {
	rows, err := Load(path)
	if err != nil {
		return nil, err
	}
	return NewRepo(rows), nil
}

// ListActive mirrors the Postgres query: active rows whose deadline is unset
// or not before q.ActiveOn, soonest deadline first, then by name.
func (r *Repo) ListActive(_ domain.Context, q domain.CatalogQuery) ([]domain.CatalogScholarship, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	activeOn := q.ActiveOn
	if activeOn.IsZero() {
		activeOn = time.Now()
	}
	cutoff := activeOn.UTC().Format(dateLayout)

	out := make([]domain.CatalogScholarship, 0, min(limit, len(r.rows)))
	for _, s := range r.rows {
		if !s.IsActive {
			continue
		}
		// same layout on both sides, so string order is date order
		if s.Deadline != "" && s.Deadline < cutoff {
			continue
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Deadline, out[j].Deadline
		switch {
		case a == b:
			return out[i].Name < out[j].Name
		case a == "":
			return false
		case b == "":
			return true
		}
		return a < b
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// All returns every row, active or not, in file order.
func (r *Repo) All() []domain.CatalogScholarship {
	out := make([]domain.CatalogScholarship, len(r.rows))
	copy(out, r.rows)
	return out
}
