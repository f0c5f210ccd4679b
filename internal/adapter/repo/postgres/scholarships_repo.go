package postgres

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/scholarship-matcher/internal/domain"
)

const dateLayout = "2006-01-02"

// ScholarshipRepo reads and writes the scholarship catalog.
type ScholarshipRepo struct{ Pool PgxPool }

var _ domain.CatalogRepository = (*ScholarshipRepo)(nil)

// NewScholarshipRepo constructs a ScholarshipRepo with the given pool.
func NewScholarshipRepo(p PgxPool) *ScholarshipRepo { return &ScholarshipRepo{Pool: p} }

// ListActive returns active scholarships whose deadline is unset or not before
// q.ActiveOn, soonest deadline first.
func (r *ScholarshipRepo) ListActive(ctx domain.Context, q domain.CatalogQuery) ([]domain.CatalogScholarship, error) {
	ctx, span := otel.Tracer("repo.scholarships").Start(ctx, "scholarships.ListActive")
	defer span.End()
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	activeOn := q.ActiveOn
	if activeOn.IsZero() {
		activeOn = time.Now()
	}
	const sql = `SELECT id, name, provider, amount_min, amount_max, deadline, description, requirements, url, tags, is_active
	FROM scholarships
	WHERE is_active AND (deadline IS NULL OR deadline >= $1::date)
	ORDER BY deadline ASC NULLS LAST, name ASC
	LIMIT $2`
	rows, err := r.Pool.Query(ctx, sql, activeOn.UTC().Format(dateLayout), limit)
	if err != nil {
		return nil, fmt.Errorf("op=scholarships.list: %w", err)
	}
	defer rows.Close()

	out := make([]domain.CatalogScholarship, 0, limit)
	for rows.Next() {
		s, err := scanScholarship(rows)
		if err != nil {
			return nil, fmt.Errorf("op=scholarships.list scan: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=scholarships.list: %w", err)
	}
	span.SetAttributes(attribute.Int("scholarships.count", len(out)))
	return out, nil
}

func scanScholarship(row pgx.Row) (domain.CatalogScholarship, error) {
	var (
		s        domain.CatalogScholarship
		deadline *time.Time
	)
	if err := row.Scan(&s.ID, &s.Name, &s.Provider, &s.AmountMin, &s.AmountMax, &deadline,
		&s.Description, &s.Requirements, &s.URL, &s.Tags, &s.IsActive); err != nil {
		return domain.CatalogScholarship{}, err
	}
	if deadline != nil {
		s.Deadline = deadline.Format(dateLayout)
	}
	return s, nil
}

// Upsert inserts or replaces a scholarship by id.
func (r *ScholarshipRepo) Upsert(ctx domain.Context, s domain.CatalogScholarship) error {
	ctx, span := otel.Tracer("repo.scholarships").Start(ctx, "scholarships.Upsert")
	defer span.End()
	if s.ID == "" || s.Name == "" {
		return fmt.Errorf("%w: scholarship id and name are required", domain.ErrInvalidArgument)
	}
	var deadline any
	if s.Deadline != "" {
		t, err := time.Parse(dateLayout, s.Deadline)
		if err != nil {
			return fmt.Errorf("%w: scholarship %s deadline %q", domain.ErrInvalidArgument, s.ID, s.Deadline)
		}
		deadline = t
	}
	const sql = `INSERT INTO scholarships (id, name, provider, amount_min, amount_max, deadline, description, requirements, url, tags, is_active, updated_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,now())
	ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, provider=EXCLUDED.provider, amount_min=EXCLUDED.amount_min,
	amount_max=EXCLUDED.amount_max, deadline=EXCLUDED.deadline, description=EXCLUDED.description,
	requirements=EXCLUDED.requirements, url=EXCLUDED.url, tags=EXCLUDED.tags, is_active=EXCLUDED.is_active, updated_at=now()`
	if _, err := r.Pool.Exec(ctx, sql, s.ID, s.Name, s.Provider, s.AmountMin, s.AmountMax, deadline,
		s.Description, nonNil(s.Requirements), s.URL, nonNil(s.Tags), s.IsActive); err != nil {
		return fmt.Errorf("op=scholarships.upsert: %w", err)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
