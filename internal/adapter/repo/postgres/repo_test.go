package postgres_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/scholarship-matcher/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/scholarship-matcher/internal/domain"
)

func scholarshipScan(id string, deadline *time.Time) func(dest ...any) error {
	return func(dest ...any) error {
		*dest[0].(*string) = id
		*dest[1].(*string) = "Name " + id
		*dest[2].(*string) = "Provider"
		*dest[3].(*float64) = 1000
		*dest[4].(*float64) = 2500
		*dest[5].(**time.Time) = deadline
		*dest[6].(*string) = "desc"
		*dest[7].(*[]string) = []string{"essay"}
		*dest[8].(*string) = "https://x.org/" + id
		*dest[9].(*[]string) = []string{"stem"}
		*dest[10].(*bool) = true
		return nil
	}
}

func TestScholarshipRepo_ListActive(t *testing.T) {
	t.Parallel()
	d := time.Date(2027, 3, 1, 0, 0, 0, 0, time.UTC)
	pool := &poolStub{rows: &rowsStub{scans: []func(...any) error{
		scholarshipScan("s1", &d),
		scholarshipScan("s2", nil),
	}}}
	repo := postgres.NewScholarshipRepo(pool)
	now := time.Date(2026, 10, 14, 23, 0, 0, 0, time.UTC)

	got, err := repo.ListActive(context.Background(), domain.CatalogQuery{ActiveOn: now, Limit: 25})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2027-03-01", got[0].Deadline)
	assert.Equal(t, "", got[1].Deadline)
	assert.Equal(t, []string{"essay"}, got[0].Requirements)
	assert.Equal(t, "https://x.org/s2", got[1].URL)
	assert.Equal(t, []any{"2026-10-14", 25}, pool.queryArgs)
}

func TestScholarshipRepo_ListActive_DefaultLimit(t *testing.T) {
	t.Parallel()
	pool := &poolStub{}
	_, err := postgres.NewScholarshipRepo(pool).ListActive(context.Background(), domain.CatalogQuery{})
	require.NoError(t, err)
	require.Len(t, pool.queryArgs, 2)
	assert.Equal(t, 50, pool.queryArgs[1])
}

func TestScholarshipRepo_ListActive_Errors(t *testing.T) {
	t.Parallel()
	_, err := postgres.NewScholarshipRepo(&poolStub{queryErr: errors.New("down")}).ListActive(context.Background(), domain.CatalogQuery{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "op=scholarships.list")

	bad := &poolStub{rows: &rowsStub{scans: []func(...any) error{func(...any) error { return errors.New("bad column") }}}}
	_, err = postgres.NewScholarshipRepo(bad).ListActive(context.Background(), domain.CatalogQuery{})
	require.Error(t, err)

	iterErr := &poolStub{rows: &rowsStub{err: errors.New("conn reset")}}
	_, err = postgres.NewScholarshipRepo(iterErr).ListActive(context.Background(), domain.CatalogQuery{})
	require.Error(t, err)
}

func TestScholarshipRepo_Upsert(t *testing.T) {
	t.Parallel()
	pool := &poolStub{}
	repo := postgres.NewScholarshipRepo(pool)
	err := repo.Upsert(context.Background(), domain.CatalogScholarship{ID: "s1", Name: "One", Deadline: "2027-01-15", IsActive: true})
	require.NoError(t, err)
	require.Len(t, pool.execs, 1)
	assert.True(t, strings.HasPrefix(pool.execs[0].sql, "INSERT INTO scholarships"))
	assert.Equal(t, time.Date(2027, 1, 15, 0, 0, 0, 0, time.UTC), pool.execs[0].args[5])
	assert.Equal(t, []string{}, pool.execs[0].args[7])

	require.ErrorIs(t, repo.Upsert(context.Background(), domain.CatalogScholarship{Name: "no id"}), domain.ErrInvalidArgument)
	require.ErrorIs(t, repo.Upsert(context.Background(), domain.CatalogScholarship{ID: "x", Name: "y", Deadline: "soon"}), domain.ErrInvalidArgument)
}

func TestRecommendationRepo_Save(t *testing.T) {
	t.Parallel()
	pool := &poolStub{}
	repo := postgres.NewRecommendationRepo(pool)
	recs := []domain.CatalogRecommendation{
		{ScholarshipID: "s1", MatchScore: 90, PriorityLevel: "high", MatchReasons: []string{"gpa"}},
		{ScholarshipID: "s2", MatchScore: 60, PriorityLevel: "medium"},
	}
	require.NoError(t, repo.SaveRecommendations(context.Background(), "user-1", recs))
	require.Len(t, pool.execs, 3)
	assert.Contains(t, pool.execs[0].sql, "DELETE FROM scholarship_recommendations")
	assert.Equal(t, "user-1", pool.execs[1].args[1])
	assert.Equal(t, "s2", pool.execs[2].args[2])
	assert.Equal(t, []string{}, pool.execs[2].args[5])
	assert.NotEqual(t, pool.execs[1].args[0], pool.execs[2].args[0])
	assert.True(t, pool.tx.committed)
	assert.False(t, pool.tx.rolledBack)
}

func TestRecommendationRepo_SaveRollsBack(t *testing.T) {
	t.Parallel()
	pool := &poolStub{execErrOn: "INSERT"}
	err := postgres.NewRecommendationRepo(pool).SaveRecommendations(context.Background(), "u", []domain.CatalogRecommendation{{ScholarshipID: "s1"}})
	require.Error(t, err)
	assert.True(t, pool.tx.rolledBack)
	assert.False(t, pool.tx.committed)

	pool = &poolStub{beginErr: errors.New("no conn")}
	require.Error(t, postgres.NewRecommendationRepo(pool).SaveRecommendations(context.Background(), "u", nil))

	require.ErrorIs(t, postgres.NewRecommendationRepo(&poolStub{}).SaveRecommendations(context.Background(), "", nil), domain.ErrInvalidArgument)
}

func TestEnsureSchema(t *testing.T) {
	t.Parallel()
	pool := &poolStub{}
	require.NoError(t, postgres.EnsureSchema(context.Background(), pool))
	require.Len(t, pool.execs, 1)
	assert.Contains(t, pool.execs[0].sql, "CREATE TABLE IF NOT EXISTS scholarships")

	require.Error(t, postgres.EnsureSchema(context.Background(), &poolStub{execErrOn: "CREATE"}))
}
