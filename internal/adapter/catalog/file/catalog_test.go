package file

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/scholarship-matcher/internal/domain"
)

const sampleCatalog = `
scholarships:
  - id: nurse-1
    name: Future Nurses Award
    provider: Texas Nurses Foundation
    amount_min: 1000
    amount_max: 5000
    deadline: "2027-02-01"
    requirements: [Nursing major, Texas resident]
    url: https://example.org/nurse
    is_active: true
  - id: closed
    name: Expired Grant
    deadline: "2026-01-01"
    url: https://example.org/closed
    is_active: true
  - id: inactive
    name: Paused Fund
    deadline: "2027-05-01"
    url: https://example.org/paused
    is_active: false
  - id: rolling
    name: Rolling Scholarship
    url: https://example.org/rolling
    is_active: true
  - id: first-gen
    name: First Gen Scholars
    deadline: "2026-11-30"
    url: https://example.org/first-gen
    is_active: true
`

func writeCatalog(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestListActive_FiltersAndOrders(t *testing.T) {
	repo, err := Open(writeCatalog(t, sampleCatalog))
	require.NoError(t, err)

	got, err := repo.ListActive(context.Background(), domain.CatalogQuery{
		ActiveOn: time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	ids := make([]string, 0, len(got))
	for _, s := range got {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"first-gen", "nurse-1", "rolling"}, ids)
	assert.Equal(t, []string{"Nursing major", "Texas resident"}, got[1].Requirements)
	assert.Equal(t, 5000.0, got[1].AmountMax)
	assert.Len(t, repo.All(), 5)
}

func TestListActive_DeadlineTodayIsKept(t *testing.T) {
	repo := NewRepo([]domain.CatalogScholarship{{ID: "a", Name: "A", Deadline: "2026-10-14", IsActive: true}})
	got, err := repo.ListActive(context.Background(), domain.CatalogQuery{ActiveOn: time.Date(2026, 10, 14, 23, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestListActive_Limit(t *testing.T) {
	repo, err := Open(writeCatalog(t, sampleCatalog))
	require.NoError(t, err)
	got, err := repo.ListActive(context.Background(), domain.CatalogQuery{
		ActiveOn: time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC),
		Limit:    1,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "first-gen", got[0].ID)
}

func TestDecode_TopLevelList(t *testing.T) {
	rows, err := Decode(strings.NewReader("- id: x\n  name: X\n  is_active: true\n"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "x", rows[0].ID)
}

func TestDecode_Rejects(t *testing.T) {
	_, err := Decode(strings.NewReader("scholarships:\n  - name: No id\n"))
	assert.ErrorContains(t, err, "id and name are required")

	_, err = Decode(strings.NewReader("scholarships:\n  - id: a\n    name: A\n    deadline: March 1\n"))
	assert.ErrorContains(t, err, "deadline")

	_, err = Decode(strings.NewReader("scholarships: [unclosed"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
