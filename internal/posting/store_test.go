package posting

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureFixture(t *testing.T) *CaptureStore {
	t.Helper()
	store, err := OpenCaptureStore(filepath.Join(t.TempDir(), "capture", "postings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCaptureStorePendingLifecycle(t *testing.T) {
	t.Parallel()

	store := captureFixture(t)
	p := &Posting{
		Title:         "Wildlife Assistantship",
		Organization:  "State University",
		Location:      "Lincoln, NE",
		PublishedDate: "2024-03-01",
		Description:   "Deer telemetry study",
		ScrapedAt:     "2024-03-02T08:00:00Z",
	}
	require.NoError(t, store.Upsert(p, "pending"))

	pending, err := store.LoadByStatus("pending")
	require.NoError(t, err)
	require.Equal(t, 1, pending.Len())
	assert.Equal(t, "Wildlife Assistantship", pending.Items[0].Title)
	assert.Equal(t, "Deer telemetry study", pending.Items[0].Description)

	p.IsGraduatePosition = true
	p.DisciplinePrimary = "Wildlife"
	_, err = store.SaveClassified(&Postings{Items: []*Posting{p}})
	require.NoError(t, err)

	pending, err = store.LoadByStatus("pending")
	require.NoError(t, err)
	assert.Equal(t, 0, pending.Len())

	classified, err := store.LoadByStatus("classified")
	require.NoError(t, err)
	assert.Equal(t, 1, classified.Len())
}

func TestCaptureStoreUpsertIsIdempotent(t *testing.T) {
	t.Parallel()

	store := captureFixture(t)
	p := &Posting{URL: "https://example.org/job/1", Title: "A"}
	require.NoError(t, store.Upsert(p, "pending"))
	require.NoError(t, store.Upsert(p, "pending"))

	all, err := store.LoadByStatus("")
	require.NoError(t, err)
	assert.Equal(t, 1, all.Len())
}

func TestCaptureStoreRejectsKeylessPostings(t *testing.T) {
	t.Parallel()

	store := captureFixture(t)
	err := store.Upsert(&Posting{Location: "Lincoln, NE"}, "pending")
	assert.Error(t, err)
}

func TestOpenCaptureStoreRequiresPath(t *testing.T) {
	t.Parallel()

	_, err := OpenCaptureStore("")
	assert.Error(t, err)
}
