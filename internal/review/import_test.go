package review

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jmorrell-unl/wildlife-grad/internal/gold"
)

func tempStore(t *testing.T) *gold.Store {
	t.Helper()
	store, err := gold.Load(filepath.Join(t.TempDir(), "gold.json"))
	require.NoError(t, err)
	return store
}

func TestApplyStatuses(t *testing.T) {
	t.Parallel()

	rows := []Row{
		{PositionKey: "k1", ReviewStatus: "accept", ModelSuggested: "Wildlife"},
		{PositionKey: "k2", ReviewStatus: "keep", DisciplineFinal: "Fisheries"},
		{PositionKey: "k3", ReviewStatus: "set", ReviewedDiscipline: "Entomology"},
		{PositionKey: "k4", ReviewStatus: ""},
		{PositionKey: "k5", ReviewStatus: "totally bogus"},
	}
	store := tempStore(t)
	summary, err := NewImporter(zap.NewNop()).Apply(rows, store, false)
	require.NoError(t, err)

	assert.Equal(t, 5, summary.Rows)
	assert.Equal(t, 3, summary.Imported)
	assert.Equal(t, 2, summary.Skipped)
	assert.Len(t, summary.Warnings, 1)

	assert.Equal(t, "Wildlife", store.Get("k1").Discipline)
	assert.Equal(t, "Fisheries and Aquatic", store.Get("k2").Discipline)
	assert.Equal(t, "Entomology", store.Get("k3").Discipline)
	assert.Equal(t, SourceQueueReview, store.Get("k1").Source)
	assert.Nil(t, store.Get("k4"))
}

func TestApplyRejectsBadRows(t *testing.T) {
	t.Parallel()

	rows := []Row{
		// accept_model is meaningless without a usable suggestion.
		{PositionKey: "k1", ReviewStatus: "accept_model", ModelSuggested: "Other"},
		// override demands an explicit discipline.
		{PositionKey: "k2", ReviewStatus: "override"},
		// unknown disciplines never enter the gold store.
		{PositionKey: "k3", ReviewStatus: "override", ReviewedDiscipline: "Astrology"},
		// rows need a key.
		{ReviewStatus: "keep_final", DisciplineFinal: "Wildlife"},
	}
	store := tempStore(t)
	summary, err := NewImporter(zap.NewNop()).Apply(rows, store, false)
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Imported)
	assert.Equal(t, 4, summary.Skipped)
	assert.Len(t, summary.Warnings, 4)
	assert.Equal(t, 0, store.Len())
}

func TestApplyOverrideToOtherIsAllowed(t *testing.T) {
	t.Parallel()

	rows := []Row{{PositionKey: "k1", ReviewStatus: "override", ReviewedDiscipline: "Other"}}
	store := tempStore(t)
	summary, err := NewImporter(zap.NewNop()).Apply(rows, store, false)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Imported)
	assert.Equal(t, "Other", store.Get("k1").Discipline)
}

func TestApplyDryRunLeavesStoreUntouched(t *testing.T) {
	t.Parallel()

	rows := []Row{{PositionKey: "k1", ReviewStatus: "accept_model", ModelSuggested: "Wildlife"}}
	store := tempStore(t)
	summary, err := NewImporter(zap.NewNop()).Apply(rows, store, true)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Imported)
	assert.Equal(t, 0, store.Len())
}

func TestApplyUpdatesExistingLabels(t *testing.T) {
	t.Parallel()

	store := tempStore(t)
	store.Upsert(&gold.Label{PositionKey: "k1", Discipline: "Wildlife", Source: "older_review"})

	rows := []Row{{PositionKey: "k1", ReviewStatus: "override", ReviewedDiscipline: "Entomology"}}
	summary, err := NewImporter(zap.NewNop()).Apply(rows, store, false)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Imported)
	assert.Equal(t, 1, summary.Updated)
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, "Entomology", store.Get("k1").Discipline)
}

func TestReadCSVLocatesColumnsByName(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "reviewed.csv")
	file, err := os.Create(path)
	require.NoError(t, err)
	w := csv.NewWriter(file)
	// Columns deliberately reordered relative to the export.
	require.NoError(t, w.Write([]string{"review_status", "position_key", "reviewed_discipline", "extra"}))
	require.NoError(t, w.Write([]string{"override", "k1", "Wildlife", "ignored"}))
	w.Flush()
	require.NoError(t, w.Error())
	require.NoError(t, file.Close())

	rows, err := ReadCSV(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "k1", rows[0].PositionKey)
	assert.Equal(t, "override", rows[0].ReviewStatus)
	assert.Equal(t, "Wildlife", rows[0].ReviewedDiscipline)
}
