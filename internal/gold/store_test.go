package gold

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesMissingStore(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "labels", "gold.json")
	store, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, store.Len())
	assert.Equal(t, 1, store.Version)

	// The empty store is persisted immediately.
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestLoadRecoversFromGarbage(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "gold.json")
	require.NoError(t, os.WriteFile(path, []byte("not json at all"), 0o644))

	store, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, store.Len())
}

func TestUpsertAndRoundtrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "gold.json")
	store, err := Load(path)
	require.NoError(t, err)

	created := store.Upsert(&Label{
		PositionKey: "title::Wildlife Assistantship::2024-01-01",
		Discipline:  "Wildlife",
		Source:      "test",
	})
	assert.True(t, created)

	// Keys are case-insensitive; a second write overwrites in place.
	created = store.Upsert(&Label{
		PositionKey: "TITLE::WILDLIFE ASSISTANTSHIP::2024-01-01",
		Discipline:  "Entomology",
		Source:      "test",
	})
	assert.False(t, created)
	assert.Equal(t, 1, store.Len())
	assert.True(t, store.Has("title::wildlife assistantship::2024-01-01"))
	assert.Equal(t, "Entomology", store.Get("title::wildlife assistantship::2024-01-01").Discipline)

	require.NoError(t, store.Save())
	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, again.Len())
	assert.Equal(t, "Entomology", again.Get("title::wildlife assistantship::2024-01-01").Discipline)
}

func TestUpsertIgnoresEmptyKeys(t *testing.T) {
	t.Parallel()

	store, err := Load(filepath.Join(t.TempDir(), "gold.json"))
	require.NoError(t, err)
	assert.False(t, store.Upsert(&Label{PositionKey: "   ", Discipline: "Wildlife"}))
	assert.Equal(t, 0, store.Len())
}

func TestCombinedText(t *testing.T) {
	t.Parallel()

	label := &Label{
		Title:        "Wildlife Assistantship",
		Organization: "State University",
		Description:  "Deer telemetry",
	}
	assert.Equal(t, "wildlife assistantship state university deer telemetry", label.CombinedText())
}
