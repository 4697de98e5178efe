package queue

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jmorrell-unl/wildlife-grad/internal/model"
	"github.com/jmorrell-unl/wildlife-grad/internal/posting"
	"github.com/jmorrell-unl/wildlife-grad/internal/textvec"
)

// queueModel separates two classes on single indicator tokens so tests can
// steer the prediction with the description alone.
func queueModel() *model.Store {
	artifact := &model.Artifact{
		ModelID:          "test",
		VectorizerConfig: textvec.Config{},
		Vocabulary:       []string{"trout", "wildlife"},
		IDF:              []float64{1, 1},
		Classifier: &model.LinearModel{
			Classes:    []string{"Fisheries and Aquatic", "Wildlife"},
			Weights:    [][]float64{{5, 0}, {0, 5}},
			Intercepts: []float64{0, 0},
		},
		Classes: []string{"Fisheries and Aquatic", "Wildlife"},
	}
	return model.NewStoreWithArtifact(model.DefaultStoreConfig(""), artifact, zap.NewNop())
}

func TestBuildWithoutModel(t *testing.T) {
	t.Parallel()

	postings := []*posting.Posting{
		{Title: "Unplaced posting", DisciplinePrimary: "Other"},
		{Title: "Placed posting", DisciplinePrimary: "Wildlife"},
	}
	items := Build(DefaultConfig(), postings, nil)

	require.Len(t, items, 1)
	assert.Equal(t, []string{ReasonFinalOther, ReasonNoPromotedModel}, items[0].Reasons)
	assert.Equal(t, 3, items[0].Severity)
	assert.Equal(t, "Other", items[0].DisciplineModelSuggested)
}

func TestBuildSuggestedRelabel(t *testing.T) {
	t.Parallel()

	postings := []*posting.Posting{{
		Title:             "Still unplaced",
		Description:       "wildlife wildlife",
		DisciplinePrimary: "Other",
	}}
	items := Build(DefaultConfig(), postings, queueModel())

	require.Len(t, items, 1)
	assert.Equal(t, []string{ReasonFinalOther, ReasonSuggestedRelabel}, items[0].Reasons)
	assert.Equal(t, "Wildlife", items[0].DisciplineModelSuggested)
	assert.GreaterOrEqual(t, items[0].ModelConfidence, 0.9)
}

func TestBuildStillOtherLowSignal(t *testing.T) {
	t.Parallel()

	postings := []*posting.Posting{{
		Title:             "No vocabulary overlap",
		Description:       "completely unrelated text",
		DisciplinePrimary: "Other",
	}}
	items := Build(DefaultConfig(), postings, queueModel())

	require.Len(t, items, 1)
	assert.Equal(t, []string{ReasonFinalOther, ReasonStillOtherLowSignal}, items[0].Reasons)
}

func TestBuildModelRuleDisagreement(t *testing.T) {
	t.Parallel()

	postings := []*posting.Posting{{
		Title:             "Mislabeled posting",
		Description:       "wildlife wildlife wildlife",
		DisciplinePrimary: "Fisheries and Aquatic",
	}}
	items := Build(DefaultConfig(), postings, queueModel())

	require.Len(t, items, 1)
	assert.Equal(t, []string{ReasonModelRuleDisagreement}, items[0].Reasons)
	assert.Equal(t, 2, items[0].Severity)
	assert.Equal(t, "Fisheries and Aquatic", items[0].DisciplineFinal)
	assert.Equal(t, "Wildlife", items[0].DisciplineModelSuggested)
}

func TestBuildAgreementStaysOut(t *testing.T) {
	t.Parallel()

	postings := []*posting.Posting{{
		Title:             "Correctly labeled",
		Description:       "wildlife wildlife",
		DisciplinePrimary: "Wildlife",
	}}
	items := Build(DefaultConfig(), postings, queueModel())
	assert.Empty(t, items)
}

func TestBuildSortsBySeverityThenConfidence(t *testing.T) {
	t.Parallel()

	postings := []*posting.Posting{
		{Title: "b low", Description: "unrelated", DisciplinePrimary: "Other"},
		{Title: "a disagreement", Description: "wildlife wildlife", DisciplinePrimary: "Fisheries and Aquatic"},
		{Title: "c suggestion", Description: "trout trout", DisciplinePrimary: "Other"},
	}
	items := Build(DefaultConfig(), postings, queueModel())

	require.Len(t, items, 3)
	assert.Equal(t, "c suggestion", items[0].Title)
	assert.Equal(t, "b low", items[1].Title)
	assert.Equal(t, "a disagreement", items[2].Title)
}

func TestWriteAndReadJSON(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "queue", "queue.json")
	items := []Item{{Severity: 3, Reasons: []string{ReasonFinalOther}, PositionKey: "k", Title: "t"}}
	require.NoError(t, WriteJSON(path, items))

	again, err := ReadJSON(path)
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, "k", again[0].PositionKey)
}

func TestWriteCSV(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "queue.csv")
	items := []Item{{
		Severity:        3,
		Reasons:         []string{ReasonFinalOther, ReasonNoPromotedModel},
		PositionKey:     "k",
		DisciplineFinal: "Other",
		Title:           "t",
	}}
	require.NoError(t, WriteCSV(path, items))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, CSVHeader, records[0])
	assert.Equal(t, "final_other;no_promoted_model", records[1][1])
	assert.Equal(t, "", records[1][8], "review_status ships empty")
}
