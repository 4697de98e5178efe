package train

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jmorrell-unl/wildlife-grad/internal/gold"
	"github.com/jmorrell-unl/wildlife-grad/internal/model"
	"github.com/jmorrell-unl/wildlife-grad/internal/posting"
	"github.com/jmorrell-unl/wildlife-grad/internal/textvec"
)

func goldFixture(t *testing.T, wildlife, fisheries int) *gold.Store {
	t.Helper()
	store, err := gold.Load(filepath.Join(t.TempDir(), "gold.json"))
	require.NoError(t, err)

	for i := 0; i < wildlife; i++ {
		store.Upsert(&gold.Label{
			PositionKey: fmt.Sprintf("title::wildlife %d::ga", i),
			Title:       fmt.Sprintf("Wildlife assistantship %d", i),
			Description: "wildlife deer elk movement ecology telemetry collars",
			Discipline:  "Wildlife",
			Source:      "test",
		})
	}
	for i := 0; i < fisheries; i++ {
		store.Upsert(&gold.Label{
			PositionKey: fmt.Sprintf("title::fisheries %d::ga", i),
			Title:       fmt.Sprintf("Fisheries assistantship %d", i),
			Description: "trout stream fish spawning habitat temperature surveys",
			Discipline:  "Fisheries and Aquatic",
			Source:      "test",
		})
	}
	require.NoError(t, store.Save())
	return store
}

func TestTrainerBelowGateProducesNoArtifact(t *testing.T) {
	t.Parallel()

	store := goldFixture(t, 6, 0)
	opts := DefaultOptions(t.TempDir())
	opts.BootstrapFile = ""

	report, artifact, err := New(opts, zap.NewNop()).Run(nil, store)
	require.NoError(t, err)

	assert.Nil(t, artifact)
	assert.False(t, report.Trainable)
	assert.Equal(t, ReasonInsufficientGold, report.Promotion.Reason)
	assert.False(t, report.Promotion.Promote)
	assert.Equal(t, "not_trained", report.Metrics.EvaluationMode)

	manifest := model.ReadManifest(opts.ManifestPath())
	assert.Nil(t, manifest.Promoted, "an untrainable run must not touch the manifest")
}

func TestTrainerSingletonClassesAreDropped(t *testing.T) {
	t.Parallel()

	store := goldFixture(t, 6, 1)
	opts := DefaultOptions(t.TempDir())
	opts.BootstrapFile = ""

	report, artifact, err := New(opts, zap.NewNop()).Run(nil, store)
	require.NoError(t, err)

	assert.Nil(t, artifact)
	assert.Equal(t, []string{"Fisheries and Aquatic"}, report.DroppedSmallClasses)
	assert.Equal(t, ReasonInsufficientGold, report.Promotion.Reason)
}

func TestTrainerFirstRunPromotes(t *testing.T) {
	t.Parallel()

	store := goldFixture(t, 7, 7)
	opts := DefaultOptions(t.TempDir())
	opts.BootstrapFile = ""

	report, artifact, err := New(opts, zap.NewNop()).Run(nil, store)
	require.NoError(t, err)
	require.NotNil(t, artifact)

	assert.True(t, report.Trainable)
	assert.True(t, report.Promotion.Promote)
	assert.Equal(t, ReasonFirstPromotedModel, report.Promotion.Reason)
	assert.Equal(t, "holdout", report.Metrics.EvaluationMode)
	assert.Equal(t, 2, report.Metrics.ValidationSamples)
	assert.Equal(t, 14, report.TrainingSummary.GoldTotal)
	assert.Equal(t, map[string]int{"Wildlife": 7, "Fisheries and Aquatic": 7}, report.TrainingSummary.GoldClassCounts)

	manifest := model.ReadManifest(opts.ManifestPath())
	require.NotNil(t, manifest.Promoted)
	assert.Equal(t, artifact.ModelID, manifest.Promoted.ModelID)

	loaded, err := model.LoadArtifact(manifest.Promoted.ArtifactPath)
	require.NoError(t, err)
	pred := loaded.Predict("wildlife deer elk movement study", "x", 0.35)
	assert.Equal(t, "Wildlife", pred.Primary)
}

func TestTrainerPseudoLabelsStayOutOfGoldCounts(t *testing.T) {
	t.Parallel()

	store := goldFixture(t, 7, 7)
	opts := DefaultOptions(t.TempDir())
	opts.BootstrapFile = ""

	batch := []*posting.Posting{
		{
			Title:              "Wildlife MS assistantship",
			IsGraduatePosition: true,
			GradConfidence:     0.9,
			DisciplinePrimary:  "Wildlife",
			Description:        "wildlife deer monitoring with camera traps",
		},
		{
			Title:              "Parks outreach coordinator",
			IsGraduatePosition: false,
			GradConfidence:     0.9,
			DisciplinePrimary:  "Wildlife",
			Description:        "never trained on",
		},
		{
			Title:              "Low confidence wildlife posting",
			IsGraduatePosition: true,
			GradConfidence:     0.4,
			DisciplinePrimary:  "Wildlife",
			Description:        "never trained on",
		},
	}

	report, _, err := New(opts, zap.NewNop()).Run(batch, store)
	require.NoError(t, err)

	assert.Equal(t, 14, report.TrainingSummary.GoldTotal)
	assert.Equal(t, 1, report.TrainingSummary.PseudoTotal)
	assert.Equal(t, map[string]int{"Wildlife": 1}, report.TrainingSummary.PseudoClassCounts)
	assert.InDelta(t, 0.35, report.TrainingSummary.PseudoWeight, 1e-9)
}

func TestTrainerBootstrapSeedsEmptyGoldStore(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	bootstrapPath := filepath.Join(dir, "ml_training_data.json")
	payload := `{"positions": [
		{"title": "Wildlife assistantship", "organization": "State U", "discipline": "Wildlife", "description": "deer telemetry", "human_verified": true},
		{"title": "Fisheries assistantship", "organization": "State U", "discipline": "Fisheries", "description": "trout streams", "human_verified": true},
		{"title": "Unreviewed posting", "organization": "State U", "discipline": "Wildlife", "description": "unchecked"}
	]}`
	require.NoError(t, os.WriteFile(bootstrapPath, []byte(payload), 0o644))

	goldPath := filepath.Join(dir, "gold.json")
	store, err := gold.Load(goldPath)
	require.NoError(t, err)

	opts := DefaultOptions(filepath.Join(dir, "models"))
	opts.BootstrapFile = bootstrapPath

	report, _, err := New(opts, zap.NewNop()).Run(nil, store)
	require.NoError(t, err)

	assert.Equal(t, 2, report.BootstrapLabels)
	assert.Equal(t, 2, store.Len())

	// Bootstrapped labels land in the gold store file like reviewed ones.
	again, err := gold.Load(goldPath)
	require.NoError(t, err)
	require.Equal(t, 2, again.Len())

	label := again.Get("title_org::wildlife assistantship::state u::::")
	require.NotNil(t, label)
	assert.Equal(t, SourceBootstrap, label.Source)
	assert.Equal(t, "Wildlife", label.Discipline)

	label = again.Get("title_org::fisheries assistantship::state u::::")
	require.NotNil(t, label)
	assert.Equal(t, "Fisheries and Aquatic", label.Discipline)
}

func TestTrainerBootstrapSkipsPopulatedStore(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	bootstrapPath := filepath.Join(dir, "ml_training_data.json")
	payload := `{"positions": [
		{"title": "Wildlife assistantship", "organization": "State U", "discipline": "Wildlife", "description": "deer", "human_verified": true}
	]}`
	require.NoError(t, os.WriteFile(bootstrapPath, []byte(payload), 0o644))

	store := goldFixture(t, 1, 0)
	opts := DefaultOptions(filepath.Join(dir, "models"))
	opts.BootstrapFile = bootstrapPath

	report, _, err := New(opts, zap.NewNop()).Run(nil, store)
	require.NoError(t, err)

	assert.Equal(t, 0, report.BootstrapLabels)
	assert.Equal(t, 1, store.Len())
}

func TestLoadBootstrapPayloadShapes(t *testing.T) {
	t.Parallel()

	rowsJSON := `[
		{"title": "Wildlife assistantship", "organization": "State U", "discipline": "Wildlife", "human_verified": true},
		{"title": "Unreviewed posting", "organization": "State U", "discipline": "Wildlife"}
	]`
	tests := []struct {
		name    string
		payload string
	}{
		{"bare list", rowsJSON},
		{"positions object", `{"positions": ` + rowsJSON + `}`},
		{"entries object", `{"entries": ` + rowsJSON + `}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "ml_training_data.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.payload), 0o644))

			rows, err := loadBootstrap(path)
			require.NoError(t, err)
			require.Len(t, rows, 1)
			assert.Equal(t, "title_org::wildlife assistantship::state u::::", rows[0].key)
			assert.Equal(t, "Wildlife", rows[0].discipline)
		})
	}
}

func TestTrainerAutoSeedPersistsGoldLabels(t *testing.T) {
	t.Parallel()

	store := goldFixture(t, 0, 0)
	opts := DefaultOptions(t.TempDir())
	opts.BootstrapFile = ""
	opts.AutoSeed = true

	batch := []*posting.Posting{
		{
			Title:              "Entomology assistantship A",
			IsGraduatePosition: true,
			GradConfidence:     0.9,
			DisciplinePrimary:  "Entomology",
			Description:        "insect pollinator colonies",
		},
		{
			Title:              "Entomology assistantship B",
			IsGraduatePosition: true,
			GradConfidence:     0.88,
			DisciplinePrimary:  "Entomology",
			Description:        "arthropod sampling transects",
		},
		{
			// Alone in its class: never seeded.
			Title:              "Wildlife assistantship",
			IsGraduatePosition: true,
			GradConfidence:     0.95,
			DisciplinePrimary:  "Wildlife",
			Description:        "wildlife telemetry",
		},
		{
			// Model-derived labels never feed back into gold.
			Title:                      "Entomology assistantship C",
			IsGraduatePosition:         true,
			GradConfidence:             0.99,
			DisciplinePrimary:          "Entomology",
			DisciplineRefinementSource: posting.SourcePromotedModel,
			Description:                "insect sampling",
		},
	}

	report, _, err := New(opts, zap.NewNop()).Run(batch, store)
	require.NoError(t, err)

	assert.Equal(t, 2, report.AutoSeeded)
	assert.Equal(t, 2, store.Len())
	label := store.Get("title::entomology assistantship a::")
	require.NotNil(t, label)
	assert.Equal(t, SourceAutoSeed, label.Source)
	assert.Equal(t, "Entomology", label.Discipline)
}

func TestFitLogregSeparatesClasses(t *testing.T) {
	t.Parallel()

	classIndex := map[string]int{"Fisheries and Aquatic": 0, "Wildlife": 1}
	samples := []sample{
		{key: "a", text: "trout stream fish", label: "Fisheries and Aquatic", weight: 1},
		{key: "b", text: "trout river fish", label: "Fisheries and Aquatic", weight: 1},
		{key: "c", text: "deer elk wildlife", label: "Wildlife", weight: 1},
		{key: "d", text: "deer wildlife telemetry", label: "Wildlife", weight: 1},
	}
	v, vecs, y, w := prepare(classIndex, samples)
	lm := fitLogreg(defaultLogregConfig(), []string{"Fisheries and Aquatic", "Wildlife"}, len(v.Terms()), vecs, y, w)

	preds := predictAll(lm, vecs)
	assert.Equal(t, y, preds, "training data must be separable")

	probe := v.Transform("wildlife deer survey")
	assert.Equal(t, []int{1}, predictAll(lm, []textvec.Vector{probe}))
}

func TestEvaluateMetrics(t *testing.T) {
	t.Parallel()

	yTrue := []int{0, 0, 1, 1}
	yPred := []int{0, 0, 1, 0}
	accuracy, macroF1, weightedF1 := evaluate(yTrue, yPred, 2)

	assert.InDelta(t, 0.75, accuracy, 1e-9)
	// class 0: tp=2 fp=1 fn=0 -> f1 = 4/5; class 1: tp=1 fp=0 fn=1 -> f1 = 2/3.
	assert.InDelta(t, (0.8+2.0/3.0)/2, macroF1, 1e-9)
	assert.InDelta(t, (0.8*2+2.0/3.0*2)/4, weightedF1, 1e-9)
}

func TestAverageFoldMetricsIsMeanOfFolds(t *testing.T) {
	t.Parallel()

	// One perfect fold, one at 0.75 accuracy; the mean differs from scoring
	// the concatenated predictions once.
	yTrue := [][]int{{0, 1}, {0, 0, 1, 1}}
	yPred := [][]int{{0, 1}, {0, 0, 1, 0}}
	accuracy, macroF1, weightedF1 := averageFoldMetrics(yTrue, yPred, 2)

	foldMacro := (0.8 + 2.0/3.0) / 2
	foldWeighted := (0.8*2 + 2.0/3.0*2) / 4
	assert.InDelta(t, (1+0.75)/2, accuracy, 1e-9)
	assert.InDelta(t, (1+foldMacro)/2, macroF1, 1e-9)
	assert.InDelta(t, (1+foldWeighted)/2, weightedF1, 1e-9)
}

func TestAverageFoldMetricsSkipsEmptyFolds(t *testing.T) {
	t.Parallel()

	accuracy, macroF1, _ := averageFoldMetrics([][]int{{}, {0, 1}}, [][]int{{}, {0, 1}}, 2)
	assert.InDelta(t, 1, accuracy, 1e-9)
	assert.InDelta(t, 1, macroF1, 1e-9)

	accuracy, _, _ = averageFoldMetrics(nil, nil, 2)
	assert.Zero(t, accuracy)
}
