package model

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmorrell-unl/wildlife-grad/internal/textvec"
)

// testArtifact separates two classes on single indicator tokens.
func testArtifact() *Artifact {
	return &Artifact{
		ModelID:          "20240101_000000",
		TrainedAt:        "2024-01-01T00:00:00Z",
		VectorizerConfig: textvec.Config{},
		Vocabulary:       []string{"trout", "wildlife"},
		IDF:              []float64{1, 1},
		Classifier: &LinearModel{
			Classes:    []string{"Fisheries and Aquatic", "Wildlife"},
			Weights:    [][]float64{{5, 0}, {0, 5}},
			Intercepts: []float64{0, 0},
		},
		Classes: []string{"Fisheries and Aquatic", "Wildlife"},
		Metrics: Metrics{Accuracy: 0.9, MacroF1: 0.88, EvaluationMode: "holdout", ValidationSamples: 10},
	}
}

func TestLinearModelProbabilitiesSumToOne(t *testing.T) {
	t.Parallel()

	m := testArtifact().Classifier
	probs := m.Probabilities(textvec.Vector{0: 1})
	var sum float64
	for _, p := range probs {
		sum += p
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("probabilities sum to %f, want 1", sum)
	}
	if probs[0] <= probs[1] {
		t.Error("trout evidence must favor the fisheries class")
	}
}

func TestArtifactPredict(t *testing.T) {
	t.Parallel()

	a := testArtifact()

	pred := a.Predict("wildlife wildlife habitat", "m1", 0.35)
	if !pred.Available {
		t.Fatal("prediction must be available")
	}
	if pred.Primary != "Wildlife" {
		t.Errorf("primary = %q, want Wildlife", pred.Primary)
	}
	if pred.Confidence < 0.9 {
		t.Errorf("confidence = %f, want high", pred.Confidence)
	}
	if pred.Secondary != "" {
		t.Errorf("secondary = %q, want empty below the secondary gate", pred.Secondary)
	}
	if pred.ModelID != "m1" {
		t.Errorf("model id = %q, want m1", pred.ModelID)
	}
}

func TestArtifactPredictEmptyText(t *testing.T) {
	t.Parallel()

	pred := testArtifact().Predict("", "m1", 0.35)
	if pred.Primary != "Other" {
		t.Errorf("primary = %q, want Other for empty text", pred.Primary)
	}
}

func TestArtifactPredictUnknownTokens(t *testing.T) {
	t.Parallel()

	// No vocabulary hit: intercept-only softmax splits evenly and the
	// secondary clears a 0.35 gate.
	pred := testArtifact().Predict("zebra crossing", "m1", 0.35)
	if pred.Confidence < 0.49 || pred.Confidence > 0.51 {
		t.Errorf("confidence = %f, want ~0.5", pred.Confidence)
	}
	if pred.Secondary == "" {
		t.Error("expected a secondary label at even probabilities")
	}
}

func TestArtifactSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	metadata, err := testArtifact().Save(dir)
	if err != nil {
		t.Fatalf("saving artifact: %v", err)
	}
	if metadata.ArtifactPath == "" {
		t.Fatal("metadata must carry the artifact path")
	}

	loaded, err := LoadArtifact(metadata.ArtifactPath)
	if err != nil {
		t.Fatalf("loading artifact: %v", err)
	}
	if loaded.ModelID != "20240101_000000" {
		t.Errorf("model id = %q", loaded.ModelID)
	}
	if got := loaded.Predict("trout", "x", 0.35).Primary; got != "Fisheries and Aquatic" {
		t.Errorf("loaded model primary = %q, want Fisheries and Aquatic", got)
	}
}

func TestLoadArtifactRejectsIncomplete(t *testing.T) {
	t.Parallel()

	if _, err := LoadArtifact(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("missing artifact must error")
	}
}

func TestManifestAppend(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	m := &Manifest{}
	rejected := &Metadata{ModelID: "a", ArtifactPath: "models/a.json", Metrics: Metrics{MacroF1: 0.5}}
	m.Append(rejected, false, "validation_not_improved", now)

	if m.Promoted != nil {
		t.Fatal("a rejected candidate must not move the promoted pointer")
	}
	if len(m.History) != 1 || m.History[0].Status != "candidate_rejected" {
		t.Fatalf("unexpected history: %+v", m.History)
	}

	promoted := &Metadata{ModelID: "b", ArtifactPath: "models/b.json", Metrics: Metrics{MacroF1: 0.7}}
	m.Append(promoted, true, "macro_f1_improved", now)

	if m.Promoted == nil || m.Promoted.ModelID != "b" {
		t.Fatalf("promotion must move the pointer, got %+v", m.Promoted)
	}
	if len(m.History) != 2 || m.History[1].Status != "promoted" {
		t.Fatalf("unexpected history: %+v", m.History)
	}
}

func TestManifestReadMissingIsEmpty(t *testing.T) {
	t.Parallel()

	m := ReadManifest(filepath.Join(t.TempDir(), "manifest.json"))
	if m.Promoted != nil || len(m.History) != 0 {
		t.Errorf("missing manifest must read as empty, got %+v", m)
	}
}

func TestManifestWriteReadRoundtrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "models", "manifest.json")
	m := &Manifest{}
	m.Append(&Metadata{ModelID: "a", ArtifactPath: "models/a.json"}, true, "first_promoted_model", time.Now())
	if err := m.Write(path); err != nil {
		t.Fatalf("writing manifest: %v", err)
	}

	again := ReadManifest(path)
	if again.Promoted == nil || again.Promoted.ModelID != "a" {
		t.Errorf("roundtrip lost the promoted pointer: %+v", again.Promoted)
	}
}
