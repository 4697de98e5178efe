// Package model defines the portable promoted-model artifact and its
// manifest. Artifacts are plain JSON (vocabulary, idf weights, linear
// classifier coefficients, class list) so any implementation language can
// produce or consume them; nothing here depends on a language-native object
// serialization.
package model

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/jmorrell-unl/wildlife-grad/internal/lexicon"
	"github.com/jmorrell-unl/wildlife-grad/internal/textvec"
)

// Metrics are the evaluation results attached to a trained candidate.
type Metrics struct {
	Accuracy          float64 `json:"accuracy"`
	MacroF1           float64 `json:"macro_f1"`
	WeightedF1        float64 `json:"weighted_f1"`
	EvaluationMode    string  `json:"evaluation_mode"`
	ValidationSamples int     `json:"validation_samples"`
}

// TrainingSummary records what the candidate was fitted on.
type TrainingSummary struct {
	GoldTotal         int            `json:"gold_total"`
	GoldClassCounts   map[string]int `json:"gold_class_counts"`
	PseudoTotal       int            `json:"pseudo_total"`
	PseudoClassCounts map[string]int `json:"pseudo_class_counts"`
	PseudoWeight      float64        `json:"pseudo_weight"`
	PositionsFile     string         `json:"positions_file,omitempty"`
}

// LinearModel is a multinomial linear classifier over the TF-IDF space: one
// weight row and intercept per class, probabilities via softmax.
type LinearModel struct {
	Classes    []string    `json:"classes"`
	Weights    [][]float64 `json:"weights"`
	Intercepts []float64   `json:"intercepts"`
}

// Probabilities returns the class-probability distribution for a vector.
func (m *LinearModel) Probabilities(vec textvec.Vector) []float64 {
	scores := make([]float64, len(m.Classes))
	for c := range m.Classes {
		s := m.Intercepts[c]
		row := m.Weights[c]
		for idx, val := range vec {
			if idx < len(row) {
				s += row[idx] * val
			}
		}
		scores[c] = s
	}
	return softmax(scores)
}

func softmax(scores []float64) []float64 {
	if len(scores) == 0 {
		return nil
	}
	maxScore := scores[0]
	for _, s := range scores[1:] {
		if s > maxScore {
			maxScore = s
		}
	}
	out := make([]float64, len(scores))
	var sum float64
	for i, s := range scores {
		out[i] = math.Exp(s - maxScore)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// Artifact is one immutable trained model bundle. It is written once per
// model_id and only ever superseded, never mutated.
type Artifact struct {
	ModelID          string          `json:"model_id"`
	TrainedAt        string          `json:"trained_at"`
	VectorizerConfig textvec.Config  `json:"vectorizer_config"`
	Vocabulary       []string        `json:"vocabulary"`
	IDF              []float64       `json:"idf"`
	Classifier       *LinearModel    `json:"classifier"`
	Classes          []string        `json:"classes"`
	Metrics          Metrics         `json:"metrics"`
	TrainingSummary  TrainingSummary `json:"training_summary"`
}

// Metadata is the sidecar file written next to each artifact so it can be
// inspected without loading the full model.
type Metadata struct {
	ModelID         string          `json:"model_id"`
	TrainedAt       string          `json:"trained_at"`
	ArtifactPath    string          `json:"artifact_path"`
	Classes         []string        `json:"classes"`
	Metrics         Metrics         `json:"metrics"`
	TrainingSummary TrainingSummary `json:"training_summary"`
}

// Vectorizer rebuilds the artifact's fitted TF-IDF transform.
func (a *Artifact) Vectorizer() *textvec.Vectorizer {
	return textvec.NewFromVocabulary(a.VectorizerConfig, a.Vocabulary, a.IDF)
}

// Prediction is the promoted model's answer for one posting.
type Prediction struct {
	Available  bool    `json:"available"`
	ModelID    string  `json:"model_id"`
	Primary    string  `json:"primary"`
	Secondary  string  `json:"secondary"`
	Confidence float64 `json:"confidence"`
	Margin     float64 `json:"margin"`
}

// Predict classifies free text, attaching a secondary label only when its
// probability clears secondaryMin.
func (a *Artifact) Predict(text, modelID string, secondaryMin float64) Prediction {
	if text == "" || len(a.Classes) == 0 {
		return Prediction{Available: true, ModelID: modelID, Primary: lexicon.Other}
	}

	vec := a.Vectorizer().Transform(text)
	probs := a.Classifier.Probabilities(vec)

	order := make([]int, len(probs))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		if probs[order[i]] != probs[order[j]] {
			return probs[order[i]] > probs[order[j]]
		}
		return a.Classes[order[i]] < a.Classes[order[j]]
	})

	top := order[0]
	pred := Prediction{
		Available:  true,
		ModelID:    modelID,
		Primary:    a.Classes[top],
		Confidence: probs[top],
	}
	if len(order) > 1 {
		second := order[1]
		pred.Margin = probs[top] - probs[second]
		if probs[second] >= secondaryMin {
			pred.Secondary = a.Classes[second]
		}
	} else {
		pred.Margin = probs[top]
	}
	return pred
}

// Save writes the artifact and its sidecar metadata under dir/models and
// returns the metadata.
func (a *Artifact) Save(dir string) (*Metadata, error) {
	modelsDir := filepath.Join(dir, "models")
	if err := os.MkdirAll(modelsDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating models directory: %w", err)
	}

	artifactPath := filepath.Join(modelsDir, fmt.Sprintf("discipline_model_%s.json", a.ModelID))
	metadataPath := filepath.Join(modelsDir, fmt.Sprintf("discipline_model_%s.meta.json", a.ModelID))

	if err := writeJSON(artifactPath, a); err != nil {
		return nil, fmt.Errorf("writing model artifact: %w", err)
	}

	metadata := &Metadata{
		ModelID:         a.ModelID,
		TrainedAt:       a.TrainedAt,
		ArtifactPath:    artifactPath,
		Classes:         a.Classes,
		Metrics:         a.Metrics,
		TrainingSummary: a.TrainingSummary,
	}
	if err := writeJSON(metadataPath, metadata); err != nil {
		return nil, fmt.Errorf("writing model metadata: %w", err)
	}
	return metadata, nil
}

// LoadArtifact reads and validates an artifact file. A missing file, corrupt
// JSON, or missing required fields yields an error the caller treats as
// "model unavailable".
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var artifact Artifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("parsing model artifact %q: %w", path, err)
	}
	if artifact.Classifier == nil || len(artifact.Vocabulary) == 0 {
		return nil, fmt.Errorf("model artifact %q is missing required fields", path)
	}
	if len(artifact.Classes) == 0 {
		artifact.Classes = artifact.Classifier.Classes
	}
	return &artifact, nil
}

func writeJSON(path string, v any) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
