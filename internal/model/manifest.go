package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const manifestHistoryCap = 100

// PromotedRef points the manifest at the currently promoted artifact.
type PromotedRef struct {
	ModelID         string          `json:"model_id"`
	ArtifactPath    string          `json:"artifact_path"`
	Metrics         Metrics         `json:"metrics"`
	TrainingSummary TrainingSummary `json:"training_summary"`
	PromotedAt      string          `json:"promoted_at"`
}

// HistoryEvent records one promotion attempt, accepted or rejected.
type HistoryEvent struct {
	Timestamp    string  `json:"timestamp"`
	Status       string  `json:"status"` // promoted | candidate_rejected
	Reason       string  `json:"reason"`
	ModelID      string  `json:"model_id"`
	ArtifactPath string  `json:"artifact_path"`
	Metrics      Metrics `json:"metrics"`
}

// Manifest tracks the promoted model and a bounded promotion history. It is
// created empty, updated after every training run, and never deleted.
type Manifest struct {
	UpdatedAt string         `json:"updated_at"`
	Promoted  *PromotedRef   `json:"promoted"`
	History   []HistoryEvent `json:"history"`
}

// ReadManifest loads the manifest, returning an empty one when the file does
// not exist or cannot be parsed.
func ReadManifest(path string) *Manifest {
	data, err := os.ReadFile(path)
	if err != nil {
		return &Manifest{}
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return &Manifest{}
	}
	return &m
}

// Append records a promotion attempt and, on promote, moves the promoted
// pointer to the candidate. The history keeps the last 100 events.
func (m *Manifest) Append(metadata *Metadata, promote bool, reason string, now time.Time) {
	status := "candidate_rejected"
	if promote {
		status = "promoted"
	}
	m.History = append(m.History, HistoryEvent{
		Timestamp:    now.Format(time.RFC3339),
		Status:       status,
		Reason:       reason,
		ModelID:      metadata.ModelID,
		ArtifactPath: metadata.ArtifactPath,
		Metrics:      metadata.Metrics,
	})
	if len(m.History) > manifestHistoryCap {
		m.History = m.History[len(m.History)-manifestHistoryCap:]
	}

	m.UpdatedAt = now.Format(time.RFC3339)
	if promote {
		m.Promoted = &PromotedRef{
			ModelID:         metadata.ModelID,
			ArtifactPath:    metadata.ArtifactPath,
			Metrics:         metadata.Metrics,
			TrainingSummary: metadata.TrainingSummary,
			PromotedAt:      now.Format(time.RFC3339),
		}
	}
}

// Write rewrites the manifest file whole.
func (m *Manifest) Write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating manifest directory: %w", err)
	}
	return writeJSON(path, m)
}
