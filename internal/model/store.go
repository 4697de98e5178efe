package model

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/jmorrell-unl/wildlife-grad/internal/logger"
	"github.com/jmorrell-unl/wildlife-grad/internal/posting"
)

// StoreConfig holds the promoted-model acceptance gates.
type StoreConfig struct {
	ManifestPath string `mapstructure:"manifest-path"`
	// MinConfidence is the floor for accepting the top class on a
	// still-unresolved posting.
	MinConfidence float64 `mapstructure:"min-confidence"`
	// MinMargin is the top-vs-runner-up probability gap required.
	MinMargin float64 `mapstructure:"min-margin"`
	// SecondaryMinConfidence gates attaching a secondary label.
	SecondaryMinConfidence float64 `mapstructure:"secondary-min-confidence"`
}

// DefaultStoreConfig matches the documented gate values.
func DefaultStoreConfig(manifestPath string) StoreConfig {
	return StoreConfig{
		ManifestPath:           manifestPath,
		MinConfidence:          0.62,
		MinMargin:              0.08,
		SecondaryMinConfidence: 0.35,
	}
}

type loadState int

const (
	notChecked loadState = iota
	loaded
	unavailable
)

// Store owns the lazily-loaded, process-cached promoted model. Load failures
// are never fatal: the tier just reports itself unavailable. The cached
// artifact is read-only after load; the pipeline is single-threaded batch
// processing, so no further synchronization is needed.
type Store struct {
	cfg    StoreConfig
	logger *zap.Logger

	state    loadState
	artifact *Artifact
	modelID  string
}

func NewStore(cfg StoreConfig, logger *zap.Logger) *Store {
	return &Store{cfg: cfg, logger: logger}
}

// NewStoreWithArtifact wraps an already-loaded artifact, used when a training
// run needs a queue against a just-trained candidate that is not promoted yet.
func NewStoreWithArtifact(cfg StoreConfig, artifact *Artifact, logger *zap.Logger) *Store {
	return &Store{cfg: cfg, logger: logger, state: loaded, artifact: artifact, modelID: artifact.ModelID}
}

// Available reports whether a promoted model can be consulted, loading it on
// first use.
func (s *Store) Available() bool {
	return s.load() != nil
}

// ModelID returns the loaded model's id, empty when unavailable.
func (s *Store) ModelID() string {
	s.load()
	return s.modelID
}

func (s *Store) load() *Artifact {
	if s.state != notChecked {
		return s.artifact
	}
	s.state = unavailable

	manifest := ReadManifest(s.cfg.ManifestPath)
	if manifest.Promoted == nil || manifest.Promoted.ArtifactPath == "" {
		return nil
	}

	artifactPath := manifest.Promoted.ArtifactPath
	if _, err := os.Stat(artifactPath); err != nil {
		// Relocated model dirs keep working when the artifact sits next to
		// the manifest.
		fallback := filepath.Join(filepath.Dir(s.cfg.ManifestPath), filepath.Base(artifactPath))
		if _, err := os.Stat(fallback); err != nil {
			s.warn("promoted model artifact not found", artifactPath)
			return nil
		}
		artifactPath = fallback
	}

	artifact, err := LoadArtifact(artifactPath)
	if err != nil {
		s.warn("promoted model artifact unusable", artifactPath)
		return nil
	}

	s.artifact = artifact
	s.modelID = artifact.ModelID
	if s.modelID == "" {
		s.modelID = manifest.Promoted.ModelID
	}
	s.state = loaded
	if s.logger != nil {
		s.logger.Debug("promoted model loaded", logger.ModelFields(s.modelID, artifactPath)...)
	}
	return s.artifact
}

func (s *Store) warn(msg, path string) {
	if s.logger != nil {
		s.logger.Warn(msg, zap.String("artifact_path", path))
	}
}

// Predict consults the model for one posting. An unavailable model or empty
// posting text yields a non-available / Other prediction, never an error.
func (s *Store) Predict(p *posting.Posting) Prediction {
	artifact := s.load()
	if artifact == nil {
		return Prediction{}
	}
	return artifact.Predict(p.CombinedText(), s.modelID, s.cfg.SecondaryMinConfidence)
}

// Accept applies the confidence and margin gates for relabeling.
func (s *Store) Accept(pred Prediction) bool {
	return pred.Available &&
		pred.Primary != "" &&
		pred.Primary != "Other" &&
		pred.Confidence >= s.cfg.MinConfidence &&
		pred.Margin >= s.cfg.MinMargin
}
