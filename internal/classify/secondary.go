package classify

import (
	"sort"

	"github.com/jmorrell-unl/wildlife-grad/internal/lexicon"
	"github.com/jmorrell-unl/wildlife-grad/internal/posting"
	"github.com/jmorrell-unl/wildlife-grad/internal/textvec"
)

// SecondaryConfig gates the within-batch nearest-centroid refiner.
type SecondaryConfig struct {
	MinTrain               int     `mapstructure:"min-train"`
	MinClasses             int     `mapstructure:"min-classes"`
	MinSimilarity          float64 `mapstructure:"min-similarity"`
	MinMargin              float64 `mapstructure:"min-margin"`
	SecondaryMinSimilarity float64 `mapstructure:"secondary-min-similarity"`
}

// DefaultSecondaryConfig matches the documented gate values.
func DefaultSecondaryConfig() SecondaryConfig {
	return SecondaryConfig{
		MinTrain:               8,
		MinClasses:             2,
		MinSimilarity:          0.3,
		MinMargin:              0.1,
		SecondaryMinSimilarity: 0.12,
	}
}

// SecondaryClassifier is the same-session nearest-centroid model trained once
// per batch from the run's confident first-pass labels. It never sees gold
// labels and is never persisted.
type SecondaryClassifier struct {
	cfg        SecondaryConfig
	vectorizer *textvec.Vectorizer
	labels     []string
	centroids  []textvec.Vector
}

// TrainSecondary fits a batch-local model from first-pass non-Other labels.
// It returns nil when the batch lacks enough examples or classes; the tier is
// then skipped entirely.
func TrainSecondary(cfg SecondaryConfig, postings []*posting.Posting) *SecondaryClassifier {
	var texts []string
	var labels []string
	for _, p := range postings {
		label := p.DisciplinePrimary
		if label == "" || label == lexicon.Other {
			continue
		}
		text := p.CombinedText()
		if text == "" {
			continue
		}
		texts = append(texts, text)
		labels = append(labels, label)
	}

	if len(texts) < cfg.MinTrain {
		return nil
	}
	classSet := map[string]bool{}
	for _, l := range labels {
		classSet[l] = true
	}
	if len(classSet) < cfg.MinClasses {
		return nil
	}

	vectorizer := textvec.NewVectorizer(textvec.Config{MaxFeatures: 4000, Bigrams: true})
	vectors := vectorizer.Fit(texts)

	byLabel := map[string][]textvec.Vector{}
	for i, l := range labels {
		byLabel[l] = append(byLabel[l], vectors[i])
	}
	classes := make([]string, 0, len(byLabel))
	for l := range byLabel {
		classes = append(classes, l)
	}
	sort.Strings(classes)

	centroids := make([]textvec.Vector, len(classes))
	for i, l := range classes {
		centroids[i] = textvec.Centroid(byLabel[l])
	}

	return &SecondaryClassifier{
		cfg:        cfg,
		vectorizer: vectorizer,
		labels:     classes,
		centroids:  centroids,
	}
}

// Predict returns the nearest-centroid label with its similarity and margin.
func (c *SecondaryClassifier) Predict(p *posting.Posting) (primary, secondary string, similarity, margin float64) {
	text := p.CombinedText()
	if text == "" {
		return lexicon.Other, "", 0, 0
	}

	vec := c.vectorizer.Transform(text)
	type scored struct {
		label      string
		similarity float64
	}
	ranked := make([]scored, len(c.labels))
	for i, label := range c.labels {
		ranked[i] = scored{label, textvec.Cosine(vec, c.centroids[i])}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].similarity != ranked[j].similarity {
			return ranked[i].similarity > ranked[j].similarity
		}
		return ranked[i].label < ranked[j].label
	})

	primary = ranked[0].label
	similarity = ranked[0].similarity
	var second float64
	if len(ranked) > 1 {
		second = ranked[1].similarity
		if second >= c.cfg.SecondaryMinSimilarity {
			secondary = ranked[1].label
		}
	}
	return primary, secondary, similarity, similarity - second
}

// Accept applies the similarity and margin gates to a prediction.
func (c *SecondaryClassifier) Accept(primary string, similarity, margin float64) bool {
	return primary != lexicon.Other &&
		similarity >= c.cfg.MinSimilarity &&
		margin >= c.cfg.MinMargin
}
