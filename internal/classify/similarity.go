package classify

import (
	"sort"
	"strings"

	"github.com/jmorrell-unl/wildlife-grad/internal/lexicon"
	"github.com/jmorrell-unl/wildlife-grad/internal/textvec"
)

// SimilarityConfig holds the acceptance gates for the similarity refiner.
type SimilarityConfig struct {
	// MinSimilarity is the floor below which a similarity result is ignored.
	MinSimilarity float64 `mapstructure:"min-similarity"`
	// OverrideSimilarity is the stricter floor required to flip a non-Other
	// rule decision.
	OverrideSimilarity float64 `mapstructure:"override-similarity"`
}

// DefaultSimilarityConfig matches the documented gate values.
func DefaultSimilarityConfig() SimilarityConfig {
	return SimilarityConfig{MinSimilarity: 0.12, OverrideSimilarity: 0.2}
}

// SimilarityRefiner ranks categories by cosine similarity between the posting
// text and one synthetic document per category (its keyword list). It is only
// consulted when the rule scores are ambiguous.
type SimilarityRefiner struct {
	cfg SimilarityConfig
}

func NewSimilarityRefiner(cfg SimilarityConfig) *SimilarityRefiner {
	return &SimilarityRefiner{cfg: cfg}
}

// Refine applies the two-threshold acceptance rule: weak similarity never
// flips a rule decision, but may fill in for a total rule miss.
func (r *SimilarityRefiner) Refine(primary, secondary string, scores Scores, text string) (string, string) {
	if !IsAmbiguous(scores) {
		return primary, secondary
	}

	simPrimary, simSecondary, confidence := r.classify(text)
	if confidence < r.cfg.MinSimilarity || simPrimary == lexicon.Other {
		return primary, secondary
	}
	if primary == lexicon.Other {
		return simPrimary, simSecondary
	}
	if simPrimary != primary && confidence < r.cfg.OverrideSimilarity {
		return primary, secondary
	}
	return simPrimary, simSecondary
}

// classify vectorizes the category documents and the posting text in a shared
// TF-IDF space fitted per call, then ranks categories by cosine similarity.
func (r *SimilarityRefiner) classify(text string) (string, string, float64) {
	labels := make([]string, 0, len(lexicon.DisciplineKeywords))
	for _, disc := range lexicon.DisciplinePriority {
		if _, ok := lexicon.DisciplineKeywords[disc]; ok {
			labels = append(labels, disc)
		}
	}

	docs := make([]string, 0, len(labels)+1)
	for _, disc := range labels {
		docs = append(docs, strings.Join(lexicon.DisciplineKeywords[disc], " "))
	}
	docs = append(docs, text)

	vectorizer := textvec.NewVectorizer(textvec.Config{MaxFeatures: 1000})
	vectors := vectorizer.Fit(docs)
	postingVec := vectors[len(vectors)-1]

	type scored struct {
		label      string
		similarity float64
	}
	ranked := make([]scored, len(labels))
	for i, label := range labels {
		ranked[i] = scored{label, textvec.Cosine(postingVec, vectors[i])}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].similarity != ranked[j].similarity {
			return ranked[i].similarity > ranked[j].similarity
		}
		return priorityRank[ranked[i].label] > priorityRank[ranked[j].label]
	})

	top := ranked[0]
	secondary := ""
	if len(ranked) > 1 && ranked[1].similarity > 0.1 {
		secondary = ranked[1].label
	}

	// Near-zero similarity across the board: the keyword scorer is a better
	// witness than noise in the vector space.
	if top.similarity < 0.05 {
		kwPrimary, kwSecondary, _ := scoreText(text)
		return kwPrimary, kwSecondary, top.similarity
	}
	return top.label, secondary, top.similarity
}
