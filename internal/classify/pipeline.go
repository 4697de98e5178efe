package classify

import (
	"go.uber.org/zap"

	"github.com/jmorrell-unl/wildlife-grad/internal/lexicon"
	"github.com/jmorrell-unl/wildlife-grad/internal/model"
	"github.com/jmorrell-unl/wildlife-grad/internal/posting"
)

// Refiner is one refinement tier. Refiners only ever see postings still
// labeled Other; a tier that returns ok=false leaves the posting untouched
// for the next tier. No tier may revisit a label a prior tier resolved.
type Refiner interface {
	Name() string
	Source() string
	// Prepare is called once per batch; returning false skips the tier.
	Prepare(batch []*posting.Posting) bool
	Refine(p *posting.Posting) (primary, secondary string, ok bool)
}

// Config aggregates every pipeline gate as explicit named fields.
type Config struct {
	Similarity SimilarityConfig `mapstructure:"similarity"`
	Secondary  SecondaryConfig  `mapstructure:"secondary"`
}

// DefaultConfig returns the documented default gates.
func DefaultConfig() Config {
	return Config{
		Similarity: DefaultSimilarityConfig(),
		Secondary:  DefaultSecondaryConfig(),
	}
}

// Stats summarizes one pipeline run.
type Stats struct {
	Total      int
	Graduate   int
	ResolvedBy map[string]int
	LeftOther  int
}

// Pipeline runs the full cascade: position type, rule classification with
// similarity refinement, then the batch-local secondary model and the
// promoted model over whatever is still Other.
type Pipeline struct {
	cfg        Config
	positions  *PositionTypeClassifier
	rules      *RuleClassifier
	similarity *SimilarityRefiner
	promoted   *model.Store
	logger     *zap.Logger
}

func NewPipeline(cfg Config, promoted *model.Store, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		positions:  NewPositionTypeClassifier(),
		rules:      NewRuleClassifier(),
		similarity: NewSimilarityRefiner(cfg.Similarity),
		promoted:   promoted,
		logger:     logger,
	}
}

// Run classifies the batch in place and returns run statistics. A defect in
// one posting never aborts the rest: every step degrades to Other or
// not-graduate instead of failing.
func (pl *Pipeline) Run(ps *posting.Postings) Stats {
	stats := Stats{Total: ps.Len(), ResolvedBy: map[string]int{}}

	var graduates []*posting.Posting
	for _, p := range ps.Items {
		decision := pl.positions.Classify(p)
		p.IsGraduatePosition = decision.IsGraduate
		p.PositionType = decision.PositionType
		p.GradConfidence = decision.Confidence
		if !decision.IsGraduate {
			p.DisciplinePrimary = ""
			p.DisciplineSecondary = ""
			p.DisciplineRefinementSource = ""
			continue
		}
		graduates = append(graduates, p)

		result := pl.rules.Classify(p)
		primary, secondary := result.Primary, result.Secondary
		source := posting.SourceRule
		if !result.Final {
			simPrimary, simSecondary := pl.similarity.Refine(primary, secondary, result.Scores, p.CombinedText())
			if simPrimary != primary || simSecondary != secondary {
				primary, secondary = simPrimary, simSecondary
				source = posting.SourceSimilarity
			}
		}
		setDiscipline(p, primary, secondary, source)
		stats.ResolvedBy[source]++
	}
	stats.Graduate = len(graduates)

	pl.logger.Info("first pass complete",
		zap.Int("postings", stats.Total),
		zap.Int("graduate", stats.Graduate),
		zap.Int("unresolved", countOther(graduates)),
	)

	refiners := []Refiner{
		newSecondaryRefiner(pl.cfg.Secondary),
		newPromotedRefiner(pl.promoted),
	}
	for _, refiner := range refiners {
		initial := countOther(graduates)
		if initial == 0 {
			break
		}
		if !refiner.Prepare(graduates) {
			pl.logger.Info("refinement tier skipped", zap.String("tier", refiner.Name()))
			continue
		}

		relabeled := 0
		for _, p := range graduates {
			if p.DisciplinePrimary != lexicon.Other {
				continue
			}
			primary, secondary, ok := refiner.Refine(p)
			if !ok {
				continue
			}
			setDiscipline(p, primary, secondary, refiner.Source())
			stats.ResolvedBy[refiner.Source()]++
			relabeled++
		}

		pl.logger.Info("refinement tier",
			zap.String("tier", refiner.Name()),
			zap.Int("initial_other", initial),
			zap.Int("relabeled", relabeled),
			zap.Int("left_other", initial-relabeled),
		)
	}

	stats.LeftOther = countOther(graduates)
	return stats
}

// setDiscipline enforces the secondary-label invariant: never equal to the
// primary, empty unless it carried signal.
func setDiscipline(p *posting.Posting, primary, secondary, source string) {
	if secondary == primary {
		secondary = ""
	}
	p.DisciplinePrimary = primary
	p.DisciplineSecondary = secondary
	p.DisciplineRefinementSource = source
}

func countOther(postings []*posting.Posting) int {
	n := 0
	for _, p := range postings {
		if p.DisciplinePrimary == lexicon.Other {
			n++
		}
	}
	return n
}

// secondaryRefiner adapts the batch-local nearest-centroid model to the
// Refiner contract.
type secondaryRefiner struct {
	cfg        SecondaryConfig
	classifier *SecondaryClassifier
}

func newSecondaryRefiner(cfg SecondaryConfig) *secondaryRefiner {
	return &secondaryRefiner{cfg: cfg}
}

func (r *secondaryRefiner) Name() string   { return "secondary_centroid" }
func (r *secondaryRefiner) Source() string { return posting.SourceSecondaryModel }

func (r *secondaryRefiner) Prepare(batch []*posting.Posting) bool {
	r.classifier = TrainSecondary(r.cfg, batch)
	return r.classifier != nil
}

func (r *secondaryRefiner) Refine(p *posting.Posting) (string, string, bool) {
	primary, secondary, similarity, margin := r.classifier.Predict(p)
	if !r.classifier.Accept(primary, similarity, margin) {
		return "", "", false
	}
	return primary, secondary, true
}

// promotedRefiner adapts the persisted promoted model to the Refiner
// contract. The only tier allowed to span scrape sessions.
type promotedRefiner struct {
	store *model.Store
}

func newPromotedRefiner(store *model.Store) *promotedRefiner {
	return &promotedRefiner{store: store}
}

func (r *promotedRefiner) Name() string   { return "promoted_model" }
func (r *promotedRefiner) Source() string { return posting.SourcePromotedModel }

func (r *promotedRefiner) Prepare([]*posting.Posting) bool {
	return r.store != nil && r.store.Available()
}

func (r *promotedRefiner) Refine(p *posting.Posting) (string, string, bool) {
	pred := r.store.Predict(p)
	if !r.store.Accept(pred) {
		return "", "", false
	}
	return pred.Primary, pred.Secondary, true
}
