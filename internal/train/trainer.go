package train

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jmorrell-unl/wildlife-grad/internal/gold"
	"github.com/jmorrell-unl/wildlife-grad/internal/lexicon"
	"github.com/jmorrell-unl/wildlife-grad/internal/model"
	"github.com/jmorrell-unl/wildlife-grad/internal/posting"
	"github.com/jmorrell-unl/wildlife-grad/internal/textvec"
)

// Label sources written by the trainer.
const (
	SourceBootstrap = "bootstrap_ml_training_data"
	SourceAutoSeed  = "auto_seed_high_confidence_v1"
)

// Trainability gates: the model is only fitted once enough verified labels
// across enough disciplines exist.
const (
	minGoldTotal    = 8
	minGoldClasses  = 2
	minGoldPerClass = 2
)

// Options configures one training run.
type Options struct {
	ModelDir      string `mapstructure:"model-dir"`
	PositionsFile string `mapstructure:"positions-file"`
	BootstrapFile string `mapstructure:"bootstrap-file"`

	MinMacroF1Improvement  float64 `mapstructure:"min-macro-f1-improvement"`
	MinAccuracyImprovement float64 `mapstructure:"min-accuracy-improvement"`
	ForcePromote           bool    `mapstructure:"force-promote"`

	UseBootstrap      bool    `mapstructure:"use-bootstrap"`
	UsePseudo         bool    `mapstructure:"use-pseudo"`
	PseudoWeight      float64 `mapstructure:"pseudo-weight"`
	MaxPseudoPerClass int     `mapstructure:"max-pseudo-per-class"`
	PseudoMinGradConf float64 `mapstructure:"pseudo-min-grad-confidence"`

	AutoSeed            bool    `mapstructure:"auto-seed-from-positions"`
	AutoSeedMaxPerClass int     `mapstructure:"auto-seed-max-per-class"`
	AutoSeedMinGradConf float64 `mapstructure:"auto-seed-min-grad-confidence"`
}

// DefaultOptions returns the documented training defaults.
func DefaultOptions(modelDir string) Options {
	return Options{
		ModelDir:               modelDir,
		MinMacroF1Improvement:  0.005,
		MinAccuracyImprovement: 0,
		UseBootstrap:           true,
		UsePseudo:              true,
		PseudoWeight:           0.35,
		MaxPseudoPerClass:      300,
		PseudoMinGradConf:      0.75,
		AutoSeedMaxPerClass:    3,
		AutoSeedMinGradConf:    0.85,
	}
}

// ManifestPath returns the manifest location under the model directory.
func (o Options) ManifestPath() string {
	return filepath.Join(o.ModelDir, "manifest.json")
}

// Report is the run summary written next to the artifacts. Every run produces
// one, trained or not.
type Report struct {
	GeneratedAt         string                `json:"generated_at"`
	ModelID             string                `json:"model_id,omitempty"`
	Trainable           bool                  `json:"trainable"`
	Promotion           PromotionDecision     `json:"promotion_decision"`
	Metrics             model.Metrics         `json:"metrics"`
	TrainingSummary     model.TrainingSummary `json:"training_summary"`
	AutoSeeded          int                   `json:"auto_seeded"`
	BootstrapLabels     int                   `json:"bootstrap_labels"`
	DroppedSmallClasses []string              `json:"dropped_small_classes,omitempty"`
	ArtifactPath        string                `json:"artifact_path,omitempty"`
	ManifestPath        string                `json:"manifest_path,omitempty"`
}

type sample struct {
	key    string
	text   string
	label  string
	weight float64
}

// Trainer runs the assemble / gate / evaluate / fit / promote loop.
type Trainer struct {
	opts   Options
	logger *zap.Logger
	now    func() time.Time
}

func New(opts Options, logger *zap.Logger) *Trainer {
	return &Trainer{opts: opts, logger: logger, now: time.Now}
}

// Run executes one training run. Postings may be empty when no positions file
// is available; auto-seeding and pseudo-labels then contribute nothing. The
// returned artifact is nil when the gold set is below the trainability gate.
func (t *Trainer) Run(postings []*posting.Posting, store *gold.Store) (*Report, *model.Artifact, error) {
	report := &Report{
		GeneratedAt:  t.now().Format(time.RFC3339),
		ManifestPath: t.opts.ManifestPath(),
	}

	bootstrapped, err := t.bootstrap(store)
	if err != nil {
		return nil, nil, err
	}
	report.BootstrapLabels = bootstrapped

	if t.opts.AutoSeed {
		seeded, err := t.autoSeed(postings, store)
		if err != nil {
			return nil, nil, err
		}
		report.AutoSeeded = seeded
	}

	goldSamples := assembleGold(store)

	goldSamples, dropped := dropSmallClasses(goldSamples)
	report.DroppedSmallClasses = dropped

	classes, classCounts := classesOf(goldSamples)
	report.TrainingSummary = model.TrainingSummary{
		GoldTotal:         len(goldSamples),
		GoldClassCounts:   classCounts,
		PseudoClassCounts: map[string]int{},
		PseudoWeight:      t.opts.PseudoWeight,
		PositionsFile:     t.opts.PositionsFile,
	}

	if len(goldSamples) < minGoldTotal || len(classes) < minGoldClasses {
		t.logger.Warn("gold label set below trainability gate",
			zap.Int("gold_total", len(goldSamples)),
			zap.Int("classes", len(classes)),
		)
		report.Metrics = model.Metrics{EvaluationMode: "not_trained"}
		report.Promotion = PromotionDecision{Reason: ReasonInsufficientGold}
		return report, nil, t.writeReport(report)
	}
	report.Trainable = true

	var pseudo []sample
	if t.opts.UsePseudo {
		pseudo = t.pseudoLabels(postings, goldSamples, classes)
	}
	pseudoCounts := map[string]int{}
	for _, s := range pseudo {
		pseudoCounts[s.label]++
	}
	report.TrainingSummary.PseudoTotal = len(pseudo)
	report.TrainingSummary.PseudoClassCounts = pseudoCounts

	modelID := t.now().UTC().Format("20060102_150405")
	metrics := t.evaluateCandidate(classes, goldSamples, pseudo)
	report.Metrics = metrics
	report.ModelID = modelID

	artifact := t.fitFinal(modelID, classes, goldSamples, pseudo, metrics, report.TrainingSummary)

	manifest := model.ReadManifest(t.opts.ManifestPath())
	var promotedMetrics *model.Metrics
	if manifest.Promoted != nil {
		m := manifest.Promoted.Metrics
		promotedMetrics = &m
	}
	report.Promotion = DecidePromotion(metrics, promotedMetrics,
		t.opts.MinMacroF1Improvement, t.opts.MinAccuracyImprovement, t.opts.ForcePromote)

	metadata, err := artifact.Save(t.opts.ModelDir)
	if err != nil {
		return nil, nil, err
	}
	report.ArtifactPath = metadata.ArtifactPath

	manifest.Append(metadata, report.Promotion.Promote, report.Promotion.Reason, t.now())
	if err := manifest.Write(t.opts.ManifestPath()); err != nil {
		return nil, nil, err
	}

	t.logger.Info("training run complete",
		zap.String("model_id", modelID),
		zap.Bool("promoted", report.Promotion.Promote),
		zap.String("reason", report.Promotion.Reason),
		zap.Float64("macro_f1", metrics.MacroF1),
		zap.Float64("accuracy", metrics.Accuracy),
		zap.String("evaluation_mode", metrics.EvaluationMode),
	)
	return report, artifact, t.writeReport(report)
}

// assembleGold turns the persisted gold labels into training samples. Other
// and text-less labels never train.
func assembleGold(store *gold.Store) []sample {
	var samples []sample
	for _, label := range store.Labels {
		discipline := lexicon.NormalizeDiscipline(label.Discipline)
		if discipline == lexicon.Other {
			continue
		}
		text := label.CombinedText()
		if text == "" {
			continue
		}
		samples = append(samples, sample{
			key:    label.PositionKey,
			text:   text,
			label:  discipline,
			weight: 1,
		})
	}

	sort.Slice(samples, func(i, j int) bool { return samples[i].key < samples[j].key })
	return samples
}

// bootstrap seeds an EMPTY gold store from the legacy verified training-data
// export and persists the rows like any reviewed label. A store that already
// carries labels is left alone; reviews supersede the legacy export.
func (t *Trainer) bootstrap(store *gold.Store) (int, error) {
	if !t.opts.UseBootstrap || t.opts.BootstrapFile == "" || store.Len() > 0 {
		return 0, nil
	}
	rows, err := loadBootstrap(t.opts.BootstrapFile)
	if err != nil {
		return 0, err
	}

	added := 0
	now := t.now().Format(time.RFC3339)
	for _, row := range rows {
		discipline := lexicon.NormalizeDiscipline(row.discipline)
		if row.key == "" || discipline == lexicon.Other {
			continue
		}
		if store.Upsert(&gold.Label{
			PositionKey:  row.key,
			Title:        row.title,
			Organization: row.organization,
			URL:          row.url,
			Description:  row.description,
			Discipline:   discipline,
			Source:       SourceBootstrap,
			ReviewedAt:   now,
		}) {
			added++
		}
	}

	if added > 0 {
		if err := store.Save(); err != nil {
			return 0, err
		}
		t.logger.Info("bootstrapped gold labels from legacy training data",
			zap.Int("added", added),
			zap.String("file", t.opts.BootstrapFile),
		)
	}
	return added, nil
}

type bootstrapRow struct {
	key          string
	title        string
	organization string
	url          string
	description  string
	discipline   string
}

type bootstrapEntry struct {
	PositionKey   string `json:"position_key"`
	Title         string `json:"title"`
	Organization  string `json:"organization"`
	URL           string `json:"url"`
	Description   string `json:"description"`
	Discipline    string `json:"discipline"`
	Label         string `json:"label"`
	HumanVerified bool   `json:"human_verified"`
}

// loadBootstrap reads the legacy training-data export. The rows live under a
// "positions" key in the historical files; a bare list and an "entries"
// wrapper are accepted too. Only rows explicitly marked human_verified are
// trusted.
func loadBootstrap(path string) ([]bootstrapRow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading bootstrap training data: %w", err)
	}

	var entries []bootstrapEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		var wrapper struct {
			Positions []bootstrapEntry `json:"positions"`
			Entries   []bootstrapEntry `json:"entries"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return nil, fmt.Errorf("parsing bootstrap training data %q: %w", path, err)
		}
		entries = wrapper.Positions
		if entries == nil {
			entries = wrapper.Entries
		}
	}

	var rows []bootstrapRow
	for _, e := range entries {
		if !e.HumanVerified {
			continue
		}
		discipline := e.Discipline
		if discipline == "" {
			discipline = e.Label
		}
		key := strings.ToLower(strings.TrimSpace(e.PositionKey))
		if key == "" {
			p := posting.Posting{Title: e.Title, Organization: e.Organization, URL: e.URL}
			key = p.Key()
		}
		rows = append(rows, bootstrapRow{
			key:          key,
			title:        e.Title,
			organization: e.Organization,
			url:          e.URL,
			description:  e.Description,
			discipline:   discipline,
		})
	}
	return rows, nil
}

// autoSeed promotes unambiguous rule-derived labels into the gold store. Only
// classes with at least two candidates participate, so a single noisy posting
// never seeds a class alone.
func (t *Trainer) autoSeed(postings []*posting.Posting, store *gold.Store) (int, error) {
	byClass := map[string][]*posting.Posting{}
	for _, p := range postings {
		if !p.IsGraduatePosition {
			continue
		}
		discipline := lexicon.NormalizeDiscipline(p.DisciplinePrimary)
		if discipline == lexicon.Other {
			continue
		}
		if p.DisciplineRefinementSource == posting.SourcePromotedModel {
			continue
		}
		if p.GradConfidence < t.opts.AutoSeedMinGradConf {
			continue
		}
		if store.Has(p.Key()) {
			continue
		}
		if !lexicon.HasStrongSignal(p.CombinedText(), discipline) {
			continue
		}
		byClass[discipline] = append(byClass[discipline], p)
	}

	classes := make([]string, 0, len(byClass))
	for class, members := range byClass {
		if len(members) >= 2 {
			classes = append(classes, class)
		}
	}
	sort.Strings(classes)

	added := 0
	now := t.now().Format(time.RFC3339)
	for _, class := range classes {
		members := byClass[class]
		sort.Slice(members, func(i, j int) bool {
			if members[i].GradConfidence != members[j].GradConfidence {
				return members[i].GradConfidence > members[j].GradConfidence
			}
			return members[i].Key() < members[j].Key()
		})
		if len(members) > t.opts.AutoSeedMaxPerClass {
			members = members[:t.opts.AutoSeedMaxPerClass]
		}
		for _, p := range members {
			if store.Upsert(&gold.Label{
				PositionKey:  p.Key(),
				Title:        p.Title,
				Organization: p.Organization,
				URL:          p.URL,
				Description:  p.Description,
				Discipline:   class,
				Source:       SourceAutoSeed,
				ReviewedAt:   now,
				Reviewer:     "auto_seed",
			}) {
				added++
			}
		}
	}

	if added > 0 {
		if err := store.Save(); err != nil {
			return 0, err
		}
		t.logger.Info("auto-seeded gold labels", zap.Int("added", added))
	}
	return added, nil
}

// pseudoLabels collects confidently classified postings as low-weight
// training rows. They never enter evaluation folds.
func (t *Trainer) pseudoLabels(postings []*posting.Posting, goldSamples []sample, classes []string) []sample {
	classSet := map[string]bool{}
	for _, c := range classes {
		classSet[c] = true
	}
	goldKeys := map[string]bool{}
	for _, s := range goldSamples {
		goldKeys[s.key] = true
	}

	byClass := map[string][]*posting.Posting{}
	for _, p := range postings {
		if !p.IsGraduatePosition || p.GradConfidence < t.opts.PseudoMinGradConf {
			continue
		}
		discipline := lexicon.NormalizeDiscipline(p.DisciplinePrimary)
		if !classSet[discipline] {
			continue
		}
		key := strings.ToLower(p.Key())
		if key == "" || goldKeys[key] {
			continue
		}
		if p.CombinedText() == "" {
			continue
		}
		byClass[discipline] = append(byClass[discipline], p)
	}

	var out []sample
	for _, class := range classes {
		members := byClass[class]
		sort.Slice(members, func(i, j int) bool {
			if members[i].GradConfidence != members[j].GradConfidence {
				return members[i].GradConfidence > members[j].GradConfidence
			}
			return members[i].Key() < members[j].Key()
		})
		if len(members) > t.opts.MaxPseudoPerClass {
			members = members[:t.opts.MaxPseudoPerClass]
		}
		for _, p := range members {
			out = append(out, sample{
				key:    strings.ToLower(p.Key()),
				text:   p.CombinedText(),
				label:  class,
				weight: t.opts.PseudoWeight,
			})
		}
	}
	return out
}

func vectorizerConfig() textvec.Config {
	return textvec.Config{MaxFeatures: 4000, Bigrams: true}
}

// evaluateCandidate estimates holdout metrics. Pseudo-labels join every
// training side but only gold rows are ever scored; each fold is scored
// separately and the per-fold metrics are averaged.
func (t *Trainer) evaluateCandidate(classes []string, goldSamples, pseudo []sample) model.Metrics {
	classIndex := map[string]int{}
	for i, c := range classes {
		classIndex[c] = i
	}
	labels := make([]int, len(goldSamples))
	for i, s := range goldSamples {
		labels[i] = classIndex[s.label]
	}

	plan := planEvaluation(labels, len(classes))

	var yTrueFolds, yPredFolds [][]int
	scored := 0
	for _, fold := range plan.Folds {
		if len(fold) == 0 {
			continue
		}
		held := map[int]bool{}
		for _, idx := range fold {
			held[idx] = true
		}

		var trainSamples []sample
		for i, s := range goldSamples {
			if !held[i] {
				trainSamples = append(trainSamples, s)
			}
		}
		trainSamples = append(trainSamples, pseudo...)

		fitted, vecs, y, w := prepare(classIndex, trainSamples)
		lm := fitLogreg(defaultLogregConfig(), classes, len(fitted.Terms()), vecs, y, w)

		var yTrue, yPred []int
		for _, idx := range fold {
			vec := fitted.Transform(goldSamples[idx].text)
			pred := predictAll(lm, []textvec.Vector{vec})[0]
			yTrue = append(yTrue, labels[idx])
			yPred = append(yPred, pred)
		}
		yTrueFolds = append(yTrueFolds, yTrue)
		yPredFolds = append(yPredFolds, yPred)
		scored += len(fold)
	}

	accuracy, macroF1, weightedF1 := averageFoldMetrics(yTrueFolds, yPredFolds, len(classes))
	return model.Metrics{
		Accuracy:          round4(accuracy),
		MacroF1:           round4(macroF1),
		WeightedF1:        round4(weightedF1),
		EvaluationMode:    plan.Mode,
		ValidationSamples: scored,
	}
}

// fitFinal trains the shippable candidate on everything.
func (t *Trainer) fitFinal(modelID string, classes []string, goldSamples, pseudo []sample, metrics model.Metrics, summary model.TrainingSummary) *model.Artifact {
	classIndex := map[string]int{}
	for i, c := range classes {
		classIndex[c] = i
	}
	all := append(append([]sample{}, goldSamples...), pseudo...)
	fitted, vecs, y, w := prepare(classIndex, all)
	lm := fitLogreg(defaultLogregConfig(), classes, len(fitted.Terms()), vecs, y, w)

	return &model.Artifact{
		ModelID:          modelID,
		TrainedAt:        t.now().Format(time.RFC3339),
		VectorizerConfig: vectorizerConfig(),
		Vocabulary:       fitted.Terms(),
		IDF:              fitted.IDF(),
		Classifier:       lm,
		Classes:          classes,
		Metrics:          metrics,
		TrainingSummary:  summary,
	}
}

func prepare(classIndex map[string]int, samples []sample) (*textvec.Vectorizer, []textvec.Vector, []int, []float64) {
	docs := make([]string, len(samples))
	y := make([]int, len(samples))
	w := make([]float64, len(samples))
	for i, s := range samples {
		docs[i] = s.text
		y[i] = classIndex[s.label]
		w[i] = s.weight
	}
	v := textvec.NewVectorizer(vectorizerConfig())
	vecs := v.Fit(docs)
	return v, vecs, y, w
}

func dropSmallClasses(samples []sample) ([]sample, []string) {
	counts := map[string]int{}
	for _, s := range samples {
		counts[s.label]++
	}
	var dropped []string
	for class, n := range counts {
		if n < minGoldPerClass {
			dropped = append(dropped, class)
		}
	}
	if len(dropped) == 0 {
		return samples, nil
	}
	sort.Strings(dropped)

	droppedSet := map[string]bool{}
	for _, class := range dropped {
		droppedSet[class] = true
	}
	kept := samples[:0]
	for _, s := range samples {
		if !droppedSet[s.label] {
			kept = append(kept, s)
		}
	}
	return kept, dropped
}

func classesOf(samples []sample) ([]string, map[string]int) {
	counts := map[string]int{}
	for _, s := range samples {
		counts[s.label]++
	}
	classes := make([]string, 0, len(counts))
	for c := range counts {
		classes = append(classes, c)
	}
	sort.Strings(classes)
	return classes, counts
}

func (t *Trainer) writeReport(report *Report) error {
	dir := filepath.Join(t.opts.ModelDir, "reports")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating reports directory: %w", err)
	}
	name := "training_report_not_trained.json"
	if report.ModelID != "" {
		name = fmt.Sprintf("training_report_%s.json", report.ModelID)
	}
	path := filepath.Join(dir, name)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("writing training report: %w", err)
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func round4(v float64) float64 {
	return float64(int(v*10000+0.5)) / 10000
}
