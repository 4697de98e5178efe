package classify

import (
	"regexp"
	"strings"

	"github.com/jmorrell-unl/wildlife-grad/internal/lexicon"
	"github.com/jmorrell-unl/wildlife-grad/internal/posting"
)

// Position-type labels.
const (
	LabelProfessionalOther = "Professional/Other"
	labelUnknown           = "unknown"
)

// gradIndicatorOrder fixes the category iteration so a later category's label
// overrides an earlier one, matching the documented precedence
// (fellowship over assistantship, degree pursuit only as fallback).
var gradIndicatorOrder = []string{
	"assistantship", "fellowship", "degree_pursuit", "funding_keywords",
}

// GradDecision is the outcome of the graduate-vs-professional classifier.
type GradDecision struct {
	IsGraduate   bool
	PositionType string
	Confidence   float64
}

// PositionTypeClassifier decides whether a posting is a graduate
// assistantship/fellowship, in two phases: title+tags first, full text only
// when the title evidence is ambiguous.
type PositionTypeClassifier struct{}

func NewPositionTypeClassifier() *PositionTypeClassifier {
	return &PositionTypeClassifier{}
}

// gradAnalysis scores graduate and non-graduate evidence for one text snippet.
type gradAnalysis struct {
	hasHardExclusion         bool
	hasExplicitAssistantship bool
	hasExplicitPattern       bool
	classificationType       string
	gradScore                int
	exclusionScore           int
	totalScore               int
	confidence               float64
}

func analyzeGradText(text string) gradAnalysis {
	content := strings.ToLower(text)
	a := gradAnalysis{
		hasHardExclusion:         anyMatch(lexicon.HardExclusionPatterns, content),
		hasExplicitAssistantship: anyMatch(lexicon.ExplicitAssistantshipPatterns, content),
		hasExplicitPattern:       anyMatch(lexicon.ExplicitGraduatePatterns, content),
		classificationType:       labelUnknown,
	}

	for _, category := range gradIndicatorOrder {
		matches := countContained(lexicon.GradIndicators[category], content)
		if matches == 0 {
			continue
		}
		a.gradScore += matches * 2
		switch category {
		case "assistantship", "fellowship":
			a.classificationType = lexicon.GradIndicatorLabels[category]
		case "degree_pursuit":
			if a.classificationType == labelUnknown {
				a.classificationType = lexicon.GradIndicatorLabels[category]
			}
		}
	}

	for _, keywords := range lexicon.ExclusionIndicators {
		if matches := countContained(keywords, content); matches > 0 {
			a.exclusionScore += matches * 3
		}
	}

	if containsAny(content, lexicon.PhDTerms) {
		a.gradScore += 2
		if a.classificationType == labelUnknown {
			a.classificationType = "PhD Position"
		}
	}
	if containsAny(content, lexicon.MastersTerms) {
		a.gradScore += 2
		if a.classificationType == labelUnknown {
			a.classificationType = "Masters Position"
		}
	}

	a.totalScore = a.gradScore - a.exclusionScore
	a.confidence = clamp01(float64(a.totalScore) / 10.0)
	return a
}

func (a gradAnalysis) label(isGrad bool) string {
	if !isGrad {
		return LabelProfessionalOther
	}
	if a.classificationType != labelUnknown {
		return a.classificationType
	}
	if a.hasExplicitAssistantship {
		return "Graduate Assistantship"
	}
	return "Graduate Position"
}

// titlePhase returns a decision when the title evidence is conclusive, nil
// when the full-text fallback should run.
func titlePhase(a gradAnalysis) *GradDecision {
	if a.hasHardExclusion && !a.hasExplicitAssistantship {
		return &GradDecision{false, LabelProfessionalOther, 0.1}
	}
	if a.hasExplicitPattern || a.hasExplicitAssistantship {
		return &GradDecision{true, a.label(true), max(a.confidence, 0.85)}
	}
	if a.confidence >= 0.8 && a.gradScore >= 4 && a.exclusionScore == 0 {
		return &GradDecision{true, a.label(true), a.confidence}
	}
	if a.exclusionScore >= 4 && a.gradScore == 0 {
		return &GradDecision{false, LabelProfessionalOther, min(a.confidence, 0.2)}
	}
	return nil
}

// Classify runs the two-phase graduate decision for one posting. It never
// fails: empty or missing text degrades to not-graduate at zero confidence.
func (c *PositionTypeClassifier) Classify(p *posting.Posting) GradDecision {
	title := analyzeGradText(p.TitleText())
	if decision := titlePhase(title); decision != nil {
		return *decision
	}

	a := analyzeGradText(strings.Join([]string{p.Title, p.Tags, p.Organization, p.Description}, " "))
	if a.hasHardExclusion && !a.hasExplicitAssistantship {
		return GradDecision{false, LabelProfessionalOther, 0.1}
	}

	isGraduate := a.confidence >= 0.7 ||
		a.hasExplicitPattern ||
		(a.totalScore > 0 && a.gradScore >= 2 && a.exclusionScore < a.gradScore*2)

	confidence := a.confidence
	if isGraduate && (a.hasExplicitPattern || a.hasExplicitAssistantship) {
		confidence = max(confidence, 0.75)
	}
	if !isGraduate {
		confidence = min(confidence, 0.3)
	}

	return GradDecision{isGraduate, a.label(isGraduate), confidence}
}

func anyMatch(patterns []*regexp.Regexp, text string) bool {
	for _, re := range patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

func countContained(keywords []string, text string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			n++
		}
	}
	return n
}

func containsAny(text string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
