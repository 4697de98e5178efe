package classify

import (
	"regexp"
	"sort"
	"strings"

	"github.com/jmorrell-unl/wildlife-grad/internal/lexicon"
	"github.com/jmorrell-unl/wildlife-grad/internal/posting"
)

// Scores maps a discipline to its accumulated keyword score.
type Scores map[string]int

// RuleResult is the outcome of the rule-based discipline classifier.
type RuleResult struct {
	Primary   string
	Secondary string
	// Scores backing the primary/secondary choice; used by the ambiguity
	// gate that decides whether the similarity refiner may run.
	Scores Scores
	// Final marks decisions the similarity refiner must not revisit: a hard
	// non-graduate match or a confident title-only classification. The
	// learned tiers still run on a final Other.
	Final bool
}

// RuleClassifier scores postings against the weighted discipline lexicon with
// cross-category suppression and deterministic priority tie-breaks.
type RuleClassifier struct{}

func NewRuleClassifier() *RuleClassifier {
	return &RuleClassifier{}
}

// singleWordPatterns caches the whole-word (optional plural) matcher for
// every single-word lexicon keyword.
var singleWordPatterns = func() map[string]*regexp.Regexp {
	out := make(map[string]*regexp.Regexp)
	for _, keywords := range lexicon.DisciplineKeywords {
		for _, kw := range keywords {
			if strings.Contains(kw, " ") {
				continue
			}
			if _, ok := out[kw]; !ok {
				out[kw] = regexp.MustCompile(`\b` + regexp.QuoteMeta(kw) + `s?\b`)
			}
		}
	}
	return out
}()

// priorityRank gives higher numbers to higher-priority disciplines so ties
// sort deterministically.
var priorityRank = func() map[string]int {
	out := make(map[string]int, len(lexicon.DisciplinePriority))
	for i, name := range lexicon.DisciplinePriority {
		out[name] = len(lexicon.DisciplinePriority) - i
	}
	return out
}()

// Classify assigns primary and secondary disciplines. Title evidence wins
// when confident; otherwise the full text is scored and any title signal is
// merged in (+1 per discipline) before ranking.
func (c *RuleClassifier) Classify(p *posting.Posting) RuleResult {
	titleText := strings.ToLower(p.TitleText())
	fullText := p.CombinedText()

	if anyMatch(lexicon.HardNonGradPatterns, fullText) &&
		!anyMatch(lexicon.ExplicitAssistantshipPatterns, fullText) {
		return RuleResult{Primary: lexicon.Other, Final: true}
	}

	titlePrimary, titleSecondary, titleScores := scoreText(titleText)
	if isConfidentTitleMatch(titleScores) {
		return RuleResult{Primary: titlePrimary, Secondary: titleSecondary, Scores: titleScores, Final: true}
	}

	fullPrimary, fullSecondary, fullScores := scoreText(fullText)
	if len(fullScores) == 0 {
		return RuleResult{Primary: lexicon.Other, Scores: Scores{}}
	}

	if len(titleScores) > 0 {
		combined := make(Scores, len(fullScores)+len(titleScores))
		for disc, score := range fullScores {
			combined[disc] = score
		}
		// A weak but present title signal still tips close calls.
		for disc := range titleScores {
			combined[disc]++
		}
		primary, secondary := fromScores(combined)
		return RuleResult{Primary: primary, Secondary: secondary, Scores: combined}
	}

	return RuleResult{Primary: fullPrimary, Secondary: fullSecondary, Scores: fullScores}
}

// scoreText runs the weighted keyword scorer plus the suppression rules over
// an already-lowercased text.
func scoreText(text string) (string, string, Scores) {
	scores := Scores{}
	hasStrongAbiotic := containsAny(text, lexicon.StrongAbioticTerms)

	for discipline, keywords := range lexicon.DisciplineKeywords {
		score := 0
		for _, kw := range keywords {
			if strings.Contains(kw, " ") {
				if strings.Contains(text, kw) {
					score += 2
				}
				continue
			}
			if singleWordPatterns[kw].MatchString(text) {
				score++
			}
		}
		if score > 0 {
			scores[discipline] = score
		}
	}

	// A weak abiotic signal must not outrank organism-focused evidence.
	if scores["Environmental Sciences"] > 0 {
		hasBiotic := false
		for disc := range lexicon.BioticDisciplines {
			if scores[disc] > 0 {
				hasBiotic = true
				break
			}
		}
		if hasBiotic && !hasStrongAbiotic {
			scores["Environmental Sciences"] = 0
		}
	}

	// Climate/carbon/ocean-process postings can mention fisheries programs
	// while remaining abiotic in focus.
	if scores["Environmental Sciences"] > 0 && scores["Fisheries and Aquatic"] > 0 &&
		containsAny(text, lexicon.ClimateFisheriesNudgeTerms) {
		scores["Environmental Sciences"] += 2
	}

	// Forest postings with explicit soil/biogeochemistry terms are abiotic.
	if scores["Environmental Sciences"] > 0 && scores["Forestry and Habitat"] > 0 &&
		containsAny(text, lexicon.SoilForestNudgeTerms) {
		scores["Environmental Sciences"] += 2
	}

	// Incidental survey/policy vocabulary must not pull organism work into
	// Human Dimensions without an explicit social-science term.
	if scores["Human Dimensions"] <= 2 && !containsAny(text, lexicon.ExplicitHumanDimensionsTerms) {
		hasOther := false
		for disc, score := range scores {
			if disc != "Human Dimensions" && score > 0 {
				hasOther = true
				break
			}
		}
		if hasOther {
			scores["Human Dimensions"] = 0
		}
	}

	for disc, score := range scores {
		if score <= 0 {
			delete(scores, disc)
		}
	}
	if len(scores) == 0 {
		return lexicon.Other, "", Scores{}
	}

	primary, secondary := fromScores(scores)
	return primary, secondary, scores
}

type rankedDiscipline struct {
	name  string
	score int
}

func rank(scores Scores) []rankedDiscipline {
	ranked := make([]rankedDiscipline, 0, len(scores))
	for disc, score := range scores {
		ranked = append(ranked, rankedDiscipline{disc, score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return priorityRank[ranked[i].name] > priorityRank[ranked[j].name]
	})
	return ranked
}

func fromScores(scores Scores) (string, string) {
	if len(scores) == 0 {
		return lexicon.Other, ""
	}
	ranked := rank(scores)
	primary := ranked[0].name
	secondary := ""
	if len(ranked) > 1 && ranked[1].score > 0 {
		secondary = ranked[1].name
	}
	return primary, secondary
}

func isConfidentTitleMatch(scores Scores) bool {
	if len(scores) == 0 {
		return false
	}
	ranked := rank(scores)
	top := ranked[0].score
	second := 0
	if len(ranked) > 1 {
		second = ranked[1].score
	}
	margin := top - second
	return top >= 4 || (top >= 3 && margin >= 2) || (top >= 2 && margin >= 2)
}

// IsAmbiguous reports whether rule evidence is weak or tied enough that the
// similarity refiner may act.
func IsAmbiguous(scores Scores) bool {
	if len(scores) == 0 {
		return true
	}
	ranked := rank(scores)
	top := ranked[0].score
	second := 0
	if len(ranked) > 1 {
		second = ranked[1].score
	}
	return top <= 2 || top-second <= 1
}
