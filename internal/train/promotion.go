package train

import "github.com/jmorrell-unl/wildlife-grad/internal/model"

// Promotion reasons.
const (
	ReasonForcePromote          = "force_promote"
	ReasonFirstPromotedModel    = "first_promoted_model"
	ReasonMacroF1Improved       = "macro_f1_improved"
	ReasonAccuracyImproved      = "accuracy_improved_with_stable_macro_f1"
	ReasonValidationNotImproved = "validation_not_improved"
	ReasonInsufficientGold      = "insufficient_gold_labels"
)

// PromotionDecision is the outcome of comparing a candidate against the
// currently promoted model.
type PromotionDecision struct {
	Promote          bool           `json:"promote"`
	Reason           string         `json:"reason"`
	CandidateMetrics model.Metrics  `json:"candidate_metrics"`
	PromotedMetrics  *model.Metrics `json:"promoted_metrics,omitempty"`
	MacroF1Delta     float64        `json:"macro_f1_delta"`
	AccuracyDelta    float64        `json:"accuracy_delta"`
}

// DecidePromotion is a pure function of its inputs so the gating policy can
// be tested without any filesystem or training state. Macro F1 is the primary
// criterion; an accuracy gain only promotes while macro F1 holds within the
// allowed slack.
func DecidePromotion(candidate model.Metrics, promoted *model.Metrics, minMacroF1Improvement, minAccuracyImprovement float64, force bool) PromotionDecision {
	decision := PromotionDecision{
		CandidateMetrics: candidate,
		PromotedMetrics:  promoted,
	}

	if force {
		decision.Promote = true
		decision.Reason = ReasonForcePromote
		if promoted != nil {
			decision.MacroF1Delta = candidate.MacroF1 - promoted.MacroF1
			decision.AccuracyDelta = candidate.Accuracy - promoted.Accuracy
		}
		return decision
	}
	if promoted == nil {
		decision.Promote = true
		decision.Reason = ReasonFirstPromotedModel
		return decision
	}

	decision.MacroF1Delta = candidate.MacroF1 - promoted.MacroF1
	decision.AccuracyDelta = candidate.Accuracy - promoted.Accuracy

	switch {
	case decision.MacroF1Delta > minMacroF1Improvement:
		decision.Promote = true
		decision.Reason = ReasonMacroF1Improved
	case decision.AccuracyDelta > minAccuracyImprovement &&
		decision.MacroF1Delta >= -minMacroF1Improvement:
		decision.Promote = true
		decision.Reason = ReasonAccuracyImproved
	default:
		decision.Reason = ReasonValidationNotImproved
	}
	return decision
}
