// Package queue builds the human-review confidence queue. The queue is
// advisory only: it never mutates labels, and only the gold store is
// authoritative.
package queue

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jmorrell-unl/wildlife-grad/internal/lexicon"
	"github.com/jmorrell-unl/wildlife-grad/internal/model"
	"github.com/jmorrell-unl/wildlife-grad/internal/posting"
)

// Reason codes attached to queue items.
const (
	ReasonFinalOther           = "final_other"
	ReasonNoPromotedModel      = "no_promoted_model"
	ReasonSuggestedRelabel     = "suggested_relabel"
	ReasonStillOtherLowSignal  = "still_other_low_signal"
	ReasonModelRuleDisagreement = "model_rule_disagreement"
)

// Config holds the model-consultation gates used while flagging.
type Config struct {
	// SuggestConfidence/SuggestMargin gate the suggested_relabel reason.
	SuggestConfidence float64 `mapstructure:"suggest-confidence"`
	SuggestMargin     float64 `mapstructure:"suggest-margin"`
	// DisagreeConfidence/DisagreeMargin gate model_rule_disagreement.
	DisagreeConfidence float64 `mapstructure:"disagree-confidence"`
	DisagreeMargin     float64 `mapstructure:"disagree-margin"`
}

// DefaultConfig matches the documented gate values.
func DefaultConfig() Config {
	return Config{
		SuggestConfidence:  0.6,
		SuggestMargin:      0.08,
		DisagreeConfidence: 0.7,
		DisagreeMargin:     0.1,
	}
}

// Item is one posting flagged for human review, with empty reviewer fields
// awaiting input.
type Item struct {
	Severity                 int      `json:"severity"`
	Reasons                  []string `json:"reasons"`
	PositionKey              string   `json:"position_key"`
	DisciplineFinal          string   `json:"discipline_final"`
	DisciplineModelSuggested string   `json:"discipline_model_suggested"`
	DisciplineModelSecondary string   `json:"discipline_model_secondary"`
	ModelConfidence          float64  `json:"model_confidence"`
	ModelMargin              float64  `json:"model_margin"`
	Title                    string   `json:"title"`
	Organization             string   `json:"organization"`
	Location                 string   `json:"location"`
	PublishedDate            string   `json:"published_date"`
	URL                      string   `json:"url"`
	ReviewStatus             string   `json:"review_status"`
	ReviewedDiscipline       string   `json:"reviewed_discipline"`
	ReviewNotes              string   `json:"review_notes"`
	Reviewer                 string   `json:"reviewer"`
}

// Build re-queries the model for every posting independently of the final
// label, flags disagreements and unresolved rows, and sorts by severity,
// then model confidence, then title.
func Build(cfg Config, postings []*posting.Posting, store *model.Store) []Item {
	available := store != nil && store.Available()

	var items []Item
	for _, p := range postings {
		final := lexicon.NormalizeDiscipline(p.DisciplinePrimary)
		var pred model.Prediction
		if available {
			pred = store.Predict(p)
		} else {
			pred.Primary = lexicon.Other
		}

		var reasons []string
		if final == lexicon.Other {
			reasons = append(reasons, ReasonFinalOther)
		}
		if available {
			if final == lexicon.Other {
				if pred.Primary != lexicon.Other &&
					pred.Confidence >= cfg.SuggestConfidence &&
					pred.Margin >= cfg.SuggestMargin {
					reasons = append(reasons, ReasonSuggestedRelabel)
				} else {
					reasons = append(reasons, ReasonStillOtherLowSignal)
				}
			} else if pred.Primary != lexicon.Other &&
				pred.Primary != final &&
				pred.Confidence >= cfg.DisagreeConfidence &&
				pred.Margin >= cfg.DisagreeMargin {
				reasons = append(reasons, ReasonModelRuleDisagreement)
			}
		} else if final == lexicon.Other {
			reasons = append(reasons, ReasonNoPromotedModel)
		}

		if len(reasons) == 0 {
			continue
		}

		severity := len(reasons)
		for _, r := range reasons {
			if r == ReasonFinalOther || r == ReasonModelRuleDisagreement {
				severity++
			}
		}

		items = append(items, Item{
			Severity:                 severity,
			Reasons:                  reasons,
			PositionKey:              p.Key(),
			DisciplineFinal:          final,
			DisciplineModelSuggested: pred.Primary,
			DisciplineModelSecondary: pred.Secondary,
			ModelConfidence:          round4(pred.Confidence),
			ModelMargin:              round4(pred.Margin),
			Title:                    p.Title,
			Organization:             p.Organization,
			Location:                 p.Location,
			PublishedDate:            p.PublishedDate,
			URL:                      p.URL,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Severity != items[j].Severity {
			return items[i].Severity > items[j].Severity
		}
		if items[i].ModelConfidence != items[j].ModelConfidence {
			return items[i].ModelConfidence > items[j].ModelConfidence
		}
		return items[i].Title < items[j].Title
	})
	return items
}

type payload struct {
	GeneratedAt string `json:"generated_at"`
	Count       int    `json:"count"`
	Items       []Item `json:"items"`
}

// WriteJSON rewrites the queue JSON file whole.
func WriteJSON(path string, items []Item) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating queue directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("writing confidence queue: %w", err)
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(payload{
		GeneratedAt: time.Now().Format(time.RFC3339),
		Count:       len(items),
		Items:       items,
	})
}

// ReadJSON loads a previously written queue file.
func ReadJSON(path string) ([]Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading confidence queue: %w", err)
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing confidence queue %q: %w", path, err)
	}
	return p.Items, nil
}

// CSVHeader is the flat tabular form of the queue, field for field identical
// to the JSON items; reasons are ;-joined.
var CSVHeader = []string{
	"severity", "reasons", "position_key", "discipline_final",
	"discipline_model_suggested", "discipline_model_secondary",
	"model_confidence", "model_margin", "review_status",
	"reviewed_discipline", "review_notes", "reviewer", "title",
	"organization", "location", "published_date", "url",
}

// WriteCSV rewrites the spreadsheet-review form of the queue.
func WriteCSV(path string, items []Item) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating queue directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("writing confidence queue csv: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(CSVHeader); err != nil {
		return err
	}
	for _, item := range items {
		record := []string{
			strconv.Itoa(item.Severity),
			strings.Join(item.Reasons, ";"),
			item.PositionKey,
			item.DisciplineFinal,
			item.DisciplineModelSuggested,
			item.DisciplineModelSecondary,
			strconv.FormatFloat(item.ModelConfidence, 'f', -1, 64),
			strconv.FormatFloat(item.ModelMargin, 'f', -1, 64),
			item.ReviewStatus,
			item.ReviewedDiscipline,
			item.ReviewNotes,
			item.Reviewer,
			item.Title,
			item.Organization,
			item.Location,
			item.PublishedDate,
			item.URL,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
