// Package review turns completed confidence-queue reviews into gold labels.
package review

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jmorrell-unl/wildlife-grad/internal/gold"
	"github.com/jmorrell-unl/wildlife-grad/internal/lexicon"
)

// SourceQueueReview marks gold labels produced by a queue review import.
const SourceQueueReview = "confidence_queue_review"

// Canonical review statuses.
const (
	StatusAcceptModel = "accept_model"
	StatusKeepFinal   = "keep_final"
	StatusOverride    = "override"
	StatusSkip        = "skip"
)

// statusAliases maps the spellings reviewers actually type to the canonical
// statuses.
var statusAliases = map[string]string{
	"accept_model": StatusAcceptModel,
	"model":        StatusAcceptModel,
	"accept":       StatusAcceptModel,
	"keep_final":   StatusKeepFinal,
	"keep":         StatusKeepFinal,
	"final":        StatusKeepFinal,
	"override":     StatusOverride,
	"set_label":    StatusOverride,
	"set":          StatusOverride,
	"skip":         StatusSkip,
	"":             StatusSkip,
}

// Row is one reviewed queue entry.
type Row struct {
	PositionKey        string
	Title              string
	Organization       string
	URL                string
	DisciplineFinal    string
	ModelSuggested     string
	ReviewStatus       string
	ReviewedDiscipline string
	ReviewNotes        string
	Reviewer           string
}

// Summary reports what an import run did. Warnings carry one entry per
// malformed or skipped-with-cause row.
type Summary struct {
	Rows     int            `json:"rows"`
	Imported int            `json:"imported"`
	Updated  int            `json:"updated"`
	Skipped  int            `json:"skipped"`
	ByStatus map[string]int `json:"by_status"`
	Warnings []string       `json:"warnings,omitempty"`
}

// Importer applies reviewed rows to the gold store.
type Importer struct {
	logger *zap.Logger
	now    func() time.Time
}

func NewImporter(logger *zap.Logger) *Importer {
	return &Importer{logger: logger, now: time.Now}
}

// ReadCSV parses a reviewed queue export. Columns are located by header name,
// so reviewers may reorder or add spreadsheet columns freely.
func ReadCSV(path string) ([]Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening reviewed queue: %w", err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading reviewed queue header: %w", err)
	}
	col := map[string]int{}
	for i, name := range header {
		col[strings.TrimSpace(strings.ToLower(name))] = i
	}
	field := func(record []string, name string) string {
		idx, ok := col[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	var rows []Row
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading reviewed queue row: %w", err)
		}
		rows = append(rows, Row{
			PositionKey:        field(record, "position_key"),
			Title:              field(record, "title"),
			Organization:       field(record, "organization"),
			URL:                field(record, "url"),
			DisciplineFinal:    field(record, "discipline_final"),
			ModelSuggested:     field(record, "discipline_model_suggested"),
			ReviewStatus:       field(record, "review_status"),
			ReviewedDiscipline: field(record, "reviewed_discipline"),
			ReviewNotes:        field(record, "review_notes"),
			Reviewer:           field(record, "reviewer"),
		})
	}
	return rows, nil
}

// Apply upserts one gold label per decided row. With dryRun the store is left
// untouched and the summary reports what would have happened.
func (im *Importer) Apply(rows []Row, store *gold.Store, dryRun bool) (*Summary, error) {
	summary := &Summary{ByStatus: map[string]int{}}
	now := im.now().Format(time.RFC3339)
	changed := false

	for i, row := range rows {
		summary.Rows++
		rowRef := fmt.Sprintf("row %d (%s)", i+1, row.PositionKey)

		status, ok := statusAliases[strings.ToLower(strings.TrimSpace(row.ReviewStatus))]
		if !ok {
			summary.Skipped++
			summary.Warnings = append(summary.Warnings,
				fmt.Sprintf("%s: unknown review_status %q", rowRef, row.ReviewStatus))
			continue
		}
		summary.ByStatus[status]++
		if status == StatusSkip {
			summary.Skipped++
			continue
		}

		if row.PositionKey == "" {
			summary.Skipped++
			summary.Warnings = append(summary.Warnings,
				fmt.Sprintf("row %d: missing position_key", i+1))
			continue
		}

		label, warn := finalLabel(status, row)
		if warn != "" {
			summary.Skipped++
			summary.Warnings = append(summary.Warnings, rowRef+": "+warn)
			continue
		}

		summary.Imported++
		if dryRun {
			continue
		}
		if !store.Upsert(&gold.Label{
			PositionKey:  row.PositionKey,
			Title:        row.Title,
			Organization: row.Organization,
			URL:          row.URL,
			Discipline:   label,
			Source:       SourceQueueReview,
			ReviewedAt:   now,
			Reviewer:     row.Reviewer,
			ReviewNotes:  row.ReviewNotes,
		}) {
			summary.Updated++
		}
		changed = true
	}

	if changed {
		if err := store.Save(); err != nil {
			return nil, err
		}
	}
	im.logger.Info("review import finished",
		zap.Int("rows", summary.Rows),
		zap.Int("imported", summary.Imported),
		zap.Int("updated", summary.Updated),
		zap.Int("skipped", summary.Skipped),
		zap.Bool("dry_run", dryRun),
	)
	return summary, nil
}

// finalLabel resolves the discipline a decided row asserts, or a warning when
// the row cannot be honored.
func finalLabel(status string, row Row) (string, string) {
	switch status {
	case StatusAcceptModel:
		suggested := lexicon.NormalizeDiscipline(row.ModelSuggested)
		if suggested == lexicon.Other {
			return "", "accept_model with no usable model suggestion"
		}
		return suggested, ""
	case StatusKeepFinal:
		return lexicon.NormalizeDiscipline(row.DisciplineFinal), ""
	case StatusOverride:
		if strings.TrimSpace(row.ReviewedDiscipline) == "" {
			return "", "override without reviewed_discipline"
		}
		label := lexicon.NormalizeDiscipline(row.ReviewedDiscipline)
		if label == lexicon.Other && !strings.EqualFold(strings.TrimSpace(row.ReviewedDiscipline), lexicon.Other) {
			return "", fmt.Sprintf("unknown discipline %q", row.ReviewedDiscipline)
		}
		return label, ""
	}
	return "", "unreachable status"
}
