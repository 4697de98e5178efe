package posting

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Refinement sources recorded on a posting once a tier resolves its discipline.
const (
	SourceRule           = "rule"
	SourceSimilarity     = "similarity"
	SourceSecondaryModel = "secondary_model"
	SourcePromotedModel  = "promoted_model"
)

// Posting is a scraped job posting plus the fields derived by classification.
type Posting struct {
	Title         string `json:"title"`
	Organization  string `json:"organization"`
	Location      string `json:"location"`
	Salary        string `json:"salary,omitempty"`
	StartingDate  string `json:"starting_date,omitempty"`
	PublishedDate string `json:"published_date,omitempty"`
	Tags          string `json:"tags,omitempty"`
	URL           string `json:"url,omitempty"`
	Description   string `json:"description,omitempty"`

	IsGraduatePosition         bool    `json:"is_graduate_position"`
	PositionType               string  `json:"position_type,omitempty"`
	GradConfidence             float64 `json:"grad_confidence"`
	DisciplinePrimary          string  `json:"discipline_primary,omitempty"`
	DisciplineSecondary        string  `json:"discipline_secondary,omitempty"`
	DisciplineRefinementSource string  `json:"discipline_refinement_source,omitempty"`

	FirstSeen   string `json:"first_seen,omitempty"`
	LastUpdated string `json:"last_updated,omitempty"`
	ScrapedAt   string `json:"scraped_at,omitempty"`
	ScrapeRunID string `json:"scrape_run_id,omitempty"`
}

// Key returns the stable key used to match postings against gold labels and
// review rows. URL wins when present; otherwise normalized title metadata.
func (p *Posting) Key() string {
	url := strings.ToLower(strings.TrimSpace(p.URL))
	if url != "" {
		return "url::" + url
	}

	title := strings.ToLower(strings.TrimSpace(p.Title))
	org := strings.ToLower(strings.TrimSpace(p.Organization))
	loc := strings.ToLower(strings.TrimSpace(p.Location))
	pub := strings.ToLower(strings.TrimSpace(p.PublishedDate))

	if title != "" && org != "" {
		return fmt.Sprintf("title_org::%s::%s::%s::%s", title, org, loc, pub)
	}
	if title != "" {
		return fmt.Sprintf("title::%s::%s", title, pub)
	}
	return ""
}

// TitleText is the short authoritative text used by title-first phases.
func (p *Posting) TitleText() string {
	return strings.TrimSpace(p.Title + " " + p.Tags)
}

// CombinedText is the normalized full text used by discipline models.
func (p *Posting) CombinedText() string {
	parts := []string{p.Title, p.Tags, p.Organization, p.Description}
	return strings.ToLower(strings.TrimSpace(strings.Join(parts, " ")))
}

// Postings is a batch of postings processed in one run.
type Postings struct {
	Items []*Posting
}

func (ps *Postings) Len() int {
	if ps == nil {
		return 0
	}
	return len(ps.Items)
}

func (ps *Postings) FindByKey(key string) *Posting {
	for _, p := range ps.Items {
		if p.Key() == key {
			return p
		}
	}
	return nil
}

// positionsFile covers the historical payload shapes produced by the scraper.
type positionsFile struct {
	Positions []*Posting `json:"positions"`
	Jobs      []*Posting `json:"jobs"`
}

// FromFile loads postings from a JSON file. The payload may be a bare list or
// an object carrying a "positions" or "jobs" list.
func FromFile(path string) (*Postings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading positions file: %w", err)
	}

	var items []*Posting
	if err := json.Unmarshal(data, &items); err == nil {
		return &Postings{Items: items}, nil
	}

	var payload positionsFile
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parsing positions file %q: %w", path, err)
	}
	if payload.Positions != nil {
		return &Postings{Items: payload.Positions}, nil
	}
	return &Postings{Items: payload.Jobs}, nil
}

// ToFile rewrites the postings file whole. No incremental patching happens so
// a single run never races with itself.
func (ps *Postings) ToFile(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{"positions": ps.Items})
}
