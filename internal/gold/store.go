// Package gold persists the human-verified discipline labels. The gold store
// is the only authoritative label source: queue items and pseudo-labels are
// advisory or ephemeral.
package gold

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Label is one verified discipline assignment for a position key.
type Label struct {
	PositionKey  string `json:"position_key"`
	Title        string `json:"title,omitempty"`
	Organization string `json:"organization,omitempty"`
	URL          string `json:"url,omitempty"`
	Description  string `json:"description,omitempty"`
	Discipline   string `json:"discipline"`
	Source       string `json:"source"`
	ReviewedAt   string `json:"reviewed_at"`
	Reviewer     string `json:"reviewer,omitempty"`
	ReviewNotes  string `json:"review_notes,omitempty"`
}

// CombinedText mirrors the posting text used to train on this label.
func (l *Label) CombinedText() string {
	parts := []string{l.Title, l.Organization, l.Description}
	return strings.ToLower(strings.TrimSpace(strings.Join(parts, " ")))
}

// Store is the on-disk gold label dataset. Exactly one label exists per
// position key; later writes overwrite. Entries are never silently deleted.
type Store struct {
	Version   int      `json:"version"`
	UpdatedAt string   `json:"updated_at"`
	Labels    []*Label `json:"labels"`

	path  string
	index map[string]*Label
}

// Load reads the store, creating an empty one (persisted immediately) when
// the file does not exist or carries an unusable payload.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		var store Store
		if jsonErr := json.Unmarshal(data, &store); jsonErr == nil && store.Labels != nil {
			store.path = path
			store.buildIndex()
			return &store, nil
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading gold label store: %w", err)
	}

	store := &Store{
		Version:   1,
		UpdatedAt: time.Now().Format(time.RFC3339),
		Labels:    []*Label{},
		path:      path,
	}
	store.buildIndex()
	if err := store.Save(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *Store) buildIndex() {
	s.index = make(map[string]*Label, len(s.Labels))
	for _, l := range s.Labels {
		key := normalizeKey(l.PositionKey)
		if key != "" {
			s.index[key] = l
		}
	}
}

// Len returns the number of stored labels.
func (s *Store) Len() int { return len(s.Labels) }

// Has reports whether a position key already carries a gold label.
func (s *Store) Has(key string) bool {
	_, ok := s.index[normalizeKey(key)]
	return ok
}

// Get returns the label for a position key, nil when absent.
func (s *Store) Get(key string) *Label {
	return s.index[normalizeKey(key)]
}

// Upsert adds or overwrites the label for its position key. It returns true
// when a new entry was created.
func (s *Store) Upsert(label *Label) bool {
	key := normalizeKey(label.PositionKey)
	if key == "" {
		return false
	}
	if existing, ok := s.index[key]; ok {
		*existing = *label
		existing.PositionKey = key
		return false
	}
	label.PositionKey = key
	s.Labels = append(s.Labels, label)
	s.index[key] = label
	return true
}

// Save rewrites the store file whole.
func (s *Store) Save() error {
	s.UpdatedAt = time.Now().Format(time.RFC3339)
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating gold store directory: %w", err)
		}
	}

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("writing gold label store: %w", err)
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
