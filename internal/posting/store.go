package posting

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const captureSchema = `
CREATE TABLE IF NOT EXISTS postings (
	position_key TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	organization TEXT,
	location TEXT,
	salary TEXT,
	starting_date TEXT,
	published_date TEXT,
	tags TEXT,
	url TEXT,
	description TEXT,
	status TEXT NOT NULL DEFAULT 'pending',
	is_graduate_position INTEGER NOT NULL DEFAULT 0,
	position_type TEXT,
	grad_confidence REAL NOT NULL DEFAULT 0,
	discipline_primary TEXT,
	discipline_secondary TEXT,
	discipline_refinement_source TEXT,
	scraped_at TEXT
);
`

// CaptureStore is the sqlite database the scraper writes raw postings into.
// Classification reads pending rows and writes derived fields back.
type CaptureStore struct {
	db *sql.DB
}

// OpenCaptureStore opens (and if needed creates) the capture database.
func OpenCaptureStore(dbPath string) (*CaptureStore, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("capture database path is required")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating capture database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening capture database: %w", err)
	}
	if _, err := db.Exec(captureSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing capture schema: %w", err)
	}
	return &CaptureStore{db: db}, nil
}

func (s *CaptureStore) Close() error {
	return s.db.Close()
}

// LoadByStatus returns postings with the given status, newest first. An empty
// status loads everything.
func (s *CaptureStore) LoadByStatus(status string) (*Postings, error) {
	query := `
		SELECT title, organization, location, salary, starting_date,
			published_date, tags, url, description, scraped_at
		FROM postings`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY scraped_at DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := &Postings{}
	for rows.Next() {
		p := &Posting{}
		if err := rows.Scan(
			&p.Title, &p.Organization, &p.Location, &p.Salary, &p.StartingDate,
			&p.PublishedDate, &p.Tags, &p.URL, &p.Description, &p.ScrapedAt,
		); err != nil {
			return nil, err
		}
		out.Items = append(out.Items, p)
	}
	return out, rows.Err()
}

// Upsert inserts a posting or replaces the stored row with the same key,
// preserving the scraper-provided fields and refreshing derived ones.
func (s *CaptureStore) Upsert(p *Posting, status string) error {
	key := p.Key()
	if key == "" {
		return fmt.Errorf("posting has no usable key: title=%q", p.Title)
	}
	_, err := s.db.Exec(`
		INSERT INTO postings (
			position_key, title, organization, location, salary, starting_date,
			published_date, tags, url, description, status,
			is_graduate_position, position_type, grad_confidence,
			discipline_primary, discipline_secondary, discipline_refinement_source,
			scraped_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(position_key) DO UPDATE SET
			status = excluded.status,
			is_graduate_position = excluded.is_graduate_position,
			position_type = excluded.position_type,
			grad_confidence = excluded.grad_confidence,
			discipline_primary = excluded.discipline_primary,
			discipline_secondary = excluded.discipline_secondary,
			discipline_refinement_source = excluded.discipline_refinement_source
	`,
		key, p.Title, p.Organization, p.Location, p.Salary, p.StartingDate,
		p.PublishedDate, p.Tags, p.URL, p.Description, status,
		boolToInt(p.IsGraduatePosition), p.PositionType, p.GradConfidence,
		p.DisciplinePrimary, p.DisciplineSecondary, p.DisciplineRefinementSource,
		p.ScrapedAt,
	)
	return err
}

// SaveClassified writes the batch back with status "classified".
func (s *CaptureStore) SaveClassified(ps *Postings) (int, error) {
	saved := 0
	for _, p := range ps.Items {
		if err := s.Upsert(p, "classified"); err != nil {
			return saved, err
		}
		saved++
	}
	return saved, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
