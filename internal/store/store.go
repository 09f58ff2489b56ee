// Package store persists generated stories. The generation pipeline
// never persists anything itself; the CLI is the caller that owns
// storage.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"lore/internal/core"
)

// Store represents the SQLite-backed story store.
type Store struct {
	db   *sql.DB
	path string
}

// StoredStory is a persisted story with its storage row ID.
type StoredStory struct {
	RowID   string     `json:"rowId"` // storage identifier; story IDs are model-assigned and not unique across runs
	SavedAt time.Time  `json:"savedAt"`
	Story   core.Story `json:"story"`
}

// NewStore creates a new store instance with a SQLite database under
// dataDir.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "lore.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

// initialize creates the necessary tables.
func (s *Store) initialize() error {
	storiesTable := `
	CREATE TABLE IF NOT EXISTS stories (
		row_id TEXT PRIMARY KEY,
		story_id INTEGER,
		title TEXT,
		description TEXT,
		image TEXT,
		image_keywords TEXT,
		related_urls TEXT,
		chunks TEXT,
		created_at DATETIME,
		saved_at DATETIME
	);`

	if _, err := s.db.Exec(storiesTable); err != nil {
		return fmt.Errorf("failed to create stories table: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveStories persists a batch of stories, assigning each a fresh row
// ID, and returns the stored rows.
func (s *Store) SaveStories(stories []core.Story) ([]StoredStory, error) {
	query := `
	INSERT INTO stories
	(row_id, story_id, title, description, image, image_keywords, related_urls, chunks, created_at, saved_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	now := time.Now().UTC()
	stored := make([]StoredStory, 0, len(stories))

	for _, story := range stories {
		relatedJSON, err := json.Marshal(story.RelatedURLs)
		if err != nil {
			return nil, fmt.Errorf("failed to encode related urls: %w", err)
		}
		chunksJSON, err := json.Marshal(story.Chunks)
		if err != nil {
			return nil, fmt.Errorf("failed to encode chunks: %w", err)
		}

		rowID := uuid.NewString()
		_, err = s.db.Exec(query,
			rowID,
			story.ID,
			story.Title,
			story.Description,
			story.Image,
			story.ImageKeywords,
			string(relatedJSON),
			string(chunksJSON),
			story.CreatedAt,
			now,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert story %q: %w", story.Title, err)
		}

		stored = append(stored, StoredStory{RowID: rowID, SavedAt: now, Story: story})
	}

	return stored, nil
}

// ListStories returns all stored stories, most recently saved first.
func (s *Store) ListStories() ([]StoredStory, error) {
	query := `
	SELECT row_id, story_id, title, description, image, image_keywords, related_urls, chunks, created_at, saved_at
	FROM stories ORDER BY saved_at DESC, row_id`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query stories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var stories []StoredStory
	for rows.Next() {
		stored, err := scanStory(rows)
		if err != nil {
			return nil, err
		}
		stories = append(stories, *stored)
	}
	return stories, rows.Err()
}

// GetStory retrieves one stored story by its row ID. A nil result with
// nil error means not found.
func (s *Store) GetStory(rowID string) (*StoredStory, error) {
	query := `
	SELECT row_id, story_id, title, description, image, image_keywords, related_urls, chunks, created_at, saved_at
	FROM stories WHERE row_id = ?`

	row := s.db.QueryRow(query, rowID)
	stored, err := scanStory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// ClearStories removes every stored story.
func (s *Store) ClearStories() error {
	if _, err := s.db.Exec("DELETE FROM stories"); err != nil {
		return fmt.Errorf("failed to clear stories: %w", err)
	}
	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanStory(row scanner) (*StoredStory, error) {
	var (
		stored      StoredStory
		relatedJSON string
		chunksJSON  string
		createdAt   time.Time
		savedAt     time.Time
	)

	err := row.Scan(
		&stored.RowID,
		&stored.Story.ID,
		&stored.Story.Title,
		&stored.Story.Description,
		&stored.Story.Image,
		&stored.Story.ImageKeywords,
		&relatedJSON,
		&chunksJSON,
		&createdAt,
		&savedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan story: %w", err)
	}

	if err := json.Unmarshal([]byte(relatedJSON), &stored.Story.RelatedURLs); err != nil {
		return nil, fmt.Errorf("failed to decode related urls: %w", err)
	}
	if err := json.Unmarshal([]byte(chunksJSON), &stored.Story.Chunks); err != nil {
		return nil, fmt.Errorf("failed to decode chunks: %w", err)
	}
	stored.Story.CreatedAt = createdAt
	stored.SavedAt = savedAt

	return &stored, nil
}
