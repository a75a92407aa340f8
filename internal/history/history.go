// Package history keeps a local SQLite log of finished generations, so a
// user can find past projects and their final audio without the backend.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Entry is one recorded generation.
type Entry struct {
	ID            string
	ProjectID     string
	DisplayName   string
	VoiceID       string
	Chunks        int
	FinalFilename string
	CreatedAt     time.Time
}

// Store wraps the SQLite-backed generation log.
type Store struct {
	db    *sql.DB
	log   *slog.Logger
	clock func() time.Time
}

// Open initializes the history store at path, creating directories and
// schema as needed.
func Open(ctx context.Context, path string, log *slog.Logger) (*Store, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, log: log, clock: time.Now}

	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS generations (
    id TEXT PRIMARY KEY,
    project_id TEXT NOT NULL,
    display_name TEXT,
    voice_id TEXT,
    chunks INTEGER NOT NULL,
    final_filename TEXT,
    created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_generations_created ON generations(created_at);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

// Record appends one finished generation. The entry ID is assigned here.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO generations (id, project_id, display_name, voice_id, chunks, final_filename, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.ProjectID, e.DisplayName, e.VoiceID, e.Chunks, e.FinalFilename, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record generation: %w", err)
	}

	s.log.Debug("generation recorded", "project_id", e.ProjectID, "name", e.DisplayName)
	return nil
}

// List returns the most recent entries, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, display_name, voice_id, chunks, final_filename, created_at
		 FROM generations ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.DisplayName, &e.VoiceID, &e.Chunks, &e.FinalFilename, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan generation: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close releases underlying resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
