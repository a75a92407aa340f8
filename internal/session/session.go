// Package session remembers which project is active across CLI
// invocations, independent of in-memory state. It never stores project
// payloads, only the lightweight resume pointer; full state is always
// re-fetched from the server.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Record is the resume pointer persisted by every backend.
type Record struct {
	ProjectID   string    `json:"projectId"`
	ProjectName string    `json:"projectName"`
	Timestamp   time.Time `json:"timestamp"`
}

// ErrNoRecord is returned by a backend with nothing stored.
var ErrNoRecord = errors.New("no session record")

// Backend is one storage tier for the resume pointer. Implementations are
// independently best-effort; a failing tier must never take the others
// down with it.
type Backend interface {
	Name() string
	Save(rec Record) error
	Load() (Record, error)
	Clear() error
}

// Store reads and writes the resume pointer through an ordered list of
// backends: reads walk the list in priority order, writes fan out to all.
type Store struct {
	backends []Backend
	maxAge   time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a store over backends, highest priority first. Records older
// than maxAge are treated as absent on load; a stale pointer to a
// long-deleted server-side project would only produce confusing errors.
func New(backends []Backend, maxAge time.Duration, logger *slog.Logger) *Store {
	return &Store{
		backends: backends,
		maxAge:   maxAge,
		logger:   logger,
		now:      time.Now,
	}
}

// Save writes the pointer to every backend. Each write is independently
// best-effort; Save reports whether at least one tier succeeded.
func (s *Store) Save(projectID, projectName string) bool {
	rec := Record{
		ProjectID:   projectID,
		ProjectName: projectName,
		Timestamp:   s.now(),
	}

	saved := false
	for _, b := range s.backends {
		if err := b.Save(rec); err != nil {
			s.logger.Debug("session save failed", "backend", b.Name(), "error", err)
			continue
		}
		saved = true
	}
	return saved
}

// Load returns the freshest available pointer in priority order, or nil.
// An explicit reference (flag/env) always wins over stored values.
func (s *Store) Load() *Record {
	for _, b := range s.backends {
		rec, err := b.Load()
		if err != nil {
			if !errors.Is(err, ErrNoRecord) {
				s.logger.Debug("session load failed", "backend", b.Name(), "error", err)
			}
			continue
		}
		if rec.ProjectID == "" {
			continue
		}
		if s.maxAge > 0 && s.now().Sub(rec.Timestamp) > s.maxAge {
			s.logger.Debug("session record expired", "backend", b.Name(), "age", s.now().Sub(rec.Timestamp))
			continue
		}
		return &rec
	}
	return nil
}

// Clear removes the pointer from every backend, best-effort.
func (s *Store) Clear() {
	for _, b := range s.backends {
		if err := b.Clear(); err != nil {
			s.logger.Debug("session clear failed", "backend", b.Name(), "error", err)
		}
	}
}

// ExplicitRef is the highest-priority backend: a project reference given
// directly on the command line or via environment, the CLI analogue of a
// shareable URL. Read-only; saves and clears are no-ops.
type ExplicitRef struct {
	ProjectID   string
	ProjectName string
}

// Name implements Backend.
func (e *ExplicitRef) Name() string { return "explicit" }

// Save is a no-op; an explicit reference cannot be written back.
func (e *ExplicitRef) Save(Record) error { return nil }

// Load returns the explicit reference, always fresh.
func (e *ExplicitRef) Load() (Record, error) {
	if e == nil || e.ProjectID == "" {
		return Record{}, ErrNoRecord
	}
	return Record{
		ProjectID:   e.ProjectID,
		ProjectName: e.ProjectName,
		Timestamp:   time.Now(),
	}, nil
}

// Clear is a no-op.
func (e *ExplicitRef) Clear() error { return nil }

// FileBackend persists the record as JSON at a fixed path. Used twice: a
// durable file under the user state dir, and a per-terminal-session file
// under the OS temp dir.
type FileBackend struct {
	name string
	path string
}

// NewFileBackend creates a file-backed tier.
func NewFileBackend(name, path string) *FileBackend {
	return &FileBackend{name: name, path: path}
}

// Name implements Backend.
func (f *FileBackend) Name() string { return f.name }

// Save writes the record, creating parent directories as needed.
func (f *FileBackend) Save(rec Record) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session record: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0o644); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

// Load reads the record, mapping a missing file to ErrNoRecord.
func (f *FileBackend) Load() (Record, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Record{}, ErrNoRecord
		}
		return Record{}, fmt.Errorf("read session file: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("decode session file: %w", err)
	}
	return rec, nil
}

// Clear removes the file; a missing file is not an error.
func (f *FileBackend) Clear() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// SessionKey identifies the current terminal session for the tier-2 file.
// EMBERGLOW_SESSION_KEY overrides; the parent pid is the fallback.
func SessionKey() string {
	if key := os.Getenv("EMBERGLOW_SESSION_KEY"); key != "" {
		return key
	}
	return fmt.Sprintf("ppid-%d", os.Getppid())
}

// DefaultBackends builds the standard three-tier list: explicit reference,
// durable state file, session-scoped temp file.
func DefaultBackends(explicit *ExplicitRef, stateDir string) []Backend {
	return []Backend{
		explicit,
		NewFileBackend("state", filepath.Join(stateDir, "session.json")),
		NewFileBackend("session", filepath.Join(os.TempDir(), "emberglow-session-"+SessionKey()+".json")),
	}
}
