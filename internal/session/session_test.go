package session

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgnsrekt/emberglow-cli/internal/logging"
)

func testStore(backends []Backend) *Store {
	return New(backends, 24*time.Hour, logging.New("error", "text"))
}

func TestFileBackendRoundTrip(t *testing.T) {
	b := NewFileBackend("state", filepath.Join(t.TempDir(), "nested", "session.json"))

	if _, err := b.Load(); !errors.Is(err, ErrNoRecord) {
		t.Errorf("Load() on empty backend = %v, want ErrNoRecord", err)
	}

	rec := Record{ProjectID: "p1", ProjectName: "Chapter One", Timestamp: time.Now()}
	if err := b.Save(rec); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := b.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.ProjectID != "p1" || got.ProjectName != "Chapter One" {
		t.Errorf("Load() = %+v", got)
	}

	if err := b.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if _, err := b.Load(); !errors.Is(err, ErrNoRecord) {
		t.Errorf("Load() after Clear() = %v, want ErrNoRecord", err)
	}
	// Clearing twice is fine.
	if err := b.Clear(); err != nil {
		t.Errorf("second Clear() error = %v", err)
	}
}

func TestExplicitRefWinsOverStored(t *testing.T) {
	dir := t.TempDir()
	stored := NewFileBackend("state", filepath.Join(dir, "session.json"))
	if err := stored.Save(Record{ProjectID: "old", ProjectName: "Stale", Timestamp: time.Now()}); err != nil {
		t.Fatal(err)
	}

	explicit := &ExplicitRef{ProjectID: "fresh", ProjectName: "From Flag"}
	s := testStore([]Backend{explicit, stored})

	rec := s.Load()
	if rec == nil {
		t.Fatal("Load() = nil")
	}
	if rec.ProjectID != "fresh" || rec.ProjectName != "From Flag" {
		t.Errorf("Load() = %+v, want the explicit reference", rec)
	}
}

func TestEmptyExplicitRefFallsThrough(t *testing.T) {
	dir := t.TempDir()
	stored := NewFileBackend("state", filepath.Join(dir, "session.json"))
	if err := stored.Save(Record{ProjectID: "p1", ProjectName: "Stored", Timestamp: time.Now()}); err != nil {
		t.Fatal(err)
	}

	s := testStore([]Backend{&ExplicitRef{}, stored})
	rec := s.Load()
	if rec == nil || rec.ProjectID != "p1" {
		t.Errorf("Load() = %+v, want the stored record", rec)
	}
}

func TestExpiredRecordIgnored(t *testing.T) {
	dir := t.TempDir()
	stored := NewFileBackend("state", filepath.Join(dir, "session.json"))
	if err := stored.Save(Record{
		ProjectID:   "p1",
		ProjectName: "Old",
		Timestamp:   time.Now().Add(-25 * time.Hour),
	}); err != nil {
		t.Fatal(err)
	}

	s := testStore([]Backend{stored})
	if rec := s.Load(); rec != nil {
		t.Errorf("Load() = %+v, want nil for a record older than 24h", rec)
	}
}

func TestFreshRecordJustInsideWindow(t *testing.T) {
	dir := t.TempDir()
	stored := NewFileBackend("state", filepath.Join(dir, "session.json"))
	if err := stored.Save(Record{
		ProjectID: "p1",
		Timestamp: time.Now().Add(-23 * time.Hour),
	}); err != nil {
		t.Fatal(err)
	}

	s := testStore([]Backend{stored})
	if rec := s.Load(); rec == nil || rec.ProjectID != "p1" {
		t.Errorf("Load() = %+v, want the 23h-old record", rec)
	}
}

// failingBackend always errors, standing in for unavailable storage
// (quota, permissions). It must never take the other tiers down.
type failingBackend struct{}

func (failingBackend) Name() string      { return "failing" }
func (failingBackend) Save(Record) error { return errors.New("storage unavailable") }
func (failingBackend) Clear() error      { return errors.New("storage unavailable") }

func (failingBackend) Load() (Record, error) {
	return Record{}, errors.New("storage unavailable")
}

func TestSaveIsBestEffortPerTier(t *testing.T) {
	dir := t.TempDir()
	good := NewFileBackend("state", filepath.Join(dir, "session.json"))
	s := testStore([]Backend{failingBackend{}, good})

	if !s.Save("p1", "Name") {
		t.Error("Save() = false, want true when one tier succeeds")
	}

	rec, err := good.Load()
	if err != nil || rec.ProjectID != "p1" {
		t.Errorf("good tier did not receive the record: %+v, %v", rec, err)
	}
}

func TestSaveAllTiersFail(t *testing.T) {
	s := testStore([]Backend{failingBackend{}, failingBackend{}})
	if s.Save("p1", "Name") {
		t.Error("Save() = true, want false when every tier fails")
	}
}

func TestLoadSkipsFailingTier(t *testing.T) {
	dir := t.TempDir()
	good := NewFileBackend("state", filepath.Join(dir, "session.json"))
	if err := good.Save(Record{ProjectID: "p1", Timestamp: time.Now()}); err != nil {
		t.Fatal(err)
	}

	s := testStore([]Backend{failingBackend{}, good})
	if rec := s.Load(); rec == nil || rec.ProjectID != "p1" {
		t.Errorf("Load() = %+v, want record from the healthy tier", rec)
	}
}

func TestClearSurvivesFailingTier(t *testing.T) {
	dir := t.TempDir()
	good := NewFileBackend("state", filepath.Join(dir, "session.json"))
	if err := good.Save(Record{ProjectID: "p1", Timestamp: time.Now()}); err != nil {
		t.Fatal(err)
	}

	s := testStore([]Backend{failingBackend{}, good})
	s.Clear()

	if _, err := good.Load(); !errors.Is(err, ErrNoRecord) {
		t.Errorf("healthy tier still holds a record after Clear(): %v", err)
	}
}

func TestSessionKeyEnvOverride(t *testing.T) {
	t.Setenv("EMBERGLOW_SESSION_KEY", "term-42")
	if got := SessionKey(); got != "term-42" {
		t.Errorf("SessionKey() = %s, want term-42", got)
	}
}
