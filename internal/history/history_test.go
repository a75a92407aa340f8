package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgnsrekt/emberglow-cli/internal/logging"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "history.db"), logging.New("error", "text"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	entries := []Entry{
		{ProjectID: "p1", DisplayName: "Chapter One", VoiceID: "smart_voice", Chunks: 4, FinalFilename: "p1_final.wav", CreatedAt: base},
		{ProjectID: "p2", DisplayName: "Chapter Two", VoiceID: "clone_ab12", Chunks: 7, FinalFilename: "p2_final.wav", CreatedAt: base.Add(time.Hour)},
	}
	for _, e := range entries {
		if err := s.Record(ctx, e); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	got, err := s.List(ctx, 10)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(List()) = %d, want 2", len(got))
	}
	// Newest first.
	if got[0].ProjectID != "p2" || got[1].ProjectID != "p1" {
		t.Errorf("order = %s, %s; want p2, p1", got[0].ProjectID, got[1].ProjectID)
	}
	if got[1].DisplayName != "Chapter One" || got[1].Chunks != 4 {
		t.Errorf("entry = %+v", got[1])
	}
	if got[0].ID == "" {
		t.Error("entry ID was not assigned")
	}
}

func TestListLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		e := Entry{ProjectID: "p", Chunks: 1, CreatedAt: time.Now().Add(time.Duration(i) * time.Minute)}
		if err := s.Record(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.List(ctx, 3)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 3 {
		t.Errorf("len(List(3)) = %d, want 3", len(got))
	}
}

func TestListEmpty(t *testing.T) {
	s := openTestStore(t)
	got, err := s.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("len(List()) = %d, want 0", len(got))
	}
}
