package download

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/dgnsrekt/emberglow-cli/internal/logging"
	"github.com/dgnsrekt/emberglow-cli/internal/project"
	"github.com/dgnsrekt/emberglow-cli/internal/wav"
)

// fakeFetcher serves canned bodies by filename.
type fakeFetcher struct {
	files map[string][]byte
}

func (f *fakeFetcher) DownloadAudio(ctx context.Context, filename string, w io.Writer) (int64, error) {
	body, ok := f.files[filename]
	if !ok {
		return 0, errors.New("not found")
	}
	n, err := w.Write(body)
	return int64(n), err
}

func validWAV(samples int) []byte {
	return wav.WrapRawPCM(make([]byte, samples*2), 22050, 1, 16)
}

func TestFinal(t *testing.T) {
	dir := t.TempDir()
	fetcher := &fakeFetcher{files: map[string][]byte{
		"p1_final.wav": validWAV(22050),
	}}

	d := New(fetcher, dir, logging.New("error", "text"))
	path, info, err := d.Final(context.Background(), "p1_final.wav")
	if err != nil {
		t.Fatalf("Final() error = %v", err)
	}

	if path != filepath.Join(dir, "p1_final.wav") {
		t.Errorf("path = %s", path)
	}
	if info.SampleRate != 22050 {
		t.Errorf("SampleRate = %d, want 22050", info.SampleRate)
	}
	if info.DataSize != 22050*2 {
		t.Errorf("DataSize = %d, want %d", info.DataSize, 22050*2)
	}
}

func TestFinalRejectsNonWAV(t *testing.T) {
	dir := t.TempDir()
	fetcher := &fakeFetcher{files: map[string][]byte{
		"bad.wav": []byte("<html>504 Gateway Timeout</html>"),
	}}

	d := New(fetcher, dir, logging.New("error", "text"))
	if _, _, err := d.Final(context.Background(), "bad.wav"); err == nil {
		t.Error("Final() accepted a non-WAV body")
	}
}

func TestChunks(t *testing.T) {
	dir := t.TempDir()
	fetcher := &fakeFetcher{files: map[string][]byte{
		"p1_chunk_0.wav": validWAV(10),
		"p1_chunk_1.wav": validWAV(20),
		"p1_chunk_2.wav": validWAV(30),
	}}

	p := &project.Project{
		ID:     "p1",
		Status: project.StatusCompleted,
		Chunks: []project.Chunk{
			{Index: 0, Status: project.ChunkCompleted, AudioFilename: "p1_chunk_0.wav"},
			{Index: 1, Status: project.ChunkFailed}, // no audio, skipped
			{Index: 2, Status: project.ChunkCompleted, AudioFilename: "p1_chunk_2.wav"},
		},
	}

	d := New(fetcher, dir, logging.New("error", "text"))
	paths, err := d.Chunks(context.Background(), p)
	if err != nil {
		t.Fatalf("Chunks() error = %v", err)
	}

	want := []string{
		filepath.Join(dir, "p1_chunk_0.wav"),
		filepath.Join(dir, "p1_chunk_2.wav"),
	}
	if len(paths) != len(want) {
		t.Fatalf("len(paths) = %d, want %d", len(paths), len(want))
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("paths[%d] = %s, want %s", i, paths[i], want[i])
		}
		if _, err := os.Stat(paths[i]); err != nil {
			t.Errorf("missing downloaded file %s: %v", paths[i], err)
		}
	}
}

func TestChunksPropagatesFailure(t *testing.T) {
	dir := t.TempDir()
	fetcher := &fakeFetcher{files: map[string][]byte{
		"p1_chunk_0.wav": validWAV(10),
		// chunk 1 missing
	}}

	p := &project.Project{
		ID: "p1",
		Chunks: []project.Chunk{
			{Index: 0, Status: project.ChunkCompleted, AudioFilename: "p1_chunk_0.wav"},
			{Index: 1, Status: project.ChunkCompleted, AudioFilename: "p1_chunk_1.wav"},
		},
	}

	d := New(fetcher, dir, logging.New("error", "text"))
	if _, err := d.Chunks(context.Background(), p); err == nil {
		t.Error("Chunks() succeeded with a missing chunk file")
	}
}
