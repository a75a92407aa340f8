// Package download saves generated audio files from the backend to local
// disk and sanity-checks them as WAV.
package download

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/dgnsrekt/emberglow-cli/internal/project"
	"github.com/dgnsrekt/emberglow-cli/internal/wav"
)

// maxParallelChunks bounds concurrent chunk downloads so a long project
// does not open one connection per chunk.
const maxParallelChunks = 4

// AudioFetcher streams one generated audio file. *api.Client implements it.
type AudioFetcher interface {
	DownloadAudio(ctx context.Context, filename string, w io.Writer) (int64, error)
}

// Downloader fetches audio into a local directory.
type Downloader struct {
	fetcher AudioFetcher
	dir     string
	logger  *slog.Logger
}

// New creates a downloader writing into dir.
func New(fetcher AudioFetcher, dir string, logger *slog.Logger) *Downloader {
	return &Downloader{fetcher: fetcher, dir: dir, logger: logger}
}

// Final downloads one audio file by name and returns its local path and
// probed WAV info.
func (d *Downloader) Final(ctx context.Context, filename string) (string, wav.Info, error) {
	path, err := d.fetchOne(ctx, filename)
	if err != nil {
		return "", wav.Info{}, err
	}

	info, err := probe(path)
	if err != nil {
		return path, wav.Info{}, fmt.Errorf("downloaded file %s is not valid audio: %w", filename, err)
	}

	d.logger.Info("audio downloaded", "file", path, "duration", info.Duration())
	return path, info, nil
}

// Chunks downloads every completed chunk of p in parallel, bounded by
// maxParallelChunks. Returns local paths in chunk order; chunks without
// audio are skipped.
func (d *Downloader) Chunks(ctx context.Context, p *project.Project) ([]string, error) {
	paths := make([]string, len(p.Chunks))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelChunks)

	for i, c := range p.Chunks {
		if c.Status != project.ChunkCompleted || c.AudioFilename == "" {
			continue
		}
		i, filename := i, c.AudioFilename
		g.Go(func() error {
			path, err := d.fetchOne(ctx, filename)
			if err != nil {
				return fmt.Errorf("chunk %d: %w", i, err)
			}
			paths[i] = path
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p != "" {
			out = append(out, p)
		}
	}
	return out, nil
}

func (d *Downloader) fetchOne(ctx context.Context, filename string) (string, error) {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}

	path := filepath.Join(d.dir, filepath.Base(filename))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}

	if _, err := d.fetcher.DownloadAudio(ctx, filename, f); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}

func probe(path string) (wav.Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return wav.Info{}, err
	}
	defer f.Close()

	header := make([]byte, wav.HeaderSize)
	if _, err := io.ReadFull(f, header); err != nil {
		return wav.Info{}, wav.ErrTooShort
	}

	info, err := wav.Parse(header)
	if err != nil {
		return wav.Info{}, err
	}

	// Parse clamps DataSize to the bytes it was handed; restore the real
	// size from the file length.
	if fi, err := f.Stat(); err == nil {
		if size := int(fi.Size()) - wav.HeaderSize; size >= 0 {
			info.DataSize = size
		}
	}
	return info, nil
}
