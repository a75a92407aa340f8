package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dgnsrekt/emberglow-cli/internal/orchestrator"
	"github.com/dgnsrekt/emberglow-cli/internal/project"
)

// watch follows orchestrator events as plain text until the project
// settles. A completed project is stitched and its final audio downloaded;
// a project in review prints the failing chunks and keeps the session so
// the user can fix them interactively.
func watch(ctx context.Context, a *app, out io.Writer) error {
	lastCompleted, lastStatus := -1, ""

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(out, "detached; the generation keeps running, use \"emberglow resume\" to re-attach")
			return nil

		case e := <-a.orch.Events():
			snap := a.orch.Snapshot()

			switch e.Kind {
			case orchestrator.EventUpdated:
				if snap.Project == nil {
					continue
				}
				completed, total := snap.Project.Progress()
				status := string(snap.Project.Status)
				if completed != lastCompleted || status != lastStatus {
					fmt.Fprintf(out, "%s: %d/%d chunks\n", status, completed, total)
					lastCompleted, lastStatus = completed, status
				}

			case orchestrator.EventChunkError:
				fmt.Fprintln(out, e.Message)

			case orchestrator.EventCancelled:
				fmt.Fprintln(out, "project cancelled")
				return nil

			case orchestrator.EventError:
				return errors.New(e.Message)

			case orchestrator.EventDone:
				return settle(ctx, a, out)
			}
		}
	}
}

// settle finishes a headless run once generation stops.
func settle(ctx context.Context, a *app, out io.Writer) error {
	snap := a.orch.Snapshot()
	if snap.Project == nil {
		return nil
	}

	switch snap.Project.Status {
	case project.StatusCompleted:
		filename, err := a.orch.Stitch(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "stitched: %s\n", filename)

		path, info, err := a.downloads.Final(ctx, filename)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "saved %s (%s)\n", path, info.Duration().Round(time.Second))
		return nil

	case project.StatusReview:
		fmt.Fprintln(out, "some chunks failed:")
		for _, ch := range snap.Project.Chunks {
			if ch.Status == project.ChunkFailed {
				fmt.Fprintf(out, "  %s\n", chunkLabel(ch))
			}
		}
		fmt.Fprintln(out, "run \"emberglow resume\" to regenerate them interactively")
		return fmt.Errorf("%d chunks need attention", countFailed(snap.Project))

	case project.StatusFailed:
		msg := "generation failed"
		if snap.Err != "" {
			msg += ": " + snap.Err
		}
		return errors.New(msg)

	default:
		fmt.Fprintf(out, "generation stopped in state %s\n", snap.Project.Status)
		return nil
	}
}

func countFailed(p *project.Project) int {
	n := 0
	for _, ch := range p.Chunks {
		if ch.Status == project.ChunkFailed {
			n++
		}
	}
	return n
}
