package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/emberglow-cli/internal/api"
	"github.com/dgnsrekt/emberglow-cli/internal/project"
)

var statusShowText bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current project's state without attaching",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusShowText, "text", false, "Also print the normalized script text")
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	id, name, ok := a.resolveProject()
	if !ok {
		fmt.Fprintln(out, "no active project")
		return nil
	}

	p, err := a.client.GetProject(ctx, id)
	switch {
	case api.IsNotFound(err):
		// The job is gone; the stale pointer goes with it.
		a.sessions.Clear()
		return fmt.Errorf("project %s no longer exists on the server", id)
	case api.IsBusy(err):
		fmt.Fprintf(out, "project %s: state file is being updated, try again shortly\n", id)
		return nil
	case err != nil:
		return err
	}

	theme := newTUITheme()
	title := "project " + id
	if name != "" {
		title = name + " (" + id + ")"
	}
	fmt.Fprintln(out, theme.title.Render(title))
	fmt.Fprintln(out, theme.statusStyle(string(p.Status)).Render(string(p.Status)))

	completed, total := p.Progress()
	fmt.Fprintf(out, "%d/%d chunks completed\n", completed, total)
	if p.WasNormalized {
		fmt.Fprintln(out, "script was normalized server-side")
	}
	for _, ch := range p.Chunks {
		fmt.Fprintln(out, "  "+theme.statusStyle(string(ch.Status)).Render(chunkLabel(ch)))
	}

	if statusShowText {
		text, err := a.client.NormalizedText(ctx, id)
		if err != nil {
			fmt.Fprintln(out, theme.muted.Render("normalized text unavailable: "+err.Error()))
		} else {
			fmt.Fprintln(out, theme.subtitle.Render("normalized text:"))
			fmt.Fprintln(out, text)
		}
	}

	switch p.Status {
	case project.StatusCancelled:
		a.sessions.Clear()
		fmt.Fprintln(out, "project was cancelled; session cleared")
	case project.StatusReview:
		fmt.Fprintln(out, "run \"emberglow resume\" to regenerate failed chunks")
	case project.StatusCompleted:
		fmt.Fprintln(out, "run \"emberglow stitch\" to produce the final audio")
	}
	return nil
}

var cancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Request cooperative cancellation of the current project",
	Long: `Ask the server to stop the current generation. Cancellation is
cooperative: the chunk being generated finishes first, then the project
drains to cancelled. "emberglow status" shows the drain.`,
	Args: cobra.NoArgs,
	RunE: runCancel,
}

func runCancel(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	id, _, ok := a.resolveProject()
	if !ok {
		return errors.New("no active project")
	}

	if err := a.client.Cancel(ctx, id); err != nil {
		if api.IsNotFound(err) {
			a.sessions.Clear()
			return fmt.Errorf("project %s no longer exists on the server", id)
		}
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "cancellation requested; the in-flight chunk finishes first")
	return nil
}

var stitchCmd = &cobra.Command{
	Use:   "stitch",
	Short: "Stitch a completed project into its final audio",
	Args:  cobra.NoArgs,
	RunE:  runStitch,
}

func runStitch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	id, name, ok := a.resolveProject()
	if !ok {
		return errors.New("no active project")
	}

	if err := a.orch.Resume(ctx, id, name); err != nil {
		return err
	}

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
}
