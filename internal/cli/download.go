package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/emberglow-cli/internal/api"
)

var downloadChunks bool

var downloadCmd = &cobra.Command{
	Use:   "download [filename]",
	Short: "Download generated audio to the local download directory",
	Long: `Download a generated audio file by its server-side filename. With
--chunks and no filename, every completed chunk of the current project
is downloaded instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDownload,
}

func init() {
	downloadCmd.Flags().BoolVar(&downloadChunks, "chunks", false, "Download the current project's completed chunks")
}

func runDownload(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if len(args) == 1 {
		path, info, err := a.downloads.Final(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "saved %s (%s)\n", path, info.Duration().Round(time.Second))
		return nil
	}

	if !downloadChunks {
		return errors.New("give a filename, or --chunks for the current project's chunks")
	}

	id, _, ok := a.resolveProject()
	if !ok {
		return errors.New("no active project")
	}

	p, err := a.client.GetProject(ctx, id)
	if err != nil {
		if api.IsNotFound(err) {
			a.sessions.Clear()
			return fmt.Errorf("project %s no longer exists on the server", id)
		}
		return err
	}

	paths, err := a.downloads.Chunks(ctx, p)
	if err != nil {
		return err
	}
	for _, path := range paths {
		fmt.Fprintln(out, "saved "+path)
	}
	if len(paths) == 0 {
		fmt.Fprintln(out, "no completed chunks to download yet")
	}
	return nil
}
