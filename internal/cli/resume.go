package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var resumeNoUI bool

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Re-attach to a running or reviewable generation",
	Long: `Re-attach to a generation started earlier. The project reference is
taken from --project / EMBERGLOW_PROJECT, the stored session file, or,
when neither exists, from the server's own list of active projects.`,
	Args: cobra.NoArgs,
	RunE: runResume,
}

func init() {
	resumeCmd.Flags().BoolVar(&resumeNoUI, "no-ui", false, "Watch progress as plain text instead of the interactive view")
}

func runResume(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	id, name, ok := a.resolveProject()
	if !ok {
		// Local storage gone; the server may still know about our job.
		active, err := a.orch.DiscoverActive(ctx)
		if err != nil {
			return fmt.Errorf("no stored session and discovery failed: %w", err)
		}
		if active == nil {
			return errors.New("nothing to resume")
		}
		id, name = active.ID, active.Name
		fmt.Fprintf(cmd.OutOrStdout(), "recovered active project %s from the server\n", id)
	}

	if err := a.orch.Resume(ctx, id, name); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "resumed project %s\n", id)

	if resumeNoUI {
		return watch(ctx, a, cmd.OutOrStdout())
	}
	return runTUI(ctx, a)
}
