package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past generations recorded locally",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum entries to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if a.history == nil {
		return errors.New("history store is unavailable")
	}

	entries, err := a.history.List(ctx, historyLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "no generations recorded yet")
		return nil
	}

	for _, e := range entries {
		name := e.DisplayName
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Fprintf(out, "%s  %-24s  %2d chunks  %-16s  %s\n",
			e.CreatedAt.Format("2006-01-02 15:04"), name, e.Chunks, e.VoiceID, e.FinalFilename)
	}
	return nil
}
