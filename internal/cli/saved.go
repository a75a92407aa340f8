package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var savedCmd = &cobra.Command{
	Use:   "saved",
	Short: "Manage audio saved on the server",
}

var savedListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved audio",
	Args:  cobra.NoArgs,
	RunE:  runSavedList,
}

var savedGetCmd = &cobra.Command{
	Use:   "get <filename>",
	Short: "Download a saved audio file",
	Args:  cobra.ExactArgs(1),
	RunE:  runSavedGet,
}

var savedDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a saved audio entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runSavedDelete,
}

func init() {
	savedCmd.AddCommand(savedListCmd, savedGetCmd, savedDeleteCmd)
}

func runSavedList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	saved, err := a.client.ListSavedAudio(ctx)
	if err != nil {
		return err
	}

	if len(saved) == 0 {
		fmt.Fprintln(out, "no saved audio")
		return nil
	}
	for _, s := range saved {
		fmt.Fprintf(out, "%-36s  %-24s  %s  %s\n", s.ID, s.DisplayName, s.Filename, s.CreatedAt)
	}
	return nil
}

func runSavedGet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	path, info, err := a.downloads.Final(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "saved %s (%s)\n", path, info.Duration().Round(time.Second))
	return nil
}

func runSavedDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.client.DeleteSavedAudio(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "deleted")
	return nil
}
