package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/emberglow-cli/internal/api"
)

var textCmd = &cobra.Command{
	Use:   "text",
	Short: "Show the normalized script text used for generation",
	Long: `Print the script as the server normalized it: numbers and
abbreviations expanded, the text the voice actually reads. Useful when
a chunk sounds wrong and you want to see what was fed to it.`,
	Args: cobra.NoArgs,
	RunE: runText,
}

func runText(cmd *cobra.Command, args []string) error {
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

	text, err := a.client.NormalizedText(ctx, id)
	if err != nil {
		if api.IsNotFound(err) {
			a.sessions.Clear()
			return fmt.Errorf("project %s no longer exists on the server", id)
		}
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}
