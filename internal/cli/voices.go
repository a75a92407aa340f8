package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var voicesCmd = &cobra.Command{
	Use:   "voices",
	Short: "List selectable voices",
	Args:  cobra.NoArgs,
	RunE:  runVoices,
}

func runVoices(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	voices, err := a.client.ListVoices(ctx)
	if err != nil {
		return err
	}

	theme := newTUITheme()
	for _, v := range voices {
		line := fmt.Sprintf("%-24s %s", v.ID, v.Name)
		if len(v.Tags) > 0 {
			line += "  [" + strings.Join(v.Tags, ", ") + "]"
		}
		if v.ID == a.cfg.DefaultVoice {
			fmt.Fprintln(out, theme.ok.Render(line+"  (default)"))
		} else {
			fmt.Fprintln(out, theme.text.Render(line))
		}
	}
	if len(voices) == 0 {
		fmt.Fprintln(out, "no voices available")
	}
	return nil
}
