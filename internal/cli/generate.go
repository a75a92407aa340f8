package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/emberglow-cli/internal/orchestrator"
)

var (
	generateVoice       string
	generateTemperature float64
	generateTopP        float64
	generateNoNormalize bool
	generateNoUI        bool
)

var generateCmd = &cobra.Command{
	Use:   "generate [script-file]",
	Short: "Start a new generation from a script file or stdin",
	Long: `Start a new long-form generation. The script is read from the given
file, or from stdin when no file is given.

With a terminal attached, an interactive view shows per-chunk progress
and offers regeneration, cancellation and stitching. With --no-ui the
command watches headlessly, stitches when every chunk completes and
downloads the final audio.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&generateVoice, "voice", "", "Voice ID (default: the configured default voice)")
	generateCmd.Flags().Float64Var(&generateTemperature, "temperature", 0, "Sampling temperature, 0.1 to 1.0")
	generateCmd.Flags().Float64Var(&generateTopP, "top-p", 0, "Nucleus sampling cutoff, 0.1 to 1.0")
	generateCmd.Flags().BoolVar(&generateNoNormalize, "no-normalize", false, "Skip server-side text normalization")
	generateCmd.Flags().BoolVar(&generateNoUI, "no-ui", false, "Watch progress as plain text instead of the interactive view")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	script, name, err := readScript(args)
	if err != nil {
		return err
	}
	if flagName != "" {
		name = flagName
	}
	if name == "" {
		return fmt.Errorf("no project name: pass --name when reading from stdin")
	}

	req := orchestrator.StartRequest{
		Script:        script,
		VoiceID:       generateVoice,
		Name:          name,
		Temperature:   generateTemperature,
		TopP:          generateTopP,
		AutoNormalize: !generateNoNormalize,
	}
	if req.VoiceID == "" {
		req.VoiceID = a.cfg.DefaultVoice
	}
	if !cmd.Flags().Changed("temperature") {
		req.Temperature = a.cfg.Temperature
	}
	if !cmd.Flags().Changed("top-p") {
		req.TopP = a.cfg.TopP
	}
	if !cmd.Flags().Changed("no-normalize") {
		req.AutoNormalize = a.cfg.AutoNormalize
	}

	if err := a.orch.Start(ctx, req); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "project started: %s\n", a.orch.Snapshot().Project.ID)

	if generateNoUI {
		return watch(ctx, a, cmd.OutOrStdout())
	}
	return runTUI(ctx, a)
}

// readScript loads the script text and derives a fallback project name
// from the filename.
func readScript(args []string) (script, name string, err error) {
	if len(args) == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", fmt.Errorf("read script from stdin: %w", err)
		}
		return string(data), "", nil
	}

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("read script: %w", err)
	}

	base := filepath.Base(path)
	name = strings.TrimSuffix(base, filepath.Ext(base))
	return string(data), name, nil
}
