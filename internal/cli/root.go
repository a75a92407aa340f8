// Package cli wires the emberglow commands: starting and resuming
// generations, watching progress, and managing voices and saved audio.
package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/emberglow-cli/internal/api"
	"github.com/dgnsrekt/emberglow-cli/internal/config"
	"github.com/dgnsrekt/emberglow-cli/internal/download"
	"github.com/dgnsrekt/emberglow-cli/internal/history"
	"github.com/dgnsrekt/emberglow-cli/internal/logging"
	"github.com/dgnsrekt/emberglow-cli/internal/orchestrator"
	"github.com/dgnsrekt/emberglow-cli/internal/poll"
	"github.com/dgnsrekt/emberglow-cli/internal/session"
)

var (
	flagProject string
	flagName    string
)

var rootCmd = &cobra.Command{
	Use:   "emberglow",
	Short: "Long-form text-to-speech generation client",
	Long: `emberglow drives a long-form TTS backend: it submits scripts,
watches chunked generation progress, regenerates bad chunks and
stitches the result into one audio file.

A running generation survives the CLI: the project reference is kept
locally, so "emberglow resume" picks up where you left off. Pass
--project (or set EMBERGLOW_PROJECT) to attach to a specific project.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagProject, "project", "", "Attach to a specific project ID instead of the stored session")
	rootCmd.PersistentFlags().StringVar(&flagName, "name", "", "Display name for the project")

	rootCmd.AddCommand(
		generateCmd,
		resumeCmd,
		statusCmd,
		cancelCmd,
		stitchCmd,
		downloadCmd,
		voicesCmd,
		savedCmd,
		historyCmd,
		textCmd,
	)
}

// Execute runs the root command under ctx; a cancelled ctx aborts the
// running command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// app holds the assembled client stack shared by all commands.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	client    *api.Client
	sessions  *session.Store
	history   *history.Store
	orch      *orchestrator.Orchestrator
	downloads *download.Downloader
}

// newApp loads configuration and builds the client stack. The explicit
// project reference, when given, becomes the highest-priority session
// tier so it wins over any stored pointer.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	client := api.NewClient(api.Config{
		BaseURL:         cfg.APIURL,
		StatusTimeout:   cfg.StatusTimeout,
		GenerateTimeout: cfg.GenerateTimeout,
	}, logger)

	explicit := &session.ExplicitRef{
		ProjectID:   flagProject,
		ProjectName: flagName,
	}
	if explicit.ProjectID == "" {
		explicit.ProjectID = os.Getenv("EMBERGLOW_PROJECT")
	}
	if explicit.ProjectName == "" {
		explicit.ProjectName = os.Getenv("EMBERGLOW_PROJECT_NAME")
	}
	sessions := session.New(session.DefaultBackends(explicit, cfg.StateDir), cfg.SessionMaxAge, logger)

	// History is a convenience; a broken local database must not block
	// generation.
	hist, err := history.Open(ctx, cfg.HistoryPath, logger)
	if err != nil {
		logger.Warn("history store unavailable", "path", cfg.HistoryPath, "error", err)
		hist = nil
	}

	orch := orchestrator.New(client, sessions, hist, orchestrator.Options{
		MinScriptWords: cfg.MinScriptWords,
		Poll: poll.Options{
			Interval:     cfg.PollInterval,
			FastInterval: cfg.FastPollInterval,
			BusyInterval: cfg.BusyRetryInterval,
			IsTransient:  api.IsBusy,
		},
	}, logger)

	return &app{
		cfg:       cfg,
		logger:    logger,
		client:    client,
		sessions:  sessions,
		history:   hist,
		orch:      orch,
		downloads: download.New(client, cfg.DownloadDir, logger),
	}, nil
}

func (a *app) close() {
	a.orch.Close()
	if a.history != nil {
		a.history.Close()
	}
}

// resolveProject returns the project to act on: the explicit flag wins,
// then the stored session pointer.
func (a *app) resolveProject() (id, name string, ok bool) {
	if rec := a.sessions.Load(); rec != nil {
		return rec.ProjectID, rec.ProjectName, true
	}
	return "", "", false
}
