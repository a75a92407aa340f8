package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dgnsrekt/emberglow-cli/internal/cli"
)

func main() {
	// First Ctrl-C detaches gracefully; a second one kills the process.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx); err != nil {
		os.Stderr.WriteString("error: " + err.Error() + "\n")
		os.Exit(1)
	}
}
