// Command dub runs the interactive terminal mode described in spec.md
// §6, driving the same Orchestrator the HTTP service uses through a
// fixed sequence of stdin prompts.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"media-dubber/internal/bootstrap"
	"media-dubber/internal/cli"
)

func main() {
	root := &cobra.Command{
		Use:          "dub",
		Short:        "Interactively submit and watch a dubbing job",
		SilenceUsage: true,
		RunE:         runDub,
	}
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runDub(cmd *cobra.Command, args []string) error {
	app, err := bootstrap.New()
	if err != nil {
		return fmt.Errorf("bootstrap app: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	app.Start(ctx)

	driver := cli.New(app.Orchestrator, os.Stdin, os.Stdout)
	return driver.Run(ctx)
}
