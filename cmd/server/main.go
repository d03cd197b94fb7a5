// Command server runs the dubbing job service's HTTP surface, following
// forPelevin-hlcut's thin cobra.Command -> run(cmd) shape: cobra parses
// flags, everything else is delegated to internal packages.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"media-dubber/internal/bootstrap"
	"media-dubber/internal/httpapi"
	"media-dubber/internal/wsapi"
)

const shutdownTimeout = 15 * time.Second

func main() {
	root := &cobra.Command{
		Use:          "server",
		Short:        "Run the dubbing job service's HTTP surface",
		SilenceUsage: true,
		RunE:         runServe,
	}
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	root.Flags().String("addr", envOrDefault("SERVER_ADDR", ":8080"), "listen address")
	root.Flags().String("version", envOrDefault("SERVER_VERSION", "dev"), "version string reported by /health")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	version, _ := cmd.Flags().GetString("version")

	app, err := bootstrap.New()
	if err != nil {
		return fmt.Errorf("bootstrap app: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	app.Start(ctx)

	e := httpapi.New(&httpapi.Server{
		Orchestrator: app.Orchestrator,
		TTS:          app.TTS,
		Diagnostics:  app.Diagnostics,
		Settings:     app.Settings,
		Version:      version,
		Logger:       app.Logger,
	})
	wsapi.New(&wsapi.Server{Events: app.Events, Logger: app.Logger})(e)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			app.Logger.Error("http server shutdown error", "error", err)
		}
	}()

	app.Logger.Info("listening", "addr", addr)
	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	app.Orchestrator.Wait()
	return nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
