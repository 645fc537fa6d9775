package main

import (
	"context"
	"io"
	"log/slog"
	"os"

	configloader "github.com/foxseedlab/shadowinterview/external/config"
	"github.com/foxseedlab/shadowinterview/internal/config"
	"github.com/spf13/cobra"
)

const app = "shadowinterview"

var rootCmd = &cobra.Command{
	Use:           app,
	Short:         "shadowinterview runs spoken mock interviews with live transcription and scored feedback",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.AddCommand(newPracticeCmd(), newRelayCmd(), newReportCmd())
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// loadConfig loads the environment and installs the default logger on logOut.
// Commands that draw on stdout log to stderr.
func loadConfig(logOut io.Writer) (*config.Config, error) {
	slog.Info("startup: loading configuration")
	cfg, err := configloader.Load()
	if err != nil {
		return nil, err
	}
	initLogger(cfg, logOut)
	slog.Info("startup: configuration loaded", "env", cfg.Env)
	return cfg, nil
}

func initLogger(cfg *config.Config, w io.Writer) {
	logLevel := slog.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: logLevel})))
}
