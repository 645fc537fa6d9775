package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	audioimpl "github.com/foxseedlab/shadowinterview/external/audio"
	backendimpl "github.com/foxseedlab/shadowinterview/external/backend"
	repositoryimpl "github.com/foxseedlab/shadowinterview/external/repository"
	speechimpl "github.com/foxseedlab/shadowinterview/external/speech"
	streamimpl "github.com/foxseedlab/shadowinterview/external/stream"
	"github.com/foxseedlab/shadowinterview/external/terminal"
	"github.com/foxseedlab/shadowinterview/internal/audio"
	"github.com/foxseedlab/shadowinterview/internal/config"
	"github.com/foxseedlab/shadowinterview/internal/repository"
	"github.com/foxseedlab/shadowinterview/internal/session"
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"
)

const loadTimeout = 30 * time.Second

func newPracticeCmd() *cobra.Command {
	var interviewID string
	cmd := &cobra.Command{
		Use:   "practice",
		Short: "Run an interview practice session against the interview service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("config validation failed: %w", err)
			}
			return runPractice(cmd.Context(), cfg, interviewID, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&interviewID, "interview-id", "i", "", "interview to practice")
	_ = cmd.MarkFlagRequired("interview-id")
	return cmd
}

func setupPracticeDI(cfg *config.Config) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	repositoryimpl.RegisterDI(injector)
	audioimpl.RegisterDI(injector)
	speechimpl.RegisterDI(injector)
	streamimpl.RegisterDI(injector)
	backendimpl.RegisterDI(injector)
	session.RegisterDI(injector)

	return injector
}

func runPractice(parent context.Context, cfg *config.Config, interviewID string, out io.Writer) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("startup: building dependency graph")
	injector := setupPracticeDI(cfg)
	orch, err := do.Invoke[*session.Orchestrator](injector)
	if err != nil {
		return fmt.Errorf("failed to resolve orchestrator: %w", err)
	}
	defer closeDevices(injector)

	loadCtx, cancel := context.WithTimeout(ctx, loadTimeout)
	err = orch.LoadInterview(loadCtx, interviewID)
	cancel()
	if err != nil {
		fmt.Fprintln(out, terminal.RenderSnapshot(orch.Snapshot()))
		return fmt.Errorf("failed to load interview %s: %w", interviewID, err)
	}

	res, err := terminal.NewConsole(orch, terminal.NewPromptuiPrompter(), out).Run(ctx)
	if err != nil {
		return err
	}
	if res.ReportURL != "" {
		fmt.Fprintf(out, "Full report: %s\n", res.ReportURL)
	}

	if practiceID := orch.PracticeID(); practiceID != "" {
		repo := do.MustInvoke[repository.Repository](injector)
		if err := printPracticeReport(context.Background(), repo, practiceID, out); err != nil {
			slog.Warn("failed to print practice report", "error", err, "practice_id", practiceID)
		}
	}
	return nil
}

func closeDevices(injector do.Injector) {
	devices, err := do.Invoke[audio.Devices](injector)
	if err != nil {
		return
	}
	if c, ok := devices.(interface{ Close() }); ok {
		c.Close()
	}
}
