package main

import (
	"context"
	"fmt"
	"io"
	"time"

	repositoryimpl "github.com/foxseedlab/shadowinterview/external/repository"
	"github.com/foxseedlab/shadowinterview/internal/repository"
	"github.com/foxseedlab/shadowinterview/internal/session"
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"
)

func newReportCmd() *cobra.Command {
	var practiceID string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the journaled report of a practice run",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required to read practice reports")
			}
			injector := do.New()
			do.ProvideValue(injector, cfg)
			repositoryimpl.RegisterDI(injector)
			repo, err := do.Invoke[repository.Repository](injector)
			if err != nil {
				return fmt.Errorf("failed to resolve repository: %w", err)
			}
			return printPracticeReport(cmd.Context(), repo, practiceID, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&practiceID, "practice-id", "p", "", "practice run to report")
	_ = cmd.MarkFlagRequired("practice-id")
	return cmd
}

func printPracticeReport(ctx context.Context, repo repository.Repository, practiceID string, out io.Writer) error {
	p, err := repo.GetPractice(ctx, practiceID)
	if err != nil {
		return fmt.Errorf("load practice %s: %w", practiceID, err)
	}
	attempts, err := repo.ListAttemptsByPracticeID(ctx, practiceID)
	if err != nil {
		return fmt.Errorf("load attempts for practice %s: %w", practiceID, err)
	}
	meta := session.ReportMeta{
		InterviewID:    p.InterviewID,
		QuestionSource: p.QuestionSource,
		StartedAt:      p.StartedAt,
		EndedAt:        time.Now(),
		ReportURL:      p.ReportURL,
	}
	if p.EndedAt != nil {
		meta.EndedAt = *p.EndedAt
	}
	_, err = out.Write(session.BuildPracticeReport(meta, time.Local, attempts))
	return err
}
