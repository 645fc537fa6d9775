package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrationStatements = []string{
	`DO $$ BEGIN CREATE TYPE practice_status AS ENUM ('running', 'completed', 'abandoned'); EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
	`CREATE TABLE IF NOT EXISTS practices (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		interview_id TEXT NOT NULL,
		question_source TEXT NOT NULL DEFAULT '',
		question_count INTEGER NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		ended_at TIMESTAMPTZ,
		status practice_status NOT NULL DEFAULT 'running',
		report_url TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_practices_interview ON practices (interview_id, started_at DESC)`,
	`CREATE TABLE IF NOT EXISTS attempts (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		practice_id UUID NOT NULL REFERENCES practices(id) ON DELETE CASCADE,
		question_index INTEGER NOT NULL,
		question TEXT NOT NULL,
		realtime_session_id TEXT NOT NULL,
		transcript TEXT NOT NULL,
		word_count INTEGER NOT NULL,
		clarity INTEGER NOT NULL,
		confidence INTEGER NOT NULL,
		structure INTEGER NOT NULL,
		relevance INTEGER NOT NULL,
		summary TEXT NOT NULL DEFAULT '',
		tips TEXT[] NOT NULL DEFAULT '{}',
		submitted_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_attempts_practice ON attempts (practice_id, question_index, submitted_at)`,
}

func RunMigration(ctx context.Context, pool *pgxpool.Pool) error {
	for i, s := range migrationStatements {
		stmt := strings.TrimSpace(s)
		if stmt == "" {
			continue
		}
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration statement %d: %w", i, err)
		}
	}
	return nil
}
