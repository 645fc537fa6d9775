package repository

import (
	"context"
	"errors"
	"time"

	"github.com/foxseedlab/shadowinterview/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) repository.Repository {
	return &PostgresRepository{pool: pool}
}

const practiceColumns = `id, interview_id, question_source, question_count, started_at, ended_at, status::text, report_url`

func scanPractice(row pgx.Row) (*repository.Practice, error) {
	var p repository.Practice
	var endedAt *time.Time
	var status string
	if err := row.Scan(&p.ID, &p.InterviewID, &p.QuestionSource, &p.QuestionCount, &p.StartedAt, &endedAt, &status, &p.ReportURL); err != nil {
		return nil, err
	}
	p.EndedAt = endedAt
	p.Status = repository.PracticeStatus(status)
	return &p, nil
}

func (r *PostgresRepository) CreatePractice(ctx context.Context, input repository.CreatePracticeInput) (*repository.Practice, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO practices (interview_id, question_source, question_count, started_at, status)
		 VALUES ($1, $2, $3, $4, 'running')
		 RETURNING `+practiceColumns,
		input.InterviewID, input.QuestionSource, input.QuestionCount, input.StartedAt)
	return scanPractice(row)
}

func (r *PostgresRepository) CompletePractice(ctx context.Context, input repository.CompletePracticeInput) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE practices SET status = $2::text::practice_status, ended_at = $3, report_url = $4 WHERE id = $1`,
		input.PracticeID, string(input.Status), input.EndedAt, input.ReportURL)
	return err
}

func (r *PostgresRepository) GetPractice(ctx context.Context, practiceID string) (*repository.Practice, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+practiceColumns+` FROM practices WHERE id = $1`,
		practiceID)
	p, err := scanPractice(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrPracticeNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *PostgresRepository) InsertAttempt(ctx context.Context, input repository.InsertAttemptInput) error {
	tips := input.Tips
	if tips == nil {
		tips = []string{}
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO attempts (practice_id, question_index, question, realtime_session_id, transcript, word_count,
		 clarity, confidence, structure, relevance, summary, tips, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		input.PracticeID, input.QuestionIndex, input.Question, input.RealtimeSessionID, input.Transcript, input.WordCount,
		input.Clarity, input.Confidence, input.Structure, input.Relevance, input.Summary, tips, input.SubmittedAt)
	return err
}

func (r *PostgresRepository) ListAttemptsByPracticeID(ctx context.Context, practiceID string) ([]repository.Attempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, practice_id, question_index, question, realtime_session_id, transcript, word_count,
		 clarity, confidence, structure, relevance, summary, tips, submitted_at
		 FROM attempts WHERE practice_id = $1 ORDER BY question_index ASC, submitted_at ASC`,
		practiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []repository.Attempt
	for rows.Next() {
		var a repository.Attempt
		if err := rows.Scan(&a.ID, &a.PracticeID, &a.QuestionIndex, &a.Question, &a.RealtimeSessionID, &a.Transcript, &a.WordCount,
			&a.Clarity, &a.Confidence, &a.Structure, &a.Relevance, &a.Summary, &a.Tips, &a.SubmittedAt); err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}
