package repository

import (
	"context"

	"github.com/foxseedlab/shadowinterview/internal/repository"
)

// NoopRepository is used when no database is configured. Practice IDs stay
// empty so the orchestrator skips attempt and completion writes.
type NoopRepository struct{}

func NewNoopRepository() repository.Repository {
	return NoopRepository{}
}

func (NoopRepository) CreatePractice(context.Context, repository.CreatePracticeInput) (*repository.Practice, error) {
	return nil, nil
}

func (NoopRepository) CompletePractice(context.Context, repository.CompletePracticeInput) error {
	return nil
}

func (NoopRepository) GetPractice(context.Context, string) (*repository.Practice, error) {
	return nil, repository.ErrPracticeNotFound
}

func (NoopRepository) InsertAttempt(context.Context, repository.InsertAttemptInput) error {
	return nil
}

func (NoopRepository) ListAttemptsByPracticeID(context.Context, string) ([]repository.Attempt, error) {
	return nil, nil
}
