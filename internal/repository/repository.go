package repository

import (
	"context"
	"errors"
	"time"
)

var ErrPracticeNotFound = errors.New("practice not found")

type CreatePracticeInput struct {
	InterviewID    string
	QuestionSource string
	QuestionCount  int
	StartedAt      time.Time
}

type CompletePracticeInput struct {
	PracticeID string
	EndedAt    time.Time
	Status     PracticeStatus
	ReportURL  string
}

type InsertAttemptInput struct {
	PracticeID        string
	QuestionIndex     int
	Question          string
	RealtimeSessionID string
	Transcript        string
	WordCount         int
	Clarity           int
	Confidence        int
	Structure         int
	Relevance         int
	Summary           string
	Tips              []string
	SubmittedAt       time.Time
}

type PracticeRepository interface {
	CreatePractice(ctx context.Context, input CreatePracticeInput) (*Practice, error)
	CompletePractice(ctx context.Context, input CompletePracticeInput) error
	GetPractice(ctx context.Context, practiceID string) (*Practice, error)
}

type AttemptRepository interface {
	InsertAttempt(ctx context.Context, input InsertAttemptInput) error
	ListAttemptsByPracticeID(ctx context.Context, practiceID string) ([]Attempt, error)
}

// Repository is the practice journal. Journal writes never gate a session
// transition.
type Repository interface {
	PracticeRepository
	AttemptRepository
}
