package repository

import "time"

type PracticeStatus string

const (
	PracticeStatusRunning   PracticeStatus = "running"
	PracticeStatusCompleted PracticeStatus = "completed"
	PracticeStatusAbandoned PracticeStatus = "abandoned"
)

// Practice is one run through an interview from load until finalize or exit.
type Practice struct {
	ID             string
	InterviewID    string
	QuestionSource string
	QuestionCount  int
	StartedAt      time.Time
	EndedAt        *time.Time
	Status         PracticeStatus
	ReportURL      string
}

// Attempt is one scored answer.
type Attempt struct {
	ID                string
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
