package interview

import (
	"context"
	"fmt"
	"math"
)

type Interview struct {
	ID                   string
	Questions            []string
	CurrentQuestionIndex int
	// Source is the backend provenance tag when provided ("ai" or "fallback").
	Source string
}

type NextQuestion struct {
	Done     bool
	Question string
	// Index is nil when the service omits it; the cursor then moves forward by one.
	Index *int
	Total int
}

type RealtimeSession struct {
	SessionID string
	StreamURL string
}

type SubmitAnswerInput struct {
	SessionID     string
	Transcript    string
	QuestionIndex int
}

type Feedback struct {
	Clarity    int
	Confidence int
	Structure  int
	Relevance  int
	Summary    string
	Tips       []string
}

type FinalizeResult struct {
	ReportURL string
}

type Client interface {
	GetInterview(ctx context.Context, interviewID string) (*Interview, error)
	NextQuestion(ctx context.Context, interviewID string) (*NextQuestion, error)
	StartRealtime(ctx context.Context, interviewID string) (*RealtimeSession, error)
	SubmitAnswer(ctx context.Context, interviewID string, input SubmitAnswerInput) (*Feedback, error)
	Finalize(ctx context.Context, interviewID string) (*FinalizeResult, error)
}

// APIError is returned for non-2xx responses from the interview service.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: backend returned status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: backend returned status %d: %s", e.Op, e.StatusCode, e.Body)
}

// RoundScore rounds a score reported with a fractional part to the nearest
// integer; clamping is left to Normalized.
func RoundScore(v float64) int {
	return int(math.Round(v))
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Normalized returns a copy with every score clamped to 0-100.
func (f Feedback) Normalized() Feedback {
	f.Clarity = clampScore(f.Clarity)
	f.Confidence = clampScore(f.Confidence)
	f.Structure = clampScore(f.Structure)
	f.Relevance = clampScore(f.Relevance)
	if f.Tips == nil {
		f.Tips = []string{}
	}
	return f
}
