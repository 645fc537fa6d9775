package session

import (
	"errors"

	"github.com/foxseedlab/shadowinterview/internal/interview"
)

var (
	ErrTransitionInFlight = errors.New("session transition already in flight")
	ErrEmptyTranscript    = errors.New("transcript is empty")
	ErrSessionComplete    = errors.New("session is complete")
	ErrNotLoaded          = errors.New("interview is not loaded")

	errSessionActive        = errors.New("an interview session is still active")
	errNoQuestions          = errors.New("interview has no questions")
	errQuestionOutOfRange   = errors.New("question index outside the question set")
	errQuestionIndexRegress = errors.New("backend returned an earlier question index")
)

type LifecycleState string

const (
	StateNotStarted     LifecycleState = "not_started"
	StateAwaitingSpeech LifecycleState = "awaiting_speech"
	StateRecording      LifecycleState = "recording"
	StateSubmitted      LifecycleState = "submitted"
	StateLoadingNext    LifecycleState = "loading_next"
	StateComplete       LifecycleState = "complete"
)

// InterviewSession is owned and mutated by the Orchestrator only.
type InterviewSession struct {
	InterviewID          string
	Questions            []string
	CurrentQuestionIndex int
	// CurrentQuestion is the text spoken for CurrentQuestionIndex. The backend
	// may reword a question when it advances.
	CurrentQuestion string
	Total           int
	Source          interview.QuestionSource
	State           LifecycleState
	Transcript      string
	Feedback        *interview.Feedback
	// SessionID is the realtime session of the current recording attempt.
	SessionID string
}
