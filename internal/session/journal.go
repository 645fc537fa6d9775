package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/foxseedlab/shadowinterview/internal/interview"
	"github.com/foxseedlab/shadowinterview/internal/repository"
)

func (o *Orchestrator) journalContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), journalTimeout)
}

func (o *Orchestrator) startPractice(sess *InterviewSession) {
	if o.journal == nil {
		return
	}
	ctx, cancel := o.journalContext()
	defer cancel()
	p, err := o.journal.CreatePractice(ctx, repository.CreatePracticeInput{
		InterviewID:    sess.InterviewID,
		QuestionSource: string(sess.Source),
		QuestionCount:  len(sess.Questions),
		StartedAt:      time.Now(),
	})
	if err != nil {
		slog.Warn("failed to journal practice start", "error", err, "interview_id", sess.InterviewID)
		return
	}
	if p == nil {
		return
	}
	o.mu.Lock()
	o.practiceID = p.ID
	o.mu.Unlock()
	slog.Debug("practice journaled", "practice_id", p.ID, "interview_id", sess.InterviewID)
}

func (o *Orchestrator) recordAttempt(input interview.SubmitAnswerInput, question string, fb interview.Feedback) {
	if o.journal == nil {
		return
	}
	practiceID := o.PracticeID()
	if practiceID == "" {
		return
	}
	ctx, cancel := o.journalContext()
	defer cancel()
	err := o.journal.InsertAttempt(ctx, repository.InsertAttemptInput{
		PracticeID:        practiceID,
		QuestionIndex:     input.QuestionIndex,
		Question:          question,
		RealtimeSessionID: input.SessionID,
		Transcript:        input.Transcript,
		WordCount:         countWords(input.Transcript),
		Clarity:           fb.Clarity,
		Confidence:        fb.Confidence,
		Structure:         fb.Structure,
		Relevance:         fb.Relevance,
		Summary:           fb.Summary,
		Tips:              fb.Tips,
		SubmittedAt:       time.Now(),
	})
	if err != nil {
		slog.Warn("failed to journal attempt", "error", err, "practice_id", practiceID, "question_index", input.QuestionIndex)
	}
}

func (o *Orchestrator) completePractice(outcome repository.PracticeStatus, reportURL string) {
	if o.journal == nil {
		return
	}
	practiceID := o.PracticeID()
	if practiceID == "" {
		return
	}
	ctx, cancel := o.journalContext()
	defer cancel()
	if err := o.journal.CompletePractice(ctx, repository.CompletePracticeInput{
		PracticeID: practiceID,
		EndedAt:    time.Now(),
		Status:     outcome,
		ReportURL:  reportURL,
	}); err != nil {
		slog.Warn("failed to journal practice completion", "error", err, "practice_id", practiceID)
	}
}
