package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/foxseedlab/shadowinterview/internal/audio"
	"github.com/foxseedlab/shadowinterview/internal/config"
	"github.com/foxseedlab/shadowinterview/internal/interview"
	"github.com/foxseedlab/shadowinterview/internal/repository"
	"github.com/foxseedlab/shadowinterview/internal/speech"
	"github.com/foxseedlab/shadowinterview/internal/transcriber"
)

const (
	defaultElapsedTick = time.Second
	journalTimeout     = 5 * time.Second
	preemptRetryDelay  = 5 * time.Millisecond
)

type SpeechOutput interface {
	Speak(text string) <-chan struct{}
	Stop()
	Speaking() bool
	AddObserver(o speech.Observer)
	RemoveObserver(o speech.Observer)
}

type CapturePipeline interface {
	Open(wantsVideo bool, sink audio.FrameSink) error
	SetUserMuted(muted bool)
	SetSpeechMuted(muted bool)
	Close()
}

// Orchestrator drives one interview session. At most one transition
// (load, advance, finalize, exit) runs at a time; concurrent calls are
// rejected with ErrTransitionInFlight. The mutex guards fields only and is
// never held while calling a collaborator.
type Orchestrator struct {
	cfg          *config.Config
	backend      interview.Client
	speech       SpeechOutput
	capture      CapturePipeline
	dialer       transcriber.Dialer
	journal      repository.Repository
	speechEvents *speechEvents

	inFlight atomic.Bool

	mu             sync.Mutex
	sess           *InterviewSession
	rec            *recording
	transition     *transition
	status         string
	userMuted      bool
	speaking       bool
	speechAttached bool
	observers      map[int]Observer
	nextObserverID int
	version        uint64
	practiceID     string
	finalized      bool
	result         interview.FinalizeResult
	done           chan struct{}
}

type transition struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// recording is one capture + stream attempt. Events from a recording that
// is no longer current are ignored.
type recording struct {
	sessionID      string
	stream         transcriber.Stream
	connected      bool
	startedAt      time.Time
	elapsedSeconds int
	ticks          int
	stopTick       chan struct{}
	stopOnce       sync.Once
}

func (r *recording) stopTicker() {
	r.stopOnce.Do(func() { close(r.stopTick) })
}

func NewOrchestrator(cfg *config.Config, backend interview.Client, speechOut SpeechOutput, capture CapturePipeline, dialer transcriber.Dialer, journal repository.Repository) *Orchestrator {
	o := &Orchestrator{
		cfg:       cfg,
		backend:   backend,
		speech:    speechOut,
		capture:   capture,
		dialer:    dialer,
		journal:   journal,
		observers: make(map[int]Observer),
		done:      make(chan struct{}),
	}
	o.speechEvents = &speechEvents{o: o}
	return o
}

// Done is closed once the interview has been finalized.
func (o *Orchestrator) Done() <-chan struct{} {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.done
}

func (o *Orchestrator) PracticeID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.practiceID
}

func (o *Orchestrator) beginTransition(ctx context.Context) (context.Context, func(), error) {
	if !o.inFlight.CompareAndSwap(false, true) {
		return nil, nil, ErrTransitionInFlight
	}
	ctx, cancel := context.WithCancel(ctx)
	t := &transition{cancel: cancel, done: make(chan struct{})}
	o.mu.Lock()
	o.transition = t
	o.mu.Unlock()
	end := func() {
		cancel()
		o.mu.Lock()
		if o.transition == t {
			o.transition = nil
		}
		o.mu.Unlock()
		o.inFlight.Store(false)
		close(t.done)
	}
	return ctx, end, nil
}

// preemptTransition cancels whatever transition is running, waits for it to
// unwind and then takes the guard.
func (o *Orchestrator) preemptTransition(ctx context.Context) (context.Context, func(), error) {
	for {
		tctx, end, err := o.beginTransition(ctx)
		if err == nil {
			return tctx, end, nil
		}
		o.mu.Lock()
		t := o.transition
		o.mu.Unlock()
		if t == nil {
			select {
			case <-time.After(preemptRetryDelay):
				continue
			case <-ctx.Done():
				return nil, nil, ctx.Err()
			}
		}
		t.cancel()
		select {
		case <-t.done:
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}
}

func (o *Orchestrator) LoadInterview(ctx context.Context, interviewID string) error {
	ctx, end, err := o.beginTransition(ctx)
	if err != nil {
		slog.Info("transition already in flight; dropping load", "interview_id", interviewID)
		return err
	}
	defer end()

	o.mu.Lock()
	if o.sess != nil && o.sess.State != StateNotStarted && o.sess.State != StateComplete {
		o.mu.Unlock()
		return errSessionActive
	}
	o.mu.Unlock()

	iv, err := o.backend.GetInterview(ctx, interviewID)
	if err == nil {
		err = checkLoadedInterview(iv)
	}
	if err != nil {
		o.setStatus(failureStatus(actionLoad, err))
		slog.Error("failed to load interview", "error", err, "interview_id", interviewID)
		return fmt.Errorf("load interview: %w", err)
	}

	questions := make([]string, len(iv.Questions))
	copy(questions, iv.Questions)
	source := interview.ClassifyQuestions(questions, iv.Source)
	sess := &InterviewSession{
		InterviewID:          interviewID,
		Questions:            questions,
		CurrentQuestionIndex: iv.CurrentQuestionIndex,
		CurrentQuestion:      questions[iv.CurrentQuestionIndex],
		Total:                len(questions),
		Source:               source,
		State:                StateNotStarted,
	}

	o.mu.Lock()
	o.sess = sess
	o.status = statusLoaded
	if o.finalized {
		o.done = make(chan struct{})
	}
	o.finalized = false
	o.result = interview.FinalizeResult{}
	o.practiceID = ""
	attach := !o.speechAttached
	o.speechAttached = true
	o.mu.Unlock()

	if attach {
		o.speech.AddObserver(o.speechEvents)
	}
	slog.Info("interview loaded", "interview_id", interviewID, "questions", len(questions), "question_index", sess.CurrentQuestionIndex, "question_source", source)
	o.startPractice(sess)
	o.notify()
	return nil
}

func checkLoadedInterview(iv *interview.Interview) error {
	if iv == nil || len(iv.Questions) == 0 {
		return errNoQuestions
	}
	if iv.CurrentQuestionIndex < 0 || iv.CurrentQuestionIndex >= len(iv.Questions) {
		return fmt.Errorf("%w: index %d of %d", errQuestionOutOfRange, iv.CurrentQuestionIndex, len(iv.Questions))
	}
	return nil
}

// Advance performs the primary action for the current lifecycle state.
func (o *Orchestrator) Advance(ctx context.Context) error {
	ctx, end, err := o.beginTransition(ctx)
	if err != nil {
		slog.Info("transition already in flight; dropping advance")
		return err
	}
	defer end()

	o.mu.Lock()
	sess := o.sess
	if sess == nil {
		o.mu.Unlock()
		return ErrNotLoaded
	}
	state := sess.State
	resumable := o.rec == nil && strings.TrimSpace(sess.Transcript) == ""
	finalized := o.finalized
	o.mu.Unlock()

	slog.Debug("advance requested", "interview_id", sess.InterviewID, "state", state)
	switch state {
	case StateNotStarted:
		return o.startQuestion(ctx)
	case StateRecording:
		if resumable {
			return o.resumeRecording(ctx)
		}
		return o.submitAnswer(ctx)
	case StateSubmitted:
		return o.nextQuestion(ctx)
	case StateComplete:
		if !finalized {
			_, err := o.finalize(ctx, repository.PracticeStatusCompleted)
			return err
		}
		return ErrSessionComplete
	default:
		return ErrTransitionInFlight
	}
}

func (o *Orchestrator) startQuestion(ctx context.Context) error {
	o.mu.Lock()
	sess := o.sess
	question := sess.CurrentQuestion
	idx := sess.CurrentQuestionIndex
	sess.State = StateAwaitingSpeech
	o.status = statusSpeaking
	o.mu.Unlock()
	o.notify()

	slog.Info("speaking question", "interview_id", sess.InterviewID, "question_index", idx)
	if err := o.speakAndWait(ctx, question); err != nil {
		o.restoreState(StateNotStarted, failureStatus(actionRecord, err))
		return fmt.Errorf("wait for question speech: %w", err)
	}
	if err := o.openRecording(ctx); err != nil {
		o.restoreState(StateNotStarted, failureStatus(actionRecord, err))
		slog.Error("failed to start recording", "error", err, "interview_id", sess.InterviewID, "question_index", idx)
		return err
	}
	return nil
}

func (o *Orchestrator) resumeRecording(ctx context.Context) error {
	if err := o.openRecording(ctx); err != nil {
		o.setStatus(failureStatus(actionRecord, err))
		slog.Error("failed to resume recording", "error", err)
		return err
	}
	return nil
}

// speakAndWait returns once speech ends. The done channel is authoritative;
// the grace period and bounded polling only cap how long a missing end event
// can hold the transition.
func (o *Orchestrator) speakAndWait(ctx context.Context, text string) error {
	done := o.speech.Speak(text)

	grace := time.NewTimer(o.cfg.SpeechGracePeriod)
	defer grace.Stop()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		o.speech.Stop()
		return ctx.Err()
	case <-grace.C:
	}

	poll := time.NewTicker(o.cfg.SpeechPollInterval)
	defer poll.Stop()
	for i := 0; i < o.cfg.SpeechPollMax; i++ {
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			o.speech.Stop()
			return ctx.Err()
		case <-poll.C:
			if !o.speech.Speaking() {
				return nil
			}
		}
	}
	slog.Warn("speech still active after wait limit; opening capture anyway", "wait_limit", o.cfg.SpeechWaitLimit())
	return nil
}

func (o *Orchestrator) openRecording(ctx context.Context) error {
	o.mu.Lock()
	interviewID := o.sess.InterviewID
	idx := o.sess.CurrentQuestionIndex
	o.status = statusOpening
	o.mu.Unlock()
	o.notify()

	rec := &recording{stopTick: make(chan struct{})}
	if err := o.capture.Open(o.cfg.AudioWantsVideo, o.frameSink(rec)); err != nil {
		return fmt.Errorf("open capture pipeline: %w", err)
	}
	rt, err := o.backend.StartRealtime(ctx, interviewID)
	if err != nil {
		o.closeCapture()
		return fmt.Errorf("start realtime session: %w", err)
	}
	rec.sessionID = rt.SessionID

	o.mu.Lock()
	o.rec = rec
	o.sess.SessionID = rt.SessionID
	o.mu.Unlock()

	stream, err := o.dialer.Connect(ctx, rt.StreamURL, o.cfg.AudioSampleRate, &streamEvents{o: o, rec: rec})
	if err != nil {
		o.mu.Lock()
		if o.rec == rec {
			o.rec = nil
		}
		o.mu.Unlock()
		o.closeCapture()
		return fmt.Errorf("connect transcription stream: %w", err)
	}

	o.mu.Lock()
	if o.rec != rec {
		o.mu.Unlock()
		o.bestEffort("close transcription stream", stream.Close)
		o.closeCapture()
		return fmt.Errorf("connect transcription stream: %w", transcriber.ErrStreamClosed)
	}
	rec.stream = stream
	rec.startedAt = time.Now()
	muted := o.userMuted || o.speaking
	o.sess.State = StateRecording
	o.status = statusRecording
	o.mu.Unlock()

	stream.SetMuted(muted)
	go o.tickElapsed(rec)
	slog.Info("recording started", "interview_id", interviewID, "question_index", idx, "session_id", rt.SessionID)
	o.notify()
	return nil
}

func (o *Orchestrator) frameSink(rec *recording) audio.FrameSink {
	return func(frame []byte) {
		o.mu.Lock()
		var stream transcriber.Stream
		if o.rec == rec {
			stream = rec.stream
		}
		o.mu.Unlock()
		if stream == nil {
			return
		}
		if err := stream.Send(frame); err != nil && !errors.Is(err, transcriber.ErrStreamClosed) {
			slog.Debug("failed to send audio frame", "error", err, "session_id", rec.sessionID)
		}
	}
}

func (o *Orchestrator) tickElapsed(rec *recording) {
	interval := o.cfg.ElapsedTickInterval
	if interval <= 0 {
		interval = defaultElapsedTick
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-rec.stopTick:
			return
		case <-ticker.C:
			o.mu.Lock()
			if o.rec != rec {
				o.mu.Unlock()
				return
			}
			rec.ticks++
			rec.elapsedSeconds = int(time.Since(rec.startedAt) / time.Second)
			o.mu.Unlock()
			o.notify()
		}
	}
}

func (o *Orchestrator) submitAnswer(ctx context.Context) error {
	o.mu.Lock()
	sess := o.sess
	rec := o.rec
	transcript := strings.TrimSpace(sess.Transcript)
	question := sess.CurrentQuestion
	input := interview.SubmitAnswerInput{
		SessionID:     sess.SessionID,
		Transcript:    transcript,
		QuestionIndex: sess.CurrentQuestionIndex,
	}
	if transcript == "" {
		o.status = statusEmptyTranscript
		o.mu.Unlock()
		o.notify()
		slog.Info("rejected empty answer submission", "interview_id", sess.InterviewID, "question_index", input.QuestionIndex)
		return ErrEmptyTranscript
	}
	o.status = statusSubmitting
	o.mu.Unlock()
	o.notify()

	o.teardownRecording(rec, "submit")
	fb, err := o.backend.SubmitAnswer(ctx, sess.InterviewID, input)
	if err != nil {
		o.setStatus(failureStatus(actionSubmit, err))
		slog.Error("failed to submit answer", "error", err, "interview_id", sess.InterviewID, "question_index", input.QuestionIndex)
		return fmt.Errorf("submit answer: %w", err)
	}
	normalized := fb.Normalized()

	o.mu.Lock()
	sess.Feedback = &normalized
	sess.State = StateSubmitted
	o.status = statusFeedback
	o.mu.Unlock()

	slog.Info("answer scored", "interview_id", sess.InterviewID, "question_index", input.QuestionIndex, "clarity", normalized.Clarity, "confidence", normalized.Confidence, "structure", normalized.Structure, "relevance", normalized.Relevance)
	o.recordAttempt(input, question, normalized)
	o.notify()
	return nil
}

func (o *Orchestrator) nextQuestion(ctx context.Context) error {
	o.mu.Lock()
	sess := o.sess
	prevIndex := sess.CurrentQuestionIndex
	sess.State = StateLoadingNext
	o.status = statusLoadingNext
	o.mu.Unlock()
	o.notify()

	nq, err := o.backend.NextQuestion(ctx, sess.InterviewID)
	nextIndex := prevIndex + 1
	if err == nil && !nq.Done {
		if nq.Index != nil {
			nextIndex = *nq.Index
		}
		err = checkNextIndex(nextIndex, prevIndex, len(sess.Questions))
	}
	if err != nil {
		o.restoreState(StateSubmitted, failureStatus(actionNext, err))
		slog.Error("failed to load next question", "error", err, "interview_id", sess.InterviewID, "question_index", prevIndex)
		return fmt.Errorf("fetch next question: %w", err)
	}
	if nq.Done {
		o.mu.Lock()
		sess.State = StateComplete
		o.mu.Unlock()
		slog.Info("interview question set exhausted", "interview_id", sess.InterviewID)
		_, err := o.finalize(ctx, repository.PracticeStatusCompleted)
		return err
	}

	question := nq.Question
	if question == "" {
		question = sess.Questions[nextIndex]
	}
	o.mu.Lock()
	sess.CurrentQuestionIndex = nextIndex
	sess.CurrentQuestion = question
	if nq.Total > 0 {
		sess.Total = nq.Total
	}
	sess.Transcript = ""
	sess.Feedback = nil
	sess.SessionID = ""
	o.mu.Unlock()

	return o.startQuestion(ctx)
}

func checkNextIndex(next, prev, count int) error {
	if next < prev {
		return fmt.Errorf("%w: %d after %d", errQuestionIndexRegress, next, prev)
	}
	if next >= count {
		return fmt.Errorf("%w: index %d of %d", errQuestionOutOfRange, next, count)
	}
	return nil
}

// Exit cancels any running transition, tears everything down, submits an
// unscored transcript best-effort and finalizes.
func (o *Orchestrator) Exit(ctx context.Context) (interview.FinalizeResult, error) {
	ctx, end, err := o.preemptTransition(ctx)
	if err != nil {
		return interview.FinalizeResult{}, err
	}
	defer end()

	o.mu.Lock()
	sess := o.sess
	if sess == nil {
		o.mu.Unlock()
		return interview.FinalizeResult{}, ErrNotLoaded
	}
	if o.finalized {
		res := o.result
		o.mu.Unlock()
		return res, nil
	}
	outcome := repository.PracticeStatusAbandoned
	if sess.State == StateComplete {
		outcome = repository.PracticeStatusCompleted
	}
	transcript := strings.TrimSpace(sess.Transcript)
	pending := transcript != "" && sess.Feedback == nil && sess.SessionID != ""
	question := sess.CurrentQuestion
	input := interview.SubmitAnswerInput{
		SessionID:     sess.SessionID,
		Transcript:    transcript,
		QuestionIndex: sess.CurrentQuestionIndex,
	}
	sess.State = StateComplete
	o.mu.Unlock()
	o.notify()

	slog.Info("exit requested", "interview_id", sess.InterviewID, "submit_pending", pending)
	o.teardownAll("exit")

	if pending {
		fb, err := o.backend.SubmitAnswer(ctx, sess.InterviewID, input)
		if err != nil {
			slog.Warn("best-effort submit on exit failed", "error", err, "interview_id", sess.InterviewID, "question_index", input.QuestionIndex)
		} else {
			normalized := fb.Normalized()
			o.mu.Lock()
			sess.Feedback = &normalized
			o.mu.Unlock()
			o.recordAttempt(input, question, normalized)
		}
	}
	return o.finalize(ctx, outcome)
}

// Finalize stops capture and speech and asks the backend to finalize.
func (o *Orchestrator) Finalize(ctx context.Context) (interview.FinalizeResult, error) {
	ctx, end, err := o.beginTransition(ctx)
	if err != nil {
		slog.Info("transition already in flight; dropping finalize")
		return interview.FinalizeResult{}, err
	}
	defer end()

	o.mu.Lock()
	sess := o.sess
	if sess == nil {
		o.mu.Unlock()
		return interview.FinalizeResult{}, ErrNotLoaded
	}
	outcome := repository.PracticeStatusAbandoned
	if sess.State == StateComplete {
		outcome = repository.PracticeStatusCompleted
	}
	sess.State = StateComplete
	o.mu.Unlock()
	return o.finalize(ctx, outcome)
}

// finalize expects the session to already be Complete. The backend is
// called until it succeeds once.
func (o *Orchestrator) finalize(ctx context.Context, outcome repository.PracticeStatus) (interview.FinalizeResult, error) {
	o.mu.Lock()
	sess := o.sess
	if o.finalized {
		res := o.result
		o.mu.Unlock()
		return res, nil
	}
	o.status = statusFinalizing
	o.mu.Unlock()
	o.notify()

	o.teardownAll("finalize")
	o.detachSpeech()

	res, err := o.backend.Finalize(ctx, sess.InterviewID)
	if err != nil {
		o.setStatus(failureStatus(actionFinalize, err))
		slog.Error("failed to finalize interview", "error", err, "interview_id", sess.InterviewID)
		return interview.FinalizeResult{}, fmt.Errorf("finalize interview: %w", err)
	}
	var result interview.FinalizeResult
	if res != nil {
		result = *res
	}

	o.mu.Lock()
	o.finalized = true
	o.result = result
	o.status = statusComplete
	done := o.done
	o.mu.Unlock()
	close(done)

	slog.Info("interview finalized", "interview_id", sess.InterviewID, "report_url", result.ReportURL, "outcome", outcome)
	o.completePractice(outcome, result.ReportURL)
	o.notify()
	return result, nil
}

// ReplayQuestion speaks the current question again. Capture stays gated
// while it plays.
func (o *Orchestrator) ReplayQuestion() error {
	o.mu.Lock()
	sess := o.sess
	if sess == nil {
		o.mu.Unlock()
		return ErrNotLoaded
	}
	if sess.State == StateComplete {
		o.mu.Unlock()
		return ErrSessionComplete
	}
	question := sess.CurrentQuestion
	idx := sess.CurrentQuestionIndex
	o.mu.Unlock()

	slog.Info("replaying question", "interview_id", sess.InterviewID, "question_index", idx)
	o.speech.Speak(question)
	return nil
}

// SetUserMuted sets the manual mute. Speech output keeps its own mute; the
// microphone is audible only when neither is set.
func (o *Orchestrator) SetUserMuted(muted bool) {
	o.mu.Lock()
	o.userMuted = muted
	stream := o.currentStreamLocked()
	speaking := o.speaking
	o.mu.Unlock()

	o.capture.SetUserMuted(muted)
	if stream != nil {
		stream.SetMuted(muted || speaking)
	}
	slog.Info("user mute changed", "muted", muted)
	o.notify()
}

func (o *Orchestrator) currentStreamLocked() transcriber.Stream {
	if o.rec == nil {
		return nil
	}
	return o.rec.stream
}

func (o *Orchestrator) onSpeech(speaking bool) {
	o.mu.Lock()
	o.speaking = speaking
	stream := o.currentStreamLocked()
	userMuted := o.userMuted
	o.mu.Unlock()

	o.capture.SetSpeechMuted(speaking)
	if stream != nil {
		stream.SetMuted(speaking || userMuted)
	}
	o.notify()
}

func (o *Orchestrator) detachSpeech() {
	o.mu.Lock()
	attached := o.speechAttached
	o.speechAttached = false
	o.mu.Unlock()
	if attached {
		o.speech.RemoveObserver(o.speechEvents)
	}
}

func (o *Orchestrator) appendTranscript(rec *recording, text string) {
	o.mu.Lock()
	if o.rec != rec || !rec.connected || o.sess == nil {
		o.mu.Unlock()
		return
	}
	o.sess.Transcript += text
	o.mu.Unlock()
	o.notify()
}

func (o *Orchestrator) handleStreamLoss(rec *recording, err error) {
	if !o.teardownRecording(rec, "stream closed") {
		return
	}
	if err != nil {
		slog.Warn("transcription stream ended unexpectedly", "error", err, "session_id", rec.sessionID)
	}
	o.setStatus(statusStreamClosed)
}

// teardownRecording releases rec if it is still current and reports whether
// it did.
func (o *Orchestrator) teardownRecording(rec *recording, reason string) bool {
	o.mu.Lock()
	if rec == nil || o.rec != rec {
		o.mu.Unlock()
		return false
	}
	o.rec = nil
	o.mu.Unlock()

	o.releaseRecording(rec)
	slog.Info("recording stopped", "session_id", rec.sessionID, "reason", reason)
	o.notify()
	return true
}

// teardownAll stops speech, closes the stream and closes capture regardless
// of lifecycle state. Each step runs even if an earlier one fails.
func (o *Orchestrator) teardownAll(reason string) {
	o.bestEffort("stop speech", func() error {
		o.speech.Stop()
		return nil
	})
	o.mu.Lock()
	rec := o.rec
	o.rec = nil
	o.mu.Unlock()
	if rec != nil {
		o.releaseRecording(rec)
	} else {
		o.closeCapture()
	}
	slog.Info("session resources released", "reason", reason)
}

func (o *Orchestrator) releaseRecording(rec *recording) {
	rec.stopTicker()
	if rec.stream != nil {
		o.bestEffort("close transcription stream", rec.stream.Close)
	}
	o.closeCapture()
}

func (o *Orchestrator) closeCapture() {
	o.bestEffort("close capture pipeline", func() error {
		o.capture.Close()
		return nil
	})
}

func (o *Orchestrator) bestEffort(step string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("recovered panic during teardown step", "step", step, "panic", r)
		}
	}()
	if err := fn(); err != nil {
		slog.Warn("teardown step failed", "step", step, "error", err)
	}
}

func (o *Orchestrator) setStatus(status string) {
	o.mu.Lock()
	o.status = status
	o.mu.Unlock()
	o.notify()
}

// restoreState rolls back a failed transition unless the session completed
// in the meantime.
func (o *Orchestrator) restoreState(state LifecycleState, status string) {
	o.mu.Lock()
	if o.sess != nil && o.sess.State != StateComplete {
		o.sess.State = state
	}
	o.status = status
	o.mu.Unlock()
	o.notify()
}

type speechEvents struct {
	o *Orchestrator
}

func (e *speechEvents) OnSpeechStart() { e.o.onSpeech(true) }
func (e *speechEvents) OnSpeechEnd()   { e.o.onSpeech(false) }

type streamEvents struct {
	o   *Orchestrator
	rec *recording
}

func (h *streamEvents) OnOpen() {
	h.o.mu.Lock()
	current := h.o.rec == h.rec
	if current {
		h.rec.connected = true
	}
	h.o.mu.Unlock()
	slog.Debug("transcription stream open", "session_id", h.rec.sessionID, "current", current)
}

func (h *streamEvents) OnTranscript(delta string) { h.o.appendTranscript(h.rec, delta) }

// OnTranscriptEnd appends a single space as a segment boundary.
func (h *streamEvents) OnTranscriptEnd() { h.o.appendTranscript(h.rec, " ") }

func (h *streamEvents) OnError(err error) {
	slog.Warn("transcription stream error", "error", err, "session_id", h.rec.sessionID)
	h.o.handleStreamLoss(h.rec, err)
}

func (h *streamEvents) OnClose(err error) { h.o.handleStreamLoss(h.rec, err) }
