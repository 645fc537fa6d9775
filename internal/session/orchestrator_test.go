package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/foxseedlab/shadowinterview/internal/audio"
	"github.com/foxseedlab/shadowinterview/internal/config"
	"github.com/foxseedlab/shadowinterview/internal/interview"
	"github.com/foxseedlab/shadowinterview/internal/repository"
	"github.com/foxseedlab/shadowinterview/internal/speech"
	"github.com/foxseedlab/shadowinterview/internal/transcriber"
)

type mockBackend struct {
	mu          sync.Mutex
	calls       []string
	iv          *interview.Interview
	getErr      error
	next        []*interview.NextQuestion
	nextErr     error
	submits     []interview.SubmitAnswerInput
	submitErrs  []error
	feedback    interview.Feedback
	startCount  int
	startGate   chan struct{}
	finalizeErr error
	finalizes   int
}

func (m *mockBackend) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *mockBackend) callLog() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *mockBackend) GetInterview(_ context.Context, _ string) (*interview.Interview, error) {
	m.record("get")
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.iv, nil
}

func (m *mockBackend) NextQuestion(_ context.Context, _ string) (*interview.NextQuestion, error) {
	m.record("next")
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.nextErr != nil {
		return nil, m.nextErr
	}
	if len(m.next) == 0 {
		return &interview.NextQuestion{Done: true}, nil
	}
	nq := m.next[0]
	m.next = m.next[1:]
	return nq, nil
}

func (m *mockBackend) StartRealtime(ctx context.Context, _ string) (*interview.RealtimeSession, error) {
	m.record("start")
	m.mu.Lock()
	m.startCount++
	n := m.startCount
	gate := m.startGate
	m.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return &interview.RealtimeSession{
		SessionID: fmt.Sprintf("rt-%d", n),
		StreamURL: fmt.Sprintf("ws://relay.test/stream/%d", n),
	}, nil
}

func (m *mockBackend) SubmitAnswer(_ context.Context, _ string, input interview.SubmitAnswerInput) (*interview.Feedback, error) {
	m.record("submit")
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submits = append(m.submits, input)
	if len(m.submitErrs) > 0 {
		err := m.submitErrs[0]
		m.submitErrs = m.submitErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	fb := m.feedback
	return &fb, nil
}

func (m *mockBackend) Finalize(_ context.Context, _ string) (*interview.FinalizeResult, error) {
	m.record("finalize")
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.finalizeErr != nil {
		err := m.finalizeErr
		m.finalizeErr = nil
		return nil, err
	}
	m.finalizes++
	return &interview.FinalizeResult{ReportURL: "https://example.com/report/iv-1"}, nil
}

func (m *mockBackend) count(call string) int {
	n := 0
	for _, c := range m.callLog() {
		if c == call {
			n++
		}
	}
	return n
}

type gatedSynth struct {
	mu      sync.Mutex
	texts   []string
	release chan struct{}
}

func (s *gatedSynth) Synthesize(ctx context.Context, text, _ string) error {
	s.mu.Lock()
	s.texts = append(s.texts, text)
	release := s.release
	s.mu.Unlock()
	if release == nil {
		return nil
	}
	select {
	case <-release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *gatedSynth) spoken() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.texts))
	copy(out, s.texts)
	return out
}

func (s *gatedSynth) hold() chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.release = make(chan struct{})
	return s.release
}

type fakeMic struct {
	mu      sync.Mutex
	enabled bool
	closes  int
}

func (t *fakeMic) Start() error { return nil }
func (t *fakeMic) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
}
func (t *fakeMic) Stop() {}
func (t *fakeMic) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closes++
}

type fakeDevices struct {
	mu       sync.Mutex
	micErr   error
	opens    int
	mics     []*fakeMic
	callback audio.DataCallback
}

func (d *fakeDevices) OpenMicrophone(_ audio.CaptureConfig, cb audio.DataCallback) (audio.Track, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opens++
	if d.micErr != nil {
		return nil, d.micErr
	}
	mic := &fakeMic{}
	d.mics = append(d.mics, mic)
	d.callback = cb
	return mic, nil
}

func (d *fakeDevices) OpenCamera() (audio.Track, error) {
	return nil, audio.ErrDeviceUnavailable
}

func (d *fakeDevices) feed(pcm []byte) {
	d.mu.Lock()
	cb := d.callback
	d.mu.Unlock()
	cb(pcm)
}

func (d *fakeDevices) lastMic() *fakeMic {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mics[len(d.mics)-1]
}

type fakeStream struct {
	mu     sync.Mutex
	sent   [][]byte
	muted  bool
	closes int
}

func (s *fakeStream) Send(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closes > 0 {
		return transcriber.ErrStreamClosed
	}
	if s.muted {
		return nil
	}
	s.sent = append(s.sent, frame)
	return nil
}

func (s *fakeStream) SetMuted(muted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.muted = muted
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

func (s *fakeStream) isMuted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.muted
}

func (s *fakeStream) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

func (s *fakeStream) sentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

type fakeDialer struct {
	mu       sync.Mutex
	urls     []string
	rates    []int
	handlers []transcriber.EventHandler
	streams  []*fakeStream
}

func (d *fakeDialer) Connect(_ context.Context, url string, sampleRate int, handler transcriber.EventHandler) (transcriber.Stream, error) {
	handler.OnOpen()
	s := &fakeStream{}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.urls = append(d.urls, url)
	d.rates = append(d.rates, sampleRate)
	d.handlers = append(d.handlers, handler)
	d.streams = append(d.streams, s)
	return s, nil
}

func (d *fakeDialer) last() (transcriber.EventHandler, *fakeStream) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.handlers[len(d.handlers)-1], d.streams[len(d.streams)-1]
}

type mockJournal struct {
	mu        sync.Mutex
	attempts  []repository.InsertAttemptInput
	completed []repository.CompletePracticeInput
}

func (m *mockJournal) CreatePractice(_ context.Context, input repository.CreatePracticeInput) (*repository.Practice, error) {
	return &repository.Practice{ID: "practice-1", InterviewID: input.InterviewID, StartedAt: input.StartedAt, Status: repository.PracticeStatusRunning}, nil
}

func (m *mockJournal) CompletePractice(_ context.Context, input repository.CompletePracticeInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completed = append(m.completed, input)
	return nil
}

func (m *mockJournal) GetPractice(_ context.Context, _ string) (*repository.Practice, error) {
	return nil, repository.ErrPracticeNotFound
}

func (m *mockJournal) InsertAttempt(_ context.Context, input repository.InsertAttemptInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts = append(m.attempts, input)
	return nil
}

func (m *mockJournal) ListAttemptsByPracticeID(_ context.Context, _ string) ([]repository.Attempt, error) {
	return nil, nil
}

type harness struct {
	o        *Orchestrator
	backend  *mockBackend
	synth    *gatedSynth
	devices  *fakeDevices
	pipeline *audio.Pipeline
	dialer   *fakeDialer
	journal  *mockJournal
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := &config.Config{
		AudioSampleRate:    16000,
		AudioFrameSamples:  2,
		SpeechGracePeriod:  20 * time.Millisecond,
		SpeechPollInterval: 5 * time.Millisecond,
		SpeechPollMax:      3,
	}
	h := &harness{
		backend: &mockBackend{
			iv: &interview.Interview{
				ID:        "iv-1",
				Questions: []string{"Tell me about yourself.", "Why do you want to work here?", "Do you have any questions for us?"},
			},
			feedback: interview.Feedback{Clarity: 80, Confidence: 70, Structure: 60, Relevance: 90, Summary: "Good", Tips: []string{"Slow down"}},
		},
		synth:   &gatedSynth{},
		devices: &fakeDevices{},
		dialer:  &fakeDialer{},
		journal: &mockJournal{},
	}
	h.pipeline = audio.NewPipeline(h.devices, audio.PipelineConfig{SampleRate: cfg.AudioSampleRate, FrameBytes: cfg.AudioFrameBytes()})
	h.o = NewOrchestrator(cfg, h.backend, speech.NewController(h.synth, ""), h.pipeline, h.dialer, h.journal)
	return h
}

func (h *harness) load(t *testing.T) {
	t.Helper()
	if err := h.o.LoadInterview(context.Background(), "iv-1"); err != nil {
		t.Fatalf("failed to load interview: %v", err)
	}
}

func (h *harness) record(t *testing.T) {
	t.Helper()
	h.load(t)
	if err := h.o.Advance(context.Background()); err != nil {
		t.Fatalf("failed to start recording: %v", err)
	}
}

func (h *harness) say(text string) {
	handler, _ := h.dialer.last()
	handler.OnTranscript(text)
}

func TestOrchestrator_LoadInterview(t *testing.T) {
	h := newHarness(t)
	h.load(t)
	snap := h.o.Snapshot()
	if snap.State != StateNotStarted {
		t.Fatalf("expected not started, got %s", snap.State)
	}
	if snap.Question != "Tell me about yourself." || snap.QuestionTotal != 3 || snap.QuestionIndex != 0 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap.Source != interview.QuestionSourceFallback {
		t.Fatalf("expected generic questions to be classified as fallback, got %s", snap.Source)
	}
	if h.o.PracticeID() != "practice-1" {
		t.Fatalf("expected practice journal entry, got %q", h.o.PracticeID())
	}
}

func TestOrchestrator_LoadInterviewFailureKeepsStateAndSetsStatus(t *testing.T) {
	h := newHarness(t)
	h.backend.getErr = &interview.APIError{Op: "get interview", StatusCode: 503}
	err := h.o.LoadInterview(context.Background(), "iv-1")
	if err == nil {
		t.Fatal("expected load error")
	}
	snap := h.o.Snapshot()
	if snap.Loaded {
		t.Fatal("failed load must not create a session")
	}
	if !strings.Contains(snap.Status, "status 503") {
		t.Fatalf("unexpected status: %q", snap.Status)
	}
	if !errors.Is(h.o.Advance(context.Background()), ErrNotLoaded) {
		t.Fatal("expected advance to require a loaded interview")
	}
}

func TestOrchestrator_AdvanceFromNotStartedReachesRecording(t *testing.T) {
	h := newHarness(t)
	h.record(t)

	snap := h.o.Snapshot()
	if snap.State != StateRecording {
		t.Fatalf("expected recording, got %s", snap.State)
	}
	if snap.Transcript != "" {
		t.Fatalf("expected empty transcript, got %q", snap.Transcript)
	}
	if !snap.Listening {
		t.Fatal("expected stream to be listening")
	}
	spoken := h.synth.spoken()
	if len(spoken) != 1 || spoken[0] != "Tell me about yourself." {
		t.Fatalf("expected first question spoken, got %v", spoken)
	}
	if h.dialer.rates[0] != 16000 || h.dialer.urls[0] != "ws://relay.test/stream/1" {
		t.Fatalf("unexpected dial: %v %v", h.dialer.urls, h.dialer.rates)
	}
	if !h.pipeline.MicEnabled() {
		t.Fatal("expected microphone audible after speech finished")
	}

	h.devices.feed([]byte{1, 2, 3, 4, 5, 6, 7, 8})
	_, stream := h.dialer.last()
	if stream.sentCount() != 2 {
		t.Fatalf("expected two frames forwarded, got %d", stream.sentCount())
	}
}

func TestOrchestrator_SubmitStoresFeedback(t *testing.T) {
	h := newHarness(t)
	h.record(t)

	h.say("Hello ")
	h.say("world")
	if got := h.o.Snapshot().Transcript; got != "Hello world" {
		t.Fatalf("unexpected transcript %q", got)
	}
	if got := h.o.Snapshot().WordCount; got != 2 {
		t.Fatalf("expected two words, got %d", got)
	}

	if err := h.o.Advance(context.Background()); err != nil {
		t.Fatalf("unexpected submit error: %v", err)
	}
	if len(h.backend.submits) != 1 {
		t.Fatalf("expected one submit, got %d", len(h.backend.submits))
	}
	got := h.backend.submits[0]
	if got.Transcript != "Hello world" || got.QuestionIndex != 0 || got.SessionID != "rt-1" {
		t.Fatalf("unexpected submit input: %+v", got)
	}
	snap := h.o.Snapshot()
	if snap.State != StateSubmitted {
		t.Fatalf("expected submitted, got %s", snap.State)
	}
	if snap.Feedback == nil || snap.Feedback.Clarity != 80 || snap.Feedback.Tips[0] != "Slow down" {
		t.Fatalf("unexpected feedback: %+v", snap.Feedback)
	}
	_, stream := h.dialer.last()
	if stream.closeCount() != 1 {
		t.Fatalf("expected stream closed once, got %d", stream.closeCount())
	}
	if h.devices.lastMic().closes != 1 || h.pipeline.IsOpen() {
		t.Fatal("expected capture released before submit")
	}
	if len(h.journal.attempts) != 1 || h.journal.attempts[0].Clarity != 80 || h.journal.attempts[0].WordCount != 2 {
		t.Fatalf("unexpected journal attempts: %+v", h.journal.attempts)
	}
}

func TestOrchestrator_NextQuestionResetsTranscriptAndFeedback(t *testing.T) {
	h := newHarness(t)
	h.backend.next = []*interview.NextQuestion{{Done: false, Question: "Q2", Index: questionIndex(1)}}
	h.record(t)
	h.say("Hello world")
	if err := h.o.Advance(context.Background()); err != nil {
		t.Fatalf("unexpected submit error: %v", err)
	}

	if err := h.o.Advance(context.Background()); err != nil {
		t.Fatalf("unexpected next error: %v", err)
	}
	snap := h.o.Snapshot()
	if snap.State != StateRecording {
		t.Fatalf("expected recording, got %s", snap.State)
	}
	if snap.Transcript != "" || snap.Feedback != nil {
		t.Fatalf("expected transcript and feedback reset, got %q %+v", snap.Transcript, snap.Feedback)
	}
	if snap.QuestionIndex != 1 || snap.Question != "Q2" {
		t.Fatalf("unexpected question: %d %q", snap.QuestionIndex, snap.Question)
	}
	spoken := h.synth.spoken()
	if spoken[len(spoken)-1] != "Q2" {
		t.Fatalf("expected Q2 spoken, got %v", spoken)
	}
	if h.devices.opens != 2 {
		t.Fatalf("expected capture reopened for the new question, got %d opens", h.devices.opens)
	}
}

func TestOrchestrator_DoneFinalizesOnce(t *testing.T) {
	h := newHarness(t)
	h.backend.next = []*interview.NextQuestion{{Done: true}}
	h.record(t)
	h.say("Hello")
	if err := h.o.Advance(context.Background()); err != nil {
		t.Fatalf("unexpected submit error: %v", err)
	}
	if err := h.o.Advance(context.Background()); err != nil {
		t.Fatalf("unexpected advance error: %v", err)
	}

	if h.o.Snapshot().State != StateComplete {
		t.Fatalf("expected complete, got %s", h.o.Snapshot().State)
	}
	if h.backend.count("finalize") != 1 {
		t.Fatalf("expected finalize once, got %d", h.backend.count("finalize"))
	}
	select {
	case <-h.o.Done():
	default:
		t.Fatal("expected Done to be closed")
	}
	if err := h.o.Advance(context.Background()); !errors.Is(err, ErrSessionComplete) {
		t.Fatalf("expected session complete, got %v", err)
	}
	if _, err := h.o.Exit(context.Background()); err != nil {
		t.Fatalf("unexpected exit error: %v", err)
	}
	if h.backend.count("finalize") != 1 {
		t.Fatalf("expected finalize still once, got %d", h.backend.count("finalize"))
	}
	if len(h.journal.completed) != 1 || h.journal.completed[0].Status != repository.PracticeStatusCompleted {
		t.Fatalf("unexpected journal completion: %+v", h.journal.completed)
	}
}

func TestOrchestrator_ExitSubmitsPendingTranscriptBeforeFinalize(t *testing.T) {
	h := newHarness(t)
	h.record(t)
	h.say("Half an answer")

	res, err := h.o.Exit(context.Background())
	if err != nil {
		t.Fatalf("unexpected exit error: %v", err)
	}
	if res.ReportURL == "" {
		t.Fatal("expected report url")
	}
	var order []string
	for _, c := range h.backend.callLog() {
		if c == "submit" || c == "finalize" {
			order = append(order, c)
		}
	}
	if len(order) != 2 || order[0] != "submit" || order[1] != "finalize" {
		t.Fatalf("expected submit then finalize, got %v", order)
	}
	_, stream := h.dialer.last()
	if stream.closeCount() != 1 || h.pipeline.IsOpen() {
		t.Fatal("expected stream and capture torn down on exit")
	}
	if h.o.Snapshot().State != StateComplete {
		t.Fatalf("expected complete, got %s", h.o.Snapshot().State)
	}
	if len(h.journal.completed) != 1 || h.journal.completed[0].Status != repository.PracticeStatusAbandoned {
		t.Fatalf("unexpected journal completion: %+v", h.journal.completed)
	}
}

func TestOrchestrator_ExitWithoutTranscriptSkipsSubmit(t *testing.T) {
	h := newHarness(t)
	h.record(t)
	if _, err := h.o.Exit(context.Background()); err != nil {
		t.Fatalf("unexpected exit error: %v", err)
	}
	if h.backend.count("submit") != 0 {
		t.Fatal("expected no submit without a transcript")
	}
	if h.backend.count("finalize") != 1 {
		t.Fatal("expected finalize")
	}
}

func TestOrchestrator_EmptySubmitMakesNoNetworkCall(t *testing.T) {
	h := newHarness(t)
	h.record(t)
	before := len(h.backend.callLog())
	h.say(" ")

	err := h.o.Advance(context.Background())
	if !errors.Is(err, ErrEmptyTranscript) {
		t.Fatalf("expected empty transcript error, got %v", err)
	}
	if after := len(h.backend.callLog()); after != before {
		t.Fatalf("expected zero network calls, got %d", after-before)
	}
	snap := h.o.Snapshot()
	if snap.State != StateRecording || !snap.Listening {
		t.Fatalf("expected recording to continue, got %+v", snap)
	}
	if snap.Status != statusEmptyTranscript {
		t.Fatalf("unexpected status %q", snap.Status)
	}
}

func TestOrchestrator_ConcurrentAdvanceIsDropped(t *testing.T) {
	h := newHarness(t)
	h.load(t)
	gate := make(chan struct{})
	h.backend.startGate = gate

	result := make(chan error, 1)
	go func() { result <- h.o.Advance(context.Background()) }()
	waitUntil(t, time.Second, func() bool { return h.backend.count("start") == 1 }, "first advance did not reach the backend")

	for i := 0; i < 5; i++ {
		if err := h.o.Advance(context.Background()); !errors.Is(err, ErrTransitionInFlight) {
			t.Fatalf("expected in-flight rejection, got %v", err)
		}
	}
	close(gate)
	if err := <-result; err != nil {
		t.Fatalf("unexpected error from first advance: %v", err)
	}
	if h.backend.count("start") != 1 {
		t.Fatalf("expected a single realtime session, got %d", h.backend.count("start"))
	}
	if h.o.Snapshot().State != StateRecording {
		t.Fatalf("expected recording, got %s", h.o.Snapshot().State)
	}
}

func TestOrchestrator_MicGatedWhileSpeaking(t *testing.T) {
	h := newHarness(t)
	h.record(t)
	_, stream := h.dialer.last()

	release := h.synth.hold()
	if err := h.o.ReplayQuestion(); err != nil {
		t.Fatalf("unexpected replay error: %v", err)
	}
	if !h.o.Snapshot().Speaking {
		t.Fatal("expected speaking during replay")
	}
	if h.pipeline.MicEnabled() {
		t.Fatal("microphone must be gated while speaking")
	}
	if !stream.isMuted() {
		t.Fatal("stream must be muted while speaking")
	}
	h.devices.feed([]byte{1, 2, 3, 4})
	if stream.sentCount() != 0 {
		t.Fatal("no frames may be sent while speaking")
	}

	close(release)
	waitUntil(t, time.Second, func() bool { return !h.o.Snapshot().Speaking }, "speech did not finish")
	if !h.pipeline.MicEnabled() || stream.isMuted() {
		t.Fatal("expected microphone audible after speech")
	}
}

func TestOrchestrator_UserMuteSurvivesSpeechEnd(t *testing.T) {
	h := newHarness(t)
	h.record(t)
	_, stream := h.dialer.last()

	h.o.SetUserMuted(true)
	release := h.synth.hold()
	if err := h.o.ReplayQuestion(); err != nil {
		t.Fatalf("unexpected replay error: %v", err)
	}
	close(release)
	waitUntil(t, time.Second, func() bool { return !h.o.Snapshot().Speaking }, "speech did not finish")
	if h.pipeline.MicEnabled() || !stream.isMuted() {
		t.Fatal("manual mute must stay in effect after speech ends")
	}
	h.o.SetUserMuted(false)
	if !h.pipeline.MicEnabled() || stream.isMuted() {
		t.Fatal("expected unmute to restore audio")
	}
	if h.devices.opens != 1 {
		t.Fatalf("mute cycle must not reopen the device, got %d opens", h.devices.opens)
	}
}

func TestOrchestrator_UnexpectedCloseTearsDownAndKeepsTranscript(t *testing.T) {
	h := newHarness(t)
	h.record(t)
	handler, stream := h.dialer.last()
	h.say("partial answer")

	handler.OnClose(errors.New("connection reset"))
	snap := h.o.Snapshot()
	if snap.Transcript != "partial answer" {
		t.Fatalf("expected transcript preserved, got %q", snap.Transcript)
	}
	if snap.Listening || snap.Status != statusStreamClosed {
		t.Fatalf("unexpected snapshot after close: %+v", snap)
	}
	if stream.closeCount() != 1 || h.pipeline.IsOpen() {
		t.Fatal("expected full teardown after unexpected close")
	}
	handler.OnTranscript(" more")
	if h.o.Snapshot().Transcript != "partial answer" {
		t.Fatal("no accumulation after the stream closed")
	}

	if err := h.o.Advance(context.Background()); err != nil {
		t.Fatalf("unexpected submit error: %v", err)
	}
	if h.backend.submits[0].Transcript != "partial answer" {
		t.Fatalf("unexpected submitted transcript %q", h.backend.submits[0].Transcript)
	}
}

func TestOrchestrator_ResumeAfterCloseWithEmptyTranscript(t *testing.T) {
	h := newHarness(t)
	h.record(t)
	handler, _ := h.dialer.last()
	handler.OnError(errors.New("relay went away"))

	if err := h.o.Advance(context.Background()); err != nil {
		t.Fatalf("unexpected resume error: %v", err)
	}
	if h.backend.count("start") != 2 {
		t.Fatalf("expected a fresh realtime session, got %d", h.backend.count("start"))
	}
	if h.backend.count("submit") != 0 {
		t.Fatal("resume must not submit")
	}
	snap := h.o.Snapshot()
	if snap.State != StateRecording || !snap.Listening {
		t.Fatalf("expected recording again, got %+v", snap)
	}
	h.say("second try")
	if h.o.Snapshot().Transcript != "second try" {
		t.Fatalf("unexpected transcript %q", h.o.Snapshot().Transcript)
	}
}

func TestOrchestrator_StaleStreamEventsAreIgnored(t *testing.T) {
	h := newHarness(t)
	h.backend.next = []*interview.NextQuestion{{Index: questionIndex(1)}}
	h.record(t)
	oldHandler, _ := h.dialer.last()
	h.say("answer one")
	if err := h.o.Advance(context.Background()); err != nil {
		t.Fatalf("unexpected submit error: %v", err)
	}
	if err := h.o.Advance(context.Background()); err != nil {
		t.Fatalf("unexpected next error: %v", err)
	}
	oldHandler.OnTranscript("late delta")
	oldHandler.OnClose(nil)
	snap := h.o.Snapshot()
	if snap.Transcript != "" || !snap.Listening {
		t.Fatalf("stale events altered the new recording: %+v", snap)
	}
	if snap.Question != "Why do you want to work here?" {
		t.Fatalf("expected question text from the loaded set, got %q", snap.Question)
	}
}

func TestOrchestrator_SubmitFailureLeavesRecording(t *testing.T) {
	h := newHarness(t)
	h.backend.submitErrs = []error{errors.New("connection refused"), nil}
	h.record(t)
	h.say("my answer")

	if err := h.o.Advance(context.Background()); err == nil {
		t.Fatal("expected submit error")
	}
	snap := h.o.Snapshot()
	if snap.State != StateRecording || snap.Transcript != "my answer" || snap.Feedback != nil {
		t.Fatalf("unexpected snapshot after failed submit: %+v", snap)
	}
	if !strings.Contains(snap.Status, "submit your answer") {
		t.Fatalf("unexpected status %q", snap.Status)
	}

	if err := h.o.Advance(context.Background()); err != nil {
		t.Fatalf("unexpected retry error: %v", err)
	}
	if h.backend.count("submit") != 2 || h.o.Snapshot().State != StateSubmitted {
		t.Fatal("expected retry to submit again and succeed")
	}
}

func TestOrchestrator_NextFailureKeepsFeedback(t *testing.T) {
	h := newHarness(t)
	h.record(t)
	h.say("my answer")
	if err := h.o.Advance(context.Background()); err != nil {
		t.Fatalf("unexpected submit error: %v", err)
	}
	h.backend.nextErr = errors.New("timeout")

	if err := h.o.Advance(context.Background()); err == nil {
		t.Fatal("expected next question error")
	}
	snap := h.o.Snapshot()
	if snap.State != StateSubmitted || snap.Feedback == nil || snap.Transcript != "my answer" {
		t.Fatalf("failed next must not clear state: %+v", snap)
	}
}

func TestOrchestrator_RejectsDecreasingIndex(t *testing.T) {
	h := newHarness(t)
	h.backend.iv.CurrentQuestionIndex = 1
	h.backend.next = []*interview.NextQuestion{{Index: questionIndex(0), Question: "back again"}}
	h.record(t)
	h.say("answer")
	if err := h.o.Advance(context.Background()); err != nil {
		t.Fatalf("unexpected submit error: %v", err)
	}
	if err := h.o.Advance(context.Background()); !errors.Is(err, errQuestionIndexRegress) {
		t.Fatalf("expected regress error, got %v", err)
	}
	if snap := h.o.Snapshot(); snap.QuestionIndex != 1 || snap.State != StateSubmitted {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestOrchestrator_NextQuestionWithoutIndexMovesForward(t *testing.T) {
	tests := []struct {
		name     string
		next     *interview.NextQuestion
		question string
	}{
		{name: "question text supplied", next: &interview.NextQuestion{Question: "Q2"}, question: "Q2"},
		{name: "falls back to loaded question", next: &interview.NextQuestion{}, question: "Why do you want to work here?"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.backend.next = []*interview.NextQuestion{tt.next}
			h.record(t)
			h.say("answer")
			if err := h.o.Advance(context.Background()); err != nil {
				t.Fatalf("unexpected submit error: %v", err)
			}
			if err := h.o.Advance(context.Background()); err != nil {
				t.Fatalf("unexpected next error: %v", err)
			}
			snap := h.o.Snapshot()
			if snap.QuestionIndex != 1 || snap.Question != tt.question || snap.State != StateRecording {
				t.Fatalf("unexpected snapshot: %+v", snap)
			}
		})
	}
}

func TestOrchestrator_NextQuestionWithoutIndexPastLastQuestion(t *testing.T) {
	h := newHarness(t)
	h.backend.iv.CurrentQuestionIndex = 2
	h.backend.next = []*interview.NextQuestion{{}}
	h.record(t)
	h.say("answer")
	if err := h.o.Advance(context.Background()); err != nil {
		t.Fatalf("unexpected submit error: %v", err)
	}
	if err := h.o.Advance(context.Background()); !errors.Is(err, errQuestionOutOfRange) {
		t.Fatalf("expected out of range error, got %v", err)
	}
	if snap := h.o.Snapshot(); snap.QuestionIndex != 2 || snap.State != StateSubmitted {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestOrchestrator_ElapsedTicksOnlyWhileRecording(t *testing.T) {
	h := newHarness(t)
	h.o.cfg.ElapsedTickInterval = 10 * time.Millisecond
	h.record(t)

	h.o.mu.Lock()
	rec := h.o.rec
	h.o.mu.Unlock()
	if rec == nil {
		t.Fatal("expected an active recording")
	}
	ticks := func() int {
		h.o.mu.Lock()
		defer h.o.mu.Unlock()
		return rec.ticks
	}
	waitUntil(t, time.Second, func() bool { return ticks() >= 3 }, "expected elapsed ticks while recording")

	h.say("Hello world")
	if err := h.o.Advance(context.Background()); err != nil {
		t.Fatalf("unexpected submit error: %v", err)
	}
	after := ticks()
	time.Sleep(80 * time.Millisecond)
	if got := ticks(); got != after {
		t.Fatalf("expected ticks to stop after submit, went from %d to %d", after, got)
	}
}

func TestOrchestrator_PermissionDeniedStaysNotStarted(t *testing.T) {
	h := newHarness(t)
	h.devices.micErr = audio.ErrPermissionDenied
	h.load(t)

	err := h.o.Advance(context.Background())
	if !errors.Is(err, audio.ErrPermissionDenied) {
		t.Fatalf("expected permission error, got %v", err)
	}
	snap := h.o.Snapshot()
	if snap.State != StateNotStarted {
		t.Fatalf("expected not started, got %s", snap.State)
	}
	if !strings.Contains(snap.Status, "Microphone access was denied") {
		t.Fatalf("unexpected status %q", snap.Status)
	}
	if h.backend.count("start") != 0 {
		t.Fatal("no realtime session may start without capture")
	}
}

func TestOrchestrator_FinalizeFailureCanBeRetried(t *testing.T) {
	h := newHarness(t)
	h.backend.finalizeErr = errors.New("unavailable")
	h.load(t)

	if _, err := h.o.Finalize(context.Background()); err == nil {
		t.Fatal("expected finalize error")
	}
	select {
	case <-h.o.Done():
		t.Fatal("Done must stay open after a failed finalize")
	default:
	}
	if err := h.o.Advance(context.Background()); err != nil {
		t.Fatalf("expected advance to retry finalize, got %v", err)
	}
	if h.backend.finalizes != 1 {
		t.Fatalf("expected one successful finalize, got %d", h.backend.finalizes)
	}
	<-h.o.Done()
}

func TestOrchestrator_ExitPreemptsSpeechWait(t *testing.T) {
	h := newHarness(t)
	h.o.cfg.SpeechGracePeriod = time.Minute
	h.load(t)
	h.synth.hold()

	result := make(chan error, 1)
	go func() { result <- h.o.Advance(context.Background()) }()
	waitUntil(t, time.Second, func() bool { return h.o.Snapshot().State == StateAwaitingSpeech }, "advance did not start speaking")

	if _, err := h.o.Exit(context.Background()); err != nil {
		t.Fatalf("unexpected exit error: %v", err)
	}
	if err := <-result; err == nil {
		t.Fatal("expected the preempted advance to fail")
	}
	if h.backend.count("start") != 0 || h.pipeline.IsOpen() {
		t.Fatal("preempted advance must not open capture")
	}
	if h.o.Snapshot().State != StateComplete || h.o.Snapshot().Speaking {
		t.Fatalf("unexpected snapshot: %+v", h.o.Snapshot())
	}
}

func TestOrchestrator_SubscribeDeliversSnapshots(t *testing.T) {
	h := newHarness(t)
	var mu sync.Mutex
	var states []LifecycleState
	unsubscribe := h.o.Subscribe(ObserverFunc(func(s Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, s.State)
	}))
	h.record(t)

	mu.Lock()
	seen := map[LifecycleState]bool{}
	for _, s := range states {
		seen[s] = true
	}
	count := len(states)
	mu.Unlock()
	if !seen[StateNotStarted] || !seen[StateAwaitingSpeech] || !seen[StateRecording] {
		t.Fatalf("expected every lifecycle step to be observed, got %v", states)
	}

	unsubscribe()
	h.say("ignored by observer")
	mu.Lock()
	defer mu.Unlock()
	if len(states) != count {
		t.Fatal("expected no snapshots after unsubscribe")
	}
}

func questionIndex(i int) *int {
	return &i
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool, message string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(message)
}
