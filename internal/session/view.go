package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/foxseedlab/shadowinterview/internal/interview"
)

// Snapshot is an immutable view of the session for presentation.
type Snapshot struct {
	// Version increases with every snapshot so observers can drop stale ones.
	Version        uint64
	Loaded         bool
	InterviewID    string
	State          LifecycleState
	QuestionIndex  int
	QuestionTotal  int
	Question       string
	Source         interview.QuestionSource
	Transcript     string
	WordCount      int
	ElapsedSeconds int
	Elapsed        string
	Feedback       *interview.Feedback
	Status         string
	UserMuted      bool
	Speaking       bool
	Listening      bool
	ReportURL      string
}

type Observer interface {
	OnSnapshot(s Snapshot)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(s Snapshot)

func (f ObserverFunc) OnSnapshot(s Snapshot) { f(s) }

// countWords is recomputed from the full transcript on every snapshot.
func countWords(transcript string) int {
	return len(strings.Fields(transcript))
}

func formatElapsedHMS(d time.Duration) string {
	total := int64(d / time.Second)
	if total < 0 {
		total = 0
	}
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	o.version++
	s := Snapshot{
		Version:   o.version,
		Status:    o.status,
		UserMuted: o.userMuted,
		Speaking:  o.speaking,
		ReportURL: o.result.ReportURL,
	}
	if o.rec != nil {
		s.Listening = o.rec.connected && o.rec.stream != nil
		s.ElapsedSeconds = o.rec.elapsedSeconds
		s.Elapsed = formatElapsedHMS(time.Duration(o.rec.elapsedSeconds) * time.Second)
	} else {
		s.Elapsed = formatElapsedHMS(0)
	}
	sess := o.sess
	if sess == nil {
		return s
	}
	s.Loaded = true
	s.InterviewID = sess.InterviewID
	s.State = sess.State
	s.QuestionIndex = sess.CurrentQuestionIndex
	s.QuestionTotal = sess.Total
	s.Question = sess.CurrentQuestion
	s.Source = sess.Source
	s.Transcript = sess.Transcript
	s.WordCount = countWords(sess.Transcript)
	if sess.Feedback != nil {
		fb := *sess.Feedback
		fb.Tips = make([]string, len(sess.Feedback.Tips))
		copy(fb.Tips, sess.Feedback.Tips)
		s.Feedback = &fb
	}
	return s
}

// Snapshot returns the current view without notifying observers.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

// Subscribe registers o for snapshots and returns a function that removes it.
func (o *Orchestrator) Subscribe(obs Observer) func() {
	o.mu.Lock()
	id := o.nextObserverID
	o.nextObserverID++
	o.observers[id] = obs
	o.mu.Unlock()
	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		delete(o.observers, id)
	}
}

func (o *Orchestrator) notify() {
	o.mu.Lock()
	snap := o.snapshotLocked()
	observers := make([]Observer, 0, len(o.observers))
	for _, obs := range o.observers {
		observers = append(observers, obs)
	}
	o.mu.Unlock()

	for _, obs := range observers {
		obs.OnSnapshot(snap)
	}
}
