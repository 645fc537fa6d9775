package speech

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// Synthesizer speaks text aloud and blocks until playback ends or ctx is cancelled.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) error
}

type Observer interface {
	OnSpeechStart()
	OnSpeechEnd()
}

type utterance struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Controller serializes utterances. Every start notification is followed by
// exactly one end notification before the next start.
type Controller struct {
	synth Synthesizer
	voice string

	mu        sync.Mutex
	current   *utterance
	speaking  bool
	observers []Observer
}

func NewController(synth Synthesizer, voice string) *Controller {
	return &Controller{synth: synth, voice: voice}
}

func (c *Controller) AddObserver(o Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, o)
}

func (c *Controller) RemoveObserver(o Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, existing := range c.observers {
		if existing == o {
			c.observers = append(c.observers[:i], c.observers[i+1:]...)
			return
		}
	}
}

// Speak cancels any utterance in progress and starts text. The returned
// channel closes when the new utterance finishes.
func (c *Controller) Speak(text string) <-chan struct{} {
	ctx, cancel := context.WithCancel(context.Background())
	u := &utterance{cancel: cancel, done: make(chan struct{})}

	c.mu.Lock()
	c.stopLocked()
	c.current = u
	c.speaking = true
	observers := c.snapshotObserversLocked()
	c.mu.Unlock()

	for _, o := range observers {
		o.OnSpeechStart()
	}
	go c.play(ctx, u, text)
	return u.done
}

// play clears current only after the end notification so that the next
// utterance cannot start before this one has ended.
func (c *Controller) play(ctx context.Context, u *utterance, text string) {
	defer close(u.done)
	err := c.synth.Synthesize(ctx, text, c.voice)
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Warn("speech synthesis failed", "error", err)
	}

	c.mu.Lock()
	c.speaking = false
	observers := c.snapshotObserversLocked()
	c.mu.Unlock()

	for _, o := range observers {
		o.OnSpeechEnd()
	}

	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()
}

// Stop cancels the current utterance and waits for its end notification.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

// stopLocked cancels utterances until none is current. It releases c.mu while
// waiting and returns with c.mu held.
func (c *Controller) stopLocked() {
	for c.current != nil {
		u := c.current
		u.cancel()
		c.mu.Unlock()
		<-u.done
		c.mu.Lock()
	}
}

func (c *Controller) Speaking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speaking
}

// Done returns the completion channel for the utterance in progress, or a
// closed channel when nothing is being spoken.
func (c *Controller) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return c.current.done
}

func (c *Controller) snapshotObserversLocked() []Observer {
	out := make([]Observer, len(c.observers))
	copy(out, c.observers)
	return out
}
