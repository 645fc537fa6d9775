package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/foxseedlab/shadowinterview/internal/interview"
	"github.com/foxseedlab/shadowinterview/internal/session"
	"github.com/manifoldco/promptui"
)

const (
	actionReplay  = "Replay question"
	actionMute    = "Mute microphone"
	actionUnmute  = "Unmute microphone"
	actionRefresh = "Refresh"
	actionExit    = "Exit interview"
)

// Session is the part of the orchestrator the console drives.
type Session interface {
	Snapshot() session.Snapshot
	Advance(ctx context.Context) error
	ReplayQuestion() error
	SetUserMuted(muted bool)
	Exit(ctx context.Context) (interview.FinalizeResult, error)
	Done() <-chan struct{}
}

// Prompter asks the user to pick one item.
type Prompter interface {
	Select(label string, items []string) (string, error)
}

type promptuiPrompter struct{}

func NewPromptuiPrompter() Prompter {
	return promptuiPrompter{}
}

func (promptuiPrompter) Select(label string, items []string) (string, error) {
	p := promptui.Select{
		Label: label,
		Items: items,
		Size:  len(items),
	}
	_, selected, err := p.Run()
	return selected, err
}

type Console struct {
	sess   Session
	prompt Prompter
	out    io.Writer
}

func NewConsole(sess Session, prompt Prompter, out io.Writer) *Console {
	return &Console{sess: sess, prompt: prompt, out: out}
}

// Run shows the session view and the action menu until the interview is
// finalized, the user exits, or ctx is cancelled.
func (c *Console) Run(ctx context.Context) (interview.FinalizeResult, error) {
	for {
		select {
		case <-c.sess.Done():
			c.render()
			return interview.FinalizeResult{ReportURL: c.sess.Snapshot().ReportURL}, nil
		case <-ctx.Done():
			return c.exit()
		default:
		}

		snap := c.render()
		primary := PrimaryActionLabel(snap.State)
		items := menuItems(snap, primary)
		selected, err := c.prompt.Select("Next step", items)
		if err != nil {
			if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
				return c.exit()
			}
			return interview.FinalizeResult{}, fmt.Errorf("action prompt: %w", err)
		}

		switch selected {
		case primary:
			if err := c.sess.Advance(ctx); err != nil {
				slog.Debug("advance did not complete", "error", err, "state", snap.State)
			}
		case actionReplay:
			if err := c.sess.ReplayQuestion(); err != nil {
				slog.Debug("replay rejected", "error", err, "state", snap.State)
			}
		case actionMute:
			c.sess.SetUserMuted(true)
		case actionUnmute:
			c.sess.SetUserMuted(false)
		case actionExit:
			return c.exit()
		case actionRefresh:
		}
	}
}

func (c *Console) render() session.Snapshot {
	snap := c.sess.Snapshot()
	fmt.Fprintln(c.out, RenderSnapshot(snap))
	fmt.Fprintln(c.out)
	return snap
}

func (c *Console) exit() (interview.FinalizeResult, error) {
	res, err := c.sess.Exit(context.Background())
	c.render()
	return res, err
}

// PrimaryActionLabel names what advance does in each lifecycle state.
func PrimaryActionLabel(state session.LifecycleState) string {
	switch state {
	case session.StateNotStarted:
		return "Start question"
	case session.StateAwaitingSpeech:
		return "Waiting for the question"
	case session.StateRecording:
		return "Submit answer"
	case session.StateSubmitted:
		return "Next question"
	case session.StateLoadingNext:
		return "Loading"
	case session.StateComplete:
		return "Finish interview"
	default:
		return "Continue"
	}
}

func menuItems(s session.Snapshot, primary string) []string {
	items := []string{primary}
	switch s.State {
	case session.StateAwaitingSpeech, session.StateRecording, session.StateSubmitted:
		items = append(items, actionReplay)
	}
	if s.UserMuted {
		items = append(items, actionUnmute)
	} else {
		items = append(items, actionMute)
	}
	items = append(items, actionRefresh)
	if s.State != session.StateComplete {
		items = append(items, actionExit)
	}
	return items
}
