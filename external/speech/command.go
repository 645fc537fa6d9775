package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/foxseedlab/shadowinterview/internal/speech"
)

// CommandSynthesizer speaks through a local text-to-speech binary such as
// espeak-ng or macOS say.
type CommandSynthesizer struct {
	command string
}

func NewCommandSynthesizer(command string) speech.Synthesizer {
	return &CommandSynthesizer{command: command}
}

func (s *CommandSynthesizer) Synthesize(ctx context.Context, text, voice string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	err := s.run(ctx, text, voice)
	if err == nil || voice == "" || ctx.Err() != nil {
		return err
	}
	// Unknown voices make both engines exit non-zero; retry with the default.
	slog.Warn("speech voice failed, falling back to default voice", "voice", voice, "error", err)
	return s.run(ctx, text, "")
}

func (s *CommandSynthesizer) run(ctx context.Context, text, voice string) error {
	cmd := exec.CommandContext(ctx, s.command, commandArgs(s.command, voice, text)...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%s exited with %d: %s", s.command, exitErr.ExitCode(), strings.TrimSpace(string(out)))
		}
		return fmt.Errorf("run %s: %w", s.command, err)
	}
	return nil
}

func commandArgs(command, voice, text string) []string {
	var args []string
	if voice != "" {
		args = append(args, "-v", voice)
	}
	if filepath.Base(command) != "say" {
		args = append(args, "--")
	}
	return append(args, text)
}
