package terminal

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/foxseedlab/shadowinterview/internal/interview"
	"github.com/foxseedlab/shadowinterview/internal/session"
)

var (
	headerStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	questionStyle   = lipgloss.NewStyle().Bold(true)
	dimStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	recStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	speakingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)
	transcriptStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("238")).Padding(0, 1)
	scoreStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
)

const scoreBarWidth = 20

// RenderSnapshot draws the whole session view. It holds no state of its own.
func RenderSnapshot(s session.Snapshot) string {
	if !s.Loaded {
		return statusStyle.Render(s.Status)
	}
	var lines []string

	header := fmt.Sprintf("Question %d of %d", s.QuestionIndex+1, s.QuestionTotal)
	if label := sourceLabel(s.Source); label != "" {
		header += dimStyle.Render("  " + label)
	}
	lines = append(lines, headerStyle.Render(header))
	lines = append(lines, questionStyle.Render(s.Question))
	lines = append(lines, indicatorLine(s))

	if s.Transcript != "" || s.State == session.StateRecording {
		body := strings.TrimSpace(s.Transcript)
		if body == "" {
			body = dimStyle.Render("(waiting for speech)")
		}
		lines = append(lines, transcriptStyle.Render(body))
		lines = append(lines, dimStyle.Render(fmt.Sprintf("%d words  %s", s.WordCount, s.Elapsed)))
	}

	if s.Feedback != nil {
		lines = append(lines, "", renderFeedback(*s.Feedback))
	}
	if s.ReportURL != "" {
		lines = append(lines, "", "Report: "+s.ReportURL)
	}
	if s.Status != "" {
		lines = append(lines, "", statusStyle.Render(s.Status))
	}
	return strings.Join(lines, "\n")
}

func indicatorLine(s session.Snapshot) string {
	var parts []string
	switch {
	case s.Speaking:
		parts = append(parts, speakingStyle.Render("♪ speaking"))
	case s.Listening:
		parts = append(parts, recStyle.Render("● REC"))
	default:
		parts = append(parts, dimStyle.Render("○ "+string(s.State)))
	}
	if s.UserMuted {
		parts = append(parts, dimStyle.Render("muted"))
	}
	return strings.Join(parts, "  ")
}

func sourceLabel(src interview.QuestionSource) string {
	switch src {
	case interview.QuestionSourceAI:
		return "tailored questions"
	case interview.QuestionSourceFallback:
		return "generic questions"
	default:
		return ""
	}
}

func renderFeedback(fb interview.Feedback) string {
	lines := []string{
		scoreLine("Clarity", fb.Clarity),
		scoreLine("Confidence", fb.Confidence),
		scoreLine("Structure", fb.Structure),
		scoreLine("Relevance", fb.Relevance),
	}
	if fb.Summary != "" {
		lines = append(lines, "", fb.Summary)
	}
	for _, tip := range fb.Tips {
		lines = append(lines, "  • "+tip)
	}
	return strings.Join(lines, "\n")
}

func scoreLine(name string, score int) string {
	score = clampScore(score)
	filled := score * scoreBarWidth / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", scoreBarWidth-filled)
	return fmt.Sprintf("%-11s %s %s", name, bar, scoreStyle.Render(fmt.Sprintf("%3d", score)))
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
