package session

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/foxseedlab/shadowinterview/internal/repository"
)

const reportTimeLayout = "2006-01-02 15:04:05"

type ReportMeta struct {
	InterviewID    string
	QuestionSource string
	StartedAt      time.Time
	EndedAt        time.Time
	ReportURL      string
}

// BuildPracticeReport renders the journaled attempts of one practice run as
// plain text, ordered by question index.
func BuildPracticeReport(meta ReportMeta, loc *time.Location, attempts []repository.Attempt) []byte {
	loc = safeLocation(loc)
	ordered := canonicalAttempts(attempts)

	lines := []string{
		fmt.Sprintf("Interview: %s", meta.InterviewID),
		fmt.Sprintf("Practice: %s ~ %s (%s)", meta.StartedAt.In(loc).Format(reportTimeLayout), meta.EndedAt.In(loc).Format(reportTimeLayout), formatElapsedHMS(nonNegative(meta.EndedAt.Sub(meta.StartedAt)))),
	}
	if meta.QuestionSource != "" {
		lines = append(lines, fmt.Sprintf("Questions: %s", meta.QuestionSource))
	}
	if meta.ReportURL != "" {
		lines = append(lines, fmt.Sprintf("Report: %s", meta.ReportURL))
	}
	if len(ordered) > 0 {
		lines = append(lines, fmt.Sprintf("Average score: %d", averageScore(ordered)))
	}
	for _, a := range ordered {
		lines = append(lines,
			"",
			fmt.Sprintf("Q%d %s %s", a.QuestionIndex+1, formatElapsedHMS(nonNegative(a.SubmittedAt.Sub(meta.StartedAt))), a.Question),
			fmt.Sprintf("Answer (%d words): %s", a.WordCount, a.Transcript),
			fmt.Sprintf("Clarity %d / Confidence %d / Structure %d / Relevance %d", a.Clarity, a.Confidence, a.Structure, a.Relevance),
		)
		if a.Summary != "" {
			lines = append(lines, a.Summary)
		}
		for _, tip := range a.Tips {
			lines = append(lines, "- "+tip)
		}
	}
	return []byte(strings.Join(lines, "\n"))
}

// canonicalAttempts keeps the latest attempt per question index.
func canonicalAttempts(attempts []repository.Attempt) []repository.Attempt {
	byIndex := make(map[int]repository.Attempt, len(attempts))
	for _, a := range attempts {
		existing, ok := byIndex[a.QuestionIndex]
		if !ok || a.SubmittedAt.After(existing.SubmittedAt) {
			byIndex[a.QuestionIndex] = a
		}
	}
	list := make([]repository.Attempt, 0, len(byIndex))
	for _, a := range byIndex {
		list = append(list, a)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].QuestionIndex < list[j].QuestionIndex
	})
	return list
}

func averageScore(attempts []repository.Attempt) int {
	if len(attempts) == 0 {
		return 0
	}
	total := 0
	for _, a := range attempts {
		total += a.Clarity + a.Confidence + a.Structure + a.Relevance
	}
	return total / (len(attempts) * 4)
}

func nonNegative(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}

func safeLocation(loc *time.Location) *time.Location {
	if loc == nil {
		return time.Local
	}
	return loc
}
