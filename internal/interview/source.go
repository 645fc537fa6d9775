package interview

import "strings"

type QuestionSource string

const (
	QuestionSourceUnknown  QuestionSource = "unknown"
	QuestionSourceAI       QuestionSource = "ai"
	QuestionSourceFallback QuestionSource = "fallback"
)

// fallbackQuestionBank holds the generic questions served when generation is unavailable.
var fallbackQuestionBank = []string{
	"tell me about yourself",
	"what are your greatest strengths",
	"what is your greatest weakness",
	"why do you want to work here",
	"why should we hire you",
	"where do you see yourself in five years",
	"describe a challenge you faced and how you handled it",
	"tell me about a time you worked in a team",
	"why are you leaving your current job",
	"do you have any questions for us",
}

// ClassifyQuestions prefers the backend tag and falls back to matching the
// question text against the generic question bank. Display only.
func ClassifyQuestions(questions []string, tag string) QuestionSource {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case string(QuestionSourceAI), "generated":
		return QuestionSourceAI
	case string(QuestionSourceFallback), "generic":
		return QuestionSourceFallback
	}
	if len(questions) == 0 {
		return QuestionSourceUnknown
	}
	generic := 0
	for _, q := range questions {
		if isFallbackQuestion(q) {
			generic++
		}
	}
	if generic*2 > len(questions) {
		return QuestionSourceFallback
	}
	return QuestionSourceAI
}

func isFallbackQuestion(q string) bool {
	normalized := normalizeQuestion(q)
	for _, known := range fallbackQuestionBank {
		if strings.HasPrefix(normalized, known) {
			return true
		}
	}
	return false
}

func normalizeQuestion(q string) string {
	q = strings.ToLower(strings.TrimSpace(q))
	q = strings.Map(func(r rune) rune {
		switch r {
		case '?', '!', '.', ',', ';', ':':
			return -1
		case '’':
			return '\''
		}
		return r
	}, q)
	return strings.Join(strings.Fields(q), " ")
}
