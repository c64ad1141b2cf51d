package analysis

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	maxFeedbackLines   = 4
	maxSentences       = 3
	minCandidateLen    = 15
	minFeedbackLineLen = 10
	minSentenceLen     = 20
	maxSentenceLen     = 150
)

var adviceWords = []string{"recommend", "improve", "focus", "should", "try", "practice"}

var bulletMarkers = []string{"•", "-", "*"}

var (
	leadingBullet    = regexp.MustCompile(`^[•\-*]\s*`)
	sentenceBoundary = regexp.MustCompile(`[.!?]+`)
)

// generalFeedback picks advice-like lines from free text, falling back to plain sentences.
func generalFeedback(text string) []string {
	if lines := adviceLines(text); len(lines) > 0 {
		return lines
	}
	if sentences := shortSentences(text); len(sentences) > 0 {
		return sentences
	}
	return []string{FallbackFeedback}
}

func adviceLines(text string) []string {
	var candidates []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.ToLower(strings.TrimSpace(line))
		if utf8.RuneCountInString(trimmed) <= minCandidateLen {
			continue
		}
		if containsAny(trimmed, adviceWords) || hasAnyPrefix(trimmed, bulletMarkers) {
			candidates = append(candidates, line)
		}
		if len(candidates) == maxFeedbackLines {
			break
		}
	}

	out := make([]string, 0, len(candidates))
	for _, line := range candidates {
		line = strings.TrimSpace(leadingBullet.ReplaceAllString(line, ""))
		if utf8.RuneCountInString(line) >= minFeedbackLineLen {
			out = append(out, line)
		}
	}
	return out
}

func shortSentences(text string) []string {
	var out []string
	for _, s := range sentenceBoundary.Split(text, -1) {
		s = strings.TrimSpace(s)
		n := utf8.RuneCountInString(s)
		if n <= minSentenceLen || n >= maxSentenceLen {
			continue
		}
		out = append(out, s)
		if len(out) == maxSentences {
			break
		}
	}
	return out
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
