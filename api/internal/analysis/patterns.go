package analysis

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Ordered overall-score patterns; the first match wins.
var overallPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:overall|total|final)\s*(?:score)?\s*:?\s*(\d+)(?:/100)?`),
	regexp.MustCompile(`(?i)6\.\s*overall\s*(?:score)?\s*:?\s*(\d+)(?:/100)?`),
	regexp.MustCompile(`(?i)overall\s*assessment\s*:?\s*(\d+)(?:/100)?`),
}

// phaseRule describes how a phase is named in free text. Adding a synonym is a data change.
type phaseRule struct {
	Phase Phase
	// Number is the list position the prompt asks the model to use for the phase heading.
	Number int
	// Headings are the names accepted after "N." in a numbered heading.
	Headings []string
	// Keywords are the names accepted anywhere in the text.
	Keywords []string
}

var phaseRules = []phaseRule{
	{Phase: Setup, Number: 1, Headings: []string{`setup`}, Keywords: []string{`setup`}},
	{Phase: LiftOff, Number: 2, Headings: []string{`lift[\-\s]?off`}, Keywords: []string{`lift[\-\s]?off`, `initial\s+pull`}},
	{Phase: MidRange, Number: 3, Headings: []string{`mid[\-\s]?range`}, Keywords: []string{`mid[\-\s]?range`, `execution`}},
	{Phase: Lockout, Number: 4, Headings: []string{`lockout`}, Keywords: []string{`lockout`}},
	{Phase: BarPath, Number: 5, Headings: []string{`bar\s+path`}, Keywords: []string{`bar\s+path`, `trajectory`}},
}

type phasePatterns struct {
	phase    Phase
	patterns []*regexp.Regexp
}

var phaseTable = compilePhaseRules(phaseRules)

// A new numbered heading at the start of a line ends the continuation text.
var numberedHeading = regexp.MustCompile(`^\d\.`)

func compilePhaseRules(rules []phaseRule) []phasePatterns {
	out := make([]phasePatterns, 0, len(rules))
	for _, r := range rules {
		numbered := `(?i)` + strconv.Itoa(r.Number) + `\.\s*(?:` + strings.Join(r.Headings, "|") +
			`)[^\n]*?(?:score)?\s*:?\s*(\d+)(?:/100)?([^\n]*)`
		bare := `(?i)(?:` + strings.Join(r.Keywords, "|") +
			`)[^\n]*?(?:score|rating)?\s*:?\s*(\d+)(?:/100)?([^\n]*)`
		out = append(out, phasePatterns{
			phase:    r.Phase,
			patterns: []*regexp.Regexp{regexp.MustCompile(numbered), regexp.MustCompile(bare)},
		})
	}
	return out
}

// matchOverallScore reports the first overall score found in text.
func matchOverallScore(text string) (int, bool) {
	for _, re := range overallPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return parseScore(m[1]), true
		}
	}
	return 0, false
}

// matchPhase runs the phase's patterns in priority order.
func matchPhase(pp phasePatterns, text string) (PhaseAssessment, bool) {
	for _, re := range pp.patterns {
		loc := re.FindStringSubmatchIndex(text)
		if loc == nil {
			continue
		}
		score := parseScore(text[loc[2]:loc[3]])
		tail := text[loc[4]:loc[5]] + continuationLine(text[loc[1]:])
		feedback := strings.TrimSpace(strings.TrimLeft(tail, ": -\t\n\r\f\v"))
		if feedback == "" {
			feedback = pp.phase.DisplayName() + " analysis completed"
		}
		return PhaseAssessment{
			Score:        score,
			Feedback:     truncateRunes(feedback, MaxPhaseFeedback),
			Strengths:    []string{},
			Improvements: []string{},
		}, true
	}
	return PhaseAssessment{}, false
}

// continuationLine returns "\n"+next line when rest starts a line that is not a numbered heading.
func continuationLine(rest string) string {
	if !strings.HasPrefix(rest, "\n") {
		return ""
	}
	line := rest[1:]
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	if numberedHeading.MatchString(line) {
		return ""
	}
	return "\n" + line
}

// parseScore converts captured digits to a clamped score. Digit runs too long
// for an int saturate at the upper bound.
func parseScore(digits string) int {
	n, err := strconv.Atoi(digits)
	if err != nil {
		return MaxScore
	}
	return ClampScore(n)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
