package telegram

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"deadlift-coach/api/internal/analysis"
)

const (
	maxMessageLen      = 3900
	maxRecommendations = 4
	barWidth           = 10

	cbDetails = "details"
)

func makeDetailsKeyboard() tgbotapi.InlineKeyboardMarkup {
	btn := tgbotapi.NewInlineKeyboardButtonData("Разбор по фазам", cbDetails)
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(btn))
}

// FormatReport renders the short chat summary of one analysis.
func FormatReport(res analysis.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🏋️ Становая тяга: %d/100 (%s)\n\n", res.OverallScore, analysis.Grade(res.OverallScore))

	for _, ps := range res.PhaseScores() {
		fmt.Fprintf(&b, "%s %s: %d/100\n", scoreBar(ps.Score), ps.Phase.DisplayName(), ps.Score)
	}

	recs := res.KeyRecommendations
	if len(recs) == 0 {
		recs = res.Feedback
	}
	if len(recs) > 0 {
		b.WriteString("\nРекомендации:\n")
		for i, r := range recs {
			if i == maxRecommendations {
				break
			}
			b.WriteString("• ")
			b.WriteString(r)
			b.WriteString("\n")
		}
	}

	if len(res.SafetyNotes) > 0 {
		b.WriteString("\n⚠️ Безопасность:\n")
		for _, n := range res.SafetyNotes {
			b.WriteString("• ")
			b.WriteString(n)
			b.WriteString("\n")
		}
	}
	return clip(strings.TrimRight(b.String(), "\n"))
}

// FormatDetails lists every phase with its feedback, strengths and improvements.
func FormatDetails(res analysis.Result) string {
	var b strings.Builder
	for _, p := range analysis.Phases {
		a := res.KeyPoints.Get(p)
		fmt.Fprintf(&b, "%s (%d/100)\n%s\n", p.DisplayName(), a.Score, a.Feedback)
		writeList(&b, "👍 ", a.Strengths)
		writeList(&b, "🔧 ", a.Improvements)
		b.WriteString("\n")
	}
	if len(res.PracticeAreas) > 0 {
		b.WriteString("Над чем работать:\n")
		writeList(&b, "• ", res.PracticeAreas)
	}
	return clip(strings.TrimRight(b.String(), "\n"))
}

func writeList(b *strings.Builder, prefix string, items []string) {
	for _, it := range items {
		b.WriteString(prefix)
		b.WriteString(it)
		b.WriteString("\n")
	}
}

// scoreBar draws a ten-cell bar, rounded to the nearest cell.
func scoreBar(score int) string {
	filled := (analysis.ClampScore(score)*barWidth + 50) / 100
	return strings.Repeat("▰", filled) + strings.Repeat("▱", barWidth-filled)
}

func clip(s string) string {
	r := []rune(s)
	if len(r) > maxMessageLen {
		return string(r[:maxMessageLen]) + "…"
	}
	return s
}
