// Package analysis turns the free-text or JSON critique returned by the upstream model
// into a fixed-shape Result with per-phase scores and feedback.
package analysis

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Normalizer is stateless apart from its logger and safe for concurrent use.
type Normalizer struct {
	log *zap.Logger
}

func NewNormalizer(logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{log: logger}
}

var defaultNormalizer = NewNormalizer(nil)

// Normalize parses raw with a silent Normalizer.
func Normalize(raw string) Result {
	return defaultNormalizer.Normalize(raw)
}

// Normalize never fails. A JSON object in raw that parses wins outright; otherwise the
// text is salvaged with patterns. If anything goes wrong midway the partial result is
// returned with a single informational feedback entry.
func (n *Normalizer) Normalize(raw string) (res Result) {
	res = New()
	defer func() {
		if rec := recover(); rec != nil {
			n.log.Error("normalize analysis", zap.Error(fmt.Errorf("panic: %v", rec)))
			res.Feedback = []string{FailureFeedback}
		}
	}()

	obj, err := decodeObject(raw)
	if err == nil {
		fromJSON(obj, &res)
		n.log.Debug("parsed JSON analysis", zap.Int("overall_score", res.OverallScore))
		return res
	}
	if !errors.Is(err, errNoJSONObject) {
		n.log.Debug("JSON parsing failed, falling back to text parsing", zap.Error(err))
	}

	n.fromText(raw, &res)
	return res
}

func (n *Normalizer) fromText(text string, r *Result) {
	if score, ok := matchOverallScore(text); ok {
		r.OverallScore = score
	}
	for _, pp := range phaseTable {
		if a, ok := matchPhase(pp, text); ok {
			r.KeyPoints.set(pp.phase, a)
		} else {
			n.log.Debug("no match for phase", zap.String("phase", string(pp.phase)))
		}
	}
	r.Feedback = generalFeedback(text)
	n.log.Debug("parsed text analysis",
		zap.Int("overall_score", r.OverallScore),
		zap.Int("feedback_items", len(r.Feedback)))
}
