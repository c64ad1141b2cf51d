package analysis

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"
)

var (
	errNoJSONObject = errors.New("no JSON object in text")
	errTrailingData = errors.New("trailing data after JSON object")
)

// extractJSONObject returns the greedy span from the first '{' to the last '}'.
func extractJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	end := strings.LastIndexByte(s, '}')
	if end < start {
		return "", false
	}
	return s[start : end+1], true
}

func decodeObject(raw string) (map[string]any, error) {
	span, ok := extractJSONObject(raw)
	if !ok {
		return nil, errNoJSONObject
	}
	dec := json.NewDecoder(strings.NewReader(span))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errTrailingData
	}
	if obj == nil {
		return nil, errNoJSONObject
	}
	return obj, nil
}

// fromJSON fills r from an already decoded upstream payload.
func fromJSON(obj map[string]any, r *Result) {
	r.OverallScore = readOptionalInt(obj, "overallScore", DefaultScore, MinScore, MaxScore)

	if phases, ok := obj["phases"].(map[string]any); ok {
		for _, p := range Phases {
			v := phases[string(p)]
			if isFalsy(v) {
				continue
			}
			src, _ := v.(map[string]any)
			strengths, _ := readOptionalStringList(src, "strengths")
			improvements, _ := readOptionalStringList(src, "improvements")
			r.KeyPoints.set(p, PhaseAssessment{
				Score:        readOptionalInt(src, "score", DefaultScore, MinScore, MaxScore),
				Feedback:     readOptionalString(src, "feedback", JSONFeedback),
				Strengths:    strengths,
				Improvements: improvements,
			})
		}
	}

	if recs, ok := readOptionalStringList(obj, "keyRecommendations"); ok {
		r.KeyRecommendations = recs
		r.Feedback = append([]string{}, recs...)
	}
	if areas, ok := readOptionalStringList(obj, "practiceAreas"); ok {
		r.PracticeAreas = areas
	}
	if notes, ok := readOptionalStringList(obj, "safetyNotes"); ok {
		r.SafetyNotes = notes
	}
}

// isFalsy reports values that count as "no phase given": null, false, zero and "".
func isFalsy(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case bool:
		return !x
	case string:
		return x == ""
	case json.Number:
		f, err := x.Float64()
		return err == nil && (f == 0 || math.IsNaN(f))
	case float64:
		return x == 0 || math.IsNaN(x)
	}
	return false
}

// readOptionalInt reads a numeric field and clamps it to [lo, hi].
// Absent or non-numeric values give def. Numeric strings are accepted.
func readOptionalInt(src map[string]any, key string, def, lo, hi int) int {
	v, ok := src[key]
	if !ok {
		return def
	}
	f, ok := toFloat(v)
	if !ok {
		return def
	}
	switch {
	case f <= float64(lo):
		return lo
	case f >= float64(hi):
		return hi
	}
	return Clamp(int(math.Round(f)), lo, hi)
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case json.Number:
		x, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = x
	case float64:
		f = n
	case int:
		f = float64(n)
	case string:
		x, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = x
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// readOptionalString returns a non-blank string field, or def.
func readOptionalString(src map[string]any, key, def string) string {
	s, ok := src[key].(string)
	if !ok || strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// readOptionalStringList returns the string elements of an array field.
// The bool reports whether the field was an array at all; non-array values are ignored
// and yield an empty, non-nil list.
func readOptionalStringList(src map[string]any, key string) ([]string, bool) {
	arr, ok := src[key].([]any)
	if !ok {
		return []string{}, false
	}
	out := make([]string, 0, len(arr))
	for _, el := range arr {
		if s, ok := el.(string); ok {
			out = append(out, s)
		}
	}
	return out, true
}
