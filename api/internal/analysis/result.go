package analysis

// Phase is one of the five fixed stages of a deadlift rep.
type Phase string

const (
	Setup    Phase = "setup"
	LiftOff  Phase = "liftOff"
	MidRange Phase = "midRange"
	Lockout  Phase = "lockout"
	BarPath  Phase = "barPath"
)

// Phases lists every phase in rep order.
var Phases = []Phase{Setup, LiftOff, MidRange, Lockout, BarPath}

// DisplayName is the human label used in fallback feedback and reports.
func (p Phase) DisplayName() string {
	switch p {
	case Setup:
		return "Setup"
	case LiftOff:
		return "Lift-off"
	case MidRange:
		return "Mid-range"
	case Lockout:
		return "Lockout"
	case BarPath:
		return "Bar path"
	}
	return string(p)
}

const (
	DefaultScore     = 75
	MinScore         = 0
	MaxScore         = 100
	MaxPhaseFeedback = 200

	PendingFeedback  = "Analysis in progress..."
	JSONFeedback     = "Analysis completed"
	FallbackFeedback = "Analysis completed successfully"
	FailureFeedback  = "Analysis completed - see logs for details"
)

type PhaseAssessment struct {
	Score        int      `json:"score"`
	Feedback     string   `json:"feedback"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
}

// KeyPoints always carries all five phases; a struct keeps any of them from being dropped.
type KeyPoints struct {
	Setup    PhaseAssessment `json:"setup"`
	LiftOff  PhaseAssessment `json:"liftOff"`
	MidRange PhaseAssessment `json:"midRange"`
	Lockout  PhaseAssessment `json:"lockout"`
	BarPath  PhaseAssessment `json:"barPath"`
}

// Get returns the assessment for p, or a pending assessment for an unknown phase.
func (k KeyPoints) Get(p Phase) PhaseAssessment {
	switch p {
	case Setup:
		return k.Setup
	case LiftOff:
		return k.LiftOff
	case MidRange:
		return k.MidRange
	case Lockout:
		return k.Lockout
	case BarPath:
		return k.BarPath
	}
	return pendingAssessment()
}

func (k *KeyPoints) set(p Phase, a PhaseAssessment) {
	switch p {
	case Setup:
		k.Setup = a
	case LiftOff:
		k.LiftOff = a
	case MidRange:
		k.MidRange = a
	case Lockout:
		k.Lockout = a
	case BarPath:
		k.BarPath = a
	}
}

// Result is the normalized critique of one upstream answer.
type Result struct {
	OverallScore       int       `json:"overallScore"`
	Feedback           []string  `json:"feedback"`
	KeyPoints          KeyPoints `json:"keyPoints"`
	KeyRecommendations []string  `json:"keyRecommendations"`
	PracticeAreas      []string  `json:"practiceAreas"`
	SafetyNotes        []string  `json:"safetyNotes"`
}

type PhaseScore struct {
	Phase Phase `json:"phase"`
	Score int   `json:"score"`
}

// PhaseScores returns per-phase scores in rep order.
func (r Result) PhaseScores() []PhaseScore {
	out := make([]PhaseScore, 0, len(Phases))
	for _, p := range Phases {
		out = append(out, PhaseScore{Phase: p, Score: r.KeyPoints.Get(p).Score})
	}
	return out
}

// New returns the pre-parse default result.
func New() Result {
	r := Result{
		OverallScore:       DefaultScore,
		Feedback:           []string{},
		KeyRecommendations: []string{},
		PracticeAreas:      []string{},
		SafetyNotes:        []string{},
	}
	for _, p := range Phases {
		r.KeyPoints.set(p, pendingAssessment())
	}
	return r
}

func pendingAssessment() PhaseAssessment {
	return PhaseAssessment{
		Score:        DefaultScore,
		Feedback:     PendingFeedback,
		Strengths:    []string{},
		Improvements: []string{},
	}
}

func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func ClampScore(v int) int { return Clamp(v, MinScore, MaxScore) }

// Grade maps a score to the label shown next to it.
func Grade(score int) string {
	switch {
	case score >= 90:
		return "Excellent"
	case score >= 75:
		return "Good"
	case score >= 60:
		return "Needs Work"
	default:
		return "Poor"
	}
}
