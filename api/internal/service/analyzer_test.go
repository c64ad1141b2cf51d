package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"deadlift-coach/api/internal/analysis"
	"deadlift-coach/api/internal/prompt"
	"deadlift-coach/api/internal/store"
)

type fakeEngine struct {
	answer     string
	err        error
	configured bool

	calls    int
	lastMIME string
	lastText string
}

func (f *fakeEngine) Analyze(_ context.Context, _ []byte, mime string, s prompt.Settings) (string, error) {
	f.calls++
	f.lastMIME, f.lastText = mime, s.Text
	return f.answer, f.err
}
func (f *fakeEngine) GetModel() string { return "fake-model" }
func (f *fakeEngine) Configured() bool { return f.configured }

type memRepo struct {
	mu      sync.Mutex
	rows    []store.Record
	saveErr error
	findErr error
}

func (m *memRepo) FindByHash(_ context.Context, videoHash, model, promptHash string, _ time.Duration) (*store.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	for i := len(m.rows) - 1; i >= 0; i-- {
		r := m.rows[i]
		if r.VideoHash == videoHash && r.Model == model && r.PromptHash == promptHash {
			return &r, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memRepo) Save(_ context.Context, rec store.Record) (store.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return store.Record{}, m.saveErr
	}
	rec.ID = "id-" + rec.VideoHash[:8]
	m.rows = append(m.rows, rec)
	return rec, nil
}

func (m *memRepo) Get(_ context.Context, id string) (*store.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, store.ErrNotFound
}

const jsonAnswer = `{"overallScore": 84, "phases": {"setup": {"score": 79}}, "keyRecommendations": ["Brace"]}`

func TestAnalyze_Validation(t *testing.T) {
	a := New(&fakeEngine{configured: true}, nil, nil, nil)
	_, err := a.Analyze(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrNoVideo)

	a = New(&fakeEngine{configured: false}, nil, nil, nil)
	_, err = a.Analyze(context.Background(), Request{Video: []byte("v")})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestAnalyze_NormalizesAnswer(t *testing.T) {
	eng := &fakeEngine{configured: true, answer: jsonAnswer}
	a := New(eng, nil, nil, zaptest.NewLogger(t))

	rep, err := a.Analyze(context.Background(), Request{Video: []byte("video-bytes"), MIME: "video/webm"})
	require.NoError(t, err)
	assert.Equal(t, jsonAnswer, rep.RawAnalysis)
	assert.Equal(t, 84, rep.Structured.OverallScore)
	assert.Equal(t, 79, rep.Structured.KeyPoints.Setup.Score)
	assert.Equal(t, []string{"Brace"}, rep.Structured.Feedback)
	assert.Empty(t, rep.ID)
	assert.False(t, rep.Cached)
	assert.Equal(t, "video/webm", eng.lastMIME)
	assert.Equal(t, prompt.DeadliftText, eng.lastText)
}

func TestAnalyze_CustomPrompt(t *testing.T) {
	eng := &fakeEngine{configured: true, answer: "Overall score: 70"}
	a := New(eng, nil, nil, nil)

	rep, err := a.Analyze(context.Background(), Request{Video: []byte("v"), Prompt: "Just score it"})
	require.NoError(t, err)
	assert.Equal(t, "Just score it", eng.lastText)
	assert.Equal(t, 70, rep.Structured.OverallScore)
}

func TestAnalyze_EngineError(t *testing.T) {
	boom := errors.New("upstream down")
	a := New(&fakeEngine{configured: true, err: boom}, nil, nil, nil)
	_, err := a.Analyze(context.Background(), Request{Video: []byte("v")})
	assert.ErrorIs(t, err, boom)
}

func TestAnalyze_CachesByVideoAndPrompt(t *testing.T) {
	eng := &fakeEngine{configured: true, answer: jsonAnswer}
	repo := &memRepo{}
	a := New(eng, repo, nil, zaptest.NewLogger(t))
	ctx := context.Background()

	first, err := a.Analyze(ctx, Request{Video: []byte("same")})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.False(t, first.Cached)

	second, err := a.Analyze(ctx, Request{Video: []byte("same")})
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Structured, second.Structured)
	assert.Equal(t, 1, eng.calls)

	_, err = a.Analyze(ctx, Request{Video: []byte("same"), Prompt: "different prompt"})
	require.NoError(t, err)
	assert.Equal(t, 2, eng.calls)

	rec, err := a.Lookup(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, jsonAnswer, rec.RawText)

	_, err = a.Lookup(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAnalyze_StoreFailuresAreNotFatal(t *testing.T) {
	repo := &memRepo{findErr: errors.New("db gone"), saveErr: errors.New("db gone")}
	a := New(&fakeEngine{configured: true, answer: jsonAnswer}, repo, nil, zaptest.NewLogger(t))

	rep, err := a.Analyze(context.Background(), Request{Video: []byte("v")})
	require.NoError(t, err)
	assert.Empty(t, rep.ID)
	assert.Equal(t, 84, rep.Structured.OverallScore)
}

func TestLookup_NoStore(t *testing.T) {
	a := New(&fakeEngine{}, nil, nil, nil)
	_, err := a.Lookup(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNoStore)
	assert.False(t, a.HasStore())
}

func TestNormalizeMatchesPackage(t *testing.T) {
	a := New(&fakeEngine{}, nil, nil, nil)
	in := "2. Lift-off score: 80 good speed"
	assert.Equal(t, analysis.Normalize(in), a.Normalize(in))
}
