package gemini

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"deadlift-coach/api/internal/prompt"
)

func textResponse(s string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text(s)}},
		}},
	}
}

func newTestEngine(fn generateFunc) *Engine {
	e := New("key", "gemini-test", nil)
	e.backoff = time.Millisecond
	e.generate = fn
	return e
}

func TestAnalyze_NoKey(t *testing.T) {
	e := New("  ", "m", nil)
	assert.False(t, e.Configured())
	_, err := e.Analyze(context.Background(), []byte{1}, "video/mp4", prompt.Default())
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestAnalyze_SendsPromptAndVideo(t *testing.T) {
	var gotParts []genai.Part
	var gotModel string
	e := newTestEngine(func(_ context.Context, model string, _ prompt.Settings, parts []genai.Part) (*genai.GenerateContentResponse, error) {
		gotModel, gotParts = model, parts
		return textResponse(`{"overallScore": 80}`), nil
	})

	s := prompt.Default()
	s.Text = "rate it"
	out, err := e.Analyze(context.Background(), []byte("vid"), "", s)
	require.NoError(t, err)
	assert.Equal(t, `{"overallScore": 80}`, out)
	assert.Equal(t, "gemini-test", gotModel)
	require.Len(t, gotParts, 2)
	assert.Equal(t, genai.Text("rate it"), gotParts[0])
	blob, ok := gotParts[1].(*genai.Blob)
	require.True(t, ok)
	assert.Equal(t, "video/mp4", blob.MIMEType)
	assert.Equal(t, []byte("vid"), blob.Data)
}

func TestAnalyze_NoTextPart(t *testing.T) {
	e := newTestEngine(func(context.Context, string, prompt.Settings, []genai.Part) (*genai.GenerateContentResponse, error) {
		return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: &genai.Content{}}}}, nil
	})
	out, err := e.Analyze(context.Background(), []byte("v"), "video/mp4", prompt.Default())
	require.NoError(t, err)
	assert.Equal(t, NoTextPlaceholder, out)
}

func TestAnalyze_NoCandidates(t *testing.T) {
	e := newTestEngine(func(context.Context, string, prompt.Settings, []genai.Part) (*genai.GenerateContentResponse, error) {
		return &genai.GenerateContentResponse{}, nil
	})
	got, err := e.Analyze(context.Background(), []byte("v"), "video/mp4", prompt.Default())
	require.NoError(t, err)
	assert.Equal(t, NoTextPlaceholder, got)

	e = newTestEngine(func(context.Context, string, prompt.Settings, []genai.Part) (*genai.GenerateContentResponse, error) {
		return nil, nil
	})
	got, err = e.Analyze(context.Background(), []byte("v"), "video/mp4", prompt.Default())
	require.NoError(t, err)
	assert.Equal(t, NoTextPlaceholder, got)
}

func TestAnalyze_RetriesTransientErrors(t *testing.T) {
	calls := 0
	e := newTestEngine(func(context.Context, string, prompt.Settings, []genai.Part) (*genai.GenerateContentResponse, error) {
		calls++
		if calls < 3 {
			return nil, &googleapi.Error{Code: http.StatusServiceUnavailable}
		}
		return textResponse("ok"), nil
	})
	out, err := e.Analyze(context.Background(), []byte("v"), "video/mp4", prompt.Default())
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 3, calls)
}

func TestAnalyze_DoesNotRetryClientErrors(t *testing.T) {
	calls := 0
	e := newTestEngine(func(context.Context, string, prompt.Settings, []genai.Part) (*genai.GenerateContentResponse, error) {
		calls++
		return nil, &googleapi.Error{Code: http.StatusBadRequest, Message: "bad video"}
	})
	_, err := e.Analyze(context.Background(), []byte("v"), "video/mp4", prompt.Default())

	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusBadRequest, ue.Status)
	assert.Equal(t, 1, calls)
}

func TestAnalyze_GivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0
	boom := errors.New("connection reset")
	e := newTestEngine(func(context.Context, string, prompt.Settings, []genai.Part) (*genai.GenerateContentResponse, error) {
		calls++
		return nil, boom
	})
	_, err := e.Analyze(context.Background(), []byte("v"), "video/mp4", prompt.Default())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, maxAttempts, calls)
}

func TestAnalyze_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	e := newTestEngine(func(context.Context, string, prompt.Settings, []genai.Part) (*genai.GenerateContentResponse, error) {
		cancel()
		return nil, errors.New("transient")
	})
	e.backoff = time.Hour
	_, err := e.Analyze(ctx, []byte("v"), "video/mp4", prompt.Default())
	assert.ErrorIs(t, err, context.Canceled)
}
