package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"deadlift-coach/api/internal/prompt"
)

var ErrNoAPIKey = errors.New("GEMINI_API_KEY is empty")

// NoTextPlaceholder stands in for an answer without any text: no candidates, or
// candidates without a text part.
const NoTextPlaceholder = "No analysis text received"

const maxAttempts = 3

// UpstreamError is a non-success answer from the Gemini API.
type UpstreamError struct {
	Status int
	Err    error
}

func (e *UpstreamError) Error() string { return fmt.Sprintf("gemini %d: %v", e.Status, e.Err) }
func (e *UpstreamError) Unwrap() error { return e.Err }

type generateFunc func(ctx context.Context, model string, s prompt.Settings, parts []genai.Part) (*genai.GenerateContentResponse, error)

type Engine struct {
	APIKey string
	Model  string

	log      *zap.Logger
	generate generateFunc
	backoff  time.Duration
}

func New(apiKey, model string, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		APIKey:  strings.TrimSpace(apiKey),
		Model:   strings.TrimSpace(model),
		log:     logger,
		backoff: 300 * time.Millisecond,
	}
	e.generate = e.generateContent
	return e
}

func (e *Engine) Name() string     { return "gemini" }
func (e *Engine) GetModel() string { return e.Model }
func (e *Engine) Configured() bool { return e.APIKey != "" }

// Analyze sends the prompt and the video to the model and returns the raw answer text.
func (e *Engine) Analyze(ctx context.Context, video []byte, mime string, s prompt.Settings) (string, error) {
	if e.APIKey == "" {
		return "", ErrNoAPIKey
	}
	if len(video) == 0 {
		return "", errors.New("gemini: video is empty")
	}
	if mime == "" {
		mime = "video/mp4"
	}
	parts := []genai.Part{
		genai.Text(s.Text),
		&genai.Blob{MIMEType: mime, Data: video},
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := e.generate(ctx, e.Model, s, parts)
		if err == nil {
			txt := firstText(resp)
			if strings.TrimSpace(txt) == "" {
				e.log.Warn("gemini answer has no text", zap.String("model", e.Model))
				return NoTextPlaceholder, nil
			}
			return txt, nil
		}

		lastErr = classify(err)
		if !retryable(lastErr) || attempt == maxAttempts {
			break
		}
		e.log.Warn("gemini attempt failed",
			zap.Int("attempt", attempt), zap.String("model", e.Model), zap.Error(err))
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(time.Duration(attempt) * e.backoff):
		}
	}
	return "", lastErr
}

func (e *Engine) generateContent(ctx context.Context, model string, s prompt.Settings, parts []genai.Part) (*genai.GenerateContentResponse, error) {
	cl, err := genai.NewClient(ctx, option.WithAPIKey(e.APIKey))
	if err != nil {
		return nil, err
	}
	defer cl.Close()

	m := cl.GenerativeModel(model)
	if m == nil {
		return nil, fmt.Errorf("gemini: model is nil")
	}
	m.SetTemperature(s.Temperature)
	m.SetTopK(s.TopK)
	m.SetTopP(s.TopP)
	m.SetMaxOutputTokens(s.MaxOutputTokens)

	return m.GenerateContent(ctx, parts...)
}

func classify(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &UpstreamError{Status: gerr.Code, Err: err}
	}
	return err
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Status == http.StatusTooManyRequests || ue.Status >= 500
	}
	return true
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}
