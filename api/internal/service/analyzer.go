package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"deadlift-coach/api/internal/analysis"
	"deadlift-coach/api/internal/prompt"
	"deadlift-coach/api/internal/store"
	"deadlift-coach/api/internal/util"
)

var (
	ErrNotConfigured = errors.New("API key not configured")
	ErrNoVideo       = errors.New("no video file provided")
	ErrNoStore       = errors.New("analysis store is not configured")
	ErrNotFound      = errors.New("analysis not found")
)

type Engine interface {
	Analyze(ctx context.Context, video []byte, mime string, s prompt.Settings) (string, error)
	GetModel() string
	Configured() bool
}

type Repo interface {
	FindByHash(ctx context.Context, videoHash, model, promptHash string, maxAge time.Duration) (*store.Record, error)
	Save(ctx context.Context, rec store.Record) (store.Record, error)
	Get(ctx context.Context, id string) (*store.Record, error)
}

type Request struct {
	Video  []byte
	MIME   string
	Prompt string
}

// Report is what callers get back for one video.
type Report struct {
	ID          string          `json:"id,omitempty"`
	RawAnalysis string          `json:"rawAnalysis"`
	Structured  analysis.Result `json:"structuredAnalysis"`
	Cached      bool            `json:"cached"`
	Timestamp   time.Time       `json:"timestamp"`
}

type Analyzer struct {
	engine     Engine
	repo       Repo
	prompts    *prompt.Store
	normalizer *analysis.Normalizer
	log        *zap.Logger

	CacheMaxAge time.Duration
	now         func() time.Time
}

// New wires an Analyzer. repo may be nil, in which case nothing is cached or stored.
func New(engine Engine, repo Repo, prompts *prompt.Store, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if prompts == nil {
		prompts = prompt.NewStore("", prompt.Default())
	}
	return &Analyzer{
		engine:      engine,
		repo:        repo,
		prompts:     prompts,
		normalizer:  analysis.NewNormalizer(logger.Named("normalizer")),
		log:         logger,
		CacheMaxAge: 24 * time.Hour,
		now:         time.Now,
	}
}

func (a *Analyzer) Prompts() *prompt.Store { return a.prompts }

func (a *Analyzer) Configured() bool { return a.engine != nil && a.engine.Configured() }

func (a *Analyzer) HasStore() bool { return a.repo != nil }

// Analyze runs one video through the model and normalizes the answer.
// Store failures are logged and never fail the analysis.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (Report, error) {
	if len(req.Video) == 0 {
		return Report{}, ErrNoVideo
	}
	if !a.Configured() {
		return Report{}, ErrNotConfigured
	}

	settings := a.prompts.Current()
	settings.Text = settings.Resolve(req.Prompt)
	mime := util.PickMIME(req.MIME, "", req.Video)
	videoHash := util.SHA256Hex(req.Video)
	promptHash := promptKey(settings)
	model := a.engine.GetModel()

	log := a.log.With(zap.String("video_hash", videoHash[:16]), zap.String("model", model))

	if a.repo != nil {
		rec, err := a.repo.FindByHash(ctx, videoHash, model, promptHash, a.CacheMaxAge)
		switch {
		case err == nil:
			log.Info("analysis cache hit", zap.String("id", rec.ID))
			return Report{
				ID:          rec.ID,
				RawAnalysis: rec.RawText,
				Structured:  rec.Result,
				Cached:      true,
				Timestamp:   a.now().UTC(),
			}, nil
		case !errors.Is(err, store.ErrNotFound):
			log.Warn("analysis cache lookup failed", zap.Error(err))
		}
	}

	log.Info("starting analysis", zap.Int("video_bytes", len(req.Video)), zap.String("mime", mime))
	raw, err := a.engine.Analyze(ctx, req.Video, mime, settings)
	if err != nil {
		return Report{}, fmt.Errorf("analyze video: %w", err)
	}

	rep := Report{
		RawAnalysis: raw,
		Structured:  a.normalizer.Normalize(raw),
		Timestamp:   a.now().UTC(),
	}

	if a.repo != nil {
		rec, err := a.repo.Save(ctx, store.Record{
			CreatedAt:  rep.Timestamp,
			VideoHash:  videoHash,
			Model:      model,
			PromptHash: promptHash,
			RawText:    raw,
			Result:     rep.Structured,
		})
		if err != nil {
			log.Warn("save analysis failed", zap.Error(err))
		} else {
			rep.ID = rec.ID
		}
	}

	log.Info("analysis completed",
		zap.String("id", rep.ID), zap.Int("overall_score", rep.Structured.OverallScore))
	return rep, nil
}

// Normalize exposes the normalizer for callers that already hold the model's text.
func (a *Analyzer) Normalize(raw string) analysis.Result {
	return a.normalizer.Normalize(raw)
}

func (a *Analyzer) Lookup(ctx context.Context, id string) (*store.Record, error) {
	if a.repo == nil {
		return nil, ErrNoStore
	}
	rec, err := a.repo.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	return rec, err
}

func promptKey(s prompt.Settings) string {
	params := fmt.Sprintf("%g|%d|%g|%d", s.Temperature, s.TopK, s.TopP, s.MaxOutputTokens)
	return util.SHA256Hex([]byte(s.Text), []byte{0}, []byte(params))
}
