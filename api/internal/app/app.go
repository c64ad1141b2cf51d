// Package app wires configuration into the analysis service shared by the binaries.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"deadlift-coach/api/internal/config"
	"deadlift-coach/api/internal/gemini"
	"deadlift-coach/api/internal/prompt"
	"deadlift-coach/api/internal/service"
	"deadlift-coach/api/internal/store"
)

const purgeEvery = time.Hour

type App struct {
	Config   *config.Config
	Log      *zap.Logger
	Analyzer *service.Analyzer

	db   *sql.DB
	repo *store.AnalysisRepo
}

// Build loads the prompt, connects the optional database and assembles the Analyzer.
// Without a DSN the service runs uncached.
func Build(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	settings, err := prompt.Load(cfg.PromptFile)
	if err != nil {
		return nil, err
	}
	prompts := prompt.NewStore(cfg.PromptFile, settings)

	engine := gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel, log.Named("gemini"))
	if !engine.Configured() {
		log.Warn("GEMINI_API_KEY is not set; analysis requests will fail")
	}

	a := &App{Config: cfg, Log: log}
	var repo service.Repo
	if cfg.DatabaseURL != "" {
		db, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.db = db
		a.repo = store.NewAnalysisRepo(db)
		if err := a.repo.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		log.Info("db connected", zap.String("dsn", config.SafeDSNSummary(cfg.DatabaseURL)))
		repo = a.repo
	} else {
		log.Info("no database configured; analyses are not cached")
	}

	a.Analyzer = service.New(engine, repo, prompts, log.Named("service"))
	a.Analyzer.CacheMaxAge = cfg.CacheMaxAge
	return a, nil
}

// Ping reports database health, or nil when there is no database.
func (a *App) Ping(ctx context.Context) error {
	if a.repo == nil {
		return nil
	}
	return a.repo.Ping(ctx)
}

// RunJanitor deletes analyses older than the retention period until ctx is done.
func (a *App) RunJanitor(ctx context.Context) {
	if a.repo == nil || a.Config.Retention <= 0 {
		return
	}
	t := time.NewTicker(purgeEvery)
	defer t.Stop()
	for {
		n, err := a.repo.PurgeOlderThan(ctx, a.Config.Retention)
		if err != nil && ctx.Err() == nil {
			a.Log.Warn("purge old analyses", zap.Error(err))
		} else if n > 0 {
			a.Log.Info("purged old analyses", zap.Int64("rows", n))
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
