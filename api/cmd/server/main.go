package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"deadlift-coach/api/internal/app"
	"deadlift-coach/api/internal/config"
	"deadlift-coach/api/internal/handle"
	"deadlift-coach/api/internal/httpserver"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "server:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := cfg.Logger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()
	go a.RunJanitor(ctx)

	h := handle.New(a.Analyzer, log.Named("http"))
	h.Timeout = cfg.AnalyzeTimeout
	h.MaxVideoBytes = cfg.MaxVideoBytes
	if a.Analyzer.HasStore() {
		h.Ping = a.Ping
	}

	mux := http.NewServeMux()
	h.Register(mux)

	log.Info("starting deadlift analysis server",
		zap.String("port", cfg.Port),
		zap.String("model", cfg.GeminiModel),
		zap.Bool("store", a.Analyzer.HasStore()))
	return httpserver.New("0.0.0.0:"+cfg.Port, mux, log).Run(ctx)
}
