package main

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"net"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"deadlift-coach/api/internal/app"
	"deadlift-coach/api/internal/config"
	"deadlift-coach/api/internal/handle"
	"deadlift-coach/api/internal/httpserver"
	"deadlift-coach/api/internal/telegram"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "bot:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.TelegramBotToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is not set")
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

	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	bot.Debug = false
	log.Info("telegram bot authorized", zap.String("username", bot.Self.UserName))

	r := &telegram.Router{
		Bot:           bot,
		Analyzer:      a.Analyzer,
		Log:           log.Named("telegram"),
		MaxVideoBytes: cfg.MaxVideoBytes,
		Timeout:       cfg.AnalyzeTimeout,
	}

	h := handle.New(a.Analyzer, log.Named("http"))
	if a.Analyzer.HasStore() {
		h.Ping = a.Ping
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.Healthz)

	var wg sync.WaitGroup
	dispatch := func(upd tgbotapi.Update) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.HandleUpdate(ctx, upd)
		}()
	}
	defer wg.Wait()

	addr := "0.0.0.0:" + cfg.Port
	if webhookURL := strings.TrimSpace(cfg.WebhookURL); webhookURL != "" {
		path := "/webhook/" + shortHash(cfg.TelegramBotToken)
		if err := setWebhook(bot, strings.TrimRight(webhookURL, "/")+path); err != nil {
			return err
		}
		mux.HandleFunc("POST "+path, func(w http.ResponseWriter, req *http.Request) {
			upd, err := bot.HandleUpdate(req)
			if err != nil {
				log.Warn("bad webhook update", zap.Error(err))
				http.Error(w, "bad update", http.StatusBadRequest)
				return
			}
			dispatch(*upd)
		})
		log.Info("webhook mode", zap.String("path", path))
		return httpserver.New(addr, mux, log).Run(ctx)
	}

	if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		log.Warn("delete webhook", zap.Error(err))
	}
	go func() {
		if err := httpserver.New(addr, mux, log).Run(ctx); err != nil {
			log.Error("health server", zap.Error(err))
		}
	}()
	log.Info("polling mode")
	runPolling(ctx, bot, log, dispatch)
	return nil
}

func setWebhook(bot *tgbotapi.BotAPI, public string) error {
	wh, err := tgbotapi.NewWebhook(public)
	if err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	wh.DropPendingUpdates = true
	if _, err := bot.Request(wh); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	return nil
}

var reRetryAfter = regexp.MustCompile(`(?i)retry after\s+(\d+)`)

func retryDelayFromError(err error) time.Duration {
	if err == nil {
		return 0
	}
	var tgErr *tgbotapi.Error
	if errors.As(err, &tgErr) && tgErr.RetryAfter > 0 {
		return time.Duration(tgErr.RetryAfter) * time.Second
	}
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "too many requests") {
		if m := reRetryAfter.FindStringSubmatch(s); len(m) == 2 {
			if n, _ := strconv.Atoi(m[1]); n > 0 {
				return time.Duration(n) * time.Second
			}
		}
		return 3 * time.Second
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return 2 * time.Second
	}
	return time.Second
}

type updatesGetter interface {
	GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
}

// runPolling long-polls until ctx is done, backing off on errors instead of exiting.
func runPolling(ctx context.Context, bot updatesGetter, log *zap.Logger, handle func(tgbotapi.Update)) {
	const (
		baseDelay = time.Second
		maxDelay  = 15 * time.Second
	)
	offset := 0
	for {
		if ctx.Err() != nil {
			log.Info("polling stopped")
			return
		}

		u := tgbotapi.NewUpdate(offset)
		u.Timeout = 30

		updates, err := bot.GetUpdates(u)
		if err != nil {
			d := min(max(retryDelayFromError(err), baseDelay), maxDelay)
			log.Warn("polling error", zap.Error(err), zap.Duration("retry_in", d))
			sleep(ctx, d)
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			handle(upd)
		}
		if len(updates) == 0 {
			sleep(ctx, 200*time.Millisecond)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// shortHash keeps the token itself out of the webhook path.
func shortHash(s string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return fmt.Sprintf("%016x", h.Sum64())
}
