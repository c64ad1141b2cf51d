package telegram

import (
	"context"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"deadlift-coach/api/internal/service"
)

const helpText = "Пришлите видео становой тяги (сбоку, весь подход в кадре), я оценю технику по фазам.\n" +
	"Команды: /health, /prompt"

// Bot is the part of *tgbotapi.BotAPI the router needs.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

type Router struct {
	Bot      Bot
	Analyzer *service.Analyzer
	Log      *zap.Logger

	MaxVideoBytes int64
	Timeout       time.Duration
	HTTPClient    *http.Client

	state chatState
}

func (r *Router) logger() *zap.Logger {
	if r.Log == nil {
		return zap.NewNop()
	}
	return r.Log
}

func (r *Router) HandleCommand(msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	switch msg.Command() {
	case "start":
		r.state.forget(cid)
		r.send(cid, helpText)
	case "help":
		r.send(cid, helpText)
	case "health":
		if r.Analyzer.Configured() {
			r.send(cid, "✅ OK")
		} else {
			r.send(cid, "⚠️ Ключ модели не настроен")
		}
	case "prompt":
		s := r.Analyzer.Prompts().Current()
		r.send(cid, clip("Текущий промпт:\n\n"+s.Text))
	default:
		r.send(cid, "Неизвестная команда")
	}
}

// HandleUpdate dispatches one update. It blocks while a video is analyzed, so callers
// that poll run it in its own goroutine.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.CallbackQuery != nil {
		r.handleCallback(*upd.CallbackQuery)
		return
	}
	msg := upd.Message
	if msg == nil || msg.Chat == nil {
		return
	}
	if msg.IsCommand() {
		r.HandleCommand(msg)
		return
	}
	if v, ok := videoFrom(msg); ok {
		r.acceptVideo(ctx, msg.Chat.ID, v)
		return
	}
	if len(msg.Photo) > 0 {
		r.send(msg.Chat.ID, "Нужно видео, а не фото: по одному кадру технику не оценить.")
		return
	}
	if msg.Text != "" {
		r.send(msg.Chat.ID, helpText)
	}
}

func (r *Router) send(chatID int64, text string) {
	if _, err := r.Bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		r.logger().Warn("send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
