package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

func (r *Router) handleCallback(cb tgbotapi.CallbackQuery) {
	if _, err := r.Bot.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		r.logger().Debug("answer callback", zap.Error(err))
	}
	if cb.Message == nil || cb.Message.Chat == nil {
		return
	}
	cid := cb.Message.Chat.ID

	switch cb.Data {
	case cbDetails:
		res, ok := r.state.lastResult(cid)
		if !ok {
			r.send(cid, "Разбор не найден. Пришлите видео ещё раз.")
			return
		}
		r.send(cid, FormatDetails(res))
	default:
		r.logger().Debug("unknown callback", zap.String("data", cb.Data))
	}
}
