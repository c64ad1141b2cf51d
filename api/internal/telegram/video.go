package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"deadlift-coach/api/internal/gemini"
	"deadlift-coach/api/internal/service"
)

var errTooLarge = errors.New("video too large")

type videoRef struct {
	FileID string
	Size   int64
	MIME   string
}

// videoFrom picks the video attached to msg: a video, a round video note or a
// document with a video/* type.
func videoFrom(msg *tgbotapi.Message) (videoRef, bool) {
	switch {
	case msg.Video != nil:
		return videoRef{FileID: msg.Video.FileID, Size: int64(msg.Video.FileSize), MIME: msg.Video.MimeType}, true
	case msg.VideoNote != nil:
		return videoRef{FileID: msg.VideoNote.FileID, Size: int64(msg.VideoNote.FileSize), MIME: "video/mp4"}, true
	case msg.Document != nil && strings.HasPrefix(strings.ToLower(msg.Document.MimeType), "video/"):
		return videoRef{FileID: msg.Document.FileID, Size: int64(msg.Document.FileSize), MIME: msg.Document.MimeType}, true
	}
	return videoRef{}, false
}

func (r *Router) acceptVideo(ctx context.Context, chatID int64, v videoRef) {
	log := r.logger().With(zap.Int64("chat_id", chatID), zap.String("file_id", v.FileID))

	if r.MaxVideoBytes > 0 && v.Size > r.MaxVideoBytes {
		r.send(chatID, fmt.Sprintf("Видео слишком большое (лимит %d МБ). Обрежьте его до одного подхода.", r.MaxVideoBytes>>20))
		return
	}
	if !r.state.begin(chatID) {
		r.send(chatID, "Предыдущее видео ещё анализируется, подождите немного.")
		return
	}
	defer r.state.end(chatID)

	r.send(chatID, "Видео принято, анализирую технику…")
	if _, err := r.Bot.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		log.Debug("chat action", zap.Error(err))
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	fileURL, err := r.Bot.GetFileDirectURL(v.FileID)
	if err != nil {
		log.Error("get file url", zap.Error(err))
		r.send(chatID, "Не удалось получить файл из Telegram. Попробуйте ещё раз.")
		return
	}
	data, err := r.download(ctx, fileURL)
	if err != nil {
		log.Error("download video", zap.Error(err))
		if errors.Is(err, errTooLarge) {
			r.send(chatID, "Видео слишком большое.")
			return
		}
		r.send(chatID, "Не удалось скачать видео. Попробуйте ещё раз.")
		return
	}

	start := time.Now()
	rep, err := r.Analyzer.Analyze(ctx, service.Request{Video: data, MIME: v.MIME})
	if err != nil {
		log.Error("analyze video", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		r.send(chatID, analyzeErrorText(err))
		return
	}
	log.Info("video analyzed",
		zap.String("id", rep.ID),
		zap.Bool("cached", rep.Cached),
		zap.Int("overall_score", rep.Structured.OverallScore),
		zap.Duration("elapsed", time.Since(start)))

	r.state.remember(chatID, rep.Structured)
	msg := tgbotapi.NewMessage(chatID, FormatReport(rep.Structured))
	msg.ReplyMarkup = makeDetailsKeyboard()
	if _, err := r.Bot.Send(msg); err != nil {
		log.Warn("send report", zap.Error(err))
	}
}

func analyzeErrorText(err error) string {
	var up *gemini.UpstreamError
	switch {
	case errors.Is(err, service.ErrNotConfigured):
		return "Анализ недоступен: ключ модели не настроен."
	case errors.As(err, &up):
		return fmt.Sprintf("Модель ответила ошибкой (%d). Попробуйте позже.", up.Status)
	case errors.Is(err, context.DeadlineExceeded):
		return "Анализ занял слишком много времени. Попробуйте более короткое видео."
	default:
		return "Не удалось проанализировать видео. Попробуйте ещё раз."
	}
}

// download fetches a Telegram file. The file URL embeds the bot token, so errors
// never carry it.
func (r *Router) download(ctx context.Context, fileURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, errors.New("bad file url")
	}
	resp, err := r.httpClient().Do(req)
	if err != nil {
		var ue *url.Error
		if errors.As(err, &ue) {
			return nil, fmt.Errorf("%s telegram file: %w", ue.Op, ue.Err)
		}
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(b))
	}

	body := io.Reader(resp.Body)
	if r.MaxVideoBytes > 0 {
		body = io.LimitReader(resp.Body, r.MaxVideoBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if r.MaxVideoBytes > 0 && int64(len(data)) > r.MaxVideoBytes {
		return nil, errTooLarge
	}
	return data, nil
}

func (r *Router) httpClient() *http.Client {
	if r.HTTPClient != nil {
		return r.HTTPClient
	}
	return &http.Client{Timeout: 2 * time.Minute}
}
