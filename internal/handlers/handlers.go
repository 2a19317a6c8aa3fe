// Package handlers is the Telegram-facing edge: it turns classified updates
// into dialogue engine turns and renders the engine's replies back through
// the Bot API.
package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/yadbot/yadbot/internal/config"
	"github.com/yadbot/yadbot/internal/contextkeys"
	"github.com/yadbot/yadbot/internal/dialogue"
	"github.com/yadbot/yadbot/internal/format"
	"github.com/yadbot/yadbot/internal/i18n"
	"github.com/yadbot/yadbot/internal/messages"
	"github.com/yadbot/yadbot/internal/metrics"
	"github.com/yadbot/yadbot/internal/payment"
	"github.com/yadbot/yadbot/internal/stt"
	"github.com/yadbot/yadbot/types"
)

type Handlers struct {
	engine      *dialogue.Engine
	reminders   types.ReminderStore
	users       types.UserStore
	transcriber stt.Transcriber
	// payments is nil when no gateway merchant is configured.
	payments *payment.Service
	cfg      *config.Config
	log      *slog.Logger

	// downloads fetches voice files from the Bot API file endpoint.
	downloads *http.Client
}

func NewHandlers(engine *dialogue.Engine, reminders types.ReminderStore, users types.UserStore, transcriber stt.Transcriber, payments *payment.Service, cfg *config.Config, log *slog.Logger) *Handlers {
	return &Handlers{
		engine:      engine,
		reminders:   reminders,
		users:       users,
		transcriber: transcriber,
		payments:    payments,
		cfg:         cfg,
		log:         log,
		downloads:   &http.Client{Timeout: cfg.STTTimeout},
	}
}

// langFor prefers the profile locale and falls back to the language the
// middleware tagged on the context from the Telegram client settings.
func langFor(ctx context.Context, user *types.User) i18n.Lang {
	if user != nil && user.Locale != "" {
		return i18n.Parse(user.Locale)
	}
	if l, ok := contextkeys.GetLang(ctx); ok {
		return i18n.Parse(l)
	}
	return i18n.FA
}

func (bh *Handlers) MainHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID := bh.getChatIDFromUpdate(update)
	messageType, _ := contextkeys.GetMessageType(ctx)

	user, ok := contextkeys.GetUser(ctx)
	if !ok {
		bh.log.Error("user missing from context")
		if chatID != 0 {
			_, _ = b.SendMessage(ctx, &bot.SendMessageParams{
				ChatID:    chatID,
				Text:      messages.ErrorDefault(langFor(ctx, nil)),
				ParseMode: messages.ParseModeHTML,
			})
		}
		return
	}

	metrics.TurnsTotal.WithLabelValues(string(messageType)).Inc()

	switch messageType {
	case contextkeys.MessageTypeCommand:
		bh.HandleCommand(ctx, b, update, user)
	case contextkeys.MessageTypeText:
		bh.HandleText(ctx, b, update, user)
	case contextkeys.MessageTypeVoice:
		bh.HandleVoice(ctx, b, update, user)
	case contextkeys.MessageTypeClickButton:
		bh.HandleClickButton(ctx, b, update, user)
	default:
		lang := langFor(ctx, user)
		if chatID != 0 {
			_, _ = b.SendMessage(ctx, &bot.SendMessageParams{
				ChatID:    chatID,
				Text:      messages.ErrorUnsupportedMessageType(lang),
				ParseMode: messages.ParseModeHTML,
			})
		}
	}
}

func (bh *Handlers) getChatIDFromUpdate(update *models.Update) int64 {
	if update.Message != nil {
		return update.Message.Chat.ID
	}
	if update.CallbackQuery != nil {
		if update.CallbackQuery.Message.Message != nil {
			return update.CallbackQuery.Message.Message.Chat.ID
		}
		if update.CallbackQuery.Message.InaccessibleMessage != nil {
			return update.CallbackQuery.Message.InaccessibleMessage.Chat.ID
		}
	}
	return 0
}

// send renders one engine reply, inline keyboard included.
func (bh *Handlers) send(ctx context.Context, b *bot.Bot, chatID int64, msg format.Message) {
	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      msg.Text,
		ParseMode: messages.ParseModeHTML,
	}
	if kb := buildKeyboard(msg.Buttons); kb != nil {
		params.ReplyMarkup = kb
	}
	if _, err := b.SendMessage(ctx, params); err != nil {
		bh.log.Error("sending reply failed", slog.Int64("chat_id", chatID), slog.Any("error", err))
	}
}

func buildKeyboard(rows [][]format.Button) *models.InlineKeyboardMarkup {
	if len(rows) == 0 {
		return nil
	}
	kb := make([][]models.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		btns := make([]models.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			btns = append(btns, models.InlineKeyboardButton{Text: btn.Label, CallbackData: btn.Data})
		}
		kb = append(kb, btns)
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: kb}
}
