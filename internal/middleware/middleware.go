package middleware

import (
	"context"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/yadbot/yadbot/internal/config"
	"github.com/yadbot/yadbot/internal/contextkeys"
	"github.com/yadbot/yadbot/internal/i18n"
	"github.com/yadbot/yadbot/internal/lib/sl"
	"github.com/yadbot/yadbot/internal/messages"
	"github.com/yadbot/yadbot/types"
)

type Middlewares struct {
	users types.UserStore
	cfg   *config.Config
	log   *slog.Logger
}

func New(users types.UserStore, cfg *config.Config, log *slog.Logger) *Middlewares {
	return &Middlewares{
		users: users,
		cfg:   cfg,
		log:   log,
	}
}

// IdentifyUserMiddleware upserts the sender on every update and puts the
// stored user into the context. The upsert refreshes profile fields only, so
// settings the user changed through /settings survive.
func (m *Middlewares) IdentifyUserMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		var (
			from   *models.User
			chatID int64
		)

		switch {
		case update.Message != nil && update.Message.From != nil:
			from = update.Message.From
			chatID = update.Message.Chat.ID
		case update.CallbackQuery != nil:
			from = &update.CallbackQuery.From
			chatID = getChatIDFromMaybeInaccessibleMessage(update.CallbackQuery.Message)
		default:
			return
		}

		if from == nil || from.ID == 0 || chatID == 0 {
			return
		}

		lang := i18n.FromLanguageCode(from.LanguageCode)
		user, err := m.users.UpsertUser(ctx, types.User{
			TelegramID: from.ID,
			ChatID:     chatID,
			FirstName:  from.FirstName,
			LastName:   from.LastName,
			Username:   from.Username,
			Locale:     string(lang),
			Calendar:   defaultCalendar(lang),
			Timezone:   m.cfg.DefaultTimezone,
		})
		if err != nil {
			m.log.Error("upserting user failed", slog.Int64("telegram_id", from.ID), sl.Err(err))
			_, _ = b.SendMessage(ctx, &bot.SendMessageParams{
				ChatID:    chatID,
				Text:      messages.ErrorDefault(lang),
				ParseMode: messages.ParseModeHTML,
			})
			return
		}

		ctx = contextkeys.WithUser(ctx, user)
		ctx = contextkeys.WithLang(ctx, user.Locale)
		next(ctx, b, update)
	}
}

// AnalyzeMessageMiddleware classifies the update so the main handler can
// dispatch without re-inspecting the raw Telegram payload.
func (m *Middlewares) AnalyzeMessageMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		if update.CallbackQuery != nil && update.CallbackQuery.Data != "" {
			ctx = contextkeys.WithMessageType(ctx, contextkeys.MessageTypeClickButton)
			ctx = contextkeys.WithCallbackData(ctx, update.CallbackQuery.Data)
			next(ctx, b, update)
			return
		}

		ctx = contextkeys.WithMessageType(ctx, determineMessageType(update.Message))
		next(ctx, b, update)
	}
}

func determineMessageType(msg *models.Message) contextkeys.MessageType {
	if msg == nil {
		return contextkeys.MessageTypeUnknown
	}
	if msg.Text != "" && strings.HasPrefix(msg.Text, "/") {
		return contextkeys.MessageTypeCommand
	}
	if msg.Voice != nil {
		return contextkeys.MessageTypeVoice
	}
	if msg.Text != "" {
		return contextkeys.MessageTypeText
	}
	return contextkeys.MessageTypeUnknown
}

func defaultCalendar(lang i18n.Lang) types.Calendar {
	if lang == i18n.FA {
		return types.CalendarJalali
	}
	return types.CalendarGregorian
}

func getChatIDFromMaybeInaccessibleMessage(m models.MaybeInaccessibleMessage) int64 {
	if m.Message != nil {
		return m.Message.Chat.ID
	}
	if m.InaccessibleMessage != nil {
		return m.InaccessibleMessage.Chat.ID
	}
	return 0
}
