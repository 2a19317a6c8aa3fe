package handlers

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/yadbot/yadbot/internal/contextkeys"
	"github.com/yadbot/yadbot/internal/format"
	"github.com/yadbot/yadbot/internal/i18n"
	"github.com/yadbot/yadbot/internal/lib/sl"
	"github.com/yadbot/yadbot/internal/messages"
	"github.com/yadbot/yadbot/types"
)

const snoozeDelay = 15 * time.Minute

func (bh *Handlers) HandleClickButton(ctx context.Context, b *bot.Bot, update *models.Update, user *types.User) {
	if update.CallbackQuery == nil {
		return
	}
	data, _ := contextkeys.GetCallbackData(ctx)
	if data == "" {
		data = update.CallbackQuery.Data
	}
	data = strings.TrimSpace(data)
	chatID := bh.getChatIDFromUpdate(update)
	if chatID == 0 {
		return
	}

	bh.answerCallback(ctx, b, update.CallbackQuery.ID)

	switch {
	case strings.HasPrefix(data, format.CBSnoozePrefix):
		bh.handleSnooze(ctx, b, chatID, user, data)
	case data == format.CBUpgrade:
		bh.sendPaymentLink(ctx, b, chatID, user)
	case strings.HasPrefix(data, "set:"):
		bh.handleSetting(ctx, b, chatID, user, data)
	default:
		bh.send(ctx, b, chatID, bh.engine.HandleButton(ctx, user, data))
	}
}

func (bh *Handlers) handleSnooze(ctx context.Context, b *bot.Bot, chatID int64, user *types.User, data string) {
	lang := langFor(ctx, user)
	id, ok := format.ParseSnoozeID(data)
	if !ok {
		bh.send(ctx, b, chatID, format.Text(messages.ErrorDefault(lang)))
		return
	}

	// Snoozing someone else's reminder through a forged callback is a no-op.
	r, err := bh.reminders.GetReminder(ctx, id)
	if err != nil || r.UserID != user.ID {
		bh.send(ctx, b, chatID, format.Text(messages.TargetNotFound(lang)))
		return
	}

	if err := bh.reminders.Snooze(ctx, id, time.Now().Add(snoozeDelay)); err != nil {
		bh.log.Error("snoozing reminder failed", slog.Int64("reminder_id", id), sl.Err(err))
		bh.send(ctx, b, chatID, format.Text(messages.ErrorDefault(lang)))
		return
	}
	bh.send(ctx, b, chatID, format.Text(messages.Snoozed(lang, int(snoozeDelay.Minutes()))))
}

func (bh *Handlers) handleSetting(ctx context.Context, b *bot.Bot, chatID int64, user *types.User, data string) {
	locale, cal, tz := user.Locale, user.Calendar, user.Timezone

	switch {
	case data == format.CBSetCalJalali:
		cal = types.CalendarJalali
	case data == format.CBSetCalGregorian:
		cal = types.CalendarGregorian
	case data == format.CBSetLangFA:
		locale = string(i18n.FA)
	case data == format.CBSetLangEN:
		locale = string(i18n.EN)
	case strings.HasPrefix(data, format.CBSetTZPrefix):
		zone := strings.TrimPrefix(data, format.CBSetTZPrefix)
		if _, err := time.LoadLocation(zone); err != nil {
			bh.send(ctx, b, chatID, format.Text(messages.ErrorDefault(langFor(ctx, user))))
			return
		}
		tz = zone
	default:
		bh.send(ctx, b, chatID, format.Text(messages.ErrorDefault(langFor(ctx, user))))
		return
	}

	if err := bh.users.UpdateUserSettings(ctx, user.ID, locale, cal, tz); err != nil {
		bh.log.Error("updating user settings failed", slog.Int64("user_id", user.ID), sl.Err(err))
		bh.send(ctx, b, chatID, format.Text(messages.ErrorDefault(langFor(ctx, user))))
		return
	}

	// Confirm in the just-chosen language and calendar.
	user.Locale = locale
	user.Calendar = cal
	user.Timezone = tz
	bh.send(ctx, b, chatID, format.Text(messages.SettingsSaved(i18n.Parse(locale))))
}

func (bh *Handlers) answerCallback(ctx context.Context, b *bot.Bot, callbackID string) {
	_, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
	})
	if err != nil {
		bh.log.Warn("answering callback query failed", sl.Err(err))
	}
}
