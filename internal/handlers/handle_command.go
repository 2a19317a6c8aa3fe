package handlers

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/yadbot/yadbot/internal/format"
	"github.com/yadbot/yadbot/internal/lib/sl"
	"github.com/yadbot/yadbot/internal/messages"
	"github.com/yadbot/yadbot/types"
)

func (bh *Handlers) HandleCommand(ctx context.Context, b *bot.Bot, update *models.Update, user *types.User) {
	lang := langFor(ctx, user)
	chatID := update.Message.Chat.ID

	fields := strings.Fields(strings.TrimSpace(update.Message.Text))
	if len(fields) == 0 {
		return
	}
	cmd := fields[0]
	if strings.Contains(cmd, "@") {
		cmd = strings.SplitN(cmd, "@", 2)[0]
	}

	switch cmd {
	case "/start":
		bh.send(ctx, b, chatID, format.Text(messages.StartWelcome(lang)))
	case "/help":
		bh.send(ctx, b, chatID, format.Text(messages.Help(lang)))
	case "/list":
		bh.send(ctx, b, chatID, bh.engine.List(ctx, user))
	case "/cancel":
		bh.send(ctx, b, chatID, bh.engine.Cancel(ctx, user))
	case "/status":
		bh.sendStatus(ctx, b, chatID, user)
	case "/settings":
		bh.send(ctx, b, chatID, format.SettingsMenu(format.PrefsFor(user)))
	case "/premium":
		bh.sendPaymentLink(ctx, b, chatID, user)
	default:
		bh.send(ctx, b, chatID, format.Text(messages.ErrorUnknownCommand(lang)))
	}
}

func (bh *Handlers) sendStatus(ctx context.Context, b *bot.Bot, chatID int64, user *types.User) {
	now := time.Now()
	used, err := bh.reminders.CountActive(ctx, user.ID)
	if err != nil {
		bh.log.Error("counting active reminders failed", slog.Int64("user_id", user.ID), sl.Err(err))
		bh.send(ctx, b, chatID, format.Text(messages.ErrorDefault(langFor(ctx, user))))
		return
	}
	limit := bh.cfg.TierLimit(string(user.EffectiveTier(now)))
	bh.send(ctx, b, chatID, format.Status(user, used, limit, now, format.PrefsFor(user)))
}

func (bh *Handlers) sendPaymentLink(ctx context.Context, b *bot.Bot, chatID int64, user *types.User) {
	lang := langFor(ctx, user)
	if bh.payments == nil {
		bh.send(ctx, b, chatID, format.Text(messages.PaymentNotConfigured(lang)))
		return
	}
	url, err := bh.payments.CreateLink(ctx, user)
	if err != nil {
		bh.log.Error("creating payment link failed", slog.Int64("user_id", user.ID), sl.Err(err))
		bh.send(ctx, b, chatID, format.Text(messages.ErrorDefault(lang)))
		return
	}
	bh.send(ctx, b, chatID, format.Text(messages.PaymentLink(lang, url)))
}
