package handlers

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/yadbot/yadbot/types"
)

func (bh *Handlers) HandleText(ctx context.Context, b *bot.Bot, update *models.Update, user *types.User) {
	if update.Message == nil {
		return
	}
	text := strings.TrimSpace(update.Message.Text)
	if text == "" {
		return
	}
	bh.send(ctx, b, update.Message.Chat.ID, bh.engine.Process(ctx, user, text))
}
