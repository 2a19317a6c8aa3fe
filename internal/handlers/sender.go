package handlers

import (
	"context"

	"github.com/go-telegram/bot"

	"github.com/yadbot/yadbot/internal/format"
	"github.com/yadbot/yadbot/internal/messages"
)

// BotSender adapts the Telegram client to the outbound-message surface the
// notifier and payment service expect.
type BotSender struct {
	b *bot.Bot
}

func NewBotSender(b *bot.Bot) *BotSender {
	return &BotSender{b: b}
}

func (s *BotSender) Send(ctx context.Context, chatID int64, msg format.Message) error {
	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      msg.Text,
		ParseMode: messages.ParseModeHTML,
	}
	if kb := buildKeyboard(msg.Buttons); kb != nil {
		params.ReplyMarkup = kb
	}
	_, err := s.b.SendMessage(ctx, params)
	return err
}
