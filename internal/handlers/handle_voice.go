package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/yadbot/yadbot/internal/format"
	"github.com/yadbot/yadbot/internal/i18n"
	"github.com/yadbot/yadbot/internal/lib/sl"
	"github.com/yadbot/yadbot/internal/messages"
	"github.com/yadbot/yadbot/internal/stt"
	"github.com/yadbot/yadbot/types"
)

// maxVoiceBytes caps what we are willing to download and ship to the
// recognizer. Telegram voice notes are Opus and stay well under this.
const maxVoiceBytes = 10 << 20

func (bh *Handlers) HandleVoice(ctx context.Context, b *bot.Bot, update *models.Update, user *types.User) {
	if update.Message == nil || update.Message.Voice == nil {
		return
	}
	lang := langFor(ctx, user)
	chatID := update.Message.Chat.ID

	if bh.transcriber == nil {
		bh.send(ctx, b, chatID, format.Text(messages.VoiceTranscriptionFailed(lang)))
		return
	}

	audio, err := bh.downloadVoice(ctx, b, update.Message.Voice)
	if err != nil {
		bh.log.Error("downloading voice failed", slog.Int64("user_id", user.ID), sl.Err(err))
		bh.send(ctx, b, chatID, format.Text(messages.VoiceTranscriptionFailed(lang)))
		return
	}

	transcript, err := bh.transcriber.Transcribe(ctx, audio, speechLanguage(lang))
	if err != nil {
		if !errors.Is(err, stt.ErrNoSpeech) {
			bh.log.Error("transcription failed", slog.Int64("user_id", user.ID), sl.Err(err))
		}
		bh.send(ctx, b, chatID, format.Text(messages.VoiceTranscriptionFailed(lang)))
		return
	}

	bh.send(ctx, b, chatID, bh.engine.Process(ctx, user, transcript))
}

func (bh *Handlers) downloadVoice(ctx context.Context, b *bot.Bot, voice *models.Voice) ([]byte, error) {
	if voice.FileSize > maxVoiceBytes {
		return nil, fmt.Errorf("voice file too large: %d bytes", voice.FileSize)
	}

	fileInfo, err := b.GetFile(ctx, &bot.GetFileParams{FileID: voice.FileID})
	if err != nil {
		return nil, fmt.Errorf("get file info: %w", err)
	}

	fileURL := fmt.Sprintf("https://api.telegram.org/file/bot%s/%s", b.Token(), fileInfo.FilePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := bh.downloads.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download voice: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download voice: status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxVoiceBytes))
}

func speechLanguage(lang i18n.Lang) string {
	if lang == i18n.EN {
		return "en-US"
	}
	return "fa-IR"
}
