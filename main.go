package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/yadbot/yadbot/internal/config"
	"github.com/yadbot/yadbot/internal/dialogue"
	"github.com/yadbot/yadbot/internal/handlers"
	"github.com/yadbot/yadbot/internal/lib/sl"
	"github.com/yadbot/yadbot/internal/middleware"
	"github.com/yadbot/yadbot/internal/notifier"
	"github.com/yadbot/yadbot/internal/nlu"
	"github.com/yadbot/yadbot/internal/payment"
	"github.com/yadbot/yadbot/internal/stt"
	"github.com/yadbot/yadbot/store"
)

func main() {
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load("config.env")
	if err != nil {
		log.Error("loading config failed", sl.Err(err))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rdb, err := store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Error("connecting to redis failed", sl.Err(err))
		os.Exit(1)
	}
	defer rdb.Close()

	stateStore := store.NewRedisStateStore(rdb, time.Duration(cfg.DialogueTTLHours)*time.Hour)

	pg, err := store.NewPostgresStore(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Error("connecting to postgres failed", sl.Err(err))
		os.Exit(1)
	}
	defer pg.Close()

	llm := nlu.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.ExtractTimeout)
	extractor := nlu.NewExtractor(llm, cfg.ExtractRPS, log)

	engine := dialogue.New(stateStore, pg, pg, extractor, cfg, log)

	var transcriber stt.Transcriber
	if cfg.GoogleSTTAPIKey != "" {
		transcriber = stt.NewGoogleSTT(cfg.GoogleSTTAPIKey, cfg.STTTimeout)
	}

	httpClient := &http.Client{Timeout: 60 * time.Second}
	b, err := bot.New(cfg.BotToken, bot.WithHTTPClient(50*time.Second, httpClient))
	if err != nil {
		log.Error("creating bot failed", sl.Err(err))
		os.Exit(1)
	}

	sender := handlers.NewBotSender(b)

	var payments *payment.Service
	if cfg.ZibalMerchant != "" {
		gateway := payment.NewZibalClient(cfg.ZibalMerchant, cfg.PaymentTimeout)
		payments = payment.NewService(gateway, pg, pg, sender, cfg.PaymentAmount,
			cfg.CallbackBaseURL+"/payment_callback", log)

		callbackSrv := &http.Server{
			Addr:    cfg.CallbackAddr,
			Handler: payment.NewCallbackRouter(payments, log),
		}
		go func() {
			log.Info("payment callback server listening", slog.String("addr", cfg.CallbackAddr))
			if err := callbackSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("callback server failed", sl.Err(err))
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			_ = callbackSrv.Shutdown(shutdownCtx)
		}()
	} else {
		log.Warn("ZIBAL_MERCHANT not set, payments disabled")
	}

	notify := notifier.New(pg, pg, sender, cfg.NotifyInterval, cfg.NotifyWorkers, log)
	notify.Start(ctx)
	defer notify.Stop()

	h := handlers.NewHandlers(engine, pg, pg, transcriber, payments, cfg, log)
	middlewares := middleware.New(pg, cfg, log)

	handlerChain := middlewares.IdentifyUserMiddleware(
		middlewares.AnalyzeMessageMiddleware(
			h.MainHandler,
		),
	)

	b.RegisterHandlerMatchFunc(func(update *models.Update) bool {
		return update.Message != nil
	}, handlerChain)

	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix, handlerChain)

	log.Info("bot started")
	b.Start(ctx)
}
