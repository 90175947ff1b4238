package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"OplatymBot/internal/broadcast"
	"OplatymBot/internal/config"
	"OplatymBot/internal/crm"
	"OplatymBot/internal/graceful"
	"OplatymBot/internal/httpserver"
	"OplatymBot/internal/metrics"
	"OplatymBot/internal/repositories"
	"OplatymBot/internal/telegram"
	"OplatymBot/internal/utils/logger/handlers/slogpretty"
	"OplatymBot/internal/utils/logger/sl"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

var Version = "0.1"

func main() {
	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)

	log.Info(
		"starting oplatym bot",
		slog.String("env", cfg.Env),
		slog.String("version", Version),
		slog.String("storage", cfg.Storage.Driver),
		slog.String("mode", cfg.BotConfig.Mode),
	)

	ctx, stop := context.WithCancelCause(context.Background())
	defer stop(nil)

	repositoryService, err := repositories.New(ctx, log, cfg)
	if err != nil {
		log.Error("cannot open storage", sl.Err(err))
		os.Exit(1)
	}

	m := metrics.New()
	crmService := crm.New(log, repositoryService, m)
	tgBot, err := telegram.New(log, cfg, repositoryService, crmService, m)
	if err != nil {
		log.Error("cannot create telegram bot", sl.Err(err))
		os.Exit(1)
	}

	producers := graceful.Stage{
		"Telegram bot": func(ctx context.Context) error {
			return tgBot.Shutdown(ctx)
		},
	}

	if spec := cfg.BotConfig.BroadcastSchedule; spec != "" {
		scheduler, err := broadcast.NewScheduler(log, spec, tgBot.Publisher())
		if err != nil {
			log.Error("bad broadcast schedule", sl.Err(err))
			os.Exit(1)
		}
		scheduler.Start()
		producers["Review schedule"] = func(ctx context.Context) error {
			return scheduler.Shutdown(ctx)
		}
	}

	webhook := tgBot.WebhookHandler()
	if cfg.HttpServer.Enabled || webhook != nil {
		srv := httpserver.New(log, cfg.HttpServer, webhook, m.Registry)
		producers["HTTP server"] = func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		}
		go func() {
			if err := srv.Start(); err != nil {
				stop(err)
			}
		}()
	}

	maxSecond := 15 * time.Second
	waitShutdown := graceful.GracefulShutdown(
		ctx,
		maxSecond,
		[]graceful.Stage{
			producers,
			{
				"Repository service": func(ctx context.Context) error {
					return repositoryService.Shutdown(ctx)
				},
			},
		},
		log,
	)

	// a nil error means Shutdown stopped the bot
	go func() {
		stop(tgBot.Start())
	}()

	<-waitShutdown
	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
		log.Error("stopped on error", sl.Err(cause))
		os.Exit(1)
	}
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = setupPrettySlog(slog.LevelDebug)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = setupPrettySlog(slog.LevelInfo)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}

func setupPrettySlog(level slog.Level) *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: level,
		},
	}
	handler := opts.NewPrettyHandler(os.Stdout)
	return slog.New(handler)
}
