package main

import (
	"Painter/ai"
	"Painter/bot"
	"Painter/core"
	"Painter/holder"
	"Painter/lib/sl"
	"Painter/metrics"
	"Painter/storage"
	"context"
	"flag"
	"fmt"
	"golang.org/x/sync/errgroup"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {

	configPath := flag.String("conf", "config.yml", "path to config file")
	flag.Parse()

	conf := core.MustLoad(*configPath)
	log := setupLogger(conf.Env)
	log.With(
		slog.String("config", *configPath),
		slog.String("env", conf.Env),
		slog.String("provider", conf.Provider.BaseURL),
		sl.Secret(conf.Provider.ApiKey),
	).Info("starting painter bot")

	// Initialize storage based on config
	var store storage.SessionStore
	if conf.Mongo.Enabled {
		mongoURI := fmt.Sprintf("mongodb://%s:%s@%s:%s",
			conf.Mongo.User, conf.Mongo.Password,
			conf.Mongo.Host, conf.Mongo.Port)
		var err error
		store, err = storage.NewMongoStorage(mongoURI, conf.Mongo.Database, log)
		if err != nil {
			log.With(
				slog.String("db", conf.Mongo.Database),
				slog.String("user", conf.Mongo.User),
				slog.String("host", conf.Mongo.Host),
			).Error("falling back to memory", sl.Err(err))
			store = storage.NewMemoryStorage()
		} else {
			log.Info("using MongoDB storage")
		}
	} else {
		store = storage.NewMemoryStorage()
		log.Info("using in-memory storage")
	}

	var m metrics.Metrics
	if conf.Metrics.Enabled {
		m = metrics.NewMetrics()
	} else {
		m = metrics.NewNoopMetrics()
	}

	generator := ai.NewKandinsky(ai.Options{
		BaseURL:      conf.Provider.BaseURL,
		ApiKey:       conf.Provider.ApiKey,
		SecretKey:    conf.Provider.SecretKey,
		Timeout:      conf.Provider.Timeout,
		PollAttempts: conf.Provider.PollAttempts,
		PollInterval: conf.Provider.PollInterval,
		Metrics:      m,
	}, log)
	sessions := holder.NewSessionManager(store, conf.Generation.PerMinute, log)

	tgBot, err := bot.NewTgBot(conf, log)
	if err != nil {
		log.Error("creating telegram", sl.Err(err))
		return
	}
	dialog := bot.NewDialog(conf, sessions, generator, tgBot, m, log)
	tgBot.SetHandler(dialog)

	janitor := holder.NewJanitor(
		sessions,
		storage.NewCleaner(conf.Output.Dir, conf.Output.TTL, log),
		m,
		conf.Session.TTL,
		conf.Session.SweepInterval,
		log,
	)

	// Setup signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return tgBot.Start(ctx)
	})
	group.Go(func() error {
		return janitor.Run(ctx)
	})
	if conf.Metrics.Enabled {
		server := metrics.NewServer(conf.Metrics.Listen, m, log)
		group.Go(func() error {
			return server.Run(ctx)
		})
		log.With(slog.String("listen", conf.Metrics.Listen)).Info("metrics enabled")
	}

	log.Info("bot started")

	// Wait for shutdown signal or a failed component
	if err := group.Wait(); err != nil {
		log.Error("stopped with error", sl.Err(err))
	}
	log.Info("shutting down")

	// Graceful shutdown
	tgBot.Stop()
	dialog.Shutdown()

	// Close storage connection
	if err := sessions.Close(); err != nil {
		log.Error("closing session storage", sl.Err(err))
	}

	log.Info("shutdown complete")
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
