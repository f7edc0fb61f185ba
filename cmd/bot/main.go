package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"propbot/internal/api"
	"propbot/internal/bot"
	"propbot/internal/config"
	"propbot/internal/dispatch"
	"propbot/internal/fetcher"
	"propbot/internal/filter"
	"propbot/internal/i18n"
	"propbot/internal/ingest"
	"propbot/internal/scheduler"
	"propbot/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error("create data directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	store, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		log.Error("open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var locker ingest.Locker = ingest.NewLocalLocker()
	if cfg.RedisURL != "" {
		rl, err := ingest.NewRedisLocker(ctx, cfg.RedisURL, 10*time.Minute)
		if err != nil {
			log.Error("connect redis", "error", err)
			os.Exit(1)
		}
		defer func() { _ = rl.Close() }()
		locker = rl
	}

	tr := i18n.New(cfg.DefaultLanguage)
	index := filter.NewIndex(store)
	rec := ingest.NewReconciler(store, locker, cfg.USDToARSRate, log)
	runner := ingest.NewRunner(fetcher.New(&http.Client{}), rec, cfg.Sources, cfg.ScrapeInterval, cfg.FetchTimeout, log)

	b, err := bot.New(cfg.TelegramBotToken, store, index, tr, cfg, log)
	if err != nil {
		log.Error("create bot", "error", err)
		os.Exit(1)
	}

	disp := dispatch.New(store, b, i18n.NewRenderer(tr), cfg.SendTimeout, log)
	sched := scheduler.New(store, index, disp, scheduler.Config{
		Interval:     cfg.NotifyInterval,
		DailyCap:     cfg.DailyCap,
		MaxAttempts:  cfg.MaxDeliveryAttempts,
		DailyHour:    cfg.DailySummaryHour,
		WeeklyDay:    cfg.WeeklySummaryDay,
		Location:     cfg.Location(),
		SummaryItems: cfg.SummaryItems,
		DefaultLang:  tr.Default(),
	}, log)
	server := api.New(store, rec, log)

	log.Info("starting", "sources", len(cfg.Sources), "http_addr", cfg.HTTPAddr)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		b.Run(ctx)
		return nil
	})
	g.Go(func() error {
		runner.Run(ctx)
		return nil
	})
	g.Go(func() error {
		return sched.Run(ctx)
	})
	g.Go(func() error {
		return server.Run(ctx, cfg.HTTPAddr)
	})

	if err := g.Wait(); err != nil {
		log.Error("stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("stopped")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
