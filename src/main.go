package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	_ "github.com/evgeniyastakhovsept-byte/youth-feedback-bot/docs"
	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/bot"
	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/config"
	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/controllers"
	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/database"
	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/routes"
	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/scheduler"
	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/services/access"
	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/services/reports"
	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/services/responses"
	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/services/surveys"
	"github.com/evgeniyastakhovsept-byte/youth-feedback-bot/src/telegram"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("❌ bot stopped", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := database.OpenStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	tg := telegram.New(telegram.Config{Token: cfg.BotToken, Timeout: cfg.DeliveryTimeout, Logger: logger})

	var (
		sched  scheduler.Scheduler
		drafts responses.DraftStore
	)
	if cfg.RedisURI != "" {
		rdb, err := database.NewRedis(ctx, cfg.RedisURI)
		if err != nil {
			return err
		}
		defer rdb.Close()
		logger.Info("✅ Redis connected")
		sched = scheduler.NewAsynqScheduler(database.AsynqRedisOpt(rdb.Options()), cfg.Location, logger)
		drafts = responses.NewRedisDraftStore(rdb, cfg.DraftTTL)
	} else {
		logger.Warn("⚠️ REDIS_URI not set, jobs and drafts stay in memory")
		sched = scheduler.NewLocalScheduler(cfg.Location, logger)
		mem := responses.NewMemoryDraftStore(cfg.DraftTTL, time.Now)
		drafts = mem

		janitor := cron.New(cron.WithLocation(cfg.Location))
		if _, err := janitor.AddFunc("@every 1h", func() {
			if n := mem.Purge(); n > 0 {
				logger.Info("🗑️ expired drafts purged", "count", n)
			}
		}); err != nil {
			return err
		}
		janitor.Start()
		defer janitor.Stop()
	}

	rep := reports.New(st, time.Now)
	acc := access.New(st, tg, access.Options{
		AdminID:         cfg.AdminID,
		DeliveryTimeout: cfg.DeliveryTimeout,
		Location:        cfg.Location,
		Logger:          logger,
	})
	mgr := surveys.New(surveys.Deps{
		Store:     st,
		Messenger: tg,
		Scheduler: sched,
		Reports:   rep,
		Config:    cfg,
		Logger:    logger,
	})
	b := bot.New(bot.Deps{
		API:       tg,
		Access:    acc,
		Surveys:   mgr,
		Responses: responses.NewCollector(st, drafts, time.Now, logger),
		Reports:   rep,
		Config:    cfg,
		Logger:    logger,
	})

	if err := mgr.Resume(ctx); err != nil {
		return fmt.Errorf("resume surveys: %w", err)
	}
	if err := sched.Start(mgr); err != nil {
		return err
	}
	defer sched.Shutdown()

	var (
		webhook telegram.UpdateHandler
		wg      sync.WaitGroup
	)
	switch cfg.UpdateMode {
	case "webhook":
		if err := tg.SetWebhook(ctx, cfg.WebhookURL, cfg.WebhookSecret); err != nil {
			return fmt.Errorf("set webhook: %w", err)
		}
		webhook = b
		logger.Info("✅ webhook registered", "url", cfg.WebhookURL)
	default:
		if err := tg.DeleteWebhook(ctx); err != nil {
			logger.Warn("⚠️ deleteWebhook failed", "error", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = telegram.NewPoller(tg, b, logger).Run(ctx)
		}()
	}

	app := routes.NewApp(controllers.New(controllers.Deps{
		Access:  acc,
		Surveys: mgr,
		Reports: rep,
		Bot:     webhook,
		Config:  cfg,
	}), cfg)

	errc := make(chan error, 1)
	go func() {
		errc <- app.Listen(fmt.Sprintf(":%s", url.PathEscape(cfg.AppURI)))
	}()
	logger.Info("✅ server is running", "port", cfg.AppURI, "mode", cfg.UpdateMode)

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errc:
		if err != nil && !errors.Is(err, context.Canceled) {
			stop()
			wg.Wait()
			return fmt.Errorf("http server: %w", err)
		}
	}

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("⚠️ http shutdown", "error", err)
	}
	wg.Wait()
	return nil
}
