package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rufetisr/FitnessTelegramBot/internal/analytics"
	"github.com/rufetisr/FitnessTelegramBot/internal/config"
	"github.com/rufetisr/FitnessTelegramBot/internal/dispatch"
	"github.com/rufetisr/FitnessTelegramBot/internal/geo"
	"github.com/rufetisr/FitnessTelegramBot/internal/intake"
	"github.com/rufetisr/FitnessTelegramBot/internal/llm"
	"github.com/rufetisr/FitnessTelegramBot/internal/logging"
	"github.com/rufetisr/FitnessTelegramBot/internal/recommend"
	"github.com/rufetisr/FitnessTelegramBot/internal/scheduler"
	"github.com/rufetisr/FitnessTelegramBot/internal/store"
	"github.com/rufetisr/FitnessTelegramBot/internal/telegram"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg, err := config.New()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("bot stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	profiles, err := store.Open(ctx,
		store.WithDSN(cfg.DatabaseURL),
		store.WithMongoDatabase(cfg.MongoDatabase),
		store.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("open profile store: %w", err)
	}
	defer profiles.Close()

	llmClient, err := llm.NewFactory(cfg).CreateClient(ctx, cfg.LLMProvider, cfg.Model())
	if err != nil {
		return fmt.Errorf("create llm client: %w", err)
	}

	systemPrompt, err := recommend.LoadSystemPrompt(cfg.SystemPromptPath)
	if err != nil {
		logger.Warn("system prompt not loaded", zap.Error(err))
	}

	opts := []recommend.Option{
		recommend.WithSystemPrompt(systemPrompt),
		recommend.WithTimeout(cfg.RecommendTimeout),
		recommend.WithLogger(logger),
	}
	if cfg.GeoEnabled {
		opts = append(opts, recommend.WithLocator(geo.NewClient(cfg.GeoBaseURL)))
	}
	generator := recommend.NewGenerator(llmClient, profiles, opts...)

	api, err := telegram.NewAPI(cfg.TelegramBotToken)
	if err != nil {
		return fmt.Errorf("connect to telegram: %w", err)
	}
	logger.Info("authorized on telegram", zap.String("username", api.Self.UserName))

	sender := telegram.NewSender(api)
	machine := intake.NewMachine(intake.NewMemoryStore(), sender, generator, logger)

	// Handlers keep running on the background context so in-flight
	// conversations finish during shutdown.
	dispatcher := dispatch.New(context.Background(), logger)
	defer dispatcher.Close()

	bot := telegram.New(api, dispatcher, machine, logger)

	if cfg.AdminUserID != 0 {
		reporter := analytics.NewReporter(profiles, sender, telegram.SessionID(cfg.AdminUserID), logger)
		sched := scheduler.New(cfg.ReportCron, logger)
		sched.SetReportFunction(reporter.Run)
		if err := sched.Start(); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		defer sched.Stop()
	}

	g, gctx := errgroup.WithContext(ctx)
	switch cfg.TransportMode {
	case config.TransportWebhook:
		if err := bot.RegisterWebhook(cfg.WebhookURL, cfg.WebhookSecret); err != nil {
			return err
		}
		addr := fmt.Sprintf(":%d", cfg.Port)
		g.Go(func() error {
			return telegram.Serve(gctx, addr, bot.WebhookHandler(cfg.WebhookSecret, cfg.TrustProxy), logger)
		})
	default:
		g.Go(func() error { return bot.RunPolling(gctx) })
		if cfg.MetricsAddr != "" {
			g.Go(func() error {
				return telegram.Serve(gctx, cfg.MetricsAddr, promhttp.Handler(), logger)
			})
		}
	}

	logger.Info("bot started", zap.String("mode", string(cfg.TransportMode)), zap.String("llm_provider", cfg.LLMProvider))
	err = g.Wait()
	logger.Info("shutting down")
	return err
}
