package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/void-rizqiagung/bot-mariioV2/internal/ai"
	"github.com/void-rizqiagung/bot-mariioV2/internal/config"
	"github.com/void-rizqiagung/bot-mariioV2/internal/constants"
	"github.com/void-rizqiagung/bot-mariioV2/internal/database"
	"github.com/void-rizqiagung/bot-mariioV2/internal/dispatch"
	"github.com/void-rizqiagung/bot-mariioV2/internal/gemini"
	"github.com/void-rizqiagung/bot-mariioV2/internal/mediafetch"
	"github.com/void-rizqiagung/bot-mariioV2/internal/models"
	"github.com/void-rizqiagung/bot-mariioV2/internal/progress"
	"github.com/void-rizqiagung/bot-mariioV2/internal/ratelimit"
	"github.com/void-rizqiagung/bot-mariioV2/internal/router"
	"github.com/void-rizqiagung/bot-mariioV2/internal/service"
	"github.com/void-rizqiagung/bot-mariioV2/internal/tracing"
	"github.com/void-rizqiagung/bot-mariioV2/pkg/whatsapp"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	configPath = flag.String("config", "config.json", "Path to configuration file")
	version    = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("mariobot %s\nBuild Time: %s\nGit Commit: %s\n", Version, BuildTime, GitCommit)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logrus.Fatalf("Application error: %v", err)
	}
}

func run(ctx context.Context) error {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	logger.WithFields(logrus.Fields{
		"version": Version,
		"build":   BuildTime,
		"commit":  GitCommit,
	}).Info("Starting mariobot")

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	} else {
		logger.Warnf("Invalid log level %q, defaulting to info", cfg.LogLevel)
		logger.SetLevel(logrus.InfoLevel)
	}

	tracingManager := tracing.NewManager(cfg.Tracing, logger)
	if err := tracingManager.Initialize(ctx); err != nil {
		logger.Warnf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := tracingManager.Shutdown(context.Background()); err != nil {
			logger.Warnf("Failed to shutdown tracing: %v", err)
		}
	}()

	db, err := database.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	session := cfg.WhatsApp.SessionName
	if session == "" {
		session = "default"
	}
	waClient := whatsapp.NewClient(cfg.WhatsApp.APIBaseURL, cfg.WhatsApp.APIKey, session)

	gemClient, err := gemini.NewClient(ctx, cfg.Gemini, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize gemini client: %w", err)
	}

	orchestrator := ai.NewOrchestrator(gemClient, ai.NewHTTPProber(), cfg.AI, logger)

	fetcher := mediafetch.NewFetcher(cfg.Media, logger)
	fetcher.Register(models.PlatformTikTok, mediafetch.NewTikwmResolver())
	fetcher.Register(models.PlatformYouTube, mediafetch.NewCobaltResolver(os.Getenv("COBALT_API_URL")))

	limiter := ratelimit.NewLimiter(cfg.RateLimit, logger)
	notifier := progress.NewNotifier(waClient, logger)
	status := service.NewStatusService()

	dispatcher := dispatch.NewDispatcher(
		waClient, orchestrator, gemClient, nil, fetcher,
		notifier, limiter, db, status, cfg.Gemini.Model, logger,
	)
	msgRouter := router.NewRouter(waClient, dispatcher, db, limiter, status, cfg.WhatsApp.AdminChatID, logger)

	if cfg.Digest.Enabled {
		digest, err := service.NewDigestService(cfg.Digest, cfg.WhatsApp.AdminChatID, waClient, statsAdapter{db}, status, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize digest service: %w", err)
		}
		go digest.Run(ctx)
	}

	go runRetentionCleanup(ctx, db, cfg.RetentionDays, logger)

	server := NewServer(cfg.Server.Port, msgRouter, status, logger)
	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			serverErrCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-serverErrCh:
		logger.Error(err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.DefaultShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	logger.Info("Shutdown complete")
	return nil
}

// statsAdapter bridges the repository's daily counters to the digest's view
// without coupling the service package to the database package.
type statsAdapter struct {
	db *database.Database
}

func (a statsAdapter) GetDailyStats(ctx context.Context) (*service.DailyStatsView, error) {
	stats, err := a.db.GetDailyStats(ctx)
	if err != nil {
		return nil, err
	}
	return &service.DailyStatsView{Messages: stats.Messages, Commands: stats.Commands}, nil
}

// runRetentionCleanup prunes old activity rows once a day.
func runRetentionCleanup(ctx context.Context, db *database.Database, retentionDays int, logger *logrus.Logger) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := db.CleanupOldRecords(ctx, retentionDays); err != nil {
				logger.WithError(err).Error("Retention cleanup failed")
			} else {
				logger.WithField("retention_days", retentionDays).Info("Retention cleanup completed")
			}
		}
	}
}
