package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"predictions/application"
	"predictions/config"
	"predictions/database"
	"predictions/domain/events"
	"predictions/infrastructure"
	"predictions/infrastructure/observability"
	"predictions/server"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const eventStreamName = "prediction_events"

// SetupLogging configures the global logrus logger
func SetupLogging(cfg *config.Config) {
	if cfg.IsProduction() {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	log.SetOutput(os.Stdout)

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

// Run initializes and starts the application
func Run(ctx context.Context) error {
	cfg := config.Get()
	SetupLogging(cfg)
	log.WithField("environment", cfg.Environment).Info("Starting predictions service...")

	if err := observability.InitializeGlobalMetrics(ctx, cfg); err != nil {
		log.WithError(err).Warn("Failed to initialize metrics, continuing without them")
	}

	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	log.Info("Database connection established successfully")

	// Event transport. Without NATS, committed events only reach local handlers.
	var transport infrastructure.MessagePublisher
	var natsClient *infrastructure.NATSClient
	mapper := infrastructure.NewEventSubjectMapper()
	if cfg.NATSServers != "" {
		natsClient = infrastructure.NewNATSClient(cfg.NATSServers)
		if err := natsClient.Connect(ctx); err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		defer natsClient.Close()

		if err := natsClient.EnsureStream(eventStreamName, mapper.GetAllSubjects()); err != nil {
			return fmt.Errorf("failed to ensure event stream: %w", err)
		}
		transport = natsClient
	} else {
		log.Info("NATS_SERVERS not set, domain events stay in-process")
	}
	eventPublisher := infrastructure.NewNATSEventPublisher(transport, mapper)
	uowFactory := infrastructure.NewUnitOfWorkFactory(db, eventPublisher)

	// Redis backs the sweep lock, the leaderboard cache and the price feed
	var (
		rdb              *redis.Client
		locks            application.LockManager
		prices           application.PriceSource
		leaderboardCache *infrastructure.RedisLeaderboardCache
	)
	if cfg.RedisAddr != "" {
		rdb, err = infrastructure.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer rdb.Close()

		locks = infrastructure.NewRedisLockManager(rdb)
		prices = infrastructure.NewRedisPriceSource(rdb)
		leaderboardCache = infrastructure.NewRedisLeaderboardCache(rdb, cfg.LeaderboardCacheTTL)

		uowFactory.RegisterLocalHandler(events.EventTypeEventResolved, func(ctx context.Context, _ events.Event) error {
			return leaderboardCache.Invalidate(ctx)
		})
	} else {
		log.Warn("REDIS_ADDR not set, every instance sweeps and auto-resolution is disabled")
	}

	if cfg.DiscordWebhookURL != "" {
		notifier, err := infrastructure.NewDiscordNotifier(cfg.DiscordWebhookURL)
		if err != nil {
			return fmt.Errorf("failed to create discord notifier: %w", err)
		}
		uowFactory.RegisterLocalHandler(events.EventTypeEventFlagged, notifier.HandleEventFlagged)
		uowFactory.RegisterLocalHandler(events.EventTypeEventResolved, notifier.HandleEventResolved)
	}

	var coordinator *application.EventCoordinator
	if leaderboardCache != nil {
		coordinator = application.NewEventCoordinator(uowFactory, leaderboardCache)
	} else {
		coordinator = application.NewEventCoordinator(uowFactory, nil)
	}

	worker := application.NewResolutionWorker(coordinator, locks, prices, cfg.SweepSchedule, cfg.SweepLockTTL, cfg.StaleLockGrace)
	stopWorker, err := worker.Start(ctx)
	if err != nil {
		return fmt.Errorf("failed to start resolution worker: %w", err)
	}

	srv := server.New(cfg, coordinator, db)
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			log.WithError(err).Error("HTTP server stopped unexpectedly")
		}
	}

	log.Info("Shutting down predictions service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Error shutting down HTTP server")
	}
	stopWorker()

	if err := observability.ShutdownGlobalMetrics(shutdownCtx); err != nil {
		log.WithError(err).Error("Error shutting down metrics")
	}

	log.Info("Shutdown completed")
	return nil
}
