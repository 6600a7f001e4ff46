package setup

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/barazo-forum/barazo-api-sub002/internal/antispam"
	"github.com/barazo-forum/barazo-api-sub002/internal/database"
	"github.com/barazo-forum/barazo-api-sub002/internal/database/migrations"
	"github.com/barazo-forum/barazo-api-sub002/internal/heuristics"
	"github.com/barazo-forum/barazo-api-sub002/internal/moderation"
	"github.com/barazo-forum/barazo-api-sub002/internal/ratewindow"
	"github.com/barazo-forum/barazo-api-sub002/internal/redis"
	"github.com/barazo-forum/barazo-api-sub002/internal/reputation"
	"github.com/barazo-forum/barazo-api-sub002/internal/setup/config"
	"github.com/barazo-forum/barazo-api-sub002/internal/setup/telemetry"
	"github.com/barazo-forum/barazo-api-sub002/internal/sybil"
	"github.com/barazo-forum/barazo-api-sub002/internal/trust"
	"github.com/barazo-forum/barazo-api-sub002/internal/trustgraph"
	"github.com/redis/rueidis"
	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"
)

// App bundles all core dependencies and services needed by the application.
// Each field represents a major subsystem that needs initialization and cleanup.
type App struct {
	Config       *config.Config        // Application configuration
	Logger       *zap.Logger           // Main application logger
	DBLogger     *zap.Logger           // Database-specific logger
	DB           database.Client       // Database connection pool
	RedisManager *redis.Manager        // Redis connection manager
	StatusClient rueidis.Client        // Redis client for worker status and recompute state
	LogManager   *telemetry.Manager    // Log management system
	TrustGraph   *trustgraph.Client    // External trust-score provider
	Recomputer   *trustgraph.Recomputer // Trust score recompute queue and dispatcher

	Settings   *antispam.SettingsLoader // Per-community anti-spam settings
	Gate       *antispam.Gate           // Submission anti-spam checks
	Queue      *moderation.Queue        // Moderation queue review
	Trust      *trust.Service           // Trust status, seeds and admin metrics
	Heuristics *heuristics.Engine       // Behavioral detectors and flag review
	Sybil      *sybil.Registry          // Sybil cluster review
	Reputation *reputation.Calculator   // Reputation and bypass decisions

	shutdownTracing func(context.Context) error
}

// InitializeApp bootstraps all application dependencies in the correct order,
// ensuring each component has its required dependencies available.
func InitializeApp(ctx context.Context, serviceType telemetry.ServiceType, logDir string, stdout bool) (*App, error) {
	// Load app configuration
	cfg, configDir, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	// Logging system is initialized next to capture setup issues
	logManager := telemetry.NewManager(serviceType, logDir, &cfg.Common.Debug, stdout)

	logger, dbLogger, err := logManager.GetLoggers()
	if err != nil {
		return nil, err
	}

	shutdownTracing := telemetry.SetupTracing(&cfg.Common.Telemetry, serviceType, logger)

	// Redis manager provides connection pools for various subsystems
	redisManager := redis.NewManager(&cfg.Common.Redis, logger)

	cacheClient, err := redisManager.GetClient(redis.CacheDBIndex)
	if err != nil {
		return nil, err
	}

	ratelimitClient, err := redisManager.GetClient(redis.RatelimitDBIndex)
	if err != nil {
		return nil, err
	}

	statusClient, err := redisManager.GetClient(redis.StatusDBIndex)
	if err != nil {
		return nil, err
	}

	// Initialize database with migration check
	db, err := checkAndRunMigrations(ctx, &cfg.Common.PostgreSQL, dbLogger)
	if err != nil {
		return nil, err
	}
	repo := db.Model()

	// Trust-graph provider and its recompute dispatcher
	graphClient := trustgraph.NewClient(&cfg.Common.TrustGraph, logger)
	recomputer := trustgraph.NewRecomputer(graphClient, statusClient, logger,
		trustgraph.WithThrottle(cfg.Common.TrustGraph.RecomputeThrottle()),
		trustgraph.WithQueueSize(cfg.Common.TrustGraph.QueueSize),
	)
	// Only workers run jobs; other processes hand them off through Redis
	if serviceType == telemetry.ServiceWorker {
		recomputer.Start(ctx)
	}

	// Anti-spam settings fall back to the base word filter when a community has none
	settings := antispam.NewSettingsLoader(repo.Setting(), cacheClient, cfg.Common.AntiSpam.CacheTTL(), logger)
	wordFilter, err := config.LoadWordFilter(configDir)
	switch {
	case err == nil:
		settings.WithBaseWordFilter(wordFilter.Words())
		logger.Info("Loaded base word filter", zap.Int("words", len(wordFilter.Words())))
	case errors.Is(err, config.ErrWordFilterNotFound):
		logger.Info("No base word filter configured")
	default:
		recomputer.Stop()
		return nil, err
	}

	gate := antispam.NewGate(
		settings, repo.Account(), repo.Trust(), repo.Queue(),
		ratewindow.New(ratelimitClient, logger), logger,
	)

	trustService := trust.NewService(trust.Stores{
		Trust:    repo.Trust(),
		Accounts: repo.Account(),
		Queue:    repo.Queue(),
		Flags:    repo.Flag(),
		Clusters: repo.Cluster(),
	}, graphClient, recomputer, logger)

	engine := heuristics.NewEngine(
		repo.Content(), repo.Flag(), heuristics.ThresholdsFromConfig(&cfg.Worker.Heuristics), logger,
	)

	calculator := reputation.NewCalculator(reputation.Stores{
		Accounts: repo.Account(),
		Trust:    repo.Trust(),
		PDS:      repo.PDS(),
		Clusters: repo.Cluster(),
		Edges:    repo.Content(),
	}, graphClient, logger)

	// Bundle all initialized components
	return &App{
		Config:          cfg,
		Logger:          logger,
		DBLogger:        dbLogger.Named("database"),
		DB:              db,
		RedisManager:    redisManager,
		StatusClient:    statusClient,
		LogManager:      logManager,
		TrustGraph:      graphClient,
		Recomputer:      recomputer,
		Settings:        settings,
		Gate:            gate,
		Queue:           moderation.NewQueue(repo.Queue(), settings, logger),
		Trust:           trustService,
		Heuristics:      engine,
		Sybil:           sybil.NewRegistry(repo.Cluster(), repo.Account(), logger),
		Reputation:      calculator,
		shutdownTracing: shutdownTracing,
	}, nil
}

// Cleanup ensures graceful shutdown of all components in reverse initialization order.
// Logs but does not fail on cleanup errors to ensure all components get cleanup attempts.
func (s *App) Cleanup(ctx context.Context) {
	// Cancel running recomputes before their dependencies go away
	s.Recomputer.Stop()

	// Sync buffered logs before shutdown
	if err := s.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	if err := s.DBLogger.Sync(); err != nil {
		log.Printf("Failed to sync DB logger: %v", err)
	}

	// Flush pending spans
	if err := s.shutdownTracing(ctx); err != nil {
		log.Printf("Failed to shutdown tracing: %v", err)
	}

	// Close database connections
	if err := s.DB.Close(); err != nil {
		log.Printf("Failed to close database connection: %v", err)
	}

	// Close Redis connections last as other components might need it during cleanup
	s.RedisManager.Close()

	s.LogManager.Close()
}

// checkAndRunMigrations runs database migrations if needed.
func checkAndRunMigrations(ctx context.Context, cfg *config.PostgreSQL, dbLogger *zap.Logger) (database.Client, error) {
	tempDB, err := database.NewConnection(ctx, cfg, dbLogger, false)
	if err != nil {
		return nil, err
	}

	migrator := migrate.NewMigrator(tempDB.DB(), migrations.Migrations)

	ms, err := migrator.MigrationsWithStatus(ctx)
	if err != nil {
		tempDB.Close()
		return nil, fmt.Errorf("failed to check migration status: %w", err)
	}

	var db database.Client

	unapplied := ms.Unapplied()
	if len(unapplied) > 0 {
		log.Println("Database migrations are pending. Would you like to run them now? (y/N)")

		var response string

		_, _ = fmt.Scanln(&response)

		if response == "y" || response == "Y" {
			tempDB.Close()

			db, err = database.NewConnection(ctx, cfg, dbLogger, true)
		} else {
			log.Fatalf("Closing program due to incomplete migrations")
		}
	} else {
		db = tempDB
	}

	return db, err
}
