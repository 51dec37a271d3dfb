package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rerouting-service/internal/config"
	"github.com/rerouting-service/internal/infrastructure/directions"
	"github.com/rerouting-service/internal/infrastructure/expedition"
	"github.com/rerouting-service/internal/pkg/logger"
	"github.com/rerouting-service/internal/pkg/metrics"
	"github.com/rerouting-service/internal/repository/cache"
	"github.com/rerouting-service/internal/repository/postgres"
	redisRepo "github.com/rerouting-service/internal/repository/redis"
	"github.com/rerouting-service/internal/usecase"
	"github.com/rerouting-service/internal/worker"
	"github.com/rerouting-service/internal/worker/rerouting"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Check if worker is enabled
	if !cfg.Worker.Enabled {
		fmt.Println("Worker is disabled in configuration. Set WORKER_ENABLED=true to enable.")
		os.Exit(0)
	}

	// 2. Initialize logger
	log, err := logger.New(cfg.Log.Level, "worker")
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting Rerouting Worker")
	log.Info("Configuration loaded",
		zap.String("tick_cron", cfg.Worker.TickCron),
		zap.Int("pool_size", cfg.Worker.PoolSize),
		zap.Duration("catchup_window", cfg.Worker.CatchupWindow),
		zap.Duration("lock_ttl", cfg.Worker.LockTTL),
		zap.String("consumer_group", cfg.Worker.ConsumerGroup),
		zap.Int("max_retries", cfg.Worker.MaxRetries))

	// 3. Connect to PostgreSQL
	db, err := postgres.New(&cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close PostgreSQL connection", zap.Error(err))
		}
	}()

	// 4. Connect to Redis
	redisClient, err := cache.NewRedis(&cfg.Redis, log)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error("Failed to close Redis connection", zap.Error(err))
		}
	}()

	// 5. Metrics
	recorder, err := metrics.NewPromRecorder(prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatal("Failed to register metrics", zap.Error(err))
	}

	// 6. Initialize repositories
	cacheRepo := cache.NewCacheRepository(redisClient)
	scheduleRepo := postgres.NewScheduleRepository(db, log)
	serviceRepo := postgres.NewServiceRepository(db, log)
	policyRepo := cache.NewCachedRoutePolicyRepository(
		postgres.NewRoutePolicyRepository(db, log),
		cacheRepo,
		cfg.Cache.PolicyCacheTTL,
		log,
	)
	lockRepo := cache.NewLockRepository(redisClient, "")
	streamRepo := redisRepo.NewStreamRepository(redisClient.Client(), log)

	// 7. External services
	routingRepo := directions.NewDirectionsClient(&cfg.Routing, log)
	expeditionRepo := expedition.NewExpeditionClient(&cfg.Expedition, log)

	// 8. Initialize use cases
	scheduleUC := usecase.NewScheduleUseCase(serviceRepo, policyRepo, scheduleRepo, recorder, log)
	reroutingUC := usecase.NewReroutingUseCase(
		serviceRepo,
		scheduleRepo,
		routingRepo,
		expeditionRepo,
		lockRepo,
		streamRepo,
		recorder,
		cfg.Worker.LockTTL,
		log,
	).WithStatsCache(cacheRepo)

	// 9. Initialize workers
	tickWorker := rerouting.NewTickWorker(
		scheduleUC,
		reroutingUC,
		recorder,
		cfg.Worker.TickCron,
		cfg.Worker.PoolSize,
		cfg.Worker.CatchupWindow,
		log,
	)
	eventWorker := rerouting.NewServiceEventWorker(
		streamRepo,
		scheduleUC,
		cfg.Worker.ConsumerGroup,
		cfg.Worker.BatchSize,
		cfg.Worker.MaxRetries,
		log,
	).WithIdleSleep(cfg.Worker.StreamReadTimeout)

	// 10. Create worker manager and register workers
	workerManager := worker.NewWorkerManager(worker.DefaultShutdownTimeout, log)
	workerManager.Register(tickWorker)
	workerManager.Register(eventWorker)

	// 11. Metrics endpoint
	metricsApp := fiber.New(fiber.Config{DisableStartupMessage: true})
	metricsApp.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{})))
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Worker.MetricsPort)
		if err := metricsApp.Listen(addr); err != nil {
			log.Error("Metrics server stopped", zap.Error(err))
		}
	}()

	// 12. Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start workers
	if err := workerManager.Start(ctx); err != nil {
		log.Fatal("Failed to start workers", zap.Error(err))
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Info("Received shutdown signal")

	// Cancel context to stop workers
	cancel()

	// Stop worker manager
	if err := workerManager.Stop(); err != nil {
		log.Error("Error stopping workers", zap.Error(err))
	}

	if err := metricsApp.Shutdown(); err != nil {
		log.Error("Metrics server shutdown error", zap.Error(err))
	}

	log.Info("Worker shutdown complete")
}
