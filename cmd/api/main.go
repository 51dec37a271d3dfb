package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	_ "github.com/rerouting-service/docs"
	"github.com/rerouting-service/internal/config"
	"github.com/rerouting-service/internal/delivery/http"
	"github.com/rerouting-service/internal/delivery/http/handler"
	"github.com/rerouting-service/internal/infrastructure/directions"
	"github.com/rerouting-service/internal/infrastructure/expedition"
	"github.com/rerouting-service/internal/pkg/logger"
	"github.com/rerouting-service/internal/pkg/metrics"
	"github.com/rerouting-service/internal/repository/cache"
	"github.com/rerouting-service/internal/repository/postgres"
	redisRepo "github.com/rerouting-service/internal/repository/redis"
	"github.com/rerouting-service/internal/usecase"
)

// @title Rerouting Service API
// @version 1.0.0
// @description Планирование и исполнение перемаршрутизации обратных рейсов.
// @contact.name API Support
// @license.name MIT
// @license.url https://opensource.org/licenses/MIT
// @host localhost:8080
// @BasePath /
// @schemes http https
func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. Initialize logger
	log, err := logger.New(cfg.Log.Level, "api")
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting Rerouting Service API",
		zap.String("env", cfg.Server.Env),
		zap.String("version", "1.0.0"),
	)

	// 3. Connect to PostgreSQL
	db, err := postgres.New(&cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}

	// 4. Connect to Redis
	redisClient, err := cache.NewRedis(&cfg.Redis, log)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}

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
	statsRepo := postgres.NewStatsRepository(db, log)
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
	statsUC := usecase.NewStatsUseCase(statsRepo, cacheRepo, cfg.Cache.StatsCacheTTL, log)

	// 9. Initialize handlers
	healthHandler := handler.NewHealthHandler(map[string]handler.HealthChecker{
		"postgres": db,
		"redis":    redisClient,
	})
	scheduleHandler := handler.NewScheduleHandler(scheduleUC, reroutingUC, log)
	statsHandler := handler.NewStatsHandler(statsUC, log)

	// 10. Create HTTP server
	server := http.NewServer(
		cfg,
		log,
		healthHandler,
		scheduleHandler,
		statsHandler,
		prometheus.DefaultGatherer,
	)

	// 11. Start server in goroutine
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started successfully",
		zap.String("address", cfg.GetServerAddr()),
		zap.String("env", cfg.Server.Env),
	)

	// 12. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server shutdown error", zap.Error(err))
	}

	if err := db.Close(); err != nil {
		log.Error("Failed to close PostgreSQL", zap.Error(err))
	}

	if err := redisClient.Close(); err != nil {
		log.Error("Failed to close Redis", zap.Error(err))
	}

	log.Info("Server stopped successfully")
}
