package http

import (
	"context"
	"errors"
	nethttp "net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	fiberSwagger "github.com/swaggo/fiber-swagger"
	"go.uber.org/zap"

	"github.com/rerouting-service/internal/config"
	"github.com/rerouting-service/internal/delivery/http/handler"
	"github.com/rerouting-service/internal/delivery/http/middleware"
	apperrors "github.com/rerouting-service/internal/pkg/errors"
	"github.com/rerouting-service/internal/pkg/utils"
)

// Server - HTTP сервер на основе Fiber
type Server struct {
	app    *fiber.App
	config *config.Config
	logger *zap.Logger

	healthHandler   *handler.HealthHandler
	scheduleHandler *handler.ScheduleHandler
	statsHandler    *handler.StatsHandler
	gatherer        prometheus.Gatherer
}

// NewServer - создание нового HTTP сервера. gatherer может быть nil, тогда /metrics не публикуется.
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	healthHandler *handler.HealthHandler,
	scheduleHandler *handler.ScheduleHandler,
	statsHandler *handler.StatsHandler,
	gatherer prometheus.Gatherer,
) *Server {
	app := fiber.New(fiber.Config{
		AppName:      "Rerouting Service",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorHandler: customErrorHandler(logger),
	})

	s := &Server{
		app:             app,
		config:          cfg,
		logger:          logger,
		healthHandler:   healthHandler,
		scheduleHandler: scheduleHandler,
		statsHandler:    statsHandler,
		gatherer:        gatherer,
	}

	s.setupMiddlewares()
	s.setupRoutes()

	return s
}

// App возвращает fiber.App (для app.Test)
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) setupMiddlewares() {
	s.app.Use(middleware.Recovery(s.logger))
	s.app.Use(requestid.New(requestid.Config{ContextKey: utils.RequestIDKey}))
	s.app.Use(middleware.Logger(s.logger))
	s.app.Use(middleware.CORS(s.config.Server.CORSOrigins))
	s.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
}

func (s *Server) setupRoutes() {
	s.app.Get("/swagger/*", fiberSwagger.WrapHandler)

	if s.gatherer != nil {
		s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	api := s.app.Group("/api/v1")

	api.Get("/health", s.healthHandler.Health)

	// /due раньше /:service_id
	schedules := api.Group("/schedules")
	schedules.Get("/due", s.scheduleHandler.Due)
	schedules.Get("/:service_id", s.scheduleHandler.Get)
	schedules.Post("/:service_id/compute", s.scheduleHandler.Compute)
	schedules.Post("/:service_id/execute", s.scheduleHandler.Execute)

	api.Get("/stats", s.statsHandler.GetStatistics)
}

// Start - запуск HTTP сервера
func (s *Server) Start() error {
	addr := s.config.GetServerAddr()
	s.logger.Info("Starting HTTP server", zap.String("address", addr))
	return s.app.Listen(addr)
}

// Shutdown - graceful shutdown HTTP сервера
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.app.ShutdownWithContext(ctx)
}

// customErrorHandler - ошибки fiber (404 маршрута, паники) в формате ErrorResponse
func customErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		appErr := apperrors.From(err)

		var fe *fiber.Error
		if errors.As(err, &fe) {
			appErr = apperrors.New(statusCode(fe.Code), fe.Message, fe.Code)
		}

		if appErr.StatusCode >= fiber.StatusInternalServerError {
			logger.Error("HTTP Error",
				zap.String("path", c.Path()),
				zap.String("request_id", utils.RequestID(c)),
				zap.Int("status", appErr.StatusCode),
				zap.Error(err))
		}

		return c.Status(appErr.StatusCode).JSON(utils.ErrorResponse{Error: appErr, RequestID: utils.RequestID(c)})
	}
}

// statusCode: 404 -> NOT_FOUND
func statusCode(status int) string {
	text := nethttp.StatusText(status)
	if text == "" {
		return apperrors.ErrInternalServer.Code
	}
	return strings.ToUpper(strings.ReplaceAll(text, " ", "_"))
}
