package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/rerouting-service/internal/usecase/dto"
)

const healthTimeout = 2 * time.Second

// HealthChecker - зависимость, которую можно проверить
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthHandler проверяет доступность зависимостей
type HealthHandler struct {
	checks map[string]HealthChecker
}

// NewHealthHandler создает HealthHandler; checks: имя -> проверка
func NewHealthHandler(checks map[string]HealthChecker) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// Health godoc
// @Summary Health check
// @Tags Health
// @Produce json
// @Success 200 {object} dto.HealthResponse
// @Failure 503 {object} dto.HealthResponse
// @Router /api/v1/health [get]
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
	defer cancel()

	resp := dto.HealthResponse{Status: "healthy", Services: make(map[string]string, len(h.checks))}
	for name, check := range h.checks {
		if err := check.Health(ctx); err != nil {
			resp.Status = "unhealthy"
			resp.Services[name] = err.Error()
			continue
		}
		resp.Services[name] = "ok"
	}

	if resp.Status != "healthy" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(resp)
	}
	return c.JSON(resp)
}
