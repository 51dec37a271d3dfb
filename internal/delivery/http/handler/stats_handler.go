package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/rerouting-service/internal/domain"
	"github.com/rerouting-service/internal/pkg/utils"
)

// StatsService - источник статистики расписания
type StatsService interface {
	GetStatistics(ctx context.Context) (*domain.ScheduleStats, error)
}

// StatsHandler обрабатывает запросы для статистики
type StatsHandler struct {
	statsUC StatsService
	logger  *zap.Logger
}

// NewStatsHandler создает новый экземпляр StatsHandler
func NewStatsHandler(statsUC StatsService, logger *zap.Logger) *StatsHandler {
	return &StatsHandler{
		statsUC: statsUC,
		logger:  logger,
	}
}

// GetStatistics godoc
// @Summary Get schedule statistics
// @Description Количество pending/executed записей и ближайший момент исполнения
// @Tags Statistics
// @Produce json
// @Success 200 {object} utils.SuccessResponse{data=domain.ScheduleStats}
// @Failure 500 {object} utils.ErrorResponse
// @Router /api/v1/stats [get]
func (h *StatsHandler) GetStatistics(c *fiber.Ctx) error {
	stats, err := h.statsUC.GetStatistics(c.UserContext())
	if err != nil {
		h.logger.Error("Failed to get statistics", zap.Error(err))
		return utils.SendError(c, toAppError(err))
	}

	return utils.SendSuccess(c, stats, nil)
}
