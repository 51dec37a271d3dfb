package handler

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/rerouting-service/internal/domain"
	apperrors "github.com/rerouting-service/internal/pkg/errors"
	"github.com/rerouting-service/internal/pkg/utils"
	"github.com/rerouting-service/internal/pkg/validator"
	"github.com/rerouting-service/internal/usecase/dto"
)

// ScheduleService - операции над расписанием
type ScheduleService interface {
	ComputeAndSave(ctx context.Context, serviceID int64, policy *domain.RoutePolicy) (*domain.Service, *domain.ScheduleEntry, error)
	GetSchedule(ctx context.Context, serviceID int64) (*domain.ScheduleEntry, error)
	DueAt(ctx context.Context, instant time.Time) ([]domain.ScheduleEntry, error)
}

// ReroutingService - исполнение записи вне тика
type ReroutingService interface {
	ExecuteByServiceID(ctx context.Context, serviceID int64) (*domain.ReroutingResult, error)
}

// ScheduleHandler - обработчик запросов к расписанию перемаршрутизации
type ScheduleHandler struct {
	scheduleUC  ScheduleService
	reroutingUC ReroutingService
	logger      *zap.Logger
}

// NewScheduleHandler создает новый ScheduleHandler
func NewScheduleHandler(scheduleUC ScheduleService, reroutingUC ReroutingService, logger *zap.Logger) *ScheduleHandler {
	return &ScheduleHandler{
		scheduleUC:  scheduleUC,
		reroutingUC: reroutingUC,
		logger:      logger,
	}
}

func serviceIDParam(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("service_id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.ErrInvalidRequest.WithDetails(map[string]interface{}{
			"service_id": c.Params("service_id"),
		})
	}
	return id, nil
}

// Compute godoc
// @Summary Compute rerouting schedule
// @Description Пересчитывает момент перемаршрутизации сервиса. Без policy в теле берется политика маршрута.
// @Tags Schedules
// @Accept json
// @Produce json
// @Param service_id path int true "Service ID"
// @Param request body dto.ComputeScheduleRequest false "Policy override"
// @Success 200 {object} utils.SuccessResponse{data=dto.ComputeScheduleResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Failure 500 {object} utils.ErrorResponse
// @Router /api/v1/schedules/{service_id}/compute [post]
func (h *ScheduleHandler) Compute(c *fiber.Ctx) error {
	serviceID, err := serviceIDParam(c)
	if err != nil {
		return utils.SendError(c, err)
	}

	var req dto.ComputeScheduleRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return utils.SendError(c, apperrors.ErrInvalidRequest.Wrap(err))
		}
	}
	if req.Policy != nil {
		if err := validator.Validate(req.Policy); err != nil {
			return utils.SendError(c, apperrors.ErrInvalidRequest.WithDetails(map[string]interface{}{
				"fields": validator.Fields(err),
			}))
		}
	}

	service, entry, err := h.scheduleUC.ComputeAndSave(c.UserContext(), serviceID, req.Policy)
	if err != nil {
		h.logger.Error("Failed to compute schedule", zap.Int64("service_id", serviceID), zap.Error(err))
		return utils.SendError(c, toAppError(err))
	}
	if service == nil {
		return utils.SendError(c, apperrors.ErrServiceNotFound)
	}

	return utils.SendSuccess(c, dto.NewComputeScheduleResponse(serviceID, service, entry), nil)
}

// Get godoc
// @Summary Get schedule entry
// @Tags Schedules
// @Produce json
// @Param service_id path int true "Service ID"
// @Success 200 {object} utils.SuccessResponse{data=dto.ScheduleResponse}
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/schedules/{service_id} [get]
func (h *ScheduleHandler) Get(c *fiber.Ctx) error {
	serviceID, err := serviceIDParam(c)
	if err != nil {
		return utils.SendError(c, err)
	}

	entry, err := h.scheduleUC.GetSchedule(c.UserContext(), serviceID)
	if err != nil {
		return utils.SendError(c, toAppError(err))
	}

	return utils.SendSuccess(c, dto.NewScheduleResponse(entry), nil)
}

// Due godoc
// @Summary List due entries
// @Description Pending записи, чей expected_at попадает в минуту at (RFC3339, по умолчанию сейчас)
// @Tags Schedules
// @Produce json
// @Param at query string false "Instant, RFC3339"
// @Success 200 {object} utils.SuccessResponse{data=dto.DueResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Router /api/v1/schedules/due [get]
func (h *ScheduleHandler) Due(c *fiber.Ctx) error {
	start := time.Now()

	at := time.Now().UTC()
	if raw := c.Query("at"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return utils.SendError(c, apperrors.ErrInvalidRequest.WithDetails(map[string]interface{}{"at": raw}))
		}
		at = parsed
	}

	entries, err := h.scheduleUC.DueAt(c.UserContext(), at)
	if err != nil {
		return utils.SendError(c, toAppError(err))
	}

	return utils.SendSuccess(c, dto.NewDueResponse(at, entries), &utils.Meta{
		Total:    len(entries),
		TimeMSec: float64(time.Since(start).Microseconds()) / 1000,
	})
}

// Execute godoc
// @Summary Execute schedule entry now
// @Description Исполняет запись сервиса вне тика. Повторный вызов возвращает already_executed.
// @Tags Schedules
// @Produce json
// @Param service_id path int true "Service ID"
// @Success 200 {object} utils.SuccessResponse{data=dto.ExecuteResponse}
// @Failure 404 {object} utils.ErrorResponse
// @Failure 500 {object} utils.ErrorResponse
// @Router /api/v1/schedules/{service_id}/execute [post]
func (h *ScheduleHandler) Execute(c *fiber.Ctx) error {
	serviceID, err := serviceIDParam(c)
	if err != nil {
		return utils.SendError(c, err)
	}

	result, err := h.reroutingUC.ExecuteByServiceID(c.UserContext(), serviceID)
	if err != nil {
		h.logger.Error("Manual execution failed", zap.Int64("service_id", serviceID), zap.Error(err))
		return utils.SendError(c, toAppError(err))
	}

	return utils.SendSuccess(c, dto.NewExecuteResponse(result), nil)
}
