package utils

import (
	"github.com/gofiber/fiber/v2"

	"github.com/rerouting-service/internal/pkg/errors"
)

// RequestIDKey - ключ в c.Locals, под которым requestid middleware хранит идентификатор
const RequestIDKey = "requestid"

type SuccessResponse struct {
	Data interface{} `json:"data"`
	Meta *Meta       `json:"meta,omitempty"`
}

type ErrorResponse struct {
	Error     *errors.AppError `json:"error"`
	RequestID string           `json:"request_id,omitempty"`
}

// Meta - служебные данные ответа для списков
type Meta struct {
	Total    int     `json:"total,omitempty"`
	TimeMSec float64 `json:"time_ms,omitempty"`
}

func SendSuccess(c *fiber.Ctx, data interface{}, meta *Meta) error {
	return c.JSON(SuccessResponse{
		Data: data,
		Meta: meta,
	})
}

// SendError отдает ошибку в виде AppError; неизвестные ошибки становятся INTERNAL_SERVER_ERROR
func SendError(c *fiber.Ctx, err error) error {
	appErr := errors.From(err)
	return c.Status(appErr.StatusCode).JSON(ErrorResponse{
		Error:     appErr,
		RequestID: RequestID(c),
	})
}

// RequestID возвращает идентификатор запроса или пустую строку
func RequestID(c *fiber.Ctx) string {
	id, _ := c.Locals(RequestIDKey).(string)
	return id
}
