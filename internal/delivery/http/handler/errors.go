package handler

import (
	"errors"

	"github.com/rerouting-service/internal/domain"
	apperrors "github.com/rerouting-service/internal/pkg/errors"
)

// toAppError переводит доменные ошибки в ошибки API
func toAppError(err error) error {
	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, domain.ErrScheduleNotFound):
		return apperrors.ErrScheduleNotFound.Wrap(err)
	case errors.Is(err, domain.ErrInvalidPolicy):
		return apperrors.ErrInvalidPolicy.Wrap(err).WithDetails(map[string]interface{}{"reason": err.Error()})
	case errors.Is(err, domain.ErrPersistenceFailure):
		return apperrors.ErrPersistenceFailure.Wrap(err)
	case errors.Is(err, domain.ErrInvalidRequestFormat):
		return apperrors.ErrInvalidRequest.Wrap(err).WithDetails(map[string]interface{}{"reason": err.Error()})
	}
	return apperrors.ErrInternalServer.Wrap(err)
}
