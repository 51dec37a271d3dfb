package domain

import "errors"

var (
	// ErrScheduleAlreadyExecuted - запись уже переведена в executed
	ErrScheduleAlreadyExecuted = errors.New("schedule entry already executed")

	// ErrScheduleNotFound - записи расписания для сервиса нет
	ErrScheduleNotFound = errors.New("schedule entry not found")

	// ErrInvalidPolicy - политика маршрута не проходит проверку схемы
	ErrInvalidPolicy = errors.New("invalid route policy")

	// ErrPersistenceFailure - не удалось сохранить итог исполнения
	ErrPersistenceFailure = errors.New("schedule persistence failure")

	// ErrInvalidResponseFormat - ответ внешнего сервиса не разобран
	ErrInvalidResponseFormat = errors.New("invalid response format")

	// ErrInvalidRequestFormat - запрос к движку маршрутизации некорректен
	ErrInvalidRequestFormat = errors.New("invalid request format")
)
