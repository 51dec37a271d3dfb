package repository

import (
	"context"
	"time"

	"github.com/rerouting-service/internal/domain"
)

// ScheduleRepository - хранилище записей расписания перемаршрутизации
type ScheduleRepository interface {
	// Upsert создаёт запись по ServiceID или перезаписывает ExpectedAt
	// у ещё не исполненной записи. Исполненные записи не меняются,
	// в этом случае возвращается ErrScheduleAlreadyExecuted.
	Upsert(ctx context.Context, entry *domain.ScheduleEntry) error

	// FindDueAt возвращает pending-записи, чья минута срабатывания
	// совпадает с минутой instant
	FindDueAt(ctx context.Context, instant time.Time) ([]domain.ScheduleEntry, error)

	// FindOverdue возвращает pending-записи с ExpectedAt в [since, before)
	FindOverdue(ctx context.Context, since, before time.Time) ([]domain.ScheduleEntry, error)

	// FindByServiceID возвращает запись сервиса; nil, если её нет
	FindByServiceID(ctx context.Context, serviceID int64) (*domain.ScheduleEntry, error)

	// MarkExecuted переводит запись pending -> executed не более одного раза.
	// Если запись уже исполнена, возвращает ErrScheduleAlreadyExecuted,
	// если её нет - ErrScheduleNotFound.
	MarkExecuted(ctx context.Context, serviceID int64, outcome domain.ExecutionOutcome) error
}
