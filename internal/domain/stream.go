package domain

import (
	"time"

	"github.com/google/uuid"
)

// Stream names (должны совпадать с сервисом планирования)
const (
	StreamServiceChanged = "stream:service:changed"
	StreamReroutingDone  = "stream:rerouting:done"
)

// ServiceChangeType - вид изменения сервиса
type ServiceChangeType string

const (
	ServiceCreated ServiceChangeType = "created"
	ServiceUpdated ServiceChangeType = "updated"
	ServiceDeleted ServiceChangeType = "deleted"
)

// ServiceChangedEvent - входящее событие об изменении сервиса
type ServiceChangedEvent struct {
	EventID   uuid.UUID         `json:"event_id"`
	ServiceID int64             `json:"service_id"`
	RouteID   *int64            `json:"route_id,omitempty"`
	Change    ServiceChangeType `json:"change"`
	// Policy передаётся, если отправитель уже знает политику маршрута
	Policy     *RoutePolicy `json:"policy,omitempty"`
	OccurredAt time.Time    `json:"occurred_at"`
}

// RequiresSchedule - нужно ли пересчитать расписание по событию
func (e *ServiceChangedEvent) RequiresSchedule() bool {
	return e.ServiceID > 0 && (e.Change == ServiceCreated || e.Change == ServiceUpdated)
}

// ReroutingDoneEvent - результат исполнения перемаршрутизации
type ReroutingDoneEvent struct {
	ServiceID    int64            `json:"service_id"`
	Outcome      ReroutingOutcome `json:"outcome"`
	ExpeditionID string           `json:"expedition_id,omitempty"`
	ExecutedAt   time.Time        `json:"executed_at"`
	Error        string           `json:"error,omitempty"`
}

// StreamMessage - сообщение из Redis Stream
type StreamMessage struct {
	ID   string
	Data string
}
