package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ScheduleStatus - статус записи расписания
type ScheduleStatus int

const (
	ScheduleStatusPending  ScheduleStatus = 0
	ScheduleStatusExecuted ScheduleStatus = 1
)

func (s ScheduleStatus) String() string {
	if s == ScheduleStatusExecuted {
		return "executed"
	}
	return "pending"
}

// ScheduleEntry - запись о том, когда должна сработать перемаршрутизация
// сервиса и чем она закончилась. Уникальна по ServiceID.
type ScheduleEntry struct {
	ServiceID         int64           `json:"service_id" db:"service_id"`
	RouteID           int64           `json:"route_id" db:"route_id"`
	ExpectedAt        time.Time       `json:"expected_at" db:"expected_at"`
	Status            ScheduleStatus  `json:"status" db:"status"`
	ExecutedAt        *time.Time      `json:"executed_at,omitempty" db:"executed_at"`
	NotReroutedReason json.RawMessage `json:"not_rerouted_reason,omitempty" db:"not_rerouted_reason"`
	RawResponse       json.RawMessage `json:"raw_response,omitempty" db:"raw_response"`
	ProcessedResponse json.RawMessage `json:"processed_response,omitempty" db:"processed_response"`
	IdempotencyKey    uuid.UUID       `json:"idempotency_key" db:"idempotency_key"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}

// IsPending - запись ещё не исполнена
func (e *ScheduleEntry) IsPending() bool {
	return e.Status == ScheduleStatusPending
}

// DueAt - совпадает ли минута срабатывания с минутой instant (секунды игнорируются)
func (e *ScheduleEntry) DueAt(instant time.Time) bool {
	return e.ExpectedAt.UTC().Truncate(time.Minute).Equal(instant.UTC().Truncate(time.Minute))
}

// ExecutionOutcome - итог исполнения: ровно одно из Reason или пары
// RawResponse/ProcessedResponse.
type ExecutionOutcome struct {
	Reason            json.RawMessage
	RawResponse       json.RawMessage
	ProcessedResponse json.RawMessage
}
