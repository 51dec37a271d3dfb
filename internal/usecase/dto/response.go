package dto

import (
	"encoding/json"
	"time"

	"github.com/rerouting-service/internal/domain"
)

// ScheduleResponse - запись расписания
type ScheduleResponse struct {
	ServiceID         int64           `json:"service_id"`
	RouteID           int64           `json:"route_id"`
	ExpectedAt        time.Time       `json:"expected_at"`
	Status            string          `json:"status"`
	ExecutedAt        *time.Time      `json:"executed_at,omitempty"`
	NotReroutedReason json.RawMessage `json:"not_rerouted_reason,omitempty" swaggertype:"object"`
	IdempotencyKey    string          `json:"idempotency_key"`
}

// ComputeScheduleResponse - итог пересчета расписания
type ComputeScheduleResponse struct {
	ServiceID int64             `json:"service_id"`
	Scheduled bool              `json:"scheduled"`
	Departure *time.Time        `json:"departure,omitempty"`
	Schedule  *ScheduleResponse `json:"schedule,omitempty"`
}

// DueResponse - записи, подлежащие исполнению в минуту at
type DueResponse struct {
	At      time.Time          `json:"at"`
	Entries []ScheduleResponse `json:"entries"`
}

// ExecuteResponse - итог исполнения записи
type ExecuteResponse struct {
	ServiceID    int64           `json:"service_id"`
	Outcome      string          `json:"outcome"`
	Reason       json.RawMessage `json:"reason,omitempty" swaggertype:"object"`
	ExpeditionID string          `json:"expedition_id,omitempty"`
}

// HealthResponse - состояние зависимостей
type HealthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

// NewScheduleResponse конвертирует запись расписания в ответ API
func NewScheduleResponse(e *domain.ScheduleEntry) *ScheduleResponse {
	if e == nil {
		return nil
	}
	return &ScheduleResponse{
		ServiceID:         e.ServiceID,
		RouteID:           e.RouteID,
		ExpectedAt:        e.ExpectedAt.UTC(),
		Status:            e.Status.String(),
		ExecutedAt:        e.ExecutedAt,
		NotReroutedReason: e.NotReroutedReason,
		IdempotencyKey:    e.IdempotencyKey.String(),
	}
}

// NewComputeScheduleResponse собирает итог ComputeAndSave
func NewComputeScheduleResponse(serviceID int64, service *domain.Service, entry *domain.ScheduleEntry) *ComputeScheduleResponse {
	resp := &ComputeScheduleResponse{
		ServiceID: serviceID,
		Scheduled: entry != nil,
		Schedule:  NewScheduleResponse(entry),
	}
	if service != nil {
		if dep, err := service.DepartureIn(); err == nil {
			utc := dep.UTC()
			resp.Departure = &utc
		}
	}
	return resp
}

// NewDueResponse конвертирует список записей
func NewDueResponse(at time.Time, entries []domain.ScheduleEntry) *DueResponse {
	resp := &DueResponse{At: at.UTC().Truncate(time.Minute), Entries: make([]ScheduleResponse, 0, len(entries))}
	for i := range entries {
		resp.Entries = append(resp.Entries, *NewScheduleResponse(&entries[i]))
	}
	return resp
}

// NewExecuteResponse конвертирует итог исполнения
func NewExecuteResponse(r *domain.ReroutingResult) *ExecuteResponse {
	resp := &ExecuteResponse{
		ServiceID: r.ServiceID,
		Outcome:   string(r.Outcome),
		Reason:    r.Reason,
	}
	if r.Expedition != nil {
		resp.ExpeditionID = r.Expedition.ID
	}
	return resp
}
