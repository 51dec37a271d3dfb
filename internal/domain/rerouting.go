package domain

import (
	"encoding/json"
	"time"
)

// ProcessedResult - итоговый план перемаршрутизации, отправляемый в сервис экспедиций
type ProcessedResult struct {
	ServiceID int64     `json:"service_id"`
	Occupancy Occupancy `json:"occupancy"`
	Stops     []Stop    `json:"stops"`
	Polyline  string    `json:"polyline"`
}

// Expedition - экспедиция, сохранённая внешним сервисом
type Expedition struct {
	ID        string    `json:"id"`
	ServiceID int64     `json:"service_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ReroutingOutcome - терминальный итог одной попытки перемаршрутизации
type ReroutingOutcome string

const (
	OutcomeNotEligible     ReroutingOutcome = "not_eligible"
	OutcomeStatusBlocked   ReroutingOutcome = "status_blocked"
	OutcomeUpstreamError   ReroutingOutcome = "upstream_error"
	OutcomeSuccess         ReroutingOutcome = "success"
	OutcomeAlreadyExecuted ReroutingOutcome = "already_executed"
	OutcomeInFlight        ReroutingOutcome = "in_flight"
)

// ReroutingResult - структурированный результат исполнения
type ReroutingResult struct {
	ServiceID  int64            `json:"service_id"`
	Outcome    ReroutingOutcome `json:"outcome"`
	Reason     json.RawMessage  `json:"reason,omitempty"`
	Expedition *Expedition      `json:"expedition,omitempty"`
}

// NotReroutedReason - диагностическое сообщение, сохраняемое в not_rerouted_reason
type NotReroutedReason struct {
	Code      string          `json:"code"`
	Message   string          `json:"message"`
	ServiceID int64           `json:"service_id"`
	Status    ServiceStatus   `json:"status,omitempty"`
	Upstream  json.RawMessage `json:"upstream,omitempty"`
}
