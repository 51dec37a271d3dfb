package dto

import "github.com/rerouting-service/internal/domain"

// ComputeScheduleRequest - запрос на пересчет расписания сервиса.
// Без policy используется политика маршрута сервиса.
type ComputeScheduleRequest struct {
	Policy *domain.RoutePolicy `json:"policy,omitempty"`
}

// ServiceChangedRequest - ручная публикация изменения сервиса в поток
type ServiceChangedRequest struct {
	ServiceID int64                    `json:"service_id" validate:"required,gt=0"`
	Change    domain.ServiceChangeType `json:"change" validate:"required,oneof=created updated deleted"`
	Policy    *domain.RoutePolicy      `json:"policy,omitempty"`
}
