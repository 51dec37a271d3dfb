package domain

import (
	"fmt"
	"time"
)

// ServiceStatus - код жизненного цикла сервиса
type ServiceStatus string

const (
	ServiceStatusPlanned              ServiceStatus = "PLANNED"
	ServiceStatusConfirmed            ServiceStatus = "CONFIRMED"
	ServiceStatusInProgress           ServiceStatus = "IN_PROGRESS"
	ServiceStatusInProgressWithIssues ServiceStatus = "IN_PROGRESS_WITH_ISSUES"
	ServiceStatusFinished             ServiceStatus = "FINISHED"
	ServiceStatusCanceled             ServiceStatus = "CANCELED"
)

// Reroutable сообщает, допускает ли статус перемаршрутизацию
func (s ServiceStatus) Reroutable() bool {
	switch s {
	case ServiceStatusInProgress, ServiceStatusInProgressWithIssues, ServiceStatusCanceled:
		return false
	}
	return true
}

// Service - транспортный сервис с локальным временем отправления
type Service struct {
	ID             int64         `json:"id" db:"id"`
	RouteID        int64         `json:"route_id" db:"route_id"`
	DepartureLocal time.Time     `json:"departure_local" db:"departure_local"`
	Timezone       string        `json:"timezone" db:"timezone"`
	Status         ServiceStatus `json:"status" db:"status"`
	IsReturnTrip   bool          `json:"is_return_trip" db:"is_return_trip"`
}

// DepartureIn возвращает момент отправления: настенное время DepartureLocal
// интерпретируется в часовом поясе сервиса.
func (s *Service) DepartureIn() (time.Time, error) {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("load timezone %q: %w", s.Timezone, err)
	}
	d := s.DepartureLocal
	return time.Date(d.Year(), d.Month(), d.Day(), d.Hour(), d.Minute(), d.Second(), d.Nanosecond(), loc), nil
}

// Occupancy - заполненность сервиса
type Occupancy struct {
	Capacity   int `json:"capacity" db:"capacity"`
	Passengers int `json:"passengers" db:"passengers"`
}

// ReroutingConfig - данные сервиса, необходимые для перемаршрутизации
type ReroutingConfig struct {
	ServiceID    int64     `json:"service_id"`
	IsReturnTrip bool      `json:"is_return_trip"`
	Occupancy    Occupancy `json:"occupancy"`
	Stops        []Stop    `json:"stops"`
}
