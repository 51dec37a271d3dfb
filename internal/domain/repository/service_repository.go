package repository

import (
	"context"

	"github.com/rerouting-service/internal/domain"
)

// ServiceRepository - справочник сервисов (только чтение)
type ServiceRepository interface {
	// GetDepartureInfo возвращает сервис с часовым поясом; nil, если не найден
	GetDepartureInfo(ctx context.Context, serviceID int64) (*domain.Service, error)

	// CanBeRerouted проверяет, допускает ли статус сервиса перемаршрутизацию
	CanBeRerouted(ctx context.Context, serviceID int64) (bool, error)

	// GetReroutingConfig возвращает остановки и заполненность сервиса
	GetReroutingConfig(ctx context.Context, serviceID int64) (*domain.ReroutingConfig, error)
}

// RoutePolicyRepository - хранилище политик маршрутов
type RoutePolicyRepository interface {
	// GetPolicy возвращает политику маршрута; nil, если политики нет
	GetPolicy(ctx context.Context, routeID int64) (*domain.RoutePolicy, error)
}
