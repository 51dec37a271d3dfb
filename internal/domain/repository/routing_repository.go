package repository

import (
	"context"

	"github.com/rerouting-service/internal/domain"
)

// RoutingRepository определяет методы для работы с движком маршрутизации
type RoutingRepository interface {
	// GetRoute возвращает маршрут через origin, waypoints и destination.
	// Ответ с некорректным статусом возвращается как результат, а не как ошибка;
	// ошибка означает сбой транспорта или формата.
	GetRoute(ctx context.Context, req domain.DirectionsRequest) (*domain.DirectionsResult, error)
}

// ExpeditionRepository определяет методы для работы с сервисом экспедиций
type ExpeditionRepository interface {
	// Create сохраняет итоговый план. Повтор с тем же idempotencyKey
	// не должен создавать вторую экспедицию.
	Create(ctx context.Context, result *domain.ProcessedResult, idempotencyKey string) (*domain.Expedition, error)
}
