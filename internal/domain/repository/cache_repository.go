package repository

import (
	"context"
	"time"

	"github.com/rerouting-service/internal/domain"
)

// CacheRepository определяет методы для работы с кешем
type CacheRepository interface {
	// Get получает значение из кеша по ключу
	Get(ctx context.Context, key string) ([]byte, error)

	// Set сохраняет значение в кеше с TTL
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete удаляет значение из кеша
	Delete(ctx context.Context, key string) error

	// GetPolicy получает политику маршрута из кеша
	GetPolicy(ctx context.Context, routeID int64) (*domain.RoutePolicy, error)

	// SetPolicy сохраняет политику маршрута в кеше
	SetPolicy(ctx context.Context, policy *domain.RoutePolicy, ttl time.Duration) error

	// GetStats получает статистику из кеша
	GetStats(ctx context.Context) (*domain.ScheduleStats, error)

	// SetStats сохраняет статистику в кеше
	SetStats(ctx context.Context, stats *domain.ScheduleStats, ttl time.Duration) error

	// InvalidateStats сбрасывает кешированную статистику
	InvalidateStats(ctx context.Context) error
}

// LockRepository - короткоживущие блокировки на запись расписания
type LockRepository interface {
	// Acquire возвращает false, если блокировка уже занята
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release снимает блокировку
	Release(ctx context.Context, key string) error
}
