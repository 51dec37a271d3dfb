package repository

import (
	"context"

	"github.com/rerouting-service/internal/domain"
)

// StatsRepository интерфейс для работы со статистикой расписаний
type StatsRepository interface {
	// GetStatistics возвращает агрегированную статистику по расписаниям
	GetStatistics(ctx context.Context) (*domain.ScheduleStats, error)
}
