package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rerouting-service/internal/domain"
	"github.com/rerouting-service/internal/domain/repository"
)

// StatsUseCase отдает сводку по расписанию. Кеш сбрасывается исполнителем
// при каждой финализации записи, см. ReroutingUseCase.WithStatsCache.
type StatsUseCase struct {
	statsRepo repository.StatsRepository
	cacheRepo repository.CacheRepository
	ttl       time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

// NewStatsUseCase создает новый экземпляр StatsUseCase
func NewStatsUseCase(
	statsRepo repository.StatsRepository,
	cacheRepo repository.CacheRepository,
	ttl time.Duration,
	logger *zap.Logger,
) *StatsUseCase {
	return &StatsUseCase{
		statsRepo: statsRepo,
		cacheRepo: cacheRepo,
		ttl:       ttl,
		now:       time.Now,
		logger:    logger,
	}
}

// WithClock подменяет источник текущего времени (для тестов)
func (uc *StatsUseCase) WithClock(now func() time.Time) *StatsUseCase {
	uc.now = now
	return uc
}

// GetStatistics возвращает сводку из кеша, пока ближайшая pending запись
// еще не наступила; иначе пересчитывает ее в БД.
func (uc *StatsUseCase) GetStatistics(ctx context.Context) (*domain.ScheduleStats, error) {
	cached, err := uc.cacheRepo.GetStats(ctx)
	if err != nil {
		uc.logger.Warn("Failed to get stats from cache", zap.Error(err))
	}
	if cached != nil && !uc.overdue(cached) {
		uc.logger.Debug("Statistics fetched from cache")
		return cached, nil
	}

	stats, err := uc.statsRepo.GetStatistics(ctx)
	if err != nil {
		return nil, fmt.Errorf("get statistics from db: %w", err)
	}

	// ttl ограничиваем моментом ближайшего исполнения
	ttl := uc.ttl
	if stats.NextDueAt != nil {
		if untilDue := stats.NextDueAt.Sub(uc.now()); untilDue > 0 && untilDue < ttl {
			ttl = untilDue
		}
	}
	if err := uc.cacheRepo.SetStats(ctx, stats, ttl); err != nil {
		uc.logger.Warn("Failed to cache stats", zap.Error(err))
	}

	return stats, nil
}

// overdue - в кешированной сводке есть запись, срок которой уже прошел:
// тик мог ее исполнить, счетчики устарели
func (uc *StatsUseCase) overdue(stats *domain.ScheduleStats) bool {
	return stats.NextDueAt != nil && !stats.NextDueAt.After(uc.now())
}
