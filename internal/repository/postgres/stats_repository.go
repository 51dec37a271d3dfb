package postgres

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rerouting-service/internal/domain"
	"github.com/rerouting-service/internal/domain/repository"
)

type statsRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewStatsRepository создает новый экземпляр stats repository
func NewStatsRepository(db *DB, logger *zap.Logger) repository.StatsRepository {
	return &statsRepository{
		db:     db,
		logger: logger,
	}
}

// GetStatistics возвращает агрегированную статистику по расписаниям
func (r *statsRepository) GetStatistics(ctx context.Context) (*domain.ScheduleStats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 0)                                    AS pending,
			COUNT(*) FILTER (WHERE status = 1)                                    AS executed,
			COUNT(*) FILTER (WHERE status = 1 AND processed_response IS NOT NULL)  AS rerouted,
			COUNT(*) FILTER (WHERE status = 1 AND not_rerouted_reason IS NOT NULL) AS not_rerouted,
			MIN(expected_at) FILTER (WHERE status = 0 AND expected_at >= NOW())    AS next_due_at
		FROM schedules
	`

	var stats domain.ScheduleStats
	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		r.logger.Error("failed to get schedule stats", zap.Error(err))
		return nil, fmt.Errorf("get schedule stats: %w", err)
	}

	if stats.NextDueAt != nil {
		t := stats.NextDueAt.UTC()
		stats.NextDueAt = &t
	}
	stats.LastUpdated = time.Now().UTC()

	return &stats, nil
}
