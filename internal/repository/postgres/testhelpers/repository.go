package testhelpers

import (
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/rerouting-service/internal/domain/repository"
	"github.com/rerouting-service/internal/repository/postgres"
)

// NewDBForTest creates a postgres.DB with test database and logger
func NewDBForTest(db *sqlx.DB, logger *zap.Logger) *postgres.DB {
	return postgres.NewDBForTest(db, logger)
}

// NewScheduleRepositoryForTest creates a schedule repository with test database and logger
func NewScheduleRepositoryForTest(db *sqlx.DB, logger *zap.Logger) repository.ScheduleRepository {
	return postgres.NewScheduleRepository(NewDBForTest(db, logger), logger)
}

// NewServiceRepositoryForTest creates a service repository with test database and logger
func NewServiceRepositoryForTest(db *sqlx.DB, logger *zap.Logger) repository.ServiceRepository {
	return postgres.NewServiceRepository(NewDBForTest(db, logger), logger)
}

// NewRoutePolicyRepositoryForTest creates a route policy repository with test database and logger
func NewRoutePolicyRepositoryForTest(db *sqlx.DB, logger *zap.Logger) repository.RoutePolicyRepository {
	return postgres.NewRoutePolicyRepository(NewDBForTest(db, logger), logger)
}

// NewStatsRepositoryForTest creates a stats repository with test database and logger
func NewStatsRepositoryForTest(db *sqlx.DB, logger *zap.Logger) repository.StatsRepository {
	return postgres.NewStatsRepository(NewDBForTest(db, logger), logger)
}
