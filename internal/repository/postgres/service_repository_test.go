package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/rerouting-service/internal/domain"
	"github.com/rerouting-service/internal/domain/repository"
	"github.com/rerouting-service/internal/repository/postgres/testhelpers"
)

// ServiceRepositoryTestSuite тестирует справочник сервисов и политики маршрутов
type ServiceRepositoryTestSuite struct {
	suite.Suite
	testDB   *testhelpers.TestDB
	services repository.ServiceRepository
	policies repository.RoutePolicyRepository
	stats    repository.StatsRepository
	ctx      context.Context
}

func (s *ServiceRepositoryTestSuite) SetupSuite() {
	s.testDB = testhelpers.SetupTestDB(s.T())
	s.ctx = context.Background()

	s.Require().NoError(s.testDB.Cleanup(s.ctx))
	_ = testhelpers.ApplyMigrations(s.testDB.DB.DB, "../../../migrations")

	err := testhelpers.LoadFixtures(s.testDB.DB.DB, "testdata/fixtures", []string{"services.sql"})
	s.Require().NoError(err, "Failed to load fixtures")

	s.services = testhelpers.NewServiceRepositoryForTest(s.testDB.DB, s.testDB.Logger)
	s.policies = testhelpers.NewRoutePolicyRepositoryForTest(s.testDB.DB, s.testDB.Logger)
	s.stats = testhelpers.NewStatsRepositoryForTest(s.testDB.DB, s.testDB.Logger)
}

func (s *ServiceRepositoryTestSuite) TearDownSuite() {
	if s.testDB != nil {
		_ = s.testDB.Cleanup(context.Background())
		s.testDB.Close()
	}
}

func (s *ServiceRepositoryTestSuite) TestGetDepartureInfo() {
	svc, err := s.services.GetDepartureInfo(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().NotNil(svc)
	s.Equal(int64(100), svc.RouteID)
	s.Equal("Europe/Madrid", svc.Timezone)
	s.Equal(domain.ServiceStatusPlanned, svc.Status)
	s.True(svc.IsReturnTrip)

	dep, err := svc.DepartureIn()
	s.Require().NoError(err)
	// июнь: CEST, UTC+2
	s.Equal(time.Date(2030, 6, 1, 8, 0, 0, 0, time.UTC), dep.UTC())

	missing, err := s.services.GetDepartureInfo(s.ctx, 404)
	s.NoError(err)
	s.Nil(missing)
}

func (s *ServiceRepositoryTestSuite) TestCanBeRerouted() {
	ok, err := s.services.CanBeRerouted(s.ctx, 10)
	s.NoError(err)
	s.True(ok)

	ok, err = s.services.CanBeRerouted(s.ctx, 11)
	s.NoError(err)
	s.False(ok)

	ok, err = s.services.CanBeRerouted(s.ctx, 404)
	s.NoError(err)
	s.False(ok)
}

func (s *ServiceRepositoryTestSuite) TestGetReroutingConfig() {
	cfg, err := s.services.GetReroutingConfig(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().NotNil(cfg)

	s.True(cfg.IsReturnTrip)
	s.Equal(domain.Occupancy{Capacity: 50, Passengers: 12}, cfg.Occupancy)
	s.Require().Len(cfg.Stops, 5)

	origin := cfg.Stops[0]
	s.Equal(domain.StopTypeOrigin, origin.Type)
	s.Equal(domain.ClockTime("07:55"), origin.ArrivalTime)
	s.Equal(domain.ClockTime("08:00"), origin.DepartureTime)
	s.Require().NotNil(origin.DepartureOffsetMinutes)
	s.Equal(15, *origin.DepartureOffsetMinutes)

	s.Equal(5, cfg.Stops[1].OccupationOrigin)
	s.Nil(cfg.Stops[1].DepartureOffsetMinutes)
	s.Equal(domain.StopTypeDestination, cfg.Stops[4].Type)
}

func (s *ServiceRepositoryTestSuite) TestGetPolicy() {
	p, err := s.policies.GetPolicy(s.ctx, 100)
	s.Require().NoError(err)
	s.Require().NotNil(p)
	s.True(p.AppliesTimeBeforeService())
	minutes, err := p.MinutesBefore()
	s.Require().NoError(err)
	s.Equal(30, minutes)

	p, err = s.policies.GetPolicy(s.ctx, 300)
	s.Require().NoError(err)
	s.Nil(p.Offset, "missing offset is returned as nil for validation upstream")

	p, err = s.policies.GetPolicy(s.ctx, 400)
	s.Require().NoError(err)
	s.Equal(domain.OffsetUnit("weeks"), p.Offset.Unit)

	p, err = s.policies.GetPolicy(s.ctx, 999)
	s.NoError(err)
	s.Nil(p)
}

func (s *ServiceRepositoryTestSuite) TestGetStatistics() {
	stats, err := s.stats.GetStatistics(s.ctx)
	s.Require().NoError(err)
	s.GreaterOrEqual(stats.Pending, 0)
	s.False(stats.LastUpdated.IsZero())
}

func TestServiceRepositorySuite(t *testing.T) {
	suite.Run(t, new(ServiceRepositoryTestSuite))
}
