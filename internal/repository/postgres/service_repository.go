package postgres

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rerouting-service/internal/domain"
	"github.com/rerouting-service/internal/domain/repository"
)

type serviceRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewServiceRepository создает репозиторий сервисов (только чтение)
func NewServiceRepository(db *DB, logger *zap.Logger) repository.ServiceRepository {
	return &serviceRepository{
		db:     db,
		logger: logger,
	}
}

func (r *serviceRepository) GetDepartureInfo(ctx context.Context, serviceID int64) (*domain.Service, error) {
	query := `
		SELECT id, route_id, departure_local, timezone, status, is_return_trip
		FROM services
		WHERE id = $1
	`

	var service domain.Service
	if err := r.db.GetContext(ctx, &service, query, serviceID); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		r.logger.Error("failed to get service", zap.Int64("service_id", serviceID), zap.Error(err))
		return nil, fmt.Errorf("get service %d: %w", serviceID, err)
	}

	return &service, nil
}

// CanBeRerouted - отсутствующий сервис перемаршрутизировать нельзя
func (r *serviceRepository) CanBeRerouted(ctx context.Context, serviceID int64) (bool, error) {
	var status domain.ServiceStatus
	err := r.db.GetContext(ctx, &status, `SELECT status FROM services WHERE id = $1`, serviceID)
	if err != nil {
		if isNoRows(err) {
			return false, nil
		}
		return false, fmt.Errorf("get service status %d: %w", serviceID, err)
	}

	return status.Reroutable(), nil
}

type reroutingHeaderRow struct {
	IsReturnTrip bool `db:"is_return_trip"`
	Capacity     int  `db:"capacity"`
	Passengers   int  `db:"passengers"`
}

// GetReroutingConfig возвращает план остановок в порядке position; nil, если сервиса нет
func (r *serviceRepository) GetReroutingConfig(ctx context.Context, serviceID int64) (*domain.ReroutingConfig, error) {
	var header reroutingHeaderRow
	err := r.db.GetContext(ctx, &header,
		`SELECT is_return_trip, capacity, passengers FROM services WHERE id = $1`, serviceID)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get rerouting config %d: %w", serviceID, err)
	}

	// TIME отдаётся строкой HH:MM, чтобы не зависеть от представления драйвера
	query := `
		SELECT
			id AS stop_id,
			stop_type,
			lat,
			lon,
			to_char(arrival_time, 'HH24:MI')   AS arrival_time,
			to_char(departure_time, 'HH24:MI') AS departure_time,
			passengers,
			occupation_origin,
			occupation_destination,
			departure_offset_minutes
		FROM service_stops
		WHERE service_id = $1
		ORDER BY position
	`

	var stops []domain.Stop
	if err := r.db.SelectContext(ctx, &stops, query, serviceID); err != nil {
		r.logger.Error("failed to get service stops", zap.Int64("service_id", serviceID), zap.Error(err))
		return nil, fmt.Errorf("get service stops %d: %w", serviceID, err)
	}

	return &domain.ReroutingConfig{
		ServiceID:    serviceID,
		IsReturnTrip: header.IsReturnTrip,
		Occupancy: domain.Occupancy{
			Capacity:   header.Capacity,
			Passengers: header.Passengers,
		},
		Stops: stops,
	}, nil
}
