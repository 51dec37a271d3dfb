package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/rerouting-service/internal/domain"
	"github.com/rerouting-service/internal/domain/repository"
)

type routePolicyRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewRoutePolicyRepository создает репозиторий политик маршрутов
func NewRoutePolicyRepository(db *DB, logger *zap.Logger) repository.RoutePolicyRepository {
	return &routePolicyRepository{
		db:     db,
		logger: logger,
	}
}

type routePolicyRow struct {
	RouteID        int64          `db:"route_id"`
	Activated      bool           `db:"activated"`
	Kind           string         `db:"kind"`
	OffsetQuantity sql.NullInt64  `db:"offset_quantity"`
	OffsetUnit     sql.NullString `db:"offset_unit"`
}

// toDomain не проверяет политику: неполное смещение отдаётся как есть,
// проверка схемы выполняется при расчёте расписания
func (r routePolicyRow) toDomain() *domain.RoutePolicy {
	p := &domain.RoutePolicy{
		RouteID:   r.RouteID,
		Activated: r.Activated,
		Kind:      domain.PolicyKind(r.Kind),
	}
	if !r.OffsetQuantity.Valid && !r.OffsetUnit.Valid {
		return p
	}

	p.Offset = &domain.PolicyOffset{Unit: domain.OffsetUnit(r.OffsetUnit.String)}
	if r.OffsetQuantity.Valid {
		q := int(r.OffsetQuantity.Int64)
		p.Offset.Quantity = &q
	}
	return p
}

func (r *routePolicyRepository) GetPolicy(ctx context.Context, routeID int64) (*domain.RoutePolicy, error) {
	query := `
		SELECT route_id, activated, kind, offset_quantity, offset_unit
		FROM route_policies
		WHERE route_id = $1
	`

	var row routePolicyRow
	if err := r.db.GetContext(ctx, &row, query, routeID); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		r.logger.Error("failed to get route policy", zap.Int64("route_id", routeID), zap.Error(err))
		return nil, fmt.Errorf("get route policy %d: %w", routeID, err)
	}

	return row.toDomain(), nil
}
