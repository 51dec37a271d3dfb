package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rerouting-service/internal/domain"
	"github.com/rerouting-service/internal/domain/repository"
)

type scheduleRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewScheduleRepository создает репозиторий записей расписания
func NewScheduleRepository(db *DB, logger *zap.Logger) repository.ScheduleRepository {
	return &scheduleRepository{
		db:     db,
		logger: logger,
	}
}

const scheduleColumns = `
	service_id, route_id, expected_at, status, executed_at,
	not_rerouted_reason, raw_response, processed_response,
	idempotency_key, created_at, updated_at`

// scheduleRow - jsonb-колонки могут быть NULL, json.RawMessage их не сканирует
type scheduleRow struct {
	ServiceID         int64                 `db:"service_id"`
	RouteID           int64                 `db:"route_id"`
	ExpectedAt        time.Time             `db:"expected_at"`
	Status            domain.ScheduleStatus `db:"status"`
	ExecutedAt        *time.Time            `db:"executed_at"`
	NotReroutedReason []byte                `db:"not_rerouted_reason"`
	RawResponse       []byte                `db:"raw_response"`
	ProcessedResponse []byte                `db:"processed_response"`
	IdempotencyKey    uuid.UUID             `db:"idempotency_key"`
	CreatedAt         time.Time             `db:"created_at"`
	UpdatedAt         time.Time             `db:"updated_at"`
}

func (r scheduleRow) toDomain() domain.ScheduleEntry {
	e := domain.ScheduleEntry{
		ServiceID:         r.ServiceID,
		RouteID:           r.RouteID,
		ExpectedAt:        r.ExpectedAt.UTC(),
		Status:            r.Status,
		NotReroutedReason: rawOrNil(r.NotReroutedReason),
		RawResponse:       rawOrNil(r.RawResponse),
		ProcessedResponse: rawOrNil(r.ProcessedResponse),
		IdempotencyKey:    r.IdempotencyKey,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
	if r.ExecutedAt != nil {
		t := r.ExecutedAt.UTC()
		e.ExecutedAt = &t
	}
	return e
}

func rawOrNil(b []byte) json.RawMessage {
	if len(b) == 0 {
		return nil
	}
	return json.RawMessage(b)
}

// Upsert создаёт запись или переносит срабатывание pending-записи.
// Ключ идемпотентности сохраняется при переносе.
func (r *scheduleRepository) Upsert(ctx context.Context, entry *domain.ScheduleEntry) error {
	if entry.IdempotencyKey == uuid.Nil {
		entry.IdempotencyKey = uuid.New()
	}

	query := `
		INSERT INTO schedules (service_id, route_id, expected_at, status, idempotency_key, created_at, updated_at)
		VALUES ($1, $2, $3, 0, $4, NOW(), NOW())
		ON CONFLICT (service_id) DO UPDATE
		SET route_id    = EXCLUDED.route_id,
		    expected_at = EXCLUDED.expected_at,
		    updated_at  = NOW()
		WHERE schedules.status = 0
	`

	res, err := r.db.ExecContext(ctx, query,
		entry.ServiceID,
		entry.RouteID,
		entry.ExpectedAt.UTC(),
		entry.IdempotencyKey,
	)
	if err != nil {
		r.logger.Error("failed to upsert schedule",
			zap.Int64("service_id", entry.ServiceID),
			zap.Error(err))
		return fmt.Errorf("upsert schedule: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("upsert schedule rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrScheduleAlreadyExecuted
	}

	return nil
}

// FindDueAt возвращает pending-записи в пределах минуты instant
func (r *scheduleRepository) FindDueAt(ctx context.Context, instant time.Time) ([]domain.ScheduleEntry, error) {
	query := `
		SELECT` + scheduleColumns + `
		FROM schedules
		WHERE status = 0
		  AND expected_at >= date_trunc('minute', $1::timestamptz)
		  AND expected_at <  date_trunc('minute', $1::timestamptz) + INTERVAL '1 minute'
		ORDER BY expected_at, service_id
	`
	return r.selectEntries(ctx, query, instant.UTC())
}

// FindOverdue возвращает pending-записи с expected_at в [since, before)
func (r *scheduleRepository) FindOverdue(ctx context.Context, since, before time.Time) ([]domain.ScheduleEntry, error) {
	query := `
		SELECT` + scheduleColumns + `
		FROM schedules
		WHERE status = 0
		  AND expected_at >= $1
		  AND expected_at <  $2
		ORDER BY expected_at, service_id
	`
	return r.selectEntries(ctx, query, since.UTC(), before.UTC())
}

func (r *scheduleRepository) selectEntries(ctx context.Context, query string, args ...interface{}) ([]domain.ScheduleEntry, error) {
	var rows []scheduleRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.Error("failed to select schedules", zap.Error(err))
		return nil, fmt.Errorf("select schedules: %w", err)
	}

	entries := make([]domain.ScheduleEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.toDomain())
	}
	return entries, nil
}

func (r *scheduleRepository) FindByServiceID(ctx context.Context, serviceID int64) (*domain.ScheduleEntry, error) {
	query := `SELECT` + scheduleColumns + ` FROM schedules WHERE service_id = $1`

	var row scheduleRow
	if err := r.db.GetContext(ctx, &row, query, serviceID); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get schedule %d: %w", serviceID, err)
	}

	entry := row.toDomain()
	return &entry, nil
}

// MarkExecuted - compare-and-swap pending -> executed
func (r *scheduleRepository) MarkExecuted(ctx context.Context, serviceID int64, outcome domain.ExecutionOutcome) error {
	query := `
		UPDATE schedules
		SET status              = 1,
		    executed_at         = NOW(),
		    not_rerouted_reason = $2,
		    raw_response        = $3,
		    processed_response  = $4,
		    updated_at          = NOW()
		WHERE service_id = $1 AND status = 0
	`

	res, err := r.db.ExecContext(ctx, query,
		serviceID,
		nullJSON(outcome.Reason),
		nullJSON(outcome.RawResponse),
		nullJSON(outcome.ProcessedResponse),
	)
	if err != nil {
		r.logger.Error("failed to mark schedule executed",
			zap.Int64("service_id", serviceID),
			zap.Error(err))
		return fmt.Errorf("mark schedule executed: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark schedule executed rows affected: %w", err)
	}
	if affected == 1 {
		return nil
	}

	var exists bool
	if err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM schedules WHERE service_id = $1)`, serviceID); err != nil {
		return fmt.Errorf("check schedule %d: %w", serviceID, err)
	}
	if !exists {
		return domain.ErrScheduleNotFound
	}
	return domain.ErrScheduleAlreadyExecuted
}
